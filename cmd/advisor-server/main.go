package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equity-advisor-backend/internal/advisor"
	"equity-advisor-backend/internal/config"
	"equity-advisor-backend/internal/llm"
	"equity-advisor-backend/internal/monitor"
	"equity-advisor-backend/internal/rag"
	"equity-advisor-backend/internal/server"
)

func main() {
	cfg := config.Load()

	ragClient := rag.NewClient(cfg.RAGPython, cfg.RAGScript, cfg.RAGTimeout)
	llmClient := llm.NewClient(cfg.OllamaURL, cfg.OllamaModel, cfg.LLMTimeout)

	spec, err := advisor.LoadPromptSpec(cfg.PromptsFile)
	if err != nil {
		log.Printf("warning: using built-in prompts (%v)", err)
	}

	svc := advisor.New(spec, ragClient, llmClient, advisor.Options{
		FailureThreshold: cfg.BreakerFailureThreshold,
		ResetTimeout:     cfg.BreakerResetTimeout,
		RAGTimeout:       cfg.RAGTimeout,
		LLMTimeout:       cfg.LLMTimeout,
		CacheSize:        cfg.CacheSize,
		CacheTTL:         cfg.CacheTTL,
	})

	mon := monitor.New(ragClient, llmClient, cfg.MonitorSpec)
	if err := mon.Start(); err != nil {
		log.Printf("warning: dependency monitor disabled: %v", err)
	}
	defer mon.Stop()

	s := server.NewServer(cfg, svc, ragClient, mon)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("equity advisor server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Println("shutting down...")
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
}
