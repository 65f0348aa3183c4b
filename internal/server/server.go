package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"equity-advisor-backend/internal/advice"
	"equity-advisor-backend/internal/advisor"
	"equity-advisor-backend/internal/config"
	"equity-advisor-backend/internal/monitor"
	"equity-advisor-backend/internal/rag"
	"equity-advisor-backend/internal/store"
	"equity-advisor-backend/internal/types"
)

type Server struct {
	router  *chi.Mux
	cfg     config.Config
	advisor *advisor.Service
	rag     rag.Querier
	store   *store.MemoryStore
	monitor *monitor.Monitor
	started time.Time
}

func NewServer(cfg config.Config, svc *advisor.Service, ragc rag.Querier, mon *monitor.Monitor) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:  r,
		cfg:     cfg,
		advisor: svc,
		rag:     ragc,
		store:   store.NewMemoryStore(cfg.SessionMaxMessages, cfg.SessionTTL),
		monitor: mon,
		started: time.Now(),
	}
	r.Use(s.recoverer)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/chat/message", s.handleChatMessage)
	s.router.Get("/api/chat/topics", s.handleTopics)
	s.router.Get("/api/chat/history", s.handleHistory)
	// Static advisory lookups
	s.router.Get("/api/advice/schemes", s.handleSchemes)
	s.router.Get("/api/advice/schemes/{scheme}", s.handleScheme)
	s.router.Get("/api/advice/rates", s.handleRates)
	s.router.Get("/api/advice/eligibility/emi", s.handleEMIEligibility)
	s.router.Get("/api/advice/search", s.handleSearch)
}

func (s *Server) Router() http.Handler { return s.router }

// recoverer converts panics into the generic JSON 500 envelope instead of a
// bare stack trace.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[server] panic serving %s: %v", r.URL.Path, rec)
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	deps := types.DependencyHealth{}
	if s.monitor != nil {
		snap := s.monitor.Snapshot()
		deps = types.DependencyHealth{
			RAGAvailable: snap.RAGAvailable,
			LLMAvailable: snap.LLMAvailable,
			CheckedAt:    snap.CheckedAt,
		}
	}

	s.writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:        "OK",
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: time.Since(s.started).Seconds(),
		Memory: types.MemoryUsage{
			AllocBytes:      mem.Alloc,
			TotalAllocBytes: mem.TotalAlloc,
			SysBytes:        mem.Sys,
			NumGC:           mem.NumGC,
		},
		PID:          os.Getpid(),
		Dependencies: deps,
		Breakers:     s.advisor.BreakerStates(),
	})
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: message must be a string")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	sid := s.getOrCreateSessionID(r, w)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	resp, err := s.advisor.ProcessMessage(ctx, req.Message)
	if err != nil {
		// Only invalid input comes back as an error; dependency failures
		// degrade inside the orchestrator.
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.store.Append(sid, store.Message{Role: "user", Content: req.Message})
	s.store.Append(sid, store.Message{Role: "assistant", Content: resp.Response})

	w.Header().Set("X-Session-Id", sid)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, types.TopicsResponse{Topics: s.advisor.Topics()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sid := s.getSessionID(r)
	resp := types.HistoryResponse{SessionID: sid, Messages: []types.HistoryMessage{}}
	if sid != "" {
		for _, m := range s.store.Get(sid) {
			resp.Messages = append(resp.Messages, types.HistoryMessage{Role: m.Role, Content: m.Content, At: m.At})
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchemes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"schemes": advice.Schemes()})
}

func (s *Server) handleScheme(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "scheme")
	scheme, ok := advice.SchemeByKey(key)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown scheme: %s", key))
		return
	}
	s.writeJSON(w, http.StatusOK, scheme)
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, advice.Rates())
}

func (s *Server) handleEMIEligibility(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"rules": advice.EMIEligibility()})
}

// handleSearch exposes the bridge's raw document search: the retrieved
// passages without answer generation. A broken bridge degrades to an empty,
// unavailable result rather than a 5xx.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	res, err := s.rag.Search(ctx, query)
	if err != nil {
		log.Printf("[server] document search failed: %v", err)
		res = rag.SearchResult{Results: []rag.SearchHit{}, Query: query, Available: false, Err: err.Error()}
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{
		Error:     msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func newSessionID() string {
	return fmt.Sprintf("s_%d", time.Now().UnixNano())
}

// getSessionID retrieves the session ID from cookie, header or query param.
func (s *Server) getSessionID(r *http.Request) string {
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}

// getOrCreateSessionID gets the existing session ID or creates a new one,
// setting the cookie.
func (s *Server) getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := s.getSessionID(r)
	if sid == "" {
		sid = newSessionID()
		SetSessionCookie(w, sid)
	}
	return sid
}
