// Package monitor keeps a cached availability snapshot of the two external
// dependencies so the health endpoint never blocks on a probe.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"equity-advisor-backend/internal/rag"
)

// Pinger is the LLM reachability probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Snapshot struct {
	RAGAvailable bool
	LLMAvailable bool
	CheckedAt    time.Time
}

type Monitor struct {
	rag  rag.Querier
	llm  Pinger
	spec string
	cron *cron.Cron

	mu   sync.RWMutex
	snap Snapshot
}

// New creates a monitor probing on the given cron spec ("@every 5m" style).
func New(ragClient rag.Querier, llmClient Pinger, spec string) *Monitor {
	return &Monitor{
		rag:  ragClient,
		llm:  llmClient,
		spec: spec,
		cron: cron.New(),
	}
}

// Start registers the probe job and runs one probe immediately in the
// background so the first health check has data.
func (m *Monitor) Start() error {
	if _, err := m.cron.AddFunc(m.spec, m.probe); err != nil {
		return err
	}
	go m.probe()
	m.cron.Start()
	log.Printf("[monitor] dependency probes scheduled (%s)", m.spec)
	return nil
}

func (m *Monitor) Stop() {
	m.cron.Stop()
}

func (m *Monitor) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap := Snapshot{CheckedAt: time.Now().UTC()}

	if st, err := m.rag.Status(ctx); err != nil {
		log.Printf("[monitor] rag status probe failed: %v", err)
	} else {
		snap.RAGAvailable = st.Available
	}

	if err := m.llm.Ping(ctx); err != nil {
		log.Printf("[monitor] llm ping failed: %v", err)
	} else {
		snap.LLMAvailable = true
	}

	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
}

// Snapshot returns the last probe result; zero value before the first probe
// completes.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}
