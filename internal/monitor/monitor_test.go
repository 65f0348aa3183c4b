package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"equity-advisor-backend/internal/rag"
)

type ragStub struct {
	status rag.Status
	err    error
}

func (s ragStub) Query(ctx context.Context, question string) rag.Result { return rag.Result{} }
func (s ragStub) Search(ctx context.Context, query string) (rag.SearchResult, error) {
	return rag.SearchResult{}, nil
}
func (s ragStub) Status(ctx context.Context) (rag.Status, error) { return s.status, s.err }

type pingStub struct{ err error }

func (p pingStub) Ping(ctx context.Context) error { return p.err }

func TestProbeUpdatesSnapshot(t *testing.T) {
	m := New(ragStub{status: rag.Status{Available: true}}, pingStub{}, "@every 5m")

	m.probe()

	snap := m.Snapshot()
	assert.True(t, snap.RAGAvailable)
	assert.True(t, snap.LLMAvailable)
	assert.False(t, snap.CheckedAt.IsZero())
}

func TestProbeRecordsFailures(t *testing.T) {
	m := New(
		ragStub{err: errors.New("bridge missing")},
		pingStub{err: errors.New("connection refused")},
		"@every 5m",
	)

	m.probe()

	snap := m.Snapshot()
	assert.False(t, snap.RAGAvailable)
	assert.False(t, snap.LLMAvailable)
}
