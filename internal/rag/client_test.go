package rag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(timeout time.Duration) *Client {
	return NewClient("/bin/sh", "testdata/fake_bridge.sh", timeout)
}

func TestQueryReturnsAnswerAndSources(t *testing.T) {
	c := newTestClient(10 * time.Second)

	res := c.Query(context.Background(), "What is the EMI grant limit?")

	require.True(t, res.Available)
	assert.False(t, res.FallbackMode)
	assert.Contains(t, res.Answer, "250,000")
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "ETASSUM50000", res.Sources[0].Section)
	assert.Equal(t, "Enterprise Management Incentives", res.Sources[0].SectionTitle)
}

func TestQueryBridgeFallbackModePassedThrough(t *testing.T) {
	c := newTestClient(10 * time.Second)

	res := c.Query(context.Background(), "fallback")

	assert.False(t, res.Available)
	assert.True(t, res.FallbackMode)
	assert.Equal(t, "chromadb unreachable", res.Err)
}

func TestQueryNonZeroExitNeverErrors(t *testing.T) {
	c := newTestClient(10 * time.Second)

	res := c.Query(context.Background(), "fail")

	assert.False(t, res.Available)
	assert.True(t, res.FallbackMode)
	assert.Contains(t, res.Err, "retriever exploded")
}

func TestQueryMalformedJSON(t *testing.T) {
	c := newTestClient(10 * time.Second)

	res := c.Query(context.Background(), "garbage")

	assert.False(t, res.Available)
	assert.True(t, res.FallbackMode)
	assert.Contains(t, res.Err, "malformed")
}

func TestQueryTimeout(t *testing.T) {
	c := newTestClient(100 * time.Millisecond)

	start := time.Now()
	res := c.Query(context.Background(), "slow")

	assert.Less(t, time.Since(start), 3*time.Second)
	assert.False(t, res.Available)
	assert.True(t, res.FallbackMode)
	assert.Contains(t, res.Err, "timed out")
}

func TestQueryMissingScript(t *testing.T) {
	c := NewClient("/bin/sh", "testdata/does_not_exist.sh", time.Second)

	res := c.Query(context.Background(), "anything")

	assert.False(t, res.Available)
	assert.True(t, res.FallbackMode)
	assert.NotEmpty(t, res.Err)
}

func TestSearchReturnsScoredHits(t *testing.T) {
	c := newTestClient(10 * time.Second)

	res, err := c.Search(context.Background(), "emi limits")

	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, "emi limits", res.Query)
	assert.Equal(t, 2, res.Count)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "ETASSUM50000", res.Results[0].Section)
	assert.InDelta(t, 0.82, res.Results[0].Score, 0.001)
	assert.Contains(t, res.Results[0].Content, "250,000")
}

func TestSearchUnavailableBridge(t *testing.T) {
	c := newTestClient(10 * time.Second)

	res, err := c.Search(context.Background(), "nothing")

	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Empty(t, res.Results)
	assert.Equal(t, "RAG system not available", res.Err)
}

func TestSearchMissingScript(t *testing.T) {
	c := NewClient("/bin/sh", "testdata/does_not_exist.sh", time.Second)

	_, err := c.Search(context.Background(), "anything")
	require.Error(t, err)
}

func TestStatus(t *testing.T) {
	c := newTestClient(10 * time.Second)

	st, err := c.Status(context.Background())

	require.NoError(t, err)
	assert.True(t, st.Available)
	assert.True(t, st.RetrieverInitialized)
}
