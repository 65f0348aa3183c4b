// Package rag talks to the external HMRC retrieval bridge. The bridge is a
// Python script that takes a question as its single argument and prints a
// JSON result; it is treated as an opaque RPC boundary so the subprocess can
// later be swapped for a real retrieval service.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"equity-advisor-backend/internal/types"
)

// Result is what callers always get back from Query. Failures are folded
// into Available/FallbackMode/Err instead of a Go error so the orchestrator
// can degrade without unwrapping.
type Result struct {
	Answer       string         `json:"answer"`
	Sources      []types.Source `json:"sources"`
	Available    bool           `json:"rag_available"`
	FallbackMode bool           `json:"fallback_mode"`
	Err          string         `json:"error,omitempty"`
}

// Status reports bridge self-diagnostics (the bridge's "status" command).
type Status struct {
	Available            bool   `json:"rag_available"`
	RetrieverInitialized bool   `json:"retriever_initialized"`
	Err                  string `json:"error,omitempty"`
}

// SearchHit is one document returned by the bridge's similarity search.
type SearchHit struct {
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
	SourceURL string  `json:"source_url"`
	Section   string  `json:"section"`
}

// SearchResult is the payload of the bridge's "search:" command.
type SearchResult struct {
	Results   []SearchHit `json:"results"`
	Query     string      `json:"query"`
	Count     int         `json:"count"`
	Available bool        `json:"rag_available"`
	Err       string      `json:"error,omitempty"`
}

// Querier is the retrieval boundary consumed by the orchestrator, the
// search endpoint and the monitor.
type Querier interface {
	Query(ctx context.Context, question string) Result
	Search(ctx context.Context, query string) (SearchResult, error)
	Status(ctx context.Context) (Status, error)
}

type Client struct {
	python  string
	script  string
	timeout time.Duration
}

func NewClient(python, script string, timeout time.Duration) *Client {
	return &Client{python: python, script: script, timeout: timeout}
}

// Query asks the bridge a question. It never returns an error: spawn
// failures, non-zero exits, timeouts and malformed JSON all come back as an
// unavailable Result in fallback mode.
func (c *Client) Query(ctx context.Context, question string) Result {
	out, err := c.run(ctx, question)
	if err != nil {
		log.Printf("[rag] bridge call failed: %v", err)
		return unavailable(err)
	}
	res, err := parseResult(out)
	if err != nil {
		log.Printf("[rag] bad bridge output: %v", err)
		return unavailable(err)
	}
	return res
}

// Search runs the bridge's document similarity search without answer
// generation (the "search:" command).
func (c *Client) Search(ctx context.Context, query string) (SearchResult, error) {
	out, err := c.run(ctx, "search: "+query)
	if err != nil {
		return SearchResult{}, err
	}
	var res SearchResult
	if err := json.Unmarshal(bytes.TrimSpace(out), &res); err != nil {
		return SearchResult{}, fmt.Errorf("malformed search output: %w", err)
	}
	if res.Results == nil {
		res.Results = []SearchHit{}
	}
	return res, nil
}

// Status invokes the bridge with the literal "status" argument.
func (c *Client) Status(ctx context.Context) (Status, error) {
	out, err := c.run(ctx, "status")
	if err != nil {
		return Status{}, err
	}
	var st Status
	if err := json.Unmarshal(out, &st); err != nil {
		return Status{}, fmt.Errorf("malformed status output: %w", err)
	}
	return st, nil
}

// run executes the bridge with one argument. The argument is passed directly
// to exec (no shell), so no escaping is needed.
func (c *Client) run(ctx context.Context, arg string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.python, c.script, arg)
	// Don't let orphaned grandchildren holding the pipes stall Wait past the
	// deadline.
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("rag bridge timed out after %s", c.timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("rag bridge failed: %s", msg)
	}
	return stdout.Bytes(), nil
}

func parseResult(out []byte) (Result, error) {
	var res Result
	if err := json.Unmarshal(bytes.TrimSpace(out), &res); err != nil {
		return Result{}, fmt.Errorf("malformed bridge output: %w", err)
	}
	return res, nil
}

func unavailable(err error) Result {
	return Result{
		Available:    false,
		FallbackMode: true,
		Sources:      []types.Source{},
		Err:          err.Error(),
	}
}
