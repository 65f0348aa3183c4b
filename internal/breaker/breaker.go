// Package breaker implements a circuit breaker for a single external
// dependency: CLOSED while healthy, OPEN after repeated failures, HALF_OPEN
// for a single trial call once the reset timeout has elapsed.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned without invoking the wrapped call when the
	// breaker is OPEN, or when a HALF_OPEN trial is already in flight.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTimeout is returned when the wrapped call exceeds the call timeout.
	// It counts as a failure, same as an error from the call itself.
	ErrTimeout = errors.New("call timed out")
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	}
	return "UNKNOWN"
}

// Snapshot is a point-in-time view of breaker state for health reporting.
type Snapshot struct {
	Name        string
	State       State
	Failures    int
	LastFailure time.Time
}

type Breaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration
	callTimeout      time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

func New(name string, failureThreshold int, resetTimeout, callTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		callTimeout:      callTimeout,
		state:            StateClosed,
	}
}

// Execute runs call under b with the configured timeout and returns its
// value. The call receives a context that is cancelled at the deadline; a
// deadline overrun is reported as ErrTimeout and recorded as a failure.
// Cancellation of the caller's context is passed through without touching
// the failure counter. When the deadline wins the race, the in-flight call's
// eventual result is discarded rather than shared, so callers never observe
// a partial write.
func Execute[T any](ctx context.Context, b *Breaker, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}

	cctx := ctx
	if b.callTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, b.callTimeout)
		defer cancel()
	}

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := call(cctx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case <-cctx.Done():
		// Only the breaker's own timer counts as a failure. The caller going
		// away says nothing about dependency health.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		b.onFailure()
		return zero, ErrTimeout
	case out := <-done:
		if out.err != nil {
			if ctx.Err() != nil {
				return zero, out.err
			}
			b.onFailure()
			return zero, out.err
		}
		b.onSuccess()
		return out.val, nil
	}
}

// Do is Execute for calls that only report an error.
func (b *Breaker) Do(ctx context.Context, call func(context.Context) error) error {
	_, err := Execute(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call(ctx)
	})
	return err
}

// allow decides whether a call may proceed, performing the OPEN -> HALF_OPEN
// transition when the reset timeout has elapsed. Only one trial call is
// admitted while HALF_OPEN.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(b.lastFailure) < b.resetTimeout {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probing = false
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = time.Now()
	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.probing = false
		return
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Name:        b.name,
		State:       b.state,
		Failures:    b.failures,
		LastFailure: b.lastFailure,
	}
}
