package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is the resolved availability of a lazily initialized backend.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// InitFunc builds a backend. A returned error disables the backend for the
// life of the process.
type InitFunc[T any] func(ctx context.Context) (T, error)

// Guard initializes a backend at most once. Concurrent first callers wait for
// the single initialization; later callers read the resolved state without
// locking.
type Guard[T any] struct {
	name    string
	init    InitFunc[T]
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	state   atomic.Int32
	loading atomic.Bool
	value   T
	err     error
}

// GuardStatus is a point-in-time view of a guard.
type GuardStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	State      string `json:"state"`
	Loading    bool   `json:"loading"`
	Ready      bool   `json:"ready"`
	Error      string `json:"error,omitempty"`
}

// NewGuard returns a guard that runs init on first use, bounded by timeout.
func NewGuard[T any](name string, init InitFunc[T], timeout time.Duration, logger *slog.Logger) *Guard[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard[T]{name: name, init: init, timeout: timeout, logger: logger}
}

// Disabled returns a guard that is permanently unavailable.
func Disabled[T any](name string) *Guard[T] {
	g := &Guard[T]{name: name, logger: slog.Default(), err: ErrNotConfigured}
	g.state.Store(int32(StateUnavailable))
	return g
}

// Get returns the backend when it is ready. The first call runs the
// initializer; its outcome is final.
func (g *Guard[T]) Get(ctx context.Context) (T, bool) {
	var zero T
	if g == nil {
		return zero, false
	}
	switch State(g.state.Load()) {
	case StateReady:
		return g.value, true
	case StateUnavailable:
		return zero, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch State(g.state.Load()) {
	case StateReady:
		return g.value, true
	case StateUnavailable:
		return zero, false
	}

	g.loading.Store(true)
	defer g.loading.Store(false)

	// A cancelled request must not leave the backend disabled for everyone.
	initCtx := context.WithoutCancel(ctx)
	if g.timeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(initCtx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	value, err := g.init(initCtx)
	if err != nil {
		g.err = err
		g.state.Store(int32(StateUnavailable))
		g.logger.Warn("Backend initialization failed, using fallback for the rest of the process",
			"backend", g.name,
			"error", err,
			"duration", time.Since(start))
		return zero, false
	}

	g.value = value
	g.state.Store(int32(StateReady))
	g.logger.Info("Backend initialized",
		"backend", g.name,
		"duration", time.Since(start))
	return value, true
}

// State returns the current state without triggering initialization.
func (g *Guard[T]) State() State {
	if g == nil {
		return StateUnavailable
	}
	return State(g.state.Load())
}

// Status reports the guard state for health endpoints.
func (g *Guard[T]) Status() GuardStatus {
	if g == nil {
		return GuardStatus{State: StateUnavailable.String()}
	}
	st := GuardStatus{
		Name:       g.name,
		Configured: g.init != nil,
		State:      g.State().String(),
		Loading:    g.loading.Load(),
		Ready:      g.State() == StateReady,
	}
	if g.State() == StateUnavailable {
		g.mu.Lock()
		if g.err != nil && g.err != ErrNotConfigured {
			st.Error = g.err.Error()
		}
		g.mu.Unlock()
	}
	return st
}
