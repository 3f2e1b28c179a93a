// v0
// internal/circuitbreaker/breaker.go
package circuitbreaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	Closed State = iota
	HalfOpen
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case HalfOpen:
		return "half_open"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned while the breaker rejects calls without running them.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	MaxFailures  int           // consecutive failures before opening
	ResetTimeout time.Duration // time spent open before a probe is allowed
}

// Observer is notified on every state transition.
type Observer func(name string, state State)

// Breaker guards a remote dependency. After MaxFailures consecutive errors it
// opens and fails fast; once ResetTimeout elapses the next call runs as a
// half-open trial (after the optional probe) and closes or reopens the
// breaker.
type Breaker struct {
	name     string
	cfg      Config
	log      *slog.Logger
	probe    func(ctx context.Context) error
	observer Observer
	now      func() time.Time

	mu          sync.Mutex
	state       State
	recentFails int
	openedAt    time.Time
}

// New constructs a closed breaker. Non-positive tunables fall back to five
// failures and thirty seconds.
func New(name string, cfg Config, log *slog.Logger, probe func(ctx context.Context) error) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b := &Breaker{
		name:  name,
		cfg:   cfg,
		log:   log.With(slog.String("component", "breaker"), slog.String("name", name)),
		probe: probe,
		now:   time.Now,
		state: Closed,
	}
	b.log.Info("breaker_created", slog.Int("max_failures", cfg.MaxFailures), slog.String("reset_timeout", cfg.ResetTimeout.String()))
	return b
}

// OnStateChange registers the transition observer.
func (b *Breaker) OnStateChange(obs Observer) {
	b.mu.Lock()
	b.observer = obs
	b.mu.Unlock()
}

// Execute runs op under the breaker.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.state
	openedAt := b.openedAt
	b.mu.Unlock()

	if state == Open {
		if b.now().Sub(openedAt) < b.cfg.ResetTimeout {
			b.log.Warn("breaker_fast_fail", slog.String("since_open", b.now().Sub(openedAt).String()))
			return ErrOpen
		}
		return b.trial(ctx, op)
	}

	if err := op(ctx); err != nil {
		if b.onFailure(err) {
			return ErrOpen
		}
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) trial(ctx context.Context, op func(ctx context.Context) error) error {
	b.transition(HalfOpen)
	b.log.Info("breaker_probe_start")

	if b.probe != nil {
		if err := b.probe(ctx); err != nil {
			b.log.Warn("breaker_probe_failed", slog.Any("err", err))
			b.reopen()
			return ErrOpen
		}
	}

	if err := op(ctx); err != nil {
		b.log.Warn("breaker_halfopen_op_failed", slog.Any("err", err))
		b.reopen()
		return err
	}
	b.onSuccess()
	b.log.Info("breaker_closed_after_probe")
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	b.recentFails = 0
	b.mu.Unlock()
	b.transition(Closed)
}

// onFailure records a failure and reports whether it opened the breaker.
func (b *Breaker) onFailure(err error) bool {
	b.mu.Lock()
	b.recentFails++
	fails := b.recentFails
	b.mu.Unlock()
	b.log.Warn("operation_failure", slog.Int("failures", fails), slog.Any("err", err))
	if fails < b.cfg.MaxFailures {
		return false
	}
	b.reopen()
	b.log.Error("breaker_opened", slog.Int("max_failures", b.cfg.MaxFailures))
	return true
}

func (b *Breaker) reopen() {
	b.mu.Lock()
	b.openedAt = b.now()
	b.mu.Unlock()
	b.transition(Open)
}

func (b *Breaker) transition(to State) {
	b.mu.Lock()
	from := b.state
	b.state = to
	obs := b.observer
	b.mu.Unlock()
	if from == to {
		return
	}
	b.log.Info("breaker_state_change", slog.String("from", from.String()), slog.String("to", to.String()))
	if obs != nil {
		obs(b.name, to)
	}
}

// State reports the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the breaker label.
func (b *Breaker) Name() string {
	return b.name
}
