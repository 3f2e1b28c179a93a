// v0
// internal/session/store.go
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"salesops/recovery/internal/dataset"
	"salesops/recovery/internal/recovery"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownSlot is returned when a rate targets a category that is not
	// part of the current selection.
	ErrUnknownSlot = errors.New("unknown rate slot")
)

// State is a snapshot of one dashboard interaction: the selected region and
// the slider values. Snapshots are copies; mutating one never affects the
// store.
type State struct {
	ID        string
	Region    string
	Rates     recovery.Rates
	CreatedAt time.Time
	UpdatedAt time.Time
}

type entry struct {
	state      State
	categories int
	expires    time.Time
}

// SizeObserver is told the number of live sessions after each change.
type SizeObserver func(n int)

// Store keeps per-client interaction state. Sessions never share rates and
// expire after ttl without activity. It is safe for concurrent use.
type Store struct {
	engine *recovery.Engine
	ttl    time.Duration
	log    *slog.Logger
	now    func() time.Time
	obs    SizeObserver

	mu sync.RWMutex
	m  map[string]*entry
}

// NewStore binds the store to the engine used for category counts.
func NewStore(engine *recovery.Engine, ttl time.Duration, log *slog.Logger, obs SizeObserver) *Store {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		engine: engine,
		ttl:    ttl,
		log:    log.With(slog.String("component", "session_store")),
		now:    time.Now,
		obs:    obs,
		m:      make(map[string]*entry),
	}
}

// Create opens a session on region with every slider at the default rate. An
// empty region selects the dataset default.
func (s *Store) Create(region string) State {
	if region == "" {
		region = s.engine.Dataset().DefaultRegion()
	}
	now := s.now()
	n := len(s.engine.Problems(region))
	e := &entry{
		state: State{
			ID:        uuid.NewString(),
			Region:    region,
			Rates:     recovery.DefaultRates(n),
			CreatedAt: now,
			UpdatedAt: now,
		},
		categories: n,
		expires:    now.Add(s.ttl),
	}

	s.mu.Lock()
	s.m[e.state.ID] = e
	size := len(s.m)
	s.mu.Unlock()

	s.notify(size)
	s.log.Info("session_created", slog.String("session", e.state.ID), slog.String("region", region))
	return snapshot(e.state)
}

// Get returns a snapshot and refreshes the expiry.
func (s *Store) Get(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupLocked(id)
	if err != nil {
		return State{}, err
	}
	e.expires = s.now().Add(s.ttl)
	return snapshot(e.state), nil
}

// SelectRegion switches the region and resets every slider to the default.
// Unknown regions are accepted and produce an empty selection.
func (s *Store) SelectRegion(id, region string) (State, error) {
	n := len(s.engine.Problems(region))

	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupLocked(id)
	if err != nil {
		return State{}, err
	}
	now := s.now()
	e.state.Region = region
	e.state.Rates = recovery.DefaultRates(n)
	e.state.UpdatedAt = now
	e.categories = n
	e.expires = now.Add(s.ttl)
	return snapshot(e.state), nil
}

// SetRate moves one slider. Values outside [0,100] are clamped.
func (s *Store) SetRate(id string, slot recovery.Slot, value int) (State, error) {
	if !slot.Priority.Valid() {
		return State{}, fmt.Errorf("%w: %w", ErrUnknownSlot, dataset.ErrInvalidPriority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupLocked(id)
	if err != nil {
		return State{}, err
	}
	if slot.Category < 0 || slot.Category >= e.categories {
		return State{}, fmt.Errorf("%w: category %d of %d", ErrUnknownSlot, slot.Category, e.categories)
	}
	now := s.now()
	e.state.Rates[slot] = recovery.ClampRate(value)
	e.state.UpdatedAt = now
	e.expires = now.Add(s.ttl)
	return snapshot(e.state), nil
}

// Delete drops a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.m[id]
	delete(s.m, id)
	size := len(s.m)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.notify(size)
	s.log.Info("session_deleted", slog.String("session", id))
	return nil
}

// Len reports the number of stored sessions, expired ones included until the
// next sweep.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for id, e := range s.m {
		if now.After(e.expires) {
			delete(s.m, id)
			removed++
		}
	}
	size := len(s.m)
	s.mu.Unlock()
	if removed > 0 {
		s.notify(size)
		s.log.Info("session_sweep", slog.Int("removed", removed), slog.Int("active", size))
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) lookupLocked(id string) (*entry, error) {
	e, ok := s.m[id]
	if !ok || s.now().After(e.expires) {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (s *Store) notify(n int) {
	if s.obs != nil {
		s.obs(n)
	}
}

func snapshot(st State) State {
	st.Rates = st.Rates.Clone()
	return st
}
