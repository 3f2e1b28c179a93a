// v0
// internal/session/store_test.go
package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesops/recovery/internal/dataset"
	"salesops/recovery/internal/recovery"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*Store, *fakeClock, *int) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	size := new(int)
	s := NewStore(recovery.NewEngine(dataset.Builtin(), recovery.TopK), time.Minute, nil, func(n int) { *size = n })
	s.now = clk.Now
	return s, clk, size
}

func TestCreateUsesDefaults(t *testing.T) {
	s, _, size := newTestStore(t)

	st := s.Create("")
	assert.Equal(t, "APTS", st.Region)
	assert.NotEmpty(t, st.ID)
	assert.Len(t, st.Rates, recovery.TopK*dataset.PriorityCount)
	for _, v := range st.Rates {
		assert.Equal(t, recovery.DefaultRate, v)
	}
	assert.Equal(t, 1, *size)
}

func TestSessionsAreIsolated(t *testing.T) {
	s, _, _ := newTestStore(t)
	a := s.Create("WB")
	b := s.Create("WB")
	slot := recovery.Slot{Category: 0, Priority: dataset.P2}

	_, err := s.SetRate(a.ID, slot, 80)
	require.NoError(t, err)

	gotA, err := s.Get(a.ID)
	require.NoError(t, err)
	gotB, err := s.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, gotA.Rates[slot])
	assert.Equal(t, recovery.DefaultRate, gotB.Rates[slot])

	gotA.Rates[slot] = 1
	again, _ := s.Get(a.ID)
	assert.Equal(t, 80, again.Rates[slot], "snapshots must not alias store state")
}

func TestSetRateClampsAndValidates(t *testing.T) {
	s, _, _ := newTestStore(t)
	st := s.Create("TN")

	got, err := s.SetRate(st.ID, recovery.Slot{Category: 1, Priority: dataset.P4}, 140)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Rates[recovery.Slot{Category: 1, Priority: dataset.P4}])

	got, err = s.SetRate(st.ID, recovery.Slot{Category: 1, Priority: dataset.P4}, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Rates[recovery.Slot{Category: 1, Priority: dataset.P4}])

	_, err = s.SetRate(st.ID, recovery.Slot{Category: 3, Priority: dataset.P1}, 10)
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = s.SetRate(st.ID, recovery.Slot{Category: 0, Priority: dataset.Priority(9)}, 10)
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = s.SetRate("missing", recovery.Slot{}, 10)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSelectRegionResetsRates(t *testing.T) {
	s, _, _ := newTestStore(t)
	st := s.Create("KA")
	slot := recovery.Slot{Category: 0, Priority: dataset.P1}
	_, err := s.SetRate(st.ID, slot, 90)
	require.NoError(t, err)

	got, err := s.SelectRegion(st.ID, "MH")
	require.NoError(t, err)
	assert.Equal(t, "MH", got.Region)
	assert.Equal(t, recovery.DefaultRate, got.Rates[slot])

	got, err = s.SelectRegion(st.ID, "ZZ")
	require.NoError(t, err)
	assert.Empty(t, got.Rates)
	_, err = s.SetRate(st.ID, slot, 10)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestExpiryAndSweep(t *testing.T) {
	s, clk, size := newTestStore(t)
	old := s.Create("APTS")
	clk.Advance(40 * time.Second)
	fresh := s.Create("APTS")

	clk.Advance(30 * time.Second)
	_, err := s.Get(old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Get(fresh.ID)
	assert.NoError(t, err)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, *size)
}

func TestDelete(t *testing.T) {
	s, _, size := newTestStore(t)
	st := s.Create("WB")
	require.NoError(t, s.Delete(st.ID))
	assert.Equal(t, 0, *size)
	assert.ErrorIs(t, s.Delete(st.ID), ErrSessionNotFound)
	_, err := s.Get(st.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestConcurrentSetRate(t *testing.T) {
	s, _, _ := newTestStore(t)
	st := s.Create("APTS")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_, _ = s.SetRate(st.ID, recovery.Slot{Category: v % 3, Priority: dataset.Priority(v % 4)}, v)
			_, _ = s.Get(st.ID)
		}(i)
	}
	wg.Wait()
	got, err := s.Get(st.ID)
	require.NoError(t, err)
	assert.Len(t, got.Rates, recovery.TopK*dataset.PriorityCount)
}
