package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSweeperSkipsInvalidPolicies(t *testing.T) {
	t.Parallel()

	w := NewSweeper(NewStore(), nil,
		Policy{Name: "idle", Every: time.Minute, MaxAge: 5 * time.Minute},
		Policy{Name: "disabled", Every: 0, MaxAge: time.Hour},
	)
	require.Len(t, w.Policies(), 1)
	assert.Equal(t, "idle", w.Policies()[0].Name)
}

func TestSweeperSweepUsesPolicyAge(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))
	store.Touch(1)
	clock.Advance(2 * time.Hour)
	store.Touch(2)

	w := NewSweeper(store, nil, Policy{Name: "stale", Every: time.Hour, MaxAge: time.Hour})
	assert.Equal(t, 1, w.Sweep(w.Policies()[0]))
	assert.Equal(t, 1, store.Len())
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Touch(1)
	w := NewSweeper(store, nil, Policy{Name: "idle", Every: 5 * time.Millisecond, MaxAge: time.Nanosecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
