package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStoreGetAbsent(t *testing.T) {
	t.Parallel()

	store := NewStore()
	sess, ok := store.Get(42)
	assert.False(t, ok)
	assert.Equal(t, Session{}, sess)
}

func TestStoreSetMergesAndStamps(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	chain := "osmosis"
	require.True(t, store.Set(1, &Patch{Chain: &chain}))
	clock.Advance(time.Minute)
	require.True(t, store.Set(1, &Patch{Target: &MessageRef{ChatID: 10, MessageID: 20}}))

	sess, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, "osmosis", sess.Chain)
	assert.Equal(t, &MessageRef{ChatID: 10, MessageID: 20}, sess.Target)
	assert.Equal(t, clock.Now(), sess.LastActivity)
}

func TestStoreSetNilDeletes(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Touch(7)
	require.Equal(t, 1, store.Len())

	require.True(t, store.Set(7, nil))
	_, ok := store.Get(7)
	assert.False(t, ok)
}

func TestStoreRejectsPendingWithoutChain(t *testing.T) {
	t.Parallel()

	store := NewStore()
	assert.ErrorIs(t, store.AwaitPoolID(5), ErrNoChain)

	_, ok := store.Get(5)
	assert.False(t, ok, "rejected patch must not create a session")

	store.SelectChain(5, "juno", nil)
	require.NoError(t, store.AwaitPoolID(5))
	assert.Equal(t, PendingPoolID, store.Pending(5))

	store.ClearPending(5)
	assert.Equal(t, PendingNone, store.Pending(5))
}

func TestStoreRejectsHalfMessageRef(t *testing.T) {
	t.Parallel()

	store := NewStore()
	assert.False(t, store.Set(3, &Patch{Target: &MessageRef{ChatID: 9}}))
}

func TestStoreSelectChainKeepsTargetWhenNil(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.SelectChain(1, "acme", &MessageRef{ChatID: 1, MessageID: 2})
	store.Track(1, MessageRef{ChatID: 1, MessageID: 2}, "shown")
	require.NoError(t, store.AwaitPoolID(1))

	store.SelectChain(1, "other", nil)
	sess, _ := store.Get(1)
	assert.Equal(t, "other", sess.Chain)
	assert.Equal(t, &MessageRef{ChatID: 1, MessageID: 2}, sess.Target)
	assert.Empty(t, sess.Shown)
	assert.Equal(t, PendingNone, sess.Pending)
}

func TestStoreGetReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.SelectChain(1, "acme", &MessageRef{ChatID: 1, MessageID: 2})

	sess, _ := store.Get(1)
	sess.Target.MessageID = 99
	sess.Chain = "mutated"

	again, _ := store.Get(1)
	assert.Equal(t, "acme", again.Chain)
	assert.Equal(t, 2, again.Target.MessageID)
}

func TestStoreResetClearsFields(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.SelectChain(1, "acme", &MessageRef{ChatID: 1, MessageID: 2})
	store.Reset(1)

	sess, ok := store.Get(1)
	require.True(t, ok)
	assert.Empty(t, sess.Chain)
	assert.Nil(t, sess.Target)
}

func TestSweepIdle(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	store.Touch(1)
	clock.Advance(201 * time.Second)
	store.Touch(2)
	clock.Advance(100 * time.Second)

	removed := store.SweepIdle(5 * time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := store.Get(1)
	assert.False(t, ok, "session idle for 301s must be removed")
	_, ok = store.Get(2)
	assert.True(t, ok, "session idle for 100s must survive")
}

func TestStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.SelectChain(id, "acme", &MessageRef{ChatID: id + 1, MessageID: j + 1})
				_, _ = store.Get(id)
				store.SweepIdle(time.Hour)
			}
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 32, store.Len())
}
