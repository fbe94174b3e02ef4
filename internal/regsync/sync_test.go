package regsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []string
	out   []byte
	err   error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	return r.out, r.err
}

func (r *recordingRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestSyncClonesMissingDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "chain-registry")
	run := &recordingRunner{}
	s := New(Config{Dir: dir, RepoURL: "https://example.com/reg.git", Interval: time.Hour}, WithRunner(run))

	res := s.Sync(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionClone, res.Action)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, []string{"git clone --depth 1 https://example.com/reg.git " + dir}, run.Calls())
	assert.Equal(t, res, s.Last())
}

func TestSyncSkipsFreshDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	run := &recordingRunner{}
	s := New(Config{Dir: dir, Interval: time.Hour}, WithRunner(run))

	res := s.Sync(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionSkip, res.Action)
	assert.Empty(t, run.Calls())
}

func TestSyncPullsStaleDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := time.Now().Add(-7 * time.Hour)
	require.NoError(t, os.Chtimes(dir, old, old))

	run := &recordingRunner{}
	s := New(Config{Dir: dir, Interval: 6 * time.Hour}, WithRunner(run))

	res := s.Sync(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionPull, res.Action)
	assert.Equal(t, []string{"git -C " + dir + " pull --ff-only"}, run.Calls())

}

func TestRefreshPullsOnEveryTick(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Now()
	old := base.Add(-7 * time.Hour)
	require.NoError(t, os.Chtimes(dir, old, old))

	now := base
	run := &recordingRunner{}
	s := New(Config{Dir: dir, Interval: 6 * time.Hour}, WithRunner(run), WithClock(func() time.Time { return now }))

	assert.Equal(t, ActionPull, s.Sync(context.Background()).Action)
	for i := 1; i <= 3; i++ {
		now = base.Add(time.Duration(i) * 6 * time.Hour)
		res := s.Refresh(context.Background())
		require.NoError(t, res.Err)
		assert.Equal(t, ActionPull, res.Action, "tick %d", i)
	}
	assert.Len(t, run.Calls(), 4)
}

func TestRefreshClonesMissingDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "registry")
	run := &recordingRunner{}
	s := New(Config{Dir: dir, RepoURL: "https://example.com/reg.git"}, WithRunner(run))

	res := s.Refresh(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionClone, res.Action)
}

func TestSyncFailureKeepsData(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	marker := filepath.Join(dir, "chain.json")
	require.NoError(t, os.WriteFile(marker, []byte("{}"), 0o644))
	old := time.Now().Add(-7 * time.Hour)
	require.NoError(t, os.Chtimes(dir, old, old))

	run := &recordingRunner{out: []byte("fatal: unable to access"), err: errors.New("exit status 128")}
	s := New(Config{Dir: dir, Interval: 6 * time.Hour}, WithRunner(run))

	res := s.Sync(context.Background())
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "fatal: unable to access")
	assert.False(t, s.Last().OK())
	assert.FileExists(t, marker)
}

func TestSyncMissingDirWithoutRepo(t *testing.T) {
	t.Parallel()

	run := &recordingRunner{}
	s := New(Config{Dir: filepath.Join(t.TempDir(), "nope")}, WithRunner(run))
	res := s.Sync(context.Background())
	assert.Error(t, res.Err)
	assert.Empty(t, run.Calls())
}

func TestRunInvokesHooksOnTick(t *testing.T) {
	t.Parallel()

	run := &recordingRunner{}
	s := New(Config{Dir: t.TempDir(), Interval: 10 * time.Millisecond}, WithRunner(run))

	var mu sync.Mutex
	ticks := 0
	s.OnTick(func(context.Context) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ticks >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
