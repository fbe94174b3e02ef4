// Package regsync keeps the local registry checkout fresh: it clones the
// repository when missing, pulls at startup when the checkout is older than
// the refresh interval, and pulls on every interval tick after that.
package regsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/chainregbot/core/logger"
)

// Sync actions.
const (
	ActionClone = "clone"
	ActionPull  = "pull"
	ActionSkip  = "skip"
)

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Result describes one sync attempt.
type Result struct {
	ID     string
	Action string
	At     time.Time
	Err    error
}

// OK reports whether the attempt succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Config holds the checkout location and refresh policy.
type Config struct {
	Dir      string
	RepoURL  string
	Interval time.Duration
}

// Syncer clones or pulls the registry checkout.
type Syncer struct {
	cfg    Config
	runner Runner
	now    func() time.Time
	log    *slog.Logger

	mu    sync.Mutex
	last  Result
	hooks []func(context.Context)
}

// Option customises a Syncer.
type Option func(*Syncer)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(s *Syncer) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithClock replaces the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Syncer.
func New(cfg Config, opts ...Option) *Syncer {
	s := &Syncer{
		cfg:    cfg,
		runner: ExecRunner{},
		now:    time.Now,
		log:    logger.Sync,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnTick registers fn to run after every periodic sync.
func (s *Syncer) OnTick(fn func(context.Context)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Last returns the most recent attempt; the zero Result before the first.
func (s *Syncer) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Sync clones a missing checkout and pulls one older than the interval.
// Failures are logged and reported in the Result; the existing checkout is
// left as it was.
func (s *Syncer) Sync(ctx context.Context) Result {
	return s.attempt(ctx, false)
}

// Refresh is Sync without the age check: an existing checkout is always
// pulled.
func (s *Syncer) Refresh(ctx context.Context) Result {
	return s.attempt(ctx, true)
}

func (s *Syncer) attempt(ctx context.Context, force bool) Result {
	res := Result{ID: uuid.NewString(), At: s.now()}
	start := time.Now()
	res.Action, res.Err = s.sync(ctx, force)

	attrs := []slog.Attr{
		slog.String("event", "registry.sync"),
		slog.String("sync_id", res.ID),
		slog.String("operation", res.Action),
		slog.String("dir", s.cfg.Dir),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	switch {
	case res.Err != nil:
		attrs = append(attrs, slog.String("status", "fail"), slog.String("err", logger.SanitizeLimit(res.Err.Error(), 256)))
		s.log.LogAttrs(ctx, slog.LevelWarn, "sync failed, using stale data", attrs...)
	case res.Action == ActionSkip:
		attrs = append(attrs, slog.String("status", "skip"))
		s.log.LogAttrs(ctx, slog.LevelDebug, "registry fresh", attrs...)
	default:
		attrs = append(attrs, slog.String("status", "ok"))
		s.log.LogAttrs(ctx, slog.LevelInfo, "registry synced", attrs...)
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	return res
}

func (s *Syncer) sync(ctx context.Context, force bool) (string, error) {
	info, err := os.Stat(s.cfg.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		if strings.TrimSpace(s.cfg.RepoURL) == "" {
			return ActionClone, fmt.Errorf("registry dir %s missing and no repo_url configured", s.cfg.Dir)
		}
		if out, err := s.runner.Run(ctx, "git", "clone", "--depth", "1", s.cfg.RepoURL, s.cfg.Dir); err != nil {
			return ActionClone, commandError("git clone", out, err)
		}
		return ActionClone, nil
	}
	if err != nil {
		return ActionSkip, fmt.Errorf("stat %s: %w", s.cfg.Dir, err)
	}

	if !force && s.now().Sub(info.ModTime()) <= s.cfg.Interval {
		return ActionSkip, nil
	}
	if out, err := s.runner.Run(ctx, "git", "-C", s.cfg.Dir, "pull", "--ff-only"); err != nil {
		return ActionPull, commandError("git pull", out, err)
	}
	return ActionPull, nil
}

func commandError(what string, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %s", what, err, msg)
}

// Run syncs immediately and then refreshes every interval until ctx ends.
// Hooks run after each periodic refresh, whatever its outcome.
func (s *Syncer) Run(ctx context.Context) error {
	s.Sync(ctx)
	if s.cfg.Interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Refresh(ctx)
			s.mu.Lock()
			hooks := slices.Clone(s.hooks)
			s.mu.Unlock()
			for _, h := range hooks {
				h(ctx)
			}
		}
	}
}
