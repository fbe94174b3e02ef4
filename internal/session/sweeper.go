package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/chainregbot/core/logger"
)

// Policy deletes sessions idle longer than MaxAge, checked every Every.
type Policy struct {
	Name   string
	Every  time.Duration
	MaxAge time.Duration
}

// Sweeper runs expiry policies against a Store until its context ends.
type Sweeper struct {
	store    *Store
	policies []Policy
	log      *slog.Logger
}

// NewSweeper builds a sweeper; policies with non-positive durations are skipped.
func NewSweeper(store *Store, log *slog.Logger, policies ...Policy) *Sweeper {
	if log == nil {
		log = logger.Sessions
	}
	valid := make([]Policy, 0, len(policies))
	for _, p := range policies {
		if p.Every <= 0 || p.MaxAge <= 0 {
			continue
		}
		valid = append(valid, p)
	}
	return &Sweeper{store: store, policies: valid, log: log}
}

// Policies returns the active policies.
func (w *Sweeper) Policies() []Policy {
	return append([]Policy(nil), w.policies...)
}

// Run blocks until ctx is done.
func (w *Sweeper) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, p := range w.policies {
		wg.Add(1)
		go func(p Policy) {
			defer wg.Done()
			ticker := time.NewTicker(p.Every)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					w.Sweep(p)
				}
			}
		}(p)
	}
	wg.Wait()
	return nil
}

// Sweep applies one policy immediately.
func (w *Sweeper) Sweep(p Policy) int {
	start := time.Now()
	removed := w.store.SweepIdle(p.MaxAge)
	level := slog.LevelDebug
	if removed > 0 {
		level = slog.LevelInfo
	}
	w.log.LogAttrs(context.Background(), level, "sweep",
		slog.String("event", "session.sweep"),
		slog.String("status", "ok"),
		slog.String("operation", p.Name),
		slog.Int("removed", removed),
		slog.Int("sessions", w.store.Len()),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return removed
}
