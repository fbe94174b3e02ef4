package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/chainregbot/core/logger"
	tghelpers "github.com/m3rciful/chainregbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds that are never limited: callback, message
	// or inline_query.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// limiter remembers when each user was last let through.
type limiter struct {
	interval time.Duration
	now      func() time.Time

	mu    sync.Mutex
	seen  map[int64]time.Time
	prune time.Time
}

func newLimiter(interval time.Duration) *limiter {
	return &limiter{interval: interval, now: time.Now, seen: make(map[int64]time.Time)}
}

// allow reports whether userID may proceed and records the attempt if so.
func (l *limiter) allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if last, ok := l.seen[userID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.seen[userID] = now

	// Entries older than the interval can no longer limit anyone.
	if now.Sub(l.prune) > time.Minute {
		for id, t := range l.seen {
			if now.Sub(t) >= l.interval {
				delete(l.seen, id)
			}
		}
		l.prune = now
	}
	return true
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware drops updates that arrive sooner than Interval after
// the previous one from the same user, calling OnLimited instead.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := newLimiter(opts.Interval)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip || lim.allow(user.ID) {
				return next(c)
			}

			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("op", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
