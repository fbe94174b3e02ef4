// Package sender runs fire-and-forget Telegram calls on a small worker pool.
// Calls whose result the caller needs (menu sends it has to track) bypass it.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/chainregbot/core/logger"
	"github.com/m3rciful/chainregbot/core/telegram/netutil"
)

var (
	ErrClosed = errors.New("sender: queue closed")
	ErrFull   = errors.New("sender: queue full")
)

const component = "tg.sender"

// Options sizes the queue. Zero values select the defaults.
type Options struct {
	Size    int
	Workers int
	Retries int
	Backoff time.Duration
	// Deadline bounds one call including its retries.
	Deadline time.Duration
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	if o.Deadline <= 0 {
		o.Deadline = 12 * time.Second
	}
	return o
}

type call struct {
	ctx context.Context
	op  string
	fn  func() error
}

// Queue executes submitted calls asynchronously, retrying transient
// network failures with linear backoff.
type Queue struct {
	opts   Options
	calls  chan call
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	failed atomic.Uint64
	sleep  func(context.Context, time.Duration) error
}

// New starts the workers.
func New(opts Options) *Queue {
	opts = opts.withDefaults()
	q := &Queue{
		opts:  opts,
		calls: make(chan call, opts.Size),
		sleep: sleepCtx,
	}
	q.wg.Add(opts.Workers)
	for range opts.Workers {
		go q.work()
	}
	return q
}

// Submit schedules fn. It never blocks: a full queue returns ErrFull.
func (q *Queue) Submit(ctx context.Context, op string, fn func() error) error {
	if fn == nil {
		return errors.New("sender: nil call")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.calls <- call{ctx: ctx, op: op, fn: fn}:
		return nil
	default:
		return ErrFull
	}
}

// Failed counts calls that exhausted their retries.
func (q *Queue) Failed() uint64 {
	return q.failed.Load()
}

// Close drains the queue and waits for the workers.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.calls)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) work() {
	defer q.wg.Done()
	for c := range q.calls {
		q.run(c)
	}
}

func (q *Queue) run(c call) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), q.opts.Deadline)
	defer cancel()

	start := time.Now()
	var err error
	attempt := 1
	for ; ; attempt++ {
		if err = c.fn(); err == nil {
			break
		}
		if attempt > q.opts.Retries || !netutil.ShouldRetry(err) {
			break
		}
		delay := q.opts.Backoff * time.Duration(attempt)
		logger.Debug(c.ctx, component, "send.retry",
			slog.String("op", c.op),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
		if werr := q.sleep(ctx, delay); werr != nil {
			err = werr
			break
		}
	}

	took := logger.RoundMS(time.Since(start))
	if err != nil {
		q.failed.Add(1)
		logger.Error(c.ctx, component, "send.fail",
			slog.String("op", c.op),
			slog.Int("attempts", attempt),
			slog.String("error", netutil.Redact(err)),
			slog.String("error_kind", netutil.Classify(err)),
			slog.Duration("duration", took),
		)
		return
	}
	logger.Debug(c.ctx, component, "send.ok",
		slog.String("op", c.op),
		slog.Int("attempts", attempt),
		slog.Duration("duration", took),
	)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
