// Package ibc resolves IBC denom hashes through a chain's REST API.
package ibc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/chainregbot/core/logger"
	"github.com/m3rciful/chainregbot/core/telegram/netutil"
)

// ErrNoTrace is returned when the REST response carries no denom_trace.
var ErrNoTrace = errors.New("ibc: response has no denom_trace")

const (
	tracePath = "/ibc/apps/transfer/v1/denom_traces/"
	maxBody   = 1 << 20
)

// Resolver looks up denom traces, consulting a Cache first. Concurrent
// lookups of the same chain and hash share one request.
type Resolver struct {
	http  *http.Client
	cache Cache
	group singleflight.Group
	log   *slog.Logger
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Resolver) {
		if hc != nil {
			r.http = hc
		}
	}
}

// NewResolver builds a Resolver. A nil cache selects an unbounded MemoryCache.
func NewResolver(cache Cache, timeout time.Duration, opts ...Option) *Resolver {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	r := &Resolver{
		http:  netutil.NewHTTPClient(netutil.ClientOptions{Timeout: timeout, Retries: 1}),
		cache: cache,
		log:   logger.Component("ibc"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the raw denom_trace object for hash on chain.
func (r *Resolver) Lookup(ctx context.Context, chain, restAddr, hash string) (json.RawMessage, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, fmt.Errorf("ibc: empty hash")
	}

	if trace, ok, err := r.cache.Get(ctx, chain, hash); err != nil {
		r.log.LogAttrs(ctx, slog.LevelWarn, "cache read failed",
			slog.String("event", "ibc.cache"),
			slog.String("chain", chain),
			slog.String("err", err.Error()),
		)
	} else if ok {
		r.log.LogAttrs(ctx, slog.LevelDebug, "cache hit",
			slog.String("event", "ibc.cache"),
			slog.String("cache", "hit"),
			slog.String("chain", chain),
			slog.String("hash", hash),
		)
		return trace, nil
	}

	v, err, shared := r.group.Do(chain+"\x00"+hash, func() (any, error) {
		trace, err := r.fetch(ctx, restAddr, hash)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Put(ctx, chain, hash, trace); err != nil {
			r.log.LogAttrs(ctx, slog.LevelWarn, "cache write failed",
				slog.String("event", "ibc.cache"),
				slog.String("chain", chain),
				slog.String("err", err.Error()),
			)
		}
		return trace, nil
	})
	if err != nil {
		return nil, err
	}
	r.log.LogAttrs(ctx, slog.LevelDebug, "trace resolved",
		slog.String("event", "ibc.lookup"),
		slog.String("cache", "miss"),
		slog.String("chain", chain),
		slog.String("hash", hash),
		slog.Bool("shared", shared),
	)
	return v.(json.RawMessage), nil
}

func (r *Resolver) fetch(ctx context.Context, restAddr, hash string) (json.RawMessage, error) {
	endpoint := strings.TrimRight(restAddr, "/") + tracePath + url.PathEscape(hash)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	res, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	r.log.LogAttrs(ctx, slog.LevelDebug, "rest call",
		slog.String("event", "ibc.fetch"),
		slog.String("url", endpoint),
		slog.Int("http_status", res.StatusCode),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %s", endpoint, res.Status)
	}

	var doc struct {
		DenomTrace json.RawMessage `json:"denom_trace"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode denom trace: %w", err)
	}
	if len(doc.DenomTrace) == 0 || bytes.Equal(doc.DenomTrace, []byte("null")) {
		return nil, ErrNoTrace
	}
	return doc.DenomTrace, nil
}

// Trace resolves hash and renders it for chat.
func (r *Resolver) Trace(ctx context.Context, chain, restAddr, hash string) (string, error) {
	raw, err := r.Lookup(ctx, chain, restAddr, hash)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("indent denom trace: %w", err)
	}
	return "IBC Denom Trace: \n" + buf.String(), nil
}
