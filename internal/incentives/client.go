// Package incentives queries the pool incentive service and renders its
// answer for chat.
package incentives

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/m3rciful/chainregbot/core/logger"
	"github.com/m3rciful/chainregbot/core/telegram/netutil"
)

// DefaultBaseURL is the public incentive service.
const DefaultBaseURL = "http://jasbanza.dedicated.co.za:7000"

const maxBody = 1 << 20

// ErrNoJSON is returned when the response body holds no JSON object.
var ErrNoJSON = errors.New("incentives: no JSON object in response")

// The service wraps its JSON in noise; take everything from the first '{'
// to the last '}'.
var objectRe = regexp.MustCompile(`(?s)\{.*\}`)

// Client fetches pool incentives over HTTP.
type Client struct {
	base string
	http *http.Client
	log  *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a client for baseURL. An empty base selects DefaultBaseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: netutil.NewHTTPClient(netutil.ClientOptions{Timeout: timeout, Retries: 1}),
		log:  logger.Component("incentives"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the raw incentive document for poolID.
func (c *Client) Fetch(ctx context.Context, poolID string) (*Response, error) {
	start := time.Now()
	endpoint := c.base + "/pool/" + url.PathEscape(poolID)

	resp, err := c.get(ctx, endpoint)
	status := "ok"
	if err != nil {
		status = "fail"
	}
	attrs := []slog.Attr{
		slog.String("event", "incentives.fetch"),
		slog.String("status", status),
		slog.String("pool_id", poolID),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
		c.log.LogAttrs(ctx, slog.LevelWarn, "fetch failed", attrs...)
		return nil, err
	}
	attrs = append(attrs, slog.Int("count", len(resp.Data)))
	c.log.LogAttrs(ctx, slog.LevelDebug, "fetched", attrs...)
	return resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %s", endpoint, res.Status)
	}
	return Decode(body)
}

// Decode extracts and parses the JSON object embedded in body.
func Decode(body []byte) (*Response, error) {
	raw := objectRe.Find(body)
	if raw == nil {
		return nil, ErrNoJSON
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode incentives: %w", err)
	}
	return &out, nil
}

// Pool fetches and formats incentives for poolID.
func (c *Client) Pool(ctx context.Context, poolID string) (string, error) {
	resp, err := c.Fetch(ctx, poolID)
	if err != nil {
		return "", err
	}
	return Format(poolID, resp), nil
}
