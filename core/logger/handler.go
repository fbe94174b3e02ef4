package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// defaultKeyOrder puts the correlation keys first, then the domain keys.
// Keys not listed follow alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler",
	"op", "cb_key", "outcome", "duration_ms", "messages", "kb",
	"chain", "category", "page", "pages", "count", "pool_id", "hash", "cache",
	"payload", "username", "mode", "listen", "public_url", "http_code", "url",
	"sync_id", "action", "dir", "db", "host", "port", "sessions", "removed",
	"err", "error", "error_kind", "err_code", "cause", "attempts",
}

// Allowed values per enum key; anything else is dropped, except status
// which is kept lowercased.
var enums = map[string][]string{
	"status":  {"ok", "fail", "skip", "retry", "rate_limited", "cancelled"},
	"outcome": {"ok", "fail", "cancelled", "rate_limited"},
	"cache":   {"hit", "miss", "refresh"},
}

// handler is the slog.Handler behind L.
type handler struct {
	level  slog.Leveler
	out    *lineWriter
	format logFormat
	order  []string
	attrs  []boundAttr
	groups []string
}

// boundAttr remembers the group path that was open when the attr was added.
type boundAttr struct {
	prefix string
	attr   slog.Attr
}

func (h *handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = slices.Clip(h.attrs)
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		c.attrs = append(c.attrs, boundAttr{prefix: prefix, attr: a})
	}
	return &c
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(slices.Clip(h.groups), name)
	return &c
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	f := make(fields, 16)
	ts := r.Time.UTC()
	f["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	f["level"] = levelName(r.Level)
	if h.format == formatJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}

	for _, b := range h.attrs {
		f.add(b.prefix, b.attr)
	}
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		f.add(prefix, a)
		return true
	})
	f.fromContext(ctx)

	if rid, _ := f["rid"].(string); rid != "" {
		if short := CompactRID(rid); short != rid {
			if h.format == formatJSON {
				f.setDefault("rid_full", rid)
			}
			f["rid"] = short
		}
	}
	if f.str("event") == "" {
		f["event"] = orDefault(r.Message, "unknown")
	}
	if f.str("component") == "" {
		f["component"] = "app"
	}
	f.normalize()

	var line []byte
	if h.format == formatJSON {
		var err error
		if line, err = f.json(h.order); err != nil {
			return err
		}
	} else {
		line = f.kv(h.order)
	}
	line = append(line, '\n')

	err := h.out.Write(line)
	if errors.Is(err, errWriterClosed) {
		_, err = os.Stderr.Write(line)
	}
	return err
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

type fields map[string]any

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (f fields) setDefault(key string, v any) {
	if _, ok := f[key]; !ok {
		f[key] = v
	}
}

// add flattens groups into dotted keys.
func (f fields) add(prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			f.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := convert(key, v); ok {
		f[k] = val
	}
}

// convert maps a value to its JSON-friendly form. Durations become whole
// milliseconds under a key ending in _ms.
func convert(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return "", nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

func (f fields) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	if rid := RIDFrom(ctx); rid != "" {
		f.setDefault("rid", rid)
	}
	if m, ok := value[updateMeta](ctx, keyUpdate); ok {
		if m.updateID != 0 {
			f.setDefault("update_id", int64(m.updateID))
		}
		if m.userID != 0 {
			f.setDefault("user_id", m.userID)
		}
		if m.chatID != 0 {
			f.setDefault("chat_id", m.chatID)
		}
	}
	if h := HandlerFrom(ctx); h != "" {
		f.setDefault("handler", h)
	}
}

func (f fields) normalize() {
	for key, allowed := range enums {
		raw := f.str(key)
		if raw == "" {
			continue
		}
		v := strings.ToLower(strings.TrimSpace(raw))
		if slices.Contains(allowed, v) || key == "status" {
			f[key] = v
		} else {
			delete(f, key)
		}
	}
	for k, v := range f {
		if v == nil || v == "" {
			delete(f, k)
		}
	}
}

// keys returns the ordered keys first, then the rest sorted.
func (f fields) keys(order []string) []string {
	out := make([]string, 0, len(f))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := f[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	n := len(out)
	for k := range f {
		if !seen[k] {
			out = append(out, k)
		}
	}
	slices.Sort(out[n:])
	return out
}

func (f fields) json(order []string) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range f.keys(order) {
		v, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

func (f fields) kv(order []string) []byte {
	var b strings.Builder
	for i, k := range f.keys(order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		s := fmt.Sprint(f[k])
		if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
			s = strconv.Quote(s)
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s)
	}
	return []byte(b.String())
}
