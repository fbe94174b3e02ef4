// Package logger is the structured slog setup shared by the bot: one
// handler writing JSON or key=value lines with a stable key order, request
// correlation through context, and per-component child loggers.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/chainregbot/core/buildinfo"
	coreconfig "github.com/m3rciful/chainregbot/core/config"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	sink     *lineWriter
	files    []io.Closer

	level        slog.LevelVar
	debugSampler = newSampler(1, 50)
	trace        bool

	// L is the root logger. Until InitLogger runs it is slog.Default().
	L *slog.Logger

	DB       *slog.Logger // database connectivity
	MIG      *slog.Logger // schema migrations
	TG       *slog.Logger // Telegram transport
	TWire    *slog.Logger // handler and command wiring
	Registry *slog.Logger // chain registry reads
	Sync     *slog.Logger // registry clone/pull
	Sessions *slog.Logger // session expiry
	Ops      *slog.Logger // operator endpoint
)

func init() {
	setRoot(slog.Default())
}

func setRoot(l *slog.Logger) {
	L = l
	DB = Component("db")
	MIG = Component("db.migrate")
	TG = Component("tg")
	TWire = Component("tg.wire")
	Registry = Component("registry")
	Sync = Component("sync")
	Sessions = Component("session")
	Ops = Component("ops")
}

// options is the resolved logging section.
type options struct {
	format  logFormat
	order   []string
	level   slog.Level
	num     int
	den     int
	file    string
	profile string
}

func optionsFrom(cfg *coreconfig.Config) options {
	o := options{format: formatJSON, order: defaultKeyOrder, level: slog.LevelInfo, num: 1, den: 50, profile: "prod"}
	if cfg == nil {
		return o
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		o.profile = p
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		o.format = formatKV
	case "json":
	default:
		if o.profile == "debug" || o.profile == "dev" {
			o.format = formatKV
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		o.level = slog.LevelDebug
	case "warn", "warning":
		o.level = slog.LevelWarn
	case "error":
		o.level = slog.LevelError
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			o.order = order
		}
	}

	if ratio := strings.TrimSpace(lc.DebugSample); ratio != "" {
		o.num, o.den = parseRatio(ratio)
	}

	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		o.file = filepath.Join(dir, name)
	}
	return o
}

// InitLogger installs the structured handler as the slog default. Only the
// first call has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		o := optionsFrom(cfg)
		level.Set(o.level)
		debugSampler.set(o.num, o.den)
		trace = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		outputs := []io.Writer{os.Stdout}
		if o.file != "" {
			f, ferr := openLogFile(o.file)
			if ferr != nil {
				err = ferr
				return
			}
			outputs = append(outputs, f)
			files = append(files, f)
		}
		sink = newLineWriter(io.MultiWriter(outputs...))

		root := slog.New(&handler{level: &level, out: sink, format: o.format, order: o.order})
		slog.SetDefault(root)
		setRoot(root)

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("cfg_profile", o.profile),
		)
	})
	return err
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

// Shutdown flushes pending lines and closes log files. Safe to call twice.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	var errs []error
	if sink != nil {
		errs = append(errs, sink.Close())
		sink = nil
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	files = nil
	return errors.Join(errs...)
}

// ShouldSampleDebug gates high-volume debug lines by logging.debug_sample.
// TRACE=1 lets every line through.
func ShouldSampleDebug() bool {
	return trace || debugSampler.allow()
}

// TraceEnabled reports whether TRACE forces full debug output.
func TraceEnabled() bool { return trace }

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
