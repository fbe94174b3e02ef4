package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/chainregbot/core/logger"
	tghelpers "github.com/m3rciful/chainregbot/core/telegram/helpers"
	"github.com/m3rciful/chainregbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handled runs fn under the handler name and logs one handler.handled line.
func handled(c tele.Context, name string, fn func() error, extras ...slog.Attr) error {
	start := time.Now()
	tghelpers.WithHandler(c, name)
	err := fn()
	summarize(c, name, start, err, extras...)
	return err
}

// skipped logs an update nothing handled.
func skipped(c tele.Context, name string) {
	summarize(c, name, time.Now(), nil, slog.String("status", "skip"))
}

func summarize(c tele.Context, name string, start time.Time, err error, extras ...slog.Attr) {
	ctx := tghelpers.WithHandler(c, name)
	msgs, kb := middleware.GetCounters(c)

	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	attrs := []slog.Attr{
		slog.String("status", outcome),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	// Later attrs win, so extras may override status.
	attrs = append(attrs, extras...)
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)
}

func handlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// errorCode is the upper-cased type name of the innermost wrapped error.
func errorCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
