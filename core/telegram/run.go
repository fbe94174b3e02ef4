// Package telegram runs a telebot bot from the core configuration: poller,
// middleware chain, routes, the command menu and the outbound send queue.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/chainregbot/core/config"
	"github.com/m3rciful/chainregbot/core/logger"
	tghelpers "github.com/m3rciful/chainregbot/core/telegram/helpers"
	"github.com/m3rciful/chainregbot/core/telegram/netutil"
	"github.com/m3rciful/chainregbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named global middleware, applied in slice order.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to a telebot endpoint such as "/start" or
// tele.OnCallback.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry
	Queue    sender.Options

	Middlewares []Middleware
	Routes      []Route

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is what the lifecycle hooks get to see.
type Runtime struct {
	Bot      *tele.Bot
	Queue    *sender.Queue
	Registry *Registry
}

// RunTelegram starts the bot and blocks until ctx is cancelled or the
// poller stops. Cancellation is a clean exit.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	cfg := opts.Config
	if cfg == nil {
		return errors.New("telegram: nil config")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  newPoller(cfg),
		Client:  BuildHTTPClient(cfg.Telegram.LongPollTimeoutSeconds),
		OnError: onError,
	})
	if err != nil {
		return fmt.Errorf("telegram: init bot: %w", err)
	}
	logMode(ctx, cfg, bot, time.Since(start))

	queue := sender.New(opts.Queue)
	tghelpers.SetQueue(queue)
	defer func() {
		tghelpers.SetQueue(nil)
		queue.Close()
	}()

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	PublishCommands(bot, reg)

	rt := Runtime{Bot: bot, Queue: queue, Registry: reg}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-stopped
	case <-stopped:
	}

	if opts.OnStop != nil {
		return opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	return nil
}

func logMode(ctx context.Context, cfg *coreconfig.Config, bot *tele.Bot, took time.Duration) {
	if wh, ok := bot.Poller.(*tele.Webhook); ok {
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
			slog.Duration("duration", took),
		)
		return
	}

	logger.TG.LogAttrs(ctx, slog.LevelInfo, "polling mode",
		slog.String("event", "mode"),
		slog.String("mode", coreconfig.RunModeLongpoll),
		slog.Duration("timeout", longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds)),
		slog.Duration("duration", took),
	)
	// A webhook left over from an earlier deployment blocks getUpdates.
	if err := bot.RemoveWebhook(false); err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelWarn, "delete webhook failed",
			slog.String("event", "delete_webhook"),
			slog.String("err", netutil.Redact(err)),
		)
	}
}

func onError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.error",
		slog.String("err", netutil.Redact(err)),
		slog.String("error_kind", netutil.Classify(err)),
	)
}
