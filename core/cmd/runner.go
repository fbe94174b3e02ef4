// Package cmd is the process entry shared by bots built on the core: load
// config, bootstrap, run until SIGINT or SIGTERM, flush logs.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/chainregbot/core/config"
	"github.com/m3rciful/chainregbot/core/logger"
	coretelegram "github.com/m3rciful/chainregbot/core/telegram"
)

// ConfigCarrier is an application config embedding the core sections.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the options RunTelegram runs with.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options wires an application into Run. ConfigPath, LoadConfig and
// Bootstrap are required.
type Options struct {
	ConfigPath string
	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	// Overridable in tests.
	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	Signals        []os.Signal
}

// Run loads the config at opts.ConfigPath, bootstraps the application and
// runs the bot until a signal arrives.
func Run(opts Options) error {
	switch {
	case opts.ConfigPath == "":
		return errors.New("cmd: config path is required")
	case opts.LoadConfig == nil, opts.Bootstrap == nil:
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}

	log.Printf("loading config: %s", opts.ConfigPath)
	cfg, err := opts.LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errors.New("cmd: config has no core section")
	}

	startedAt := time.Now()
	app, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	shutdown := opts.ShutdownLogger
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	defer func() {
		if err := shutdown(); err != nil {
			log.Printf("logger shutdown: %v", err)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	withLifecycleLogs(&runOpts, startedAt)

	sigs := opts.Signals
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(context.Background(), sigs...)
	defer stop()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// withLifecycleLogs logs "app ready" after the start hook and "shutting
// down" before the stop hook.
func withLifecycleLogs(o *coretelegram.RunOptions, startedAt time.Time) {
	appLog := logger.Component("app")
	onStart, onStop := o.OnStart, o.OnStop

	o.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		appLog.LogAttrs(ctx, slog.LevelInfo, "app ready",
			slog.String("event", "ready"),
			slog.Duration("startup_duration", time.Since(startedAt)),
		)
		return nil
	}
	o.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		appLog.LogAttrs(ctx, slog.LevelInfo, "shutting down",
			slog.String("event", "shutdown"),
		)
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
}
