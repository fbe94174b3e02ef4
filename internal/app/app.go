// Package app assembles the chain registry bot from its configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/chainregbot/core/bootstrap"
	"github.com/m3rciful/chainregbot/core/cmd"
	"github.com/m3rciful/chainregbot/core/logger"
	coretelegram "github.com/m3rciful/chainregbot/core/telegram"
	"github.com/m3rciful/chainregbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/chainregbot/core/telegram/helpers"
	"github.com/m3rciful/chainregbot/internal/bot"
	"github.com/m3rciful/chainregbot/internal/chaininfo"
	"github.com/m3rciful/chainregbot/internal/ibc"
	"github.com/m3rciful/chainregbot/internal/incentives"
	"github.com/m3rciful/chainregbot/internal/menu"
	"github.com/m3rciful/chainregbot/internal/ops"
	"github.com/m3rciful/chainregbot/internal/registry"
	"github.com/m3rciful/chainregbot/internal/regsync"
	"github.com/m3rciful/chainregbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

const msgSlowDown = "Too many requests. Please slow down."

// App holds the wired components.
type App struct {
	cfg   *Config
	infra *bootstrap.Result

	Store   *session.Store
	Catalog *registry.Catalog
	Syncer  *regsync.Syncer
	sweeper *session.Sweeper
	ops     *ops.Server
	bot     *bot.Bot

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// Bootstrap initialises logging and storage, then wires every component.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	infra, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	return build(cfg, infra), nil
}

func build(cfg *Config, infra *bootstrap.Result) *App {
	src := registry.NewDirSource(cfg.Registry.Dir)
	store := session.NewStore()
	catalog := registry.NewCatalog(src, nil)

	var cache ibc.Cache = ibc.NewMemoryCache(cfg.IBC.CacheTTL)
	if infra != nil && infra.DB != nil {
		cache = ibc.NewPostgresCache(infra.DB, cfg.IBC.CacheTTL)
	}

	ctrl := menu.New(menu.Deps{
		Store:      store,
		Catalog:    catalog,
		Views:      chaininfo.New(src, nil),
		Incentives: incentives.New(cfg.Incentives.BaseURL, cfg.Incentives.Timeout),
		Traces:     ibc.NewResolver(cache, cfg.IBC.Timeout),
		PageSize:   cfg.Registry.PageSize,
	})

	a := &App{
		cfg:     cfg,
		infra:   infra,
		Store:   store,
		Catalog: catalog,
		bot:     bot.New(ctrl, store),
	}

	idle := session.Policy{Name: "idle", Every: cfg.Session.SweepInterval, MaxAge: cfg.Session.IdleTTL}
	stale := session.Policy{Name: "stale", Every: cfg.Registry.RefreshInterval, MaxAge: cfg.Registry.RefreshInterval}
	if cfg.Registry.Syncing() {
		a.Syncer = NewSyncer(cfg)
		a.sweeper = session.NewSweeper(store, nil, idle)
		// Stale sessions go on the registry refresh tick.
		a.Syncer.OnTick(func(context.Context) { a.sweeper.Sweep(stale) })
	} else {
		a.sweeper = session.NewSweeper(store, nil, idle, stale)
	}

	deps := ops.Deps{Sessions: store, Catalog: catalog}
	if a.Syncer != nil {
		deps.Sync = a.Syncer
	}
	a.ops = ops.New(deps)
	return a
}

// NewSyncer builds the registry syncer from cfg.
func NewSyncer(cfg *Config) *regsync.Syncer {
	return regsync.New(regsync.Config{
		Dir:      cfg.Registry.Dir,
		RepoURL:  cfg.Registry.RepoURL,
		Interval: cfg.Registry.RefreshInterval,
	})
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, onLimited),
		Routes:      a.bot.Routes(reg),
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func onLimited(c tele.Context) error {
	if c.Callback() != nil {
		callbacks.MarkAnswered(c)
		return c.Respond(&tele.CallbackResponse{Text: msgSlowDown})
	}
	return tghelpers.SendText(c, msgSlowDown)
}

func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	a.Start(ctx)
	return nil
}

func (a *App) onStop(context.Context, coretelegram.Runtime) error {
	return a.Stop()
}

// Start launches the background workers: the session sweeper, the registry
// syncer and the operator endpoint.
func (a *App) Start(parent context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.group != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.sweeper.Run(gctx) })
	if a.Syncer != nil {
		g.Go(func() error { return a.Syncer.Run(gctx) })
	}
	g.Go(func() error {
		if err := a.ops.Run(gctx, a.cfg.Ops.Listen); err != nil {
			return fmt.Errorf("ops: %w", err)
		}
		return nil
	})

	a.cancel = cancel
	a.group = g
	logger.L.With("component", "app").LogAttrs(ctx, slog.LevelInfo, "workers started",
		slog.String("event", "workers.start"),
		slog.Bool("sync", a.Syncer != nil),
		slog.Bool("ops", a.cfg.Ops.Listen != ""),
		slog.Bool("db", a.infra != nil && a.infra.DB != nil),
	)
}

// Stop cancels the workers, waits for them and releases storage.
func (a *App) Stop() error {
	a.mu.Lock()
	cancel, g := a.cancel, a.group
	a.cancel, a.group = nil, nil
	a.mu.Unlock()

	var err error
	if cancel != nil {
		cancel()
		err = g.Wait()
	}
	if cerr := a.infra.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

var (
	_ cmd.ConfigCarrier = (*Config)(nil)
	_ cmd.TelegramApp   = (*App)(nil)
)
