// Package bootstrap brings up the process-wide infrastructure before the bot
// starts: logging first, then the optional Postgres store.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/chainregbot/core/config"
	coredatabase "github.com/m3rciful/chainregbot/core/database"
	"github.com/m3rciful/chainregbot/core/logger"
)

var errNoConfig = errors.New("bootstrap: config is required")

// Options select the config and, for tests, replace individual stages.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

func (o Options) withDefaults() Options {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	return o
}

// Result is what the pipeline produced. DB stays nil without a database
// section.
type Result struct {
	DB *sqlx.DB
}

// Close releases the database handle. Safe on a nil Result.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run executes the stages in order and stops at the first failure.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errNoConfig
	}
	opts = opts.withDefaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: init logger: %w", err)
	}

	res := &Result{}
	if !opts.Database.Enabled() {
		logger.DB.LogAttrs(context.Background(), slog.LevelInfo, "database disabled",
			slog.String("event", "db.connect"),
			slog.String("status", "skipped"),
		)
		return res, nil
	}

	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect database: %w", err)
	}
	res.DB = db

	if err := opts.Migrate(opts.Database); err != nil {
		return nil, errors.Join(fmt.Errorf("bootstrap: migrate: %w", err), res.Close())
	}
	return res, nil
}
