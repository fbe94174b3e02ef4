package database

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/chainregbot/core/logger"
)

const readyTimeout = 30 * time.Second

// migrationFile is one "<version>_<name>.up.sql" file.
type migrationFile struct {
	version uint64
	name    string
}

// scanMigrations lists the up migrations in dir ordered by version.
func scanMigrations(dir string) []migrationFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []migrationFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, migrationFile{version: v, name: name})
	}
	slices.SortFunc(files, func(a, b migrationFile) int {
		return cmp.Compare(a.version, b.version)
	})
	return files
}

// between names the files with from < version <= to.
func between(files []migrationFile, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if f.version > from && f.version <= to {
			out = append(out, f.name)
		}
	}
	return out
}

// RunMigrations applies every pending up migration in cfg.MigrationsDir.
func RunMigrations(cfg Config) error {
	cfg = cfg.withDefaults()
	ctx := context.Background()

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	if err := WaitForPostgres(ctx, cfg.DSN(), readyTimeout); err != nil {
		logger.MIG.LogAttrs(ctx, slog.LevelError, "db not ready",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return err
	}

	files := scanMigrations(dir)
	logger.MIG.LogAttrs(ctx, slog.LevelDebug, "migrations resolved",
		slog.String("event", "resolve"),
		slog.String("dir", dir),
		slog.Int("count", len(files)),
	)

	m, err := migrate.New("file://"+dir, cfg.URL())
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	from, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}

	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.LogAttrs(ctx, slog.LevelError, "migration failed",
			slog.String("event", "apply"),
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	to, _, _ := m.Version()

	applied := between(files, uint64(from), uint64(to))
	attrs := []slog.Attr{
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("count", len(applied)),
		slog.Duration("duration", time.Since(start)),
	}
	if preview, more := logger.SummarizeStrings(applied, 6); preview != "" {
		attrs = append(attrs, slog.String("files", preview), slog.Bool("files_truncated", more))
	}
	logger.MIG.LogAttrs(ctx, slog.LevelInfo, "migrations summary", attrs...)
	return nil
}
