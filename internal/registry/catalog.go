package registry

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/m3rciful/chainregbot/core/logger"
)

var chainNameRe = regexp.MustCompile(`^[A-Za-z0-9]`)

// Catalog lists the chains available in a Source. It never caches: every
// List call reads the source again, so a refresh is visible immediately.
type Catalog struct {
	src Source
	log *slog.Logger

	// collate.Collator is not safe for concurrent use.
	mu       sync.Mutex
	collator *collate.Collator
}

// NewCatalog builds a catalog over src. A nil log falls back to the registry component logger.
func NewCatalog(src Source, log *slog.Logger) *Catalog {
	if log == nil {
		log = logger.Registry
	}
	return &Catalog{
		src:      src,
		log:      log,
		collator: collate.New(language.Und, collate.IgnoreCase, collate.IgnoreDiacritics),
	}
}

// List returns chain names ordered case- and accent-insensitively. Names
// comparing equal at that level keep a deterministic byte order. An
// unreadable source yields an empty list.
func (c *Catalog) List(ctx context.Context) []string {
	start := time.Now()
	dirs, err := c.src.ListDirs(ctx)
	if err != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "catalog unavailable",
			slog.String("event", "catalog.list"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return []string{}
	}

	names := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if chainNameRe.MatchString(d) {
			names = append(names, d)
		}
	}

	c.mu.Lock()
	slices.SortFunc(names, func(a, b string) int {
		if r := c.collator.CompareString(a, b); r != 0 {
			return r
		}
		return strings.Compare(a, b)
	})
	c.mu.Unlock()

	c.log.LogAttrs(ctx, slog.LevelDebug, "catalog listed",
		slog.String("event", "catalog.list"),
		slog.String("status", "ok"),
		slog.Int("count", len(names)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return names
}
