// Package ops serves the operator HTTP endpoint: liveness and runtime counters.
package ops

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/m3rciful/chainregbot/core/buildinfo"
	"github.com/m3rciful/chainregbot/core/logger"
	"github.com/m3rciful/chainregbot/internal/regsync"
)

// Sessions reports the number of live sessions.
type Sessions interface {
	Len() int
}

// Catalog lists the chains currently on disk.
type Catalog interface {
	List(ctx context.Context) []string
}

// SyncStatus reports the last registry sync. Nil when syncing is disabled.
type SyncStatus interface {
	Last() regsync.Result
}

// Deps wires the server to the running bot.
type Deps struct {
	Sessions Sessions
	Catalog  Catalog
	Sync     SyncStatus
}

// Server wraps a fiber app.
type Server struct {
	app  *fiber.App
	deps Deps
	log  *slog.Logger
}

// New builds the app and registers its routes.
func New(deps Deps) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			AppName:               "chainregbot",
			ReadTimeout:           10 * time.Second,
			WriteTimeout:          10 * time.Second,
		}),
		deps: deps,
		log:  logger.Ops,
	}
	s.app.Use(recover.New())
	s.app.Get("/healthz", s.health)
	s.app.Get("/stats", s.stats)
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

type syncStats struct {
	ID     string     `json:"id,omitempty"`
	Action string     `json:"action,omitempty"`
	At     *time.Time `json:"at,omitempty"`
	OK     bool       `json:"ok"`
	Error  string     `json:"error,omitempty"`
}

type statsResponse struct {
	Sessions int        `json:"sessions"`
	Chains   int        `json:"chains"`
	Sync     *syncStats `json:"sync,omitempty"`
}

func (s *Server) stats(c *fiber.Ctx) error {
	resp := statsResponse{}
	if s.deps.Sessions != nil {
		resp.Sessions = s.deps.Sessions.Len()
	}
	if s.deps.Catalog != nil {
		resp.Chains = len(s.deps.Catalog.List(c.UserContext()))
	}
	if s.deps.Sync != nil {
		last := s.deps.Sync.Last()
		st := &syncStats{ID: last.ID, Action: last.Action, OK: last.OK()}
		if !last.At.IsZero() {
			at := last.At.UTC()
			st.At = &at
		}
		if last.Err != nil {
			st.Error = last.Err.Error()
		}
		resp.Sync = st
	}
	return c.JSON(resp)
}

// Run listens on addr until ctx ends. An empty addr disables the endpoint.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		<-ctx.Done()
		return nil
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(addr) }()
	s.log.LogAttrs(ctx, slog.LevelInfo, "ops listening",
		slog.String("event", "ops.listen"),
		slog.String("addr", addr),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
