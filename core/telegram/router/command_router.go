package router

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/chainregbot/core/logger"
	tg "github.com/m3rciful/chainregbot/core/telegram"
	"github.com/m3rciful/chainregbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command, and each of its aliases,
// to its handler.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for endpoint, def := range cmds {
		if def.Handler == nil {
			continue
		}
		name, h := handlerName(endpoint), def.Handler
		wrapped := middleware.RecoverMiddleware(func(c tele.Context) error {
			return handled(c, name, func() error { return h(c) })
		})
		routes = append(routes, tg.Route{Endpoint: endpoint, Handler: wrapped})
		for _, alias := range def.Aliases {
			if alias = strings.TrimSpace(alias); alias == "" {
				continue
			}
			if !strings.HasPrefix(alias, "/") {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: wrapped})
		}
	}

	logger.TWire.Info("commands wired",
		slog.String("event", "tg.wire.commands"),
		slog.Int("count", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
