package router

import (
	tg "github.com/m3rciful/chainregbot/core/telegram"
	"github.com/m3rciful/chainregbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// PendingInput receives free text while a flow waits for an argument, such
// as a bare pool id. It is consulted before commands and the fallback.
type PendingInput interface {
	Awaiting(userID int64) bool
	HandleInput(c tele.Context) error
}

// TextOptions sets handlers for messages nothing else claims.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes routes plain text through pending input, typed commands, the
// registry fallback and finally opts.UnknownText. Documents only ever reach
// opts.UnknownDocument.
func TextRoutes(pending PendingInput, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if pending != nil && c.Sender() != nil && pending.Awaiting(c.Sender().ID) {
			return handled(c, "pending_input", func() error { return pending.HandleInput(c) })
		}
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return handled(c, handlerName(key), func() error { return cmd.Handler(c) })
			}
			if fb := reg.TextFallback(); fb != nil {
				return handled(c, "fallback", func() error { return fb(c) })
			}
		}
		return orSkip(c, "unknown_text", opts.UnknownText)
	}
	doc := func(c tele.Context) error {
		return orSkip(c, "unexpected_document", opts.UnknownDocument)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: middleware.RecoverMiddleware(text)},
		{Endpoint: tele.OnDocument, Handler: middleware.RecoverMiddleware(doc)},
	}
}

func orSkip(c tele.Context, name string, h tele.HandlerFunc) error {
	if h == nil {
		skipped(c, name)
		return nil
	}
	return handled(c, name, func() error { return h(c) })
}
