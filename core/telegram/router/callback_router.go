package router

import (
	"log/slog"

	tg "github.com/m3rciful/chainregbot/core/telegram"
	"github.com/m3rciful/chainregbot/core/telegram/callbacks"
	"github.com/m3rciful/chainregbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// NotFound is used when the registry has no not-found handler.
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches every callback query by the key before ':'.
// A query the handler did not answer gets an empty acknowledgement so the
// client stops its spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	dispatch := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		defer func() {
			if !callbacks.Answered(c) {
				_ = c.Respond()
			}
		}()

		key, _ := callbacks.ParseCallbackData(cb)
		name := "callback." + handlerName(key)
		cbKey := slog.String("cb_key", key)

		h, ok := reg.GetCallback(key)
		if ok && h != nil {
			return handled(c, name, func() error { return h(c) }, cbKey)
		}

		fallback := reg.CallbackNotFound()
		if fallback == nil {
			fallback = opts.NotFound
		}
		if fallback == nil {
			skipped(c, name)
			return nil
		}
		return handled(c, name, func() error { return fallback(c) }, cbKey, slog.String("cause", "not_found"))
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: middleware.RecoverMiddleware(dispatch)}
}
