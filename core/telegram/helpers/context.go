// Package helpers holds small utilities shared by the Telegram handlers.
package helpers

import (
	"context"

	"github.com/m3rciful/chainregbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxKey = "logger_ctx"

// remember caches ctx on c for later handlers.
func remember(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxKey, ctx)
	}
}

// BuildContext returns the logging context of the update, creating and
// caching it on first use. It carries the request id plus the update, chat
// and user ids.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		return ctx
	}

	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	updateID := c.Update().ID

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}
	ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	remember(c, ctx)
	return ctx
}

// WithHandler tags the cached context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		remember(c, ctx)
	}
	return ctx
}
