package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/chainregbot/core/logger"
	"github.com/m3rciful/chainregbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var queue atomic.Pointer[sender.Queue]

// SetQueue installs the queue SendText submits to; nil sends inline.
func SetQueue(q *sender.Queue) {
	queue.Store(q)
}

// SendText sends plain text to the chat of c without waiting for delivery.
// When the queue is missing or saturated the send happens inline.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	send := func() error {
		if len(opts) > 0 && opts[0] != nil {
			return c.Send(text, opts[0])
		}
		return c.Send(text)
	}

	q := queue.Load()
	if q == nil {
		return send()
	}
	ctx := BuildContext(c)
	err := q.Submit(ctx, "send.text", send)
	if errors.Is(err, sender.ErrFull) || errors.Is(err, sender.ErrClosed) {
		logger.Warn(ctx, "tg.sender", "queue.bypass", slog.String("err", err.Error()))
		return send()
	}
	return err
}
