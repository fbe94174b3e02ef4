package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const countersKey = "msg_counters"

// counters tracks what a handler sent back for the handler.handled line.
type counters struct {
	messages int
	keyboard bool
}

func countersOf(c tele.Context) *counters {
	if n, ok := c.Get(countersKey).(*counters); ok {
		return n
	}
	n := &counters{}
	c.Set(countersKey, n)
	return n
}

// CountMessage records one outgoing message or edit.
func CountMessage(c tele.Context, withKeyboard bool) {
	if c == nil {
		return
	}
	n := countersOf(c)
	n.messages++
	n.keyboard = n.keyboard || withKeyboard
}

// GetCounters returns the messages sent so far and whether any carried a
// keyboard.
func GetCounters(c tele.Context) (int, bool) {
	n := countersOf(c)
	return n.messages, n.keyboard
}

// countingContext counts replies made through the context itself.
type countingContext struct{ tele.Context }

func (m countingContext) Send(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Send(what, opts...), opts)
}

func (m countingContext) Reply(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Reply(what, opts...), opts)
}

func (m countingContext) Edit(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Edit(what, opts...), opts)
}

func (m countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.EditOrSend(what, opts...), opts)
}

func (m countingContext) count(err error, opts []interface{}) error {
	if err == nil {
		CountMessage(m.Context, hasKeyboard(opts))
	}
	return err
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// MessageMetricsMiddleware resets the counters and wraps the context so
// replies through it are counted.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(countersKey, &counters{})
		return next(countingContext{Context: c})
	}
}
