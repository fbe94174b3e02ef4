package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Separator splits a callback key from its payload, e.g. "page:2".
const Separator = ":"

const answeredKey = "cb_answered"

// Split parses raw callback data of the form key:payload. Data without a
// separator is a bare key. A leading telebot \f marker is ignored.
func Split(data string) (string, string) {
	raw := strings.TrimPrefix(data, "\f")
	key, payload, _ := strings.Cut(raw, Separator)
	return strings.TrimSpace(key), payload
}

// ParseCallbackData returns key and payload for cb, preferring cb.Unique when
// telebot already resolved it.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return Split(cb.Data)
}

// MarkAnswered records that a handler already responded to the callback so
// the router does not send a second, empty acknowledgement.
func MarkAnswered(c tele.Context) {
	c.Set(answeredKey, true)
}

// Answered reports whether MarkAnswered ran for this update.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredKey).(bool)
	return v
}
