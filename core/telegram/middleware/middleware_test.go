package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	upd   tele.Update
	store map[string]any
	sent  []interface{}
}

func newFake(upd tele.Update) *fakeContext {
	return &fakeContext{upd: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update { return f.upd }
func (f *fakeContext) Get(k string) any    { return f.store[k] }
func (f *fakeContext) Set(k string, v any) { f.store[k] = v }
func (f *fakeContext) Callback() *tele.Callback {
	return f.upd.Callback
}

func (f *fakeContext) Sender() *tele.User {
	switch {
	case f.upd.Callback != nil:
		return f.upd.Callback.Sender
	case f.upd.Message != nil:
		return f.upd.Message.Sender
	}
	return nil
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.upd.Message != nil {
		return f.upd.Message.Chat
	}
	return nil
}

func (f *fakeContext) Text() string {
	if f.upd.Message != nil {
		return f.upd.Message.Text
	}
	return ""
}

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func textUpdate(id int, userID int64, text string) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		Text:   text,
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
	}}
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	c := newFake(textUpdate(5, 7, "hello"))
	var got string
	err := LoggerMiddleware(func(c tele.Context) error {
		got, _ = c.Get("rid").(string)
		return nil
	})(c)
	require.NoError(t, err)
	assert.Equal(t, "5:7:7", got)
	assert.NotNil(t, c.Get("logger_ctx"))
}

func TestMetricsCountsReplies(t *testing.T) {
	c := newFake(textUpdate(1, 2, "x"))
	err := MessageMetricsMiddleware(func(c tele.Context) error {
		if err := c.Send("plain"); err != nil {
			return err
		}
		return c.Send("menu", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})(c)
	require.NoError(t, err)

	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)

	CountMessage(c, false)
	msgs, _ = GetCounters(c)
	assert.Equal(t, 3, msgs)
}

func TestRateLimit(t *testing.T) {
	var limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	var handled int
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(newFake(textUpdate(1, 9, "a"))))
	require.NoError(t, h(newFake(textUpdate(2, 9, "b"))))
	require.NoError(t, h(newFake(textUpdate(3, 10, "c"))))
	cb := tele.Update{ID: 4, Callback: &tele.Callback{Sender: &tele.User{ID: 9}, Data: "page:1"}}
	require.NoError(t, h(newFake(cb)))

	assert.Equal(t, 3, handled)
	assert.Equal(t, 1, limited)
}

func TestLimiterExpires(t *testing.T) {
	now := time.Unix(0, 0)
	l := newLimiter(time.Second)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow(1))
	assert.False(t, l.allow(1))
	now = now.Add(2 * time.Minute)
	assert.True(t, l.allow(2))
	assert.NotContains(t, l.seen, int64(1), "stale entries are pruned")
	assert.True(t, l.allow(1))
}

func TestRecoverMiddleware(t *testing.T) {
	c := newFake(textUpdate(1, 2, "x"))
	err := RecoverMiddleware(func(tele.Context) error { panic("boom") })(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.Same(t, want, RecoverMiddleware(func(tele.Context) error { return want })(c))
}
