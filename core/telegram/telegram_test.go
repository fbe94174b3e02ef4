package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/chainregbot/core/config"

	tele "gopkg.in/telebot.v4"
)

func TestNewPoller(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	lp, ok := newPoller(cfg).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, defaultLongPoll, lp.Timeout)

	cfg.Telegram.LongPollTimeoutSeconds = 25
	lp = newPoller(cfg).(*tele.LongPoller)
	assert.Equal(t, 25*time.Second, lp.Timeout)

	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook = coreconfig.WebhookConfig{URL: "https://bot.example.org/hook", Listen: "0.0.0.0", Port: 8443}
	wh, ok := newPoller(cfg).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://bot.example.org/hook", wh.Endpoint.PublicURL)
}

func TestBuildHTTPClientOutlastsLongPoll(t *testing.T) {
	c := BuildHTTPClient(30)
	assert.Greater(t, c.Timeout, 30*time.Second)
	assert.Greater(t, BuildHTTPClient(0).Timeout, defaultLongPoll)
}

func TestDefaultMiddlewares(t *testing.T) {
	names := func(mws []Middleware) []string {
		var out []string
		for _, m := range mws {
			out = append(out, m.Name)
		}
		return out
	}
	assert.Equal(t, []string{"recover", "logger", "metrics"}, names(DefaultMiddlewares(nil, nil)))

	cfg := &coreconfig.Config{}
	cfg.RateLimit.IntervalMS = 300
	cfg.RateLimit.ExcludeUpdates = []string{"callback"}
	assert.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, names(DefaultMiddlewares(cfg, nil)))
}
