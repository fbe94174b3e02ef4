package telegram

import (
	"fmt"
	"time"

	coreconfig "github.com/m3rciful/chainregbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPoll = 10 * time.Second

// longPollTimeout is the getUpdates hold time; 0 selects the default.
func longPollTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultLongPoll
	}
	return time.Duration(seconds) * time.Second
}

// newPoller picks the update source for the normalized run mode.
func newPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds)}
}
