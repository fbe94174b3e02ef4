package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() *Config {
	return &Config{Telegram: TelegramConfig{Token: "1:x"}}
}

func TestNormalizeRunMode(t *testing.T) {
	for _, mode := range []string{"", "polling", " LongPoll "} {
		cfg := valid()
		cfg.Telegram.RunMode = mode
		require.NoError(t, Normalize(cfg), mode)
		assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	}

	cfg := valid()
	cfg.Telegram.RunMode = "webhook"
	assert.ErrorContains(t, Normalize(cfg), "webhook.url")
	cfg.Webhook = WebhookConfig{URL: "https://x", Listen: "0.0.0.0", Port: 8443}
	assert.NoError(t, Normalize(cfg))

	cfg = valid()
	cfg.Telegram.RunMode = "carrier-pigeon"
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeRequiresToken(t *testing.T) {
	assert.ErrorContains(t, Normalize(&Config{}), "token")
	assert.Error(t, Normalize(nil))
}

func TestNormalizeRateLimit(t *testing.T) {
	cfg := valid()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback", "", "message"}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, []string{"callback", "message"}, cfg.RateLimit.ExcludeUpdates)

	cfg.RateLimit.ExcludeUpdates = []string{"edited_message"}
	assert.Error(t, Normalize(cfg))
}

func TestDecodeWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  token: file\nrate_limit:\n  interval_ms: 100\n"), 0o600))
	t.Setenv("TELEGRAM_RUN_MODE", "webhook")
	t.Setenv("RATE_LIMIT_INTERVAL_MS", "250")

	var cfg Config
	require.NoError(t, Decode(path, &cfg))
	assert.Equal(t, "file", cfg.Telegram.Token)
	assert.Equal(t, "webhook", cfg.Telegram.RunMode)
	assert.Equal(t, 250, cfg.RateLimit.IntervalMS)

	assert.Error(t, Decode(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))
}
