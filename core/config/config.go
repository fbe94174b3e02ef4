// Package config holds the configuration sections every bot built on the
// core shares. Applications embed Config in their own struct and load both
// in one pass with Decode.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted by rate_limit.exclude_updates.
const (
	UpdateCallback    = "callback"
	UpdateMessage     = "message"
	UpdateInlineQuery = "inline_query"
)

var updateKinds = []string{UpdateCallback, UpdateMessage, UpdateInlineQuery}

type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"RUN_MODE"`
	// LongPollTimeoutSeconds is the getUpdates hold time; 0 means 10s.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"LONGPOLL_TIMEOUT_SECONDS"`
}

type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"URL"`
	Listen string `yaml:"listen" envconfig:"LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT"`
}

// LoggingConfig is read by logger.InitLogger. Format is json or kv; when
// unset a debug or dev profile selects kv. DebugSample ("1/50") thins
// high-volume debug lines. Dir plus BotFile adds a log file next to stdout.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	Profile     string `yaml:"profile" envconfig:"PROFILE"`
}

// RateLimitConfig enforces IntervalMS between updates of one user, except
// for the update kinds in ExcludeUpdates.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"EXCLUDE_UPDATES"`
}

// Config is the core part of the configuration. Environment variables are
// named after the section, e.g. TELEGRAM_BOT_TOKEN or RATE_LIMIT_INTERVAL_MS.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// Decode reads the YAML file at path into dst and then applies environment
// overrides. dst is any struct embedding or containing Config.
func Decode(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("config env overrides: %w", err)
	}
	return nil
}

// Normalize validates cfg in place: the token is required, the run mode is
// lowercased with "polling" accepted for longpoll, and webhook mode needs a
// URL, a listen address and a port.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if err := cfg.normalizeRunMode(); err != nil {
		return err
	}
	return cfg.RateLimit.normalize()
}

func (c *Config) normalizeRunMode() error {
	mode := strings.ToLower(strings.TrimSpace(c.Telegram.RunMode))
	switch mode {
	case "", "polling", RunModeLongpoll:
		if c.Telegram.LongPollTimeoutSeconds < 0 {
			return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
		}
		mode = RunModeLongpoll
	case RunModeWebhook:
		w := c.Webhook
		switch {
		case strings.TrimSpace(w.URL) == "":
			return errors.New("webhook.url is required in webhook mode")
		case strings.TrimSpace(w.Listen) == "":
			return errors.New("webhook.listen is required in webhook mode")
		case w.Port <= 0:
			return errors.New("webhook.port must be > 0 in webhook mode")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", c.Telegram.RunMode)
	}
	c.Telegram.RunMode = mode
	return nil
}

func (r *RateLimitConfig) normalize() error {
	if r.IntervalMS < 0 {
		return errors.New("rate_limit.interval_ms must be >= 0")
	}
	kinds := r.ExcludeUpdates[:0]
	for _, v := range r.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(v))
		if kind == "" {
			continue
		}
		if !slices.Contains(updateKinds, kind) {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: %s", v, strings.Join(updateKinds, ", "))
		}
		kinds = append(kinds, kind)
	}
	r.ExcludeUpdates = kinds
	return nil
}
