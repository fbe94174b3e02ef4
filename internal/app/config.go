package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/chainregbot/core/config"
	coredatabase "github.com/m3rciful/chainregbot/core/database"
	"github.com/m3rciful/chainregbot/internal/incentives"
	"github.com/m3rciful/chainregbot/internal/menu"
)

// Defaults for the domain sections.
const (
	DefaultRegistryDir     = "chain-registry"
	DefaultRepoURL         = "https://github.com/cosmos/chain-registry.git"
	DefaultRefreshInterval = 6 * time.Hour
	DefaultIdleTTL         = 5 * time.Minute
	DefaultSweepInterval   = time.Minute
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultTraceCacheTTL   = 24 * time.Hour
)

// RegistryConfig locates the chain registry checkout.
type RegistryConfig struct {
	Dir             string        `yaml:"dir" envconfig:"DIR"`
	RepoURL         string        `yaml:"repo_url" envconfig:"REPO_URL"`
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL"`
	PageSize        int           `yaml:"page_size" envconfig:"PAGE_SIZE"`
	// SyncEnabled defaults to true; set false to serve a checkout managed elsewhere.
	SyncEnabled *bool `yaml:"sync_enabled" envconfig:"SYNC_ENABLED"`
}

// Syncing reports whether the clone/pull job should run.
func (r RegistryConfig) Syncing() bool {
	return r.SyncEnabled == nil || *r.SyncEnabled
}

// SessionConfig controls session expiry.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" envconfig:"IDLE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL"`
}

// IncentivesConfig points at the pool incentives service.
type IncentivesConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// IBCConfig tunes denom trace lookups.
type IBCConfig struct {
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	CacheTTL time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
}

// OpsConfig enables the operator HTTP endpoint when Listen is set.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"LISTEN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Registry   RegistryConfig      `yaml:"registry"`
	Session    SessionConfig       `yaml:"session"`
	Incentives IncentivesConfig    `yaml:"incentives"`
	IBC        IBCConfig           `yaml:"ibc"`
	Database   coredatabase.Config `yaml:"database"`
	Ops        OpsConfig           `yaml:"ops"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path and fills domain defaults without checking the Telegram
// sections, for subcommands that never talk to Telegram.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := coreconfig.Decode(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load plus core validation.
func LoadConfig(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	r := &c.Registry
	r.Dir = strings.TrimSpace(r.Dir)
	if r.Dir == "" {
		r.Dir = DefaultRegistryDir
	}
	if strings.TrimSpace(r.RepoURL) == "" {
		r.RepoURL = DefaultRepoURL
	}
	if r.RefreshInterval == 0 {
		r.RefreshInterval = DefaultRefreshInterval
	}
	if r.RefreshInterval < 0 {
		return fmt.Errorf("registry.refresh_interval must be positive")
	}
	if r.PageSize == 0 {
		r.PageSize = menu.DefaultPageSize
	}
	if r.PageSize < 0 {
		return fmt.Errorf("registry.page_size must be positive")
	}

	s := &c.Session
	if s.IdleTTL <= 0 {
		s.IdleTTL = DefaultIdleTTL
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = DefaultSweepInterval
	}

	if strings.TrimSpace(c.Incentives.BaseURL) == "" {
		c.Incentives.BaseURL = incentives.DefaultBaseURL
	}
	if c.Incentives.Timeout <= 0 {
		c.Incentives.Timeout = DefaultHTTPTimeout
	}
	if c.IBC.Timeout <= 0 {
		c.IBC.Timeout = DefaultHTTPTimeout
	}
	if c.IBC.CacheTTL == 0 {
		c.IBC.CacheTTL = DefaultTraceCacheTTL
	}
	return nil
}
