package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Config holds database connection settings. Env overrides are relative to
// the enclosing section, e.g. DATABASE_HOST.
type Config struct {
	Host           string `yaml:"host" envconfig:"HOST"`
	Port           string `yaml:"port" envconfig:"PORT"`
	User           string `yaml:"user" envconfig:"USER"`
	Password       string `yaml:"password" envconfig:"PASSWORD"`
	Name           string `yaml:"name" envconfig:"NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"MAX_CONNECTIONS"`
	// MigrationsDir is resolved against the working directory when relative.
	MigrationsDir string `yaml:"migrations_dir" envconfig:"MIGRATIONS_DIR"`
}

// Enabled reports whether a database is configured at all.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

func (c Config) withDefaults() Config {
	if c.Port == "" {
		c.Port = "5432"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 5
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = "migrations"
	}
	return c
}

// DSN returns the lib/pq keyword form.
func (c Config) DSN() string {
	c = c.withDefaults()
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// URL returns the postgres:// form used by golang-migrate.
func (c Config) URL() string {
	c = c.withDefaults()
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
