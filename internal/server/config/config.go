// Package config handles configuration for the server component:
// defaults, an optional JSON or TOML file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophlink/internal/cryptox"
	"github.com/dmitrijs2005/gophlink/internal/logging"
	"github.com/dmitrijs2005/gophlink/internal/protocol/frame"
	"github.com/dmitrijs2005/gophlink/internal/server/rental"
	"github.com/dmitrijs2005/gophlink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophlink/internal/server/sessions"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds runtime settings for the gophlink server.
//
// CipherKey and MACKey are base64 encoded 32-byte keys shared with every
// client of the deployment. Generate them with cmd/keygen.
type Config struct {
	ListenAddress   string
	DatabaseDriver  string
	DatabaseDSN     string
	SessionStore    string
	RedisAddress    string
	RedisPassword   string
	RedisDB         int
	SessionTimeout  time.Duration
	JanitorInterval time.Duration
	CipherKey       string
	MACKey          string
	MaxFrameSize    uint32
	IdleTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownGrace   time.Duration
	Argon2          cryptox.PasswordParams
	LogLevel        string
	LogFormat       string
	Catalog         []rental.MovieSeed
}

// LoadDefaults populates Config with development defaults.
// The key pair has no default; Validate rejects an empty one.
func (c *Config) LoadDefaults() {
	c.ListenAddress = ":7070"
	c.DatabaseDriver = repomanager.DriverSQLite
	c.DatabaseDSN = "file:gophlink?mode=memory&cache=shared"
	c.SessionStore = SessionStoreMemory
	c.RedisAddress = "127.0.0.1:6379"
	c.SessionTimeout = sessions.DefaultTimeout
	c.JanitorInterval = time.Minute
	c.MaxFrameSize = frame.DefaultMaxSize
	c.IdleTimeout = 5 * time.Minute
	c.WriteTimeout = 30 * time.Second
	c.ShutdownGrace = 5 * time.Second
	c.Argon2 = cryptox.DefaultPasswordParams()
	c.LogLevel = "info"
	c.LogFormat = logging.FormatJSON
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
// args are the process arguments without the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting the server cannot run with.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return errors.New("config: listen address is required")
	}
	switch c.DatabaseDriver {
	case repomanager.DriverSQLite, repomanager.DriverPostgres:
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return errors.New("config: database DSN is required")
	}
	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.RedisAddress == "" {
			return errors.New("config: redis address is required for the redis session store")
		}
	default:
		return fmt.Errorf("config: unsupported session store %q", c.SessionStore)
	}
	if c.SessionTimeout <= 0 {
		return errors.New("config: session timeout must be positive")
	}
	if c.MaxFrameSize == 0 {
		return errors.New("config: max frame size must be positive")
	}
	if err := c.Argon2.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.KeyPair(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// KeyPair decodes the configured channel keys.
func (c *Config) KeyPair() (cryptox.KeyPair, error) {
	return cryptox.ParseKeyPair(c.CipherKey, c.MACKey)
}

// MovieCatalog returns the configured catalog or the built-in one.
func (c *Config) MovieCatalog() []rental.MovieSeed {
	if len(c.Catalog) == 0 {
		return rental.DefaultCatalog()
	}
	return c.Catalog
}
