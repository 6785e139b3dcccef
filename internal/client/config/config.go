package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophlink/internal/cryptox"
	"github.com/dmitrijs2005/gophlink/internal/logging"
	"github.com/dmitrijs2005/gophlink/internal/protocol/frame"
)

// Config holds runtime settings for the gophlink CLI.
type Config struct {
	ServerAddress  string
	CipherKey      string
	MACKey         string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	MaxFrameSize   uint32
	LogLevel       string
	LogFormat      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddress = "127.0.0.1:7070"
	c.DialTimeout = 5 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.MaxFrameSize = frame.DefaultMaxSize
	c.LogLevel = "warn"
	c.LogFormat = logging.FormatConsole
}

// LoadConfig constructs a Config from defaults, the optional config file and
// flags found in args. Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if _, err := cfg.KeyPair(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// KeyPair decodes the configured channel keys.
func (c *Config) KeyPair() (cryptox.KeyPair, error) {
	return cryptox.ParseKeyPair(c.CipherKey, c.MACKey)
}
