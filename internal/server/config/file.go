package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/gophlink/internal/flagx"
	"github.com/dmitrijs2005/gophlink/internal/server/rental"
	"github.com/dmitrijs2005/gophlink/internal/timex"
)

// FileConfig is the on-disk form of Config, shared by the JSON and TOML
// loaders. Durations accept strings such as "30m" (and integer nanoseconds
// in JSON). Zero values leave the current setting untouched.
type FileConfig struct {
	ListenAddress   string             `json:"listen_address" toml:"listen_address"`
	DatabaseDriver  string             `json:"database_driver" toml:"database_driver"`
	DatabaseDSN     string             `json:"database_dsn" toml:"database_dsn"`
	SessionStore    string             `json:"session_store" toml:"session_store"`
	RedisAddress    string             `json:"redis_address" toml:"redis_address"`
	RedisPassword   string             `json:"redis_password" toml:"redis_password"`
	RedisDB         int                `json:"redis_db" toml:"redis_db"`
	SessionTimeout  timex.Duration     `json:"session_timeout" toml:"session_timeout"`
	JanitorInterval timex.Duration     `json:"janitor_interval" toml:"janitor_interval"`
	CipherKey       string             `json:"cipher_key" toml:"cipher_key"`
	MACKey          string             `json:"mac_key" toml:"mac_key"`
	MaxFrameSize    uint32             `json:"max_frame_size" toml:"max_frame_size"`
	IdleTimeout     timex.Duration     `json:"idle_timeout" toml:"idle_timeout"`
	WriteTimeout    timex.Duration     `json:"write_timeout" toml:"write_timeout"`
	ShutdownGrace   timex.Duration     `json:"shutdown_grace" toml:"shutdown_grace"`
	Argon2          Argon2FileConfig   `json:"argon2" toml:"argon2"`
	LogLevel        string             `json:"log_level" toml:"log_level"`
	LogFormat       string             `json:"log_format" toml:"log_format"`
	Catalog         []rental.MovieSeed `json:"catalog" toml:"catalog"`
}

// Argon2FileConfig carries the password hashing cost.
type Argon2FileConfig struct {
	Time     uint32 `json:"time" toml:"time"`
	MemoryKB uint32 `json:"memory_kb" toml:"memory_kb"`
	Threads  uint8  `json:"threads" toml:"threads"`
}

// parseFile overlays config with the file named by -c or -config, if any.
// Files ending in .toml are decoded as TOML, everything else as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	fc, err := readFile(path)
	if err != nil {
		return err
	}

	fc.apply(config)
	return nil
}

func readFile(path string) (*FileConfig, error) {
	fc := &FileConfig{}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, fc); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		return fc, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if err := json.Unmarshal(b, fc); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return fc, nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.ListenAddress, fc.ListenAddress)
	setString(&c.DatabaseDriver, fc.DatabaseDriver)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SessionStore, fc.SessionStore)
	setString(&c.RedisAddress, fc.RedisAddress)
	setString(&c.RedisPassword, fc.RedisPassword)
	setString(&c.CipherKey, fc.CipherKey)
	setString(&c.MACKey, fc.MACKey)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)

	if fc.RedisDB != 0 {
		c.RedisDB = fc.RedisDB
	}
	if fc.MaxFrameSize != 0 {
		c.MaxFrameSize = fc.MaxFrameSize
	}

	if fc.SessionTimeout.Duration != 0 {
		c.SessionTimeout = fc.SessionTimeout.Duration
	}
	if fc.JanitorInterval.Duration != 0 {
		c.JanitorInterval = fc.JanitorInterval.Duration
	}
	if fc.IdleTimeout.Duration != 0 {
		c.IdleTimeout = fc.IdleTimeout.Duration
	}
	if fc.WriteTimeout.Duration != 0 {
		c.WriteTimeout = fc.WriteTimeout.Duration
	}
	if fc.ShutdownGrace.Duration != 0 {
		c.ShutdownGrace = fc.ShutdownGrace.Duration
	}

	if fc.Argon2.Time != 0 {
		c.Argon2.Time = fc.Argon2.Time
	}
	if fc.Argon2.MemoryKB != 0 {
		c.Argon2.MemoryKB = fc.Argon2.MemoryKB
	}
	if fc.Argon2.Threads != 0 {
		c.Argon2.Threads = fc.Argon2.Threads
	}

	if len(fc.Catalog) > 0 {
		c.Catalog = fc.Catalog
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
