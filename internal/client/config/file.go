package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/gophlink/internal/flagx"
	"github.com/dmitrijs2005/gophlink/internal/timex"
)

// FileConfig is the on-disk form of Config. Zero values are ignored.
type FileConfig struct {
	ServerAddress  string         `json:"server_address" toml:"server_address"`
	CipherKey      string         `json:"cipher_key" toml:"cipher_key"`
	MACKey         string         `json:"mac_key" toml:"mac_key"`
	DialTimeout    timex.Duration `json:"dial_timeout" toml:"dial_timeout"`
	RequestTimeout timex.Duration `json:"request_timeout" toml:"request_timeout"`
	MaxFrameSize   uint32         `json:"max_frame_size" toml:"max_frame_size"`
	LogLevel       string         `json:"log_level" toml:"log_level"`
	LogFormat      string         `json:"log_format" toml:"log_format"`
}

func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	fc := &FileConfig{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, fc); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	} else {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		if err := json.Unmarshal(b, fc); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if fc.ServerAddress != "" {
		config.ServerAddress = fc.ServerAddress
	}
	if fc.CipherKey != "" {
		config.CipherKey = fc.CipherKey
	}
	if fc.MACKey != "" {
		config.MACKey = fc.MACKey
	}
	if fc.DialTimeout.Duration != 0 {
		config.DialTimeout = fc.DialTimeout.Duration
	}
	if fc.RequestTimeout.Duration != 0 {
		config.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.MaxFrameSize != 0 {
		config.MaxFrameSize = fc.MaxFrameSize
	}
	if fc.LogLevel != "" {
		config.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		config.LogFormat = fc.LogFormat
	}
	return nil
}
