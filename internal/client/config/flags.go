package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/gophlink/internal/flagx"
)

// parseFlags overrides config with the flags documented in the package doc.
// Unrecognized arguments are ignored.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-cipher-key", "-mac-key", "-timeout", "-log-level"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	fs.StringVar(&config.ServerAddress, "a", config.ServerAddress, "address and port of the server")
	fs.StringVar(&config.CipherKey, "cipher-key", config.CipherKey, "base64 cipher key")
	fs.StringVar(&config.MACKey, "mac-key", config.MACKey, "base64 MAC key")
	fs.DurationVar(&config.RequestTimeout, "timeout", config.RequestTimeout, "request timeout")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	return nil
}
