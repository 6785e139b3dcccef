package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/gophlink/internal/flagx"
)

var serverFlags = []string{
	"-a", "-driver", "-d", "-store", "-redis", "-t",
	"-cipher-key", "-mac-key", "-idle", "-log-level", "-log-format",
}

// parseFlags overrides config with command-line flags.
//
//	-a string           listen address (e.g. ":7070")
//	-driver string      database driver: sqlite or pgx
//	-d string           database DSN
//	-store string       session store: memory or redis
//	-redis string       redis address for the redis session store
//	-t duration         session timeout (e.g. 30m)
//	-cipher-key string  base64 AES-256 key
//	-mac-key string     base64 HMAC-SHA256 key
//	-idle duration      per-connection idle timeout, 0 disables it
//	-log-level string   debug, info, warn or error
//	-log-format string  json, text or console
//
// Arguments not listed above are ignored so the config file flag and
// other components can share os.Args.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddress, "a", config.ListenAddress, "address and port to listen on")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver (sqlite|pgx)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionStore, "store", config.SessionStore, "session store (memory|redis)")
	fs.StringVar(&config.RedisAddress, "redis", config.RedisAddress, "redis address")
	fs.DurationVar(&config.SessionTimeout, "t", config.SessionTimeout, "session timeout")
	fs.StringVar(&config.CipherKey, "cipher-key", config.CipherKey, "base64 cipher key")
	fs.StringVar(&config.MACKey, "mac-key", config.MACKey, "base64 MAC key")
	fs.DurationVar(&config.IdleTimeout, "idle", config.IdleTimeout, "connection idle timeout")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format (json|text|console)")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	return nil
}
