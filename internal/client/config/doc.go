// Package config loads runtime configuration for the gophlink CLI client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or TOML file selected via -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string           address:port of the server
//	-cipher-key string  base64 AES-256 key shared with the server
//	-mac-key string     base64 HMAC-SHA256 key shared with the server
//	-timeout duration   per-request timeout
//	-log-level string   debug, info, warn or error
//
// # File schema
//
// Durations are strings such as "5s" or, in JSON, integer nanoseconds:
//
//	{
//	  "server_address": "127.0.0.1:7070",
//	  "cipher_key": "...",
//	  "mac_key": "...",
//	  "dial_timeout": "5s",
//	  "request_timeout": "30s"
//	}
//
// The same keys are used in TOML files.
package config
