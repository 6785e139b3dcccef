package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophlink/internal/cryptox"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:7070", c.ServerAddress)
	assert.Equal(t, 5*time.Second, c.DialTimeout)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, uint32(4*1024*1024), c.MaxFrameSize)
	assert.Equal(t, "console", c.LogFormat)
}

func TestLoadConfig_RequiresKeys(t *testing.T) {
	_, err := LoadConfig([]string{"-a", "host:1"})
	assert.ErrorIs(t, err, cryptox.ErrInvalidKey)
}

func TestLoadConfig_Layers(t *testing.T) {
	kp, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)
	ck, mk := kp.Encoded()

	b, err := json.Marshal(map[string]any{
		"server_address":  "file:1",
		"cipher_key":      ck,
		"mac_key":         mk,
		"dial_timeout":    "1s",
		"request_timeout": int64(2 * time.Second),
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))

	c, err := LoadConfig([]string{"-config", path, "-timeout", "3s", "-log-level", "debug"})
	require.NoError(t, err)

	want := &Config{
		ServerAddress:  "file:1",
		CipherKey:      ck,
		MACKey:         mk,
		DialTimeout:    time.Second,
		RequestTimeout: 3 * time.Second,
		MaxFrameSize:   4 * 1024 * 1024,
		LogLevel:       "debug",
		LogFormat:      "console",
	}
	assert.Empty(t, cmp.Diff(want, c))
}

func TestParseFile_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.toml")
	require.NoError(t, os.WriteFile(path, []byte("server_address = \"toml:2\"\nmax_frame_size = 2048\n"), 0o600))

	c := &Config{}
	c.LoadDefaults()
	require.NoError(t, parseFile(c, []string{"-c", path}))

	assert.Equal(t, "toml:2", c.ServerAddress)
	assert.Equal(t, uint32(2048), c.MaxFrameSize)
	assert.Equal(t, 5*time.Second, c.DialTimeout)
}

func TestParseFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	err := parseFile(&Config{}, []string{"-c", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{name: "address and timeout", args: []string{"-a", "127.0.0.1:9090", "-timeout", "10s"},
			expected: &Config{ServerAddress: "127.0.0.1:9090", RequestTimeout: 10 * time.Second}},
		{name: "incorrect timeout", args: []string{"-timeout", "abc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
