package proxy

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/relaykit/anthrelay/pkg/anthropic"
)

// Config is the relay server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string `toml:"listen"`

	// DBPath is the path to the SQLite transcript database.
	// Use ":memory:" for an in-memory database, or empty for in-memory.
	DBPath string `toml:"db"`

	API APIConfig `toml:"api"`
}

// APIConfig mirrors anthropic.Config with file-friendly types. Timeouts
// are expressed in seconds.
type APIConfig struct {
	Key                   string  `toml:"key"`
	Version               string  `toml:"version"`
	BaseURL               string  `toml:"base_url"`
	MaxTokens             int     `toml:"max_tokens"`
	Temperature           float64 `toml:"temperature"`
	RequestTimeoutSeconds float64 `toml:"request_timeout_seconds"`
	ConnectTimeoutSeconds float64 `toml:"connect_timeout_seconds"`
}

// LoadConfig reads a TOML config file. An empty path yields a zero Config.
// The API key falls back to the ANTHROPIC_API_KEY environment variable when
// the file leaves it unset. The config is read once; it is never reloaded.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if cfg.API.Key == "" {
		cfg.API.Key = os.Getenv("ANTHROPIC_API_KEY")
	}
	return cfg, nil
}

// ClientConfig converts the file representation into the translator's
// immutable config.
func (c Config) ClientConfig() anthropic.Config {
	return anthropic.Config{
		APIKey:         c.API.Key,
		APIVersion:     c.API.Version,
		BaseURL:        c.API.BaseURL,
		MaxTokens:      c.API.MaxTokens,
		Temperature:    c.API.Temperature,
		RequestTimeout: time.Duration(c.API.RequestTimeoutSeconds * float64(time.Second)),
		ConnectTimeout: time.Duration(c.API.ConnectTimeoutSeconds * float64(time.Second)),
	}
}
