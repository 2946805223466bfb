package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration, derived from the environment.
type Config struct {
	// Port is the HTTP listen port.
	Port string `env:"PORT" envDefault:"8080"`
	// StaticDir is the directory holding the client UI.
	StaticDir string `env:"STATIC_DIR" envDefault:"web"`
	// AllowedOrigin restricts websocket upgrades to one origin when set.
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
