package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/promptrelay/internal/observability"
	"github.com/davidbz/promptrelay/internal/provider/ollama"
)

// Config represents the relay configuration.
type Config struct {
	Server ServerConfig
	CORS   CORSConfig
	Log    observability.LogConfig
	Ollama ollama.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host         string `env:"SERVER_HOST"          envDefault:"127.0.0.1"`
	Port         int    `env:"SERVER_PORT"          envDefault:"3001"`
	ReadTimeout  int    `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int    `env:"SERVER_WRITE_TIMEOUT" envDefault:"60"`
}

// CORSConfig contains CORS policy settings. The defaults are fully permissive.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"*"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"false"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*observability.LogConfig
	*ollama.Config
}

// Load loads environment files and parses the process environment.
func Load() (*Config, error) {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	return Parse(env.ToMap(os.Environ()))
}

// Parse builds the configuration from the given environment only.
// It never reads the process environment.
func Parse(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Ollama.BaseURL = strings.TrimRight(cfg.Ollama.BaseURL, "/")

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Ollama.BaseURL)
	if err != nil {
		return fmt.Errorf("OLLAMA_BASE: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("OLLAMA_BASE: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("OLLAMA_BASE: missing host")
	}

	if strings.TrimSpace(c.Ollama.Model) == "" {
		return errors.New("OLLAMA_MODEL cannot be empty")
	}
	if c.Ollama.ConnectTimeout <= 0 || c.Ollama.Timeout <= 0 {
		return errors.New("upstream timeouts must be positive")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port)
	}

	return nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Log,
		&cfg.Ollama,
	}
}
