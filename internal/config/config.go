// Package config loads the server configuration from the environment and
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// ErrInvalidConfig is returned when required settings are missing or malformed.
var ErrInvalidConfig = errors.New("invalid configuration")

// Transport modes for the MCP server.
const (
	TransportAuto  = "auto"
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Millis is a duration read either as a Go duration ("1500ms", "2s") or as
// a bare integer number of milliseconds.
type Millis time.Duration

// Decode implements envconfig.Decoder.
func (m *Millis) Decode(value string) error {
	value = strings.TrimSpace(value)
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		*m = Millis(time.Duration(n) * time.Millisecond)
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %q as duration or milliseconds: %w", value, err)
	}
	*m = Millis(d)
	return nil
}

// Duration returns m as a time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m)
}

// Config holds the server configuration.
type Config struct {
	// Canvas API
	APIToken   string        `envconfig:"CANVAS_API_TOKEN" validate:"required"`
	Domain     string        `envconfig:"CANVAS_DOMAIN" validate:"required"`
	MaxRetries int           `envconfig:"CANVAS_MAX_RETRIES" default:"3" validate:"gte=0"`
	RetryDelay Millis        `envconfig:"CANVAS_RETRY_DELAY" default:"1s"`
	Timeout    time.Duration `envconfig:"CANVAS_TIMEOUT" default:"30s" validate:"gt=0"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	// MCP server
	ServerName    string `envconfig:"MCP_SERVER_NAME" default:"canvas-mcp-server"`
	ServerVersion string `envconfig:"MCP_SERVER_VERSION" default:"2.2.3"`
	Transport     string `envconfig:"MCP_TRANSPORT" default:"auto" validate:"oneof=auto stdio http"`
	HTTPAddr      string `envconfig:"MCP_HTTP_ADDR" default:":8080"`
	MetricsAddr   string `envconfig:"METRICS_ADDR" default:""`

	// Shared state
	RedisURL   string        `envconfig:"REDIS_URL" default:""`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"30m" validate:"gt=0"`
}

// Load reads .env files (when present) and then the process environment.
// Variables already set in the environment win over .env values.
func Load() (*Config, error) {
	loadDotEnv(envCandidates())

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("domain", cfg.Domain).
		Int("max_retries", cfg.MaxRetries).
		Dur("retry_delay", cfg.RetryDelay.Duration()).
		Dur("timeout", cfg.Timeout).
		Str("transport", cfg.Transport).
		Bool("redis", cfg.RedisURL != "").
		Dur("session_ttl", cfg.SessionTTL).
		Msg("Configuration loaded")

	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: CANVAS_RETRY_DELAY must not be negative", ErrInvalidConfig)
	}
	return nil
}

var envNames = map[string]string{
	"APIToken":   "CANVAS_API_TOKEN",
	"Domain":     "CANVAS_DOMAIN",
	"MaxRetries": "CANVAS_MAX_RETRIES",
	"Timeout":    "CANVAS_TIMEOUT",
	"Transport":  "MCP_TRANSPORT",
	"SessionTTL": "SESSION_TTL",
}

func describe(fe validator.FieldError) string {
	name := envNames[fe.Field()]
	if name == "" {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param())
	}
}

// envCandidates lists .env files in lookup order: the working directory,
// then the directory of the executable.
func envCandidates() []string {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), ".env")
		if p != paths[0] {
			paths = append(paths, p)
		}
	}
	return paths
}

// loadDotEnv loads the first readable file among paths. godotenv never
// overrides variables that are already set.
func loadDotEnv(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Failed to load .env file")
			continue
		}
		log.Debug().Str("path", p).Msg("Loaded .env file")
		return p
	}
	log.Warn().Strs("paths", paths).Msg("No .env file found, using process environment")
	return ""
}
