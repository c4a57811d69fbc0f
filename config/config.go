// Package config loads the service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Autocomplete scope values.
const (
	ScopeAll     = "all"
	ScopeFriends = "friends"
)

// Config holds the service configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `yaml:"listen_addr" env:"PROFILED_LISTEN_ADDR"`

	// MaxConns caps concurrently accepted connections. Zero disables the cap.
	MaxConns int `yaml:"max_conns" env:"PROFILED_MAX_CONNS"`

	// DatabasePath is the SQLite database file. When empty, an in-memory
	// store is used and data does not survive restarts.
	DatabasePath string `yaml:"database_path" env:"PROFILED_DATABASE_PATH"`

	// PageSize is the number of profiles per list page.
	PageSize int `yaml:"page_size" env:"PROFILED_PAGE_SIZE"`

	// RequestTimeout bounds handler execution time per request.
	RequestTimeout Duration `yaml:"request_timeout" env:"PROFILED_REQUEST_TIMEOUT"`

	Autocomplete Autocomplete `yaml:"autocomplete"`
	Session      Session      `yaml:"session"`
}

// Autocomplete configures the username completion endpoint.
type Autocomplete struct {
	// Scope selects which handler variant is bound: "all" completes across
	// every profile, "friends" only across the requester's friends.
	Scope string `yaml:"scope" env:"PROFILED_AUTOCOMPLETE_SCOPE"`

	// Limit caps completion results per query.
	Limit int `yaml:"limit" env:"PROFILED_AUTOCOMPLETE_LIMIT"`
}

// Session configures the signed session cookies that authenticate profile
// editing.
type Session struct {
	// Key is the HMAC signing key.
	Key string `yaml:"key" env:"PROFILED_SESSION_KEY"`

	// Issuer is the expected token issuer.
	Issuer string `yaml:"issuer" env:"PROFILED_SESSION_ISSUER"`

	// TTL is the lifetime of issued sessions.
	TTL Duration `yaml:"ttl" env:"PROFILED_SESSION_TTL"`
}

// Default returns the configuration used when neither file nor environment
// overrides a field.
func Default() Config {
	return Config{
		ListenAddr:     "localhost:8087",
		MaxConns:       256,
		PageSize:       20,
		RequestTimeout: Duration(30 * time.Second),
		Autocomplete: Autocomplete{
			Scope: ScopeAll,
			Limit: 10,
		},
		Session: Session{
			Issuer: "profiled",
			TTL:    Duration(24 * time.Hour),
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// non-empty), then environment variables. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.Autocomplete.Scope != ScopeAll && c.Autocomplete.Scope != ScopeFriends {
		return fmt.Errorf("autocomplete.scope must be %q or %q, got %q", ScopeAll, ScopeFriends, c.Autocomplete.Scope)
	}
	if c.Autocomplete.Limit <= 0 {
		return fmt.Errorf("autocomplete.limit must be positive, got %d", c.Autocomplete.Limit)
	}
	if c.Session.Key == "" {
		return fmt.Errorf("session.key is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	return nil
}

// Duration wraps time.Duration so it parses from "24h" style strings in both
// YAML and environment variables.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
