// Package config loads turnwire's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/docker/turnwire/pkg/model/provider"
	"github.com/docker/turnwire/pkg/redact"
	"github.com/docker/turnwire/pkg/retry"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level configuration.
type Config struct {
	// Provider is the model provider requests are built for.
	Provider string `yaml:"provider,omitempty"`
	// Mode is the agent mode of the next turn.
	Mode string `yaml:"mode,omitempty"`
	// Tools are the tool names available in Mode.
	Tools     []string  `yaml:"tools,omitempty"`
	Retry     Retry     `yaml:"retry,omitempty"`
	Redaction Redaction `yaml:"redaction,omitempty"`
}

type Retry struct {
	// InitialDelay is a Go duration string, e.g. "1s" or "500ms".
	InitialDelay string `yaml:"initial_delay,omitempty"`
	// MaxAttempts caps automatic retries. Zero retries forever.
	MaxAttempts int `yaml:"max_attempts,omitempty"`
}

type Redaction struct {
	// Enabled turns the built-in tool output redactors on. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`
	// DisabledTools lists tools whose redactor is switched off.
	DisabledTools []string `yaml:"disabled_tools,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document. Unknown fields are
// rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = provider.Anthropic.String()
	}
	if c.Retry.InitialDelay == "" {
		c.Retry.InitialDelay = retry.InitialDelay.String()
	}
	if c.Redaction.Enabled == nil {
		enabled := true
		c.Redaction.Enabled = &enabled
	}
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if _, err := provider.ParseKind(c.Provider); err != nil {
		return fmt.Errorf("%w: provider: %w", ErrInvalidConfig, err)
	}
	if _, err := c.InitialDelay(); err != nil {
		return err
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("%w: retry.max_attempts must not be negative, got %d", ErrInvalidConfig, c.Retry.MaxAttempts)
	}
	for _, tool := range c.Tools {
		if strings.TrimSpace(tool) == "" {
			return fmt.Errorf("%w: tools must not contain empty names", ErrInvalidConfig)
		}
	}
	return nil
}

// ProviderKind returns the configured provider. Call Validate first; an
// unknown name falls back to Anthropic.
func (c *Config) ProviderKind() provider.Kind {
	kind, err := provider.ParseKind(c.Provider)
	if err != nil {
		return provider.Anthropic
	}
	return kind
}

// InitialDelay returns the parsed retry.initial_delay.
func (c *Config) InitialDelay() (time.Duration, error) {
	if c.Retry.InitialDelay == "" {
		return retry.InitialDelay, nil
	}
	d, err := time.ParseDuration(c.Retry.InitialDelay)
	if err != nil {
		return 0, fmt.Errorf("%w: retry.initial_delay: %w", ErrInvalidConfig, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: retry.initial_delay must be positive, got %s", ErrInvalidConfig, d)
	}
	return d, nil
}

// Redactor returns the redaction registry described by the configuration,
// or nil when redaction is disabled.
func (c *Config) Redactor() *redact.Registry {
	if c.Redaction.Enabled != nil && !*c.Redaction.Enabled {
		return nil
	}
	r := redact.Default()
	for _, tool := range c.Redaction.DisabledTools {
		r.Unregister(tool)
	}
	return r
}
