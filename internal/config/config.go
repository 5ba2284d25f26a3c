// Package config loads the adapter configuration file and resolves
// credentials from environment variables. Adapters whose configuration
// is missing required credentials are skipped with a warning rather
// than failing the whole load.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/fedmkt/internal/provider"
)

// Defaults holds fallback values applied when a provider entry omits them.
// A numeric field set to 0 counts as omitted and also takes the default.
type Defaults struct {
	Enabled            bool `yaml:"enabled"`
	Priority           int  `yaml:"priority"`
	RateLimitPerMinute int  `yaml:"rate_limit_per_minute"`
	TimeoutSeconds     int  `yaml:"timeout_seconds"`
}

// AdapterSpec is one entry under the "providers" map in the YAML file.
type AdapterSpec struct {
	Enabled            *bool  `yaml:"enabled"`
	Priority           int    `yaml:"priority"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	APIKeyEnv          string `yaml:"api_key_env"`
	APISecretEnv       string `yaml:"api_secret_env"`
}

// File is the root shape of the adapter configuration YAML document.
type File struct {
	Defaults  Defaults               `yaml:"defaults"`
	Providers map[string]AdapterSpec `yaml:"providers"`
}

// Load reads and parses path into a File.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse provider config: %w", err)
	}
	return &f, nil
}

// ResolvedConfig pairs a resolved provider.Config with whether its
// declared credentials (if any were named) were actually found in the
// environment — Registry.Initialize uses Missing to decide whether to
// skip registering the adapter.
type ResolvedConfig struct {
	Config  provider.Config
	Missing bool // true when APIKeyEnv/APISecretEnv were named but unset
}

// Resolve builds one provider.Config per entry in f.Providers, applying
// defaults and reading credentials from the named environment variables.
// An entry that names an env var which is unset is flagged Missing; the
// caller (the registry) is responsible for skipping it with a warning —
// Resolve itself never errors for a missing credential.
func (f *File) Resolve() map[string]ResolvedConfig {
	out := make(map[string]ResolvedConfig, len(f.Providers))
	for name, spec := range f.Providers {
		cfg := provider.Config{
			Name:               name,
			Enabled:            true,
			Priority:           coalesceInt(spec.Priority, f.Defaults.Priority),
			RateLimitPerMinute: coalesceInt(spec.RateLimitPerMinute, f.Defaults.RateLimitPerMinute),
			TimeoutSeconds:     coalesceInt(spec.TimeoutSeconds, f.Defaults.TimeoutSeconds),
		}
		if spec.Enabled != nil {
			cfg.Enabled = *spec.Enabled
		} else {
			cfg.Enabled = f.Defaults.Enabled
		}

		missing := false
		if spec.APIKeyEnv != "" {
			if v := os.Getenv(spec.APIKeyEnv); v != "" {
				cfg.APIKey = v
			} else {
				missing = true
			}
		}
		if spec.APISecretEnv != "" {
			if v := os.Getenv(spec.APISecretEnv); v != "" {
				cfg.APISecret = v
			} else {
				missing = true
			}
		}

		out[name] = ResolvedConfig{Config: cfg, Missing: missing}
	}
	return out
}

func coalesceInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}
