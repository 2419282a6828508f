// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

// Package config loads host configuration from defaults, an optional
// YAML file, and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/gamedock/gamedock/internal/xdg"
)

// Config holds host configuration.
type Config struct {
	// ModulesDir is the root directory scanned for modules.
	ModulesDir string `koanf:"modules-dir"`
	// MetricsAddr is the metrics/health HTTP address. Empty disables it.
	MetricsAddr string `koanf:"metrics-addr"`
	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`
	// BuildTimeout bounds one module build invocation.
	BuildTimeout time.Duration `koanf:"build-timeout"`
	// IgnorePatterns are directory-name globs discovery skips.
	IgnorePatterns []string `koanf:"ignore-patterns"`
}

// Default values.
const (
	defaultMetricsAddr = "127.0.0.1:9100"
	defaultLogFormat   = "json"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ModulesDir:     xdg.ModulesDir(),
		MetricsAddr:    defaultMetricsAddr,
		LogFormat:      defaultLogFormat,
		BuildTimeout:   2 * time.Minute,
		IgnorePatterns: []string{".*", "_*"},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ModulesDir == "" {
		return fmt.Errorf("modules-dir is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.BuildTimeout <= 0 {
		return fmt.Errorf("build-timeout must be positive, got %s", c.BuildTimeout)
	}
	return nil
}

// Load merges defaults, the optional YAML file at path, and any set
// flags, then validates the result. Flags win over the file; the file
// wins over defaults. A nil flag set is allowed.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
