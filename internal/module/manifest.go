// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

// Package module provides game-module discovery, building, and lifecycle control.
package module

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Type identifies the module runtime.
type Type string

// Module types supported by the host.
const (
	TypeBinary Type = "binary"
	TypeLua    Type = "lua"
)

// Manifest represents a module.yaml file. Every module directory
// declares itself through one; the host never guesses entry points
// from directory contents alone.
type Manifest struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
	Type    Type   `yaml:"type" json:"type"`
	// Events lists the bridge message functions the module wants
	// forwarded while it runs. Empty means none.
	Events []string      `yaml:"events,omitempty" json:"events,omitempty"`
	Binary *BinaryConfig `yaml:"binary-module,omitempty" json:"binary-module,omitempty"`
	Lua    *LuaConfig    `yaml:"lua-module,omitempty" json:"lua-module,omitempty"`
}

// BinaryConfig holds binary module configuration.
type BinaryConfig struct {
	// Executable is the entry binary relative to the module directory.
	// Optional: when empty the host probes the documented candidate
	// names in order (see Descriptor.ExecutablePath).
	Executable string `yaml:"executable,omitempty" json:"executable,omitempty"`
	// Source is the Go source directory, relative to the module
	// directory, that the executable is built from. Optional: modules
	// may ship prebuilt.
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
}

// LuaConfig holds Lua module configuration.
type LuaConfig struct {
	Entry string `yaml:"entry" json:"entry"`
}

// maxNameLength is the maximum allowed length for module names.
const maxNameLength = 64

// namePattern validates module names: must start with lowercase letter,
// followed by lowercase letters, digits, or hyphens.
// Cannot end with a hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a module.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
	}

	switch m.Type {
	case TypeBinary:
		// The binary-module section is optional: a bare binary module
		// relies entirely on executable name probing.
	case TypeLua:
		if m.Lua == nil {
			return fmt.Errorf("lua-module is required when type is lua")
		}
		if m.Lua.Entry == "" {
			return fmt.Errorf("lua-module.entry is required")
		}
	default:
		return fmt.Errorf("type must be 'binary' or 'lua', got %q", m.Type)
	}

	return nil
}
