// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package module_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedock/gamedock/internal/module"
)

func TestParseManifest_Binary(t *testing.T) {
	data := []byte(`
name: pong
version: 1.2.3
type: binary
binary-module:
  executable: pong
  source: src
`)
	m, err := module.ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "pong", m.Name)
	assert.Equal(t, "1.2.3", m.Version)
	assert.Equal(t, module.TypeBinary, m.Type)
	require.NotNil(t, m.Binary)
	assert.Equal(t, "pong", m.Binary.Executable)
	assert.Equal(t, "src", m.Binary.Source)
}

func TestParseManifest_BinaryWithoutSection(t *testing.T) {
	// Bare binary modules rely on executable name probing.
	data := []byte(`
name: pong
version: 1.0.0
type: binary
`)
	m, err := module.ParseManifest(data)
	require.NoError(t, err)
	assert.Nil(t, m.Binary)
}

func TestParseManifest_Lua(t *testing.T) {
	data := []byte(`
name: trivia
version: 0.1.0
type: lua
events:
  - start
  - end
lua-module:
  entry: main.lua
`)
	m, err := module.ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, module.TypeLua, m.Type)
	require.NotNil(t, m.Lua)
	assert.Equal(t, "main.lua", m.Lua.Entry)
	assert.Equal(t, []string{"start", "end"}, m.Events)
}

func TestParseManifest_Empty(t *testing.T) {
	_, err := module.ParseManifest(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestParseManifest_InvalidYAML(t *testing.T) {
	_, err := module.ParseManifest([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestManifest_Validate_Names(t *testing.T) {
	tests := []struct {
		name    string
		modName string
		wantErr bool
	}{
		{"simple", "pong", false},
		{"single char", "x", false},
		{"with digits", "pong2", false},
		{"with hyphens", "word-guess", false},
		{"empty", "", true},
		{"uppercase", "Pong", true},
		{"starts with digit", "2pong", true},
		{"starts with hyphen", "-pong", true},
		{"ends with hyphen", "pong-", true},
		{"underscore", "pong_game", true},
		{"too long", strings.Repeat("a", 65), true},
		{"max length", strings.Repeat("a", 64), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &module.Manifest{Name: tt.modName, Version: "1.0.0", Type: module.TypeBinary}
			err := m.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestManifest_Validate_Version(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"plain semver", "1.0.0", false},
		{"prerelease", "1.0.0-rc.1", false},
		{"missing", "", true},
		{"not semver", "latest", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &module.Manifest{Name: "pong", Version: tt.version, Type: module.TypeBinary}
			err := m.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestManifest_Validate_Type(t *testing.T) {
	m := &module.Manifest{Name: "pong", Version: "1.0.0", Type: "wasm"}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type must be")
}

func TestManifest_Validate_LuaRequiresEntry(t *testing.T) {
	m := &module.Manifest{Name: "trivia", Version: "1.0.0", Type: module.TypeLua}
	require.Error(t, m.Validate())

	m.Lua = &module.LuaConfig{}
	require.Error(t, m.Validate())

	m.Lua.Entry = "main.lua"
	require.NoError(t, m.Validate())
}
