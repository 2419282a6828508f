// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package module

import (
	"os"
	"path/filepath"
)

// Descriptor is a discovered module candidate: manifest plus directory,
// with the filesystem markers inspected once at discovery time. It is
// immutable and discarded after the load pass completes.
type Descriptor struct {
	Name     string
	Dir      string
	Manifest *Manifest
	// HasSource reports whether the module declares a source tree that
	// exists on disk.
	HasSource bool
	// HasArtifact reports whether the resolved entry (executable or
	// script) existed at discovery time.
	HasArtifact bool
}

// executableCandidates is the fixed probe order used when a binary
// module's manifest does not declare its executable: the module name
// itself, then "<name>-module", then "main". First existing file wins.
func executableCandidates(name string) []string {
	return []string{name, name + "-module", "main"}
}

// ExecutablePath resolves the binary module's entry executable.
// A manifest-declared executable always wins. Otherwise the candidates
// are probed in their fixed order and the first existing file is
// chosen; if none exists yet (module not built), the first candidate is
// the build target. Returns "" for non-binary modules.
func (d *Descriptor) ExecutablePath() string {
	if d.Manifest == nil || d.Manifest.Type != TypeBinary {
		return ""
	}
	if d.Manifest.Binary != nil && d.Manifest.Binary.Executable != "" {
		return filepath.Join(d.Dir, d.Manifest.Binary.Executable)
	}
	candidates := executableCandidates(d.Name)
	for _, c := range candidates {
		path := filepath.Join(d.Dir, c)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return filepath.Join(d.Dir, candidates[0])
}

// SourceDir returns the absolute source directory for binary modules
// that declare one, or "" otherwise.
func (d *Descriptor) SourceDir() string {
	if d.Manifest == nil || d.Manifest.Binary == nil || d.Manifest.Binary.Source == "" {
		return ""
	}
	return filepath.Join(d.Dir, d.Manifest.Binary.Source)
}
