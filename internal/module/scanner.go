// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package module

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// ManifestFileName is the per-module manifest file the scanner looks for.
const ManifestFileName = "module.yaml"

// ErrDiscoveryFailed reports that the modules root itself is missing or
// unreadable. Callers must handle it explicitly; it is distinct from a
// readable root that simply contains no modules.
var ErrDiscoveryFailed = errors.New("modules root missing or unreadable")

// defaultIgnorePatterns are directory names the scanner skips without
// inspecting: hidden directories and underscore-prefixed scratch dirs.
var defaultIgnorePatterns = []string{".*", "_*"}

// Scanner walks the modules root and returns candidate descriptors.
// It performs read-only filesystem inspection; nothing is built or
// loaded here.
type Scanner struct {
	root   string
	ignore []glob.Glob
}

// ScannerOption configures the Scanner.
type ScannerOption func(*Scanner) error

// WithIgnorePatterns replaces the default ignore globs.
func WithIgnorePatterns(patterns []string) ScannerOption {
	return func(s *Scanner) error {
		globs, err := compileIgnoreGlobs(patterns)
		if err != nil {
			return err
		}
		s.ignore = globs
		return nil
	}
}

// NewScanner creates a scanner rooted at dir.
func NewScanner(root string, opts ...ScannerOption) (*Scanner, error) {
	globs, err := compileIgnoreGlobs(defaultIgnorePatterns)
	if err != nil {
		return nil, err
	}
	s := &Scanner{root: root, ignore: globs}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func compileIgnoreGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("BAD_IGNORE_PATTERN").With("pattern", p).Wrap(err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func (s *Scanner) ignored(name string) bool {
	for _, g := range s.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Discover finds all valid modules under the root.
//
// Directories without a manifest are silently excluded: absence of a
// module is not an error. Directories with an invalid manifest are
// logged and skipped. Descriptors come back in name order (os.ReadDir
// sorts entries), which keeps load passes deterministic across runs.
//
// A missing or unreadable root returns ErrDiscoveryFailed so callers
// can distinguish a configuration error from "zero modules found".
func (s *Scanner) Discover(_ context.Context) ([]*Descriptor, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, oops.Code("DISCOVERY_FAILED").
			With("root", s.root).
			Hint("modules root missing or unreadable").
			Wrap(errors.Join(ErrDiscoveryFailed, err))
	}

	var descriptors []*Descriptor
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if s.ignored(entry.Name()) {
			continue
		}

		dir := filepath.Join(s.root, entry.Name())
		manifestPath := filepath.Join(dir, ManifestFileName)

		data, err := os.ReadFile(manifestPath) //nolint:gosec // manifestPath is constructed from ReadDir entries
		if err != nil {
			// Not a module directory; absence is not an error.
			slog.Debug("skipping directory without manifest", "dir", entry.Name())
			continue
		}

		if err := ValidateSchema(data); err != nil {
			slog.Warn("skipping module with invalid manifest",
				"dir", entry.Name(),
				"error", FormatSchemaError(err))
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			slog.Warn("skipping module with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		descriptors = append(descriptors, s.describe(manifest, dir))
	}

	return descriptors, nil
}

// describe inspects the module directory's markers once.
func (s *Scanner) describe(manifest *Manifest, dir string) *Descriptor {
	d := &Descriptor{
		Name:     manifest.Name,
		Dir:      dir,
		Manifest: manifest,
	}

	if src := d.SourceDir(); src != "" {
		if info, err := os.Stat(src); err == nil && info.IsDir() {
			d.HasSource = true
		}
	}

	switch manifest.Type {
	case TypeBinary:
		if info, err := os.Stat(d.ExecutablePath()); err == nil && !info.IsDir() {
			d.HasArtifact = true
		}
	case TypeLua:
		entry := filepath.Join(dir, manifest.Lua.Entry)
		if info, err := os.Stat(entry); err == nil && !info.IsDir() {
			d.HasArtifact = true
		}
	}

	return d
}
