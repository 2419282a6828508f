// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package module

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/oops"
)

// DefaultBuildTimeout bounds one external build invocation. A build
// that exceeds it is killed and recorded as a failure, never left
// running.
const DefaultBuildTimeout = 2 * time.Minute

// maxBuildOutput caps how much build tool output is kept in a failure
// reason. Build logs can be huge; the tail carries the errors.
const maxBuildOutput = 2048

// Builder compiles binary modules from their declared source trees.
// Each build is scoped to the module's own directory; builders never
// touch shared state, so one module's build failure cannot affect
// another's.
type Builder struct {
	goTool  string
	timeout time.Duration
}

// BuilderOption configures the Builder.
type BuilderOption func(*Builder)

// WithBuildTimeout overrides the default build timeout.
func WithBuildTimeout(d time.Duration) BuilderOption {
	return func(b *Builder) {
		b.timeout = d
	}
}

// WithGoTool overrides the build tool binary (for testing).
func WithGoTool(path string) BuilderOption {
	return func(b *Builder) {
		b.goTool = path
	}
}

// NewBuilder creates a builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		goTool:  "go",
		timeout: DefaultBuildTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NeedsBuild reports whether the module's executable is absent or
// older than its newest source file. Staleness is judged by
// modification time, not content; an acceptable approximation for
// local module trees.
//
// Modules without a declared source tree never need building: they
// either ship a prebuilt executable or fail at load time.
func (b *Builder) NeedsBuild(desc *Descriptor) (bool, error) {
	src := desc.SourceDir()
	if src == "" {
		return false, nil
	}

	exeInfo, err := os.Stat(desc.ExecutablePath())
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, oops.Code("BUILD_FAILED").With("module", desc.Name).Wrap(err)
	}

	newest, err := newestModTime(src)
	if err != nil {
		return false, oops.Code("BUILD_FAILED").With("module", desc.Name).Wrap(err)
	}

	return newest.After(exeInfo.ModTime()), nil
}

// Build invokes the external build tool as a subprocess scoped to the
// module directory. The outcome is classified purely by exit status:
// nonzero exit or timeout produces an error carrying the tool's output
// tail, never a panic or an aborted pass.
func (b *Builder) Build(ctx context.Context, desc *Descriptor) error {
	src := desc.SourceDir()
	if src == "" {
		return oops.Code("BUILD_FAILED").
			With("module", desc.Name).
			Errorf("module has no source to build")
	}

	exePath := desc.ExecutablePath()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	rel, err := filepath.Rel(desc.Dir, src)
	if err != nil {
		rel = src
	}

	//nolint:gosec // tool and paths come from validated manifests, not user input
	cmd := exec.CommandContext(ctx, b.goTool, "build", "-o", exePath, "./"+filepath.ToSlash(rel))
	cmd.Dir = desc.Dir

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return oops.Code("BUILD_FAILED").
				With("module", desc.Name).
				With("timeout", b.timeout.String()).
				Hint("build timed out").
				Wrap(ctx.Err())
		}
		return oops.Code("BUILD_FAILED").
			With("module", desc.Name).
			With("output", tailOf(out)).
			Hint("build tool exited nonzero").
			Wrap(err)
	}

	slog.Info("built module",
		"module", desc.Name,
		"output", exePath,
		"elapsed", elapsed.Round(time.Millisecond).String())
	return nil
}

// newestModTime walks the source tree and returns the latest mtime.
func newestModTime(dir string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return newest, nil
}

// tailOf trims build output to its last maxBuildOutput bytes.
func tailOf(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > maxBuildOutput {
		s = "..." + s[len(s)-maxBuildOutput:]
	}
	return s
}
