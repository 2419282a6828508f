// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package module

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/gamedock/gamedock/internal/observability"
	"github.com/gamedock/gamedock/pkg/errutil"
)

// Loader runs the full discovery → build → load pipeline and tracks
// every outcome in a LoadResult. Modules are processed sequentially in
// discovery order; one module's failure is recorded and never aborts
// the rest of the pass. Callers run LoadAll on a background worker,
// not a UI-owning goroutine.
type Loader struct {
	scanner  *Scanner
	builder  *Builder
	registry *Registry
	hosts    map[Type]Host
	metrics  *observability.Metrics

	mu sync.Mutex
	// prev maps modules loaded by the previous pass to their runtime
	// type, so a refresh can unload them before the registry swap.
	prev map[string]Type
}

// LoaderOption configures the Loader.
type LoaderOption func(*Loader)

// WithHost registers a runtime host for a module type.
func WithHost(t Type, h Host) LoaderOption {
	return func(l *Loader) {
		l.hosts[t] = h
	}
}

// WithMetrics wires load pass counters.
func WithMetrics(m *observability.Metrics) LoaderOption {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader creates a loader. Modules whose type has no registered
// host are recorded as load failures, not skipped silently.
func NewLoader(scanner *Scanner, builder *Builder, registry *Registry, opts ...LoaderOption) *Loader {
	l := &Loader{
		scanner:  scanner,
		builder:  builder,
		registry: registry,
		hosts:    make(map[Type]Host),
		prev:     make(map[string]Type),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll runs one load pass: discover, build what is stale, load what
// built, and install a brand-new registry snapshot. Only discovery
// failure is returned as an error; per-module build and load failures
// are accumulated in the result.
func (l *Loader) LoadAll(ctx context.Context) (*LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	descriptors, err := l.scanner.Discover(ctx)
	if err != nil {
		return nil, err
	}

	// A pass replaces the previous one wholesale: unload everything the
	// last pass left running before loading afresh.
	l.unloadPrevious(ctx)

	result := &LoadResult{PassID: ulid.Make()}
	seen := make(map[string]bool, len(descriptors))

	for _, desc := range descriptors {
		if seen[desc.Name] {
			// Same name discovered twice; first-found wins.
			slog.Warn("duplicate module name, keeping first",
				"module", desc.Name,
				"dir", desc.Dir)
			continue
		}
		seen[desc.Name] = true

		if failErr := l.loadOne(ctx, desc, result); failErr != nil {
			result.Failures = append(result.Failures, Failure{
				Name:   desc.Name,
				Reason: errutil.Reason(failErr),
			})
		}
	}

	l.registry.Replace(result.Loaded)

	l.prev = make(map[string]Type, len(result.Loaded))
	for _, lm := range result.Loaded {
		if d := findDescriptor(descriptors, lm.Name); d != nil {
			l.prev[lm.Name] = d.Manifest.Type
		}
	}

	if l.metrics != nil {
		l.metrics.ModulesLoaded.Add(float64(len(result.Loaded)))
	}

	slog.Info("load pass complete",
		"pass_id", result.PassID.String(),
		"loaded", len(result.Loaded),
		"failed", len(result.Failures))

	return result, nil
}

// loadOne builds (if stale) and loads a single module, appending to
// result.Loaded on success. The returned error is the failure to
// record; nil means the module loaded.
func (l *Loader) loadOne(ctx context.Context, desc *Descriptor, result *LoadResult) error {
	needs, err := l.builder.NeedsBuild(desc)
	if err != nil {
		l.countFailure("build")
		return err
	}
	if needs {
		if err := l.builder.Build(ctx, desc); err != nil {
			l.countFailure("build")
			errutil.LogError(slog.Default(), "module build failed", err)
			return err
		}
	}

	host, ok := l.hosts[desc.Manifest.Type]
	if !ok {
		l.countFailure("load")
		return errors.New("no host registered for module type " + string(desc.Manifest.Type))
	}

	mod, err := host.Load(ctx, desc.Manifest, desc.Dir)
	if err != nil {
		l.countFailure("load")
		errutil.LogError(slog.Default(), "module load failed", err)
		return err
	}

	result.Loaded = append(result.Loaded, LoadedModule{Name: desc.Name, Module: mod, Manifest: desc.Manifest})

	slog.Info("loaded module",
		"module", desc.Name,
		"type", desc.Manifest.Type,
		"version", desc.Manifest.Version)
	return nil
}

func (l *Loader) unloadPrevious(ctx context.Context) {
	for name, typ := range l.prev {
		host, ok := l.hosts[typ]
		if !ok {
			continue
		}
		if err := host.Unload(ctx, name); err != nil {
			slog.Warn("failed to unload module from previous pass",
				"module", name,
				"error", err)
		}
	}
	l.prev = make(map[string]Type)
}

func (l *Loader) countFailure(stage string) {
	if l.metrics != nil {
		l.metrics.ModuleLoadFailures.WithLabelValues(stage).Inc()
	}
}

// Close shuts down all runtime hosts and their modules.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prev = make(map[string]Type)

	var errs []error
	for typ, host := range l.hosts {
		if err := host.Close(ctx); err != nil {
			errs = append(errs, errors.New("close "+string(typ)+" host: "+err.Error()))
		}
	}
	return errors.Join(errs...)
}

func findDescriptor(descriptors []*Descriptor, name string) *Descriptor {
	for _, d := range descriptors {
		if d.Name == name {
			return d
		}
	}
	return nil
}
