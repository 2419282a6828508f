// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package observability_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedock/gamedock/internal/observability"
)

func startServer(t *testing.T, ready observability.ReadinessChecker) *observability.Server {
	t.Helper()

	srv := observability.NewServer("127.0.0.1:0", ready)
	_, err := srv.Start()
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, srv.Stop(ctx))
	})
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url) //nolint:gosec // local test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Liveness(t *testing.T) {
	srv := startServer(t, func() bool { return true })

	status, body := get(t, "http://"+srv.Addr()+"/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)
}

func TestServer_Readiness(t *testing.T) {
	ready := false
	srv := startServer(t, func() bool { return ready })

	status, _ := get(t, "http://"+srv.Addr()+"/healthz/readiness")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	ready = true
	status, _ = get(t, "http://"+srv.Addr()+"/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_MetricsEndpointExposesCounters(t *testing.T) {
	srv := startServer(t, nil)

	srv.Metrics().ModulesLoaded.Add(3)
	srv.Metrics().ModuleLoadFailures.WithLabelValues("build").Inc()
	srv.Metrics().MessagesPublished.Inc()

	status, body := get(t, "http://"+srv.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "gamedock_modules_loaded_total")
	assert.Contains(t, body, "gamedock_module_load_failures_total")
	assert.Contains(t, body, "gamedock_messages_published_total")
}

func TestServer_DoubleStartRejected(t *testing.T) {
	srv := startServer(t, nil)

	_, err := srv.Start()
	require.Error(t, err)
}

func TestServer_StopIdempotent(t *testing.T) {
	srv := observability.NewServer("127.0.0.1:0", nil)
	_, err := srv.Start()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx))
}

func TestNewMetrics_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.ModulesLoaded.Inc()
	m.ConsumerFailures.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "gamedock_modules_loaded_total")
	assert.Contains(t, names, "gamedock_consumer_failures_total")
}
