// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package observability_test

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gatewarden/gatewarden/internal/observability"
)

func TestServerLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := observability.NewServer("127.0.0.1:0", nil)

	errCh, err := srv.Start()
	require.NoError(t, err)
	addr := srv.Addr()
	require.NotEmpty(t, addr)

	t.Run("liveness probe", func(t *testing.T) {
		resp, err := http.Get("http://" + addr + "/healthz/liveness")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("readiness without checker is ready", func(t *testing.T) {
		resp, err := http.Get("http://" + addr + "/healthz/readiness")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics include lifecycle counters", func(t *testing.T) {
		srv.Metrics().ObserveAuthOutcome("authorized")
		srv.Metrics().ObserveAuthOutcome("forbidden")
		srv.Metrics().ObserveLogin("success")
		srv.Metrics().ObserveResetToken("issued")

		resp, err := http.Get("http://" + addr + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "gatewarden_auth_outcomes_total")
		assert.Contains(t, string(body), `gatewarden_logins_total{status="success"}`)
		assert.Contains(t, string(body), `gatewarden_reset_tokens_total{kind="issued"}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	// Channel closes once the listener is down.
	if err, open := <-errCh; open {
		assert.NoError(t, err)
	}

	// Keep-alive connections from the probe requests linger otherwise.
	http.DefaultClient.CloseIdleConnections()
}

func TestServerDoubleStart(t *testing.T) {
	srv := observability.NewServer("127.0.0.1:0", nil)

	_, err := srv.Start()
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	}()

	_, err = srv.Start()
	assert.Error(t, err)
}

func TestReadinessChecker(t *testing.T) {
	var ready atomic.Bool
	srv := observability.NewServer("127.0.0.1:0", func() bool { return ready.Load() })

	_, err := srv.Start()
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	}()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz/readiness")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ready.Store(true)
	resp, err = http.Get("http://" + srv.Addr() + "/healthz/readiness")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
