//go:build unix

package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDisk(t *testing.T) {
	h := checkDisk(t.TempDir())
	assert.Contains(t, []string{"healthy", "degraded"}, h.Status)
	assert.Contains(t, h.Message, "MiB free")

	missing := checkDisk(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Equal(t, "degraded", missing.Status)
}

func TestFormatSSEStatus(t *testing.T) {
	assert.Equal(t, "no connected clients", formatSSEStatus(0))
	assert.Equal(t, "1 connected client", formatSSEStatus(1))
	assert.Equal(t, "3 connected clients", formatSSEStatus(3))
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestWorse(t *testing.T) {
	assert.Equal(t, statusHealthy, worse(statusHealthy, statusHealthy))
	assert.Equal(t, statusDegraded, worse(statusHealthy, statusDegraded))
	assert.Equal(t, statusUnhealthy, worse(statusDegraded, statusUnhealthy))
	assert.Equal(t, statusUnhealthy, worse(statusUnhealthy, statusDegraded))
}

func TestHealth_FailingDependencyIsUnavailable(t *testing.T) {
	s := NewServer(&Services{}, Config{
		Checks: map[string]Pinger{"redis": failingPinger{}},
	}, nil)
	api := humatest.Wrap(t, s.API())

	resp := api.Get("/health")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.False(t, env.Success)
	assert.Equal(t, statusUnhealthy, env.Data.Status)
	assert.Equal(t, "connection refused", env.Data.Components["redis"].Message)
	assert.Equal(t, statusDegraded, env.Data.Components["sse"].Status)
}
