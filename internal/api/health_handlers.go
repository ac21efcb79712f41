package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Component states, from best to worst.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

const pingTimeout = 2 * time.Second

// lowDiskBytes is the free-space floor under which uploads are at risk.
const lowDiskBytes = 512 << 20

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Checks storage, cache, search, disk and streaming. Answers 503 when a dependency is down",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth is the state of one dependency.
type ComponentHealth struct {
	Status  string `json:"status" enum:"healthy,degraded,unhealthy" doc:"Component state"`
	Latency string `json:"latency,omitempty" doc:"Ping round trip"`
	Message string `json:"message,omitempty" doc:"Detail, e.g. the ping error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string                     `json:"status" enum:"healthy,degraded,unhealthy" doc:"Worst component state"`
	Components map[string]ComponentHealth `json:"components" doc:"State per component"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Status int
	Body   HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		components = make(map[string]ComponentHealth, len(s.cfg.Checks)+2)
	)
	for name, check := range s.cfg.Checks {
		wg.Go(func() {
			h := ping(ctx, check)
			mu.Lock()
			components[name] = h
			mu.Unlock()
		})
	}
	wg.Wait()

	if s.cfg.DataPath != "" {
		components["disk"] = checkDisk(s.cfg.DataPath)
	}
	components["sse"] = s.streamHealth()

	overall := statusHealthy
	for _, c := range components {
		overall = worse(overall, c.Status)
	}

	code := http.StatusOK
	if overall == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return &HealthOutput{
		Status: code,
		Body:   HealthResponse{Status: overall, Components: components},
	}, nil
}

func worse(a, b string) string {
	rank := func(s string) int {
		switch s {
		case statusHealthy:
			return 0
		case statusDegraded:
			return 1
		default:
			return 2
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func ping(ctx context.Context, p Pinger) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	h := ComponentHealth{Status: statusHealthy, Latency: time.Since(start).Round(time.Microsecond).String()}
	if err != nil {
		h.Status = statusUnhealthy
		h.Message = err.Error()
	}
	return h
}

// checkDisk reports free space on the volume holding path. Platforms without
// a free-space call count as healthy.
func checkDisk(path string) ComponentHealth {
	free, err := freeDiskBytes(path)
	switch {
	case errors.Is(err, errors.ErrUnsupported):
		return ComponentHealth{Status: statusHealthy, Message: "free space not reported on this platform"}
	case err != nil:
		return ComponentHealth{Status: statusDegraded, Message: err.Error()}
	}

	h := ComponentHealth{Status: statusHealthy, Message: fmt.Sprintf("%d MiB free", free>>20)}
	if free < lowDiskBytes {
		h.Status = statusDegraded
	}
	return h
}

// streamHealth is degraded when live updates are not wired at all.
func (s *Server) streamHealth() ComponentHealth {
	if s.cfg.SSE == nil {
		return ComponentHealth{Status: statusDegraded, Message: "live updates disabled"}
	}
	return ComponentHealth{Status: statusHealthy, Message: formatSSEStatus(s.cfg.SSE.ClientCount())}
}

func formatSSEStatus(n int) string {
	switch n {
	case 0:
		return "no connected clients"
	case 1:
		return "1 connected client"
	}
	return strconv.Itoa(n) + " connected clients"
}
