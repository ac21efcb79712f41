package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/logger"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/sse"
)

// SSEManagerHandle runs the stream fan-out loop for the life of the process.
type SSEManagerHandle struct {
	*sse.Manager
	stop context.CancelFunc
}

// Shutdown flushes queued events before closing every stream.
func (h *SSEManagerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer h.stop()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager creates the manager and starts its delivery loop.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	m := sse.NewManager(log.Component("sse"))
	m.SetMetrics(do.MustInvoke[*metrics.Metrics](i))

	ctx, stop := context.WithCancel(context.Background())
	go m.Start(ctx)

	return &SSEManagerHandle{Manager: m, stop: stop}, nil
}
