package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// connectTimeout bounds the startup checks of optional integrations.
	connectTimeout = 5 * time.Second
)
