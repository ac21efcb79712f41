// Command api runs the event engine HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/di"
	"github.com/retroarena/eventengine/internal/logger"
)

// stopTimeout bounds the whole teardown; each handle has its own shorter limit.
const stopTimeout = 45 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "eventengine: %v\n", err)
		_ = injector.Shutdown()
		return 1
	}
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	stop()

	log.Info("Signal received, stopping")

	// Handles shut down in reverse dependency order: HTTP first, stores last.
	done := make(chan error, 1)
	go func() {
		if err := injector.Shutdown(); err != nil {
			done <- err
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Error("Shutdown finished with errors", "error", err)
			return 1
		}
	case <-time.After(stopTimeout):
		log.Error("Shutdown timed out", "timeout", stopTimeout)
		return 1
	}

	log.Info("Game over. Thanks for playing.")
	return 0
}
