package providers

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/catalog"
	"github.com/retroarena/eventengine/internal/config"
	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/logger"
	"github.com/retroarena/eventengine/internal/service"
)

// ProvideCatalogLoader provides the catalog file parser.
func ProvideCatalogLoader(i do.Injector) (*catalog.Loader, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return catalog.NewLoader(log.Component("catalog")), nil
}

// ProvideCatalog provides the in-memory event catalog. It starts empty and
// is filled by the event service provider.
func ProvideCatalog(i do.Injector) (*catalog.Store, error) {
	return catalog.NewStore(nil), nil
}

// loadInitialCatalog reads the catalog file. A missing file starts the
// engine with no events; a malformed one fails startup.
func loadInitialCatalog(cfg *config.Config, loader *catalog.Loader, log *logger.Logger) ([]domain.Event, error) {
	events, err := loader.Load(cfg.Data.CatalogPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("Catalog file not found, starting with no events", "path", cfg.Data.CatalogPath)
		return nil, nil
	}
	return events, err
}

// CatalogWatcherHandle wraps the catalog file watcher with shutdown capability.
type CatalogWatcherHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *CatalogWatcherHandle) Shutdown() error {
	if h.cancel == nil {
		return nil
	}
	h.cancel()
	<-h.done
	return nil
}

// ProvideCatalogWatcher reloads the catalog when its file changes. A failed
// reload keeps the previous catalog.
func ProvideCatalogWatcher(i do.Injector) (*CatalogWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	loader := do.MustInvoke[*catalog.Loader](i)
	events := do.MustInvoke[*service.EventService](i)

	if !cfg.Data.WatchCatalog {
		log.Info("Catalog watching disabled by configuration")
		return &CatalogWatcherHandle{}, nil
	}

	apply := func(loaded []domain.Event) {
		if err := events.Replace(context.Background(), loaded, time.Now()); err != nil {
			log.Warn("Catalog reload not fully applied", "error", err)
		}
	}
	w := catalog.NewWatcher(cfg.Data.CatalogPath, loader, apply, log.Component("catalog"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			log.Error("Catalog watcher stopped", "error", err)
		}
	}()

	return &CatalogWatcherHandle{cancel: cancel, done: done}, nil
}
