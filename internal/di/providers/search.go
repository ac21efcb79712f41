package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/config"
	"github.com/retroarena/eventengine/internal/logger"
	"github.com/retroarena/eventengine/internal/search"
)

// SearchIndexHandle owns the Bleve catalog index. The event service refills
// it on every catalog load, so a stale index on disk heals at startup.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Ping reports whether the index still answers. Used by GET /health.
func (h *SearchIndexHandle) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := h.DocumentCount(); err != nil {
		return fmt.Errorf("search index: %w", err)
	}
	return nil
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex opens the index under the data directory.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i).Component("search")

	idx, err := search.NewSearchIndex(search.Options{DataPath: cfg.Data.BasePath, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}

	if n, err := idx.DocumentCount(); err == nil {
		log.Info("Search index opened", "documents", n)
	}
	return &SearchIndexHandle{SearchIndex: idx}, nil
}
