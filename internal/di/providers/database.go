package providers

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/config"
	"github.com/retroarena/eventengine/internal/logger"
	"github.com/retroarena/eventengine/internal/store"
	"github.com/retroarena/eventengine/internal/store/sqlite"
)

// StoreHandle owns the Badger ledger of participations and teams.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error { return h.Close() }

// ProvideStore opens the ledger and logs how many records it holds per entity.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i).Component("store")

	path := cfg.BadgerPath()
	db, err := store.New(path, log)
	if err != nil {
		return nil, fmt.Errorf("open ledger at %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	attrs := []any{"path", path}
	if counts, err := db.KeyCounts(ctx); err == nil {
		for _, prefix := range slices.Sorted(maps.Keys(counts)) {
			attrs = append(attrs, prefix, counts[prefix])
		}
	}
	log.Info("Ledger opened", attrs...)

	return &StoreHandle{Store: db}, nil
}

// MediaStoreHandle owns the SQLite database of submissions, votes and reports.
type MediaStoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *MediaStoreHandle) Shutdown() error { return h.Close() }

// ProvideMediaStore opens the submission database, applying migrations.
func ProvideMediaStore(i do.Injector) (*MediaStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i).Component("sqlite")

	path := cfg.SQLitePath()
	db, err := sqlite.Open(path, log)
	if err != nil {
		return nil, fmt.Errorf("open media database at %s: %w", path, err)
	}
	log.Info("Media database opened", "path", path)

	return &MediaStoreHandle{Store: db}, nil
}
