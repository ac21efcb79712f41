// Package store persists participation, team and leaderboard state in Badger.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/retroarena/eventengine/internal/domain"
)

// maxTxnAttempts bounds retries when an optimistic transaction loses a race.
const maxTxnAttempts = 16

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	Participations *Entity[domain.Participation]
	Teams          *Entity[domain.Team]
	Memberships    *Entity[domain.TeamMembership]
	Snapshots      *Entity[domain.LeaderboardSnapshot]
}

// Options tunes the Badger instance.
type Options struct {
	InMemory bool // for tests and tools; path is ignored
	ReadOnly bool // for inspection tools; fails while another process holds the directory
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger, opts ...Options) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	badgerOpts := badger.DefaultOptions(path)
	if len(opts) > 0 && opts[0].InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	badgerOpts.Logger = nil            // Disable Badger's internal logging
	badgerOpts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	badgerOpts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	if len(opts) > 0 && opts[0].ReadOnly {
		badgerOpts = badgerOpts.WithReadOnly(true).WithCompactL0OnClose(false)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{db: db, logger: logger}
	s.initEntities()

	logger.Info("Badger database opened successfully", "path", path)
	return s, nil
}

func (s *Store) initEntities() {
	s.Participations = NewEntity[domain.Participation](s, prefixParticipation)

	s.Teams = NewEntity[domain.Team](s, prefixTeam).
		WithIndex(IndexTeamName, func(t *domain.Team) string {
			return t.EventID + keySep + domain.NormalizeTeamName(t.Name)
		}).
		WithIndex(indexTeamEvent, func(t *domain.Team) string {
			return t.EventID + keySep + t.ID
		})

	s.Memberships = NewEntity[domain.TeamMembership](s, prefixMembership).
		WithIndex(IndexEventMember, func(m *domain.TeamMembership) string {
			return eventMemberKey(m.EventID, m.UserID)
		})

	s.Snapshots = NewEntity[domain.LeaderboardSnapshot](s, prefixSnapshot)
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying when Badger reports
// a conflict with a concurrent commit. fn must be safe to re-run.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var last error
	for attempt := 1; attempt <= maxTxnAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		last = err
		s.logger.Debug("transaction conflict, retrying", "attempt", attempt)
	}
	return ErrTooManyConflicts.WithCause(last)
}

// KeyCounts returns the number of primary and index keys per top-level prefix.
func (s *Store) KeyCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := string(it.Item().Key())
			head, rest, _ := strings.Cut(key, ":")
			if strings.HasPrefix(rest, "idx:") {
				head += ":idx"
			}
			counts[head]++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count keys: %w", err)
	}
	return counts, nil
}

// Ping verifies the database answers a read transaction.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}
