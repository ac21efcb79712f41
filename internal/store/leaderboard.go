package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/retroarena/eventengine/internal/domain"
)

// SaveSnapshot stores the latest ranked leaderboard of an event, replacing the
// previous one.
func (s *Store) SaveSnapshot(ctx context.Context, snap *domain.LeaderboardSnapshot) error {
	if err := s.Snapshots.Upsert(ctx, snap.EventID, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the last stored leaderboard of eventID.
func (s *Store) GetSnapshot(ctx context.Context, eventID string) (*domain.LeaderboardSnapshot, error) {
	return s.Snapshots.Get(ctx, eventID)
}

// MarkFinalized records that placement rewards for eventID were issued.
// It returns false when the event was already marked, so only one caller
// ever wins.
func (s *Store) MarkFinalized(ctx context.Context, eventID string, at time.Time) (bool, error) {
	key := []byte(prefixFinalized + eventID)
	won := false
	err := s.update(ctx, func(txn *badger.Txn) error {
		won = false
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		won = true
		return txn.Set(key, []byte(at.UTC().Format(time.RFC3339Nano)))
	})
	if err != nil {
		return false, fmt.Errorf("mark finalized: %w", err)
	}
	return won, nil
}

// IsFinalized reports whether placement rewards for eventID were issued.
func (s *Store) IsFinalized(ctx context.Context, eventID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(prefixFinalized + eventID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}
