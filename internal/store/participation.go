package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/retroarena/eventengine/internal/domain"
)

// CreateParticipation records a join. The (event, user) pair is the key, so a
// second join for the same pair returns ErrAlreadyExists.
func (s *Store) CreateParticipation(ctx context.Context, p *domain.Participation) error {
	if err := checkKeyParts(p.EventID, p.UserID); err != nil {
		return err
	}
	if err := s.Participations.Create(ctx, participationID(p.EventID, p.UserID), p); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("create participation: %w", err)
	}
	return nil
}

// GetParticipation returns the participation of userID in eventID.
func (s *Store) GetParticipation(ctx context.Context, eventID, userID string) (*domain.Participation, error) {
	return s.Participations.Get(ctx, participationID(eventID, userID))
}

// UpdateParticipation applies fn to the stored participation inside a single
// transaction. fn reports whether it changed anything; unchanged records are
// not rewritten. The returned value is the record as stored after the call.
func (s *Store) UpdateParticipation(
	ctx context.Context,
	eventID, userID string,
	fn func(p *domain.Participation) (bool, error),
) (*domain.Participation, bool, error) {
	var (
		result  *domain.Participation
		changed bool
	)
	id := participationID(eventID, userID)

	err := s.update(ctx, func(txn *badger.Txn) error {
		p, err := s.Participations.GetTxn(txn, id)
		if err != nil {
			return err
		}
		changed, err = fn(p)
		if err != nil {
			return err
		}
		result = p
		if !changed {
			return nil
		}
		return s.Participations.UpdateTxn(txn, id, p)
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

// ListParticipations returns every participation in eventID ordered by join time.
func (s *Store) ListParticipations(ctx context.Context, eventID string) ([]*domain.Participation, error) {
	if err := checkKeyParts(eventID); err != nil {
		return nil, err
	}
	var out []*domain.Participation
	for p, err := range s.Participations.List(ctx, scopePrefix(eventID)) {
		if err != nil {
			return nil, fmt.Errorf("list participations: %w", err)
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// CountParticipations returns the number of users who joined eventID.
func (s *Store) CountParticipations(ctx context.Context, eventID string) (int, error) {
	if err := checkKeyParts(eventID); err != nil {
		return 0, err
	}
	n := 0
	for _, err := range s.Participations.List(ctx, scopePrefix(eventID)) {
		if err != nil {
			return 0, fmt.Errorf("count participations: %w", err)
		}
		n++
	}
	return n, nil
}
