package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/retroarena/eventengine/internal/domain"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/rewards"
	"github.com/retroarena/eventengine/internal/sse"
	"github.com/retroarena/eventengine/internal/store"
)

// ParticipationService records joins, progress and completion.
type ParticipationService struct {
	events  EventLookup
	store   *store.Store
	emitter rewards.Emitter
	sse     Broadcaster
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewParticipationService creates a new participation service.
func NewParticipationService(
	events EventLookup,
	st *store.Store,
	emitter rewards.Emitter,
	b Broadcaster,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ParticipationService {
	return &ParticipationService{
		events:  events,
		store:   st,
		emitter: emitter,
		sse:     broadcasterOrNoop(b),
		metrics: m,
		logger:  logger,
	}
}

// Join enrolls userID in eventID. The event must exist and be active at now.
func (s *ParticipationService) Join(ctx context.Context, eventID, userID, username string, now time.Time) (*domain.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive(now) {
		return nil, domainerrors.EventNotActive(eventID)
	}

	p := &domain.Participation{
		EventID:  eventID,
		UserID:   userID,
		Username: username,
		JoinedAt: now,
	}
	if err := s.store.CreateParticipation(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.ErrAlreadyParticipating
		}
		return nil, fmt.Errorf("join event: %w", err)
	}

	s.metrics.IncJoined()
	s.sse.Emit(sse.NewParticipationJoinedEvent(p, now))
	s.logger.Info("participant joined", "event_id", eventID, "user_id", userID)
	return p, nil
}

// IsParticipating reports whether userID has joined eventID.
func (s *ParticipationService) IsParticipating(ctx context.Context, eventID, userID string) (bool, error) {
	_, err := s.store.GetParticipation(ctx, eventID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("get participation: %w", err)
	}
}

// Get returns the participation of userID in eventID.
func (s *ParticipationService) Get(ctx context.Context, eventID, userID string) (*domain.Participation, error) {
	p, err := s.store.GetParticipation(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ErrNotParticipating
		}
		return nil, fmt.Errorf("get participation: %w", err)
	}
	return p, nil
}

// GetProgress returns the stored progress, or 0 if the user never joined.
func (s *ParticipationService) GetProgress(ctx context.Context, eventID, userID string) (int, error) {
	p, err := s.store.GetParticipation(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("get participation: %w", err)
	}
	return p.Progress, nil
}

// UpdateProgress raises progress toward 100. Lower values and updates to a
// completed participation leave it unchanged.
func (s *ParticipationService) UpdateProgress(ctx context.Context, eventID, userID string, progress int) (*domain.Participation, error) {
	p, _, err := s.store.UpdateParticipation(ctx, eventID, userID, func(p *domain.Participation) (bool, error) {
		return p.AdvanceProgress(progress), nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ErrNotParticipating
		}
		return nil, fmt.Errorf("update progress: %w", err)
	}
	return p, nil
}

// Complete marks the participation done and grants the event's rewards. A
// second call is a no-op and grants nothing.
func (s *ParticipationService) Complete(ctx context.Context, eventID, userID string, now time.Time) (*domain.Participation, error) {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	p, changed, err := s.store.UpdateParticipation(ctx, eventID, userID, func(p *domain.Participation) (bool, error) {
		return p.Complete(now, event.Rewards), nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ErrNotParticipating
		}
		return nil, fmt.Errorf("complete participation: %w", err)
	}
	if !changed {
		return p, nil
	}

	grants := make([]domain.RewardGrant, 0, len(p.Rewards))
	for _, r := range p.Rewards {
		grants = append(grants, domain.GrantFromDescriptor(newGrantID(now), userID, eventID, r, domain.RewardReasonCompletion, now))
	}
	emitGrants(ctx, s.emitter, s.logger, grants)

	s.metrics.IncCompleted()
	s.sse.Emit(sse.NewParticipationCompletedEvent(p, now))
	s.logger.Info("participation completed",
		"event_id", eventID,
		"user_id", userID,
		"rewards", len(grants),
	)
	return p, nil
}

// ListByEvent returns every participation in eventID ordered by join time.
func (s *ParticipationService) ListByEvent(ctx context.Context, eventID string) ([]*domain.Participation, error) {
	if _, err := s.events.GetByID(eventID); err != nil {
		return nil, err
	}
	return s.store.ListParticipations(ctx, eventID)
}

// Count returns how many users joined eventID.
func (s *ParticipationService) Count(ctx context.Context, eventID string) (int, error) {
	if _, err := s.events.GetByID(eventID); err != nil {
		return 0, err
	}
	return s.store.CountParticipations(ctx, eventID)
}
