package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/retroarena/eventengine/internal/domain"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/id"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/sse"
	"github.com/retroarena/eventengine/internal/store"
	"github.com/retroarena/eventengine/internal/validation"
)

// Team join outcomes recorded in metrics.
const (
	teamJoinOK       = "ok"
	teamJoinFull     = "full"
	teamJoinConflict = "already_on_team"
)

// TeamService manages event teams and their memberships.
type TeamService struct {
	events    EventLookup
	store     *store.Store
	validator *validation.Validator
	sse       Broadcaster
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewTeamService creates a new team service.
func NewTeamService(
	events EventLookup,
	st *store.Store,
	v *validation.Validator,
	b Broadcaster,
	m *metrics.Metrics,
	logger *slog.Logger,
) *TeamService {
	return &TeamService{
		events:    events,
		store:     st,
		validator: v,
		sse:       broadcasterOrNoop(b),
		metrics:   m,
		logger:    logger,
	}
}

// CreateTeamRequest carries user-supplied team fields.
type CreateTeamRequest struct {
	Name        string `json:"name" validate:"notblank,max=30,nocontrol"`
	Description string `json:"description" validate:"max=200,nocontrol"`
}

// CreateTeam creates a team in eventID with userID as its leader and first member.
func (s *TeamService) CreateTeam(ctx context.Context, eventID, userID, username string, req CreateTeamRequest, now time.Time) (*domain.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if !event.IsTeamEvent {
		return nil, domainerrors.ErrEventNotTeamEnabled
	}

	teamID, err := id.Generate(id.PrefixTeam)
	if err != nil {
		return nil, fmt.Errorf("generate team ID: %w", err)
	}

	team := &domain.Team{
		ID:          teamID,
		EventID:     eventID,
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   userID,
		MaxMembers:  event.MaxTeamSize,
		MinMembers:  event.MinTeamSize,
		CreatedAt:   now,
	}
	leader := &domain.TeamMembership{
		TeamID:   teamID,
		EventID:  eventID,
		UserID:   userID,
		Username: username,
		JoinedAt: now,
	}

	if err := s.store.CreateTeamWithLeader(ctx, team, leader); err != nil {
		switch store.ConflictIndex(err) {
		case store.IndexTeamName:
			return nil, domainerrors.ErrDuplicateTeamName
		case store.IndexEventMember:
			return nil, domainerrors.ErrAlreadyOnTeam
		}
		return nil, fmt.Errorf("create team: %w", err)
	}

	s.sse.Emit(sse.NewTeamCreatedEvent(team, now))
	s.logger.Info("team created",
		"team_id", team.ID,
		"event_id", eventID,
		"leader_id", userID,
	)
	return team, nil
}

// JoinTeam adds userID to teamID. Capacity is checked in the same
// transaction as the write.
func (s *TeamService) JoinTeam(ctx context.Context, teamID, userID, username string, now time.Time) (*domain.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.TeamNotFound(teamID)
		}
		return nil, fmt.Errorf("get team: %w", err)
	}

	m := &domain.TeamMembership{
		TeamID:   teamID,
		EventID:  current.EventID,
		UserID:   userID,
		Username: username,
		JoinedAt: now,
	}

	team, err := s.store.AddTeamMember(ctx, teamID, m)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.TeamNotFound(teamID)
		case errors.Is(err, store.ErrCapacity):
			s.metrics.IncTeamJoin(teamJoinFull)
			return nil, domainerrors.ErrTeamFull
		case store.ConflictIndex(err) == store.IndexEventMember, errors.Is(err, store.ErrAlreadyExists):
			s.metrics.IncTeamJoin(teamJoinConflict)
			return nil, domainerrors.ErrAlreadyOnTeam
		}
		return nil, fmt.Errorf("join team: %w", err)
	}

	s.metrics.IncTeamJoin(teamJoinOK)
	s.sse.Emit(sse.NewTeamUpdatedEvent(team, now))
	s.logger.Info("team member joined",
		"team_id", teamID,
		"user_id", userID,
		"member_count", team.MemberCount,
	)
	return team, nil
}

// LeaveTeam removes userID from teamID. A departing leader is succeeded by the
// earliest-joined remaining member. Empty teams are kept.
func (s *TeamService) LeaveTeam(ctx context.Context, teamID, userID string, now time.Time) (*domain.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	team, err := s.store.RemoveTeamMember(ctx, teamID, userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrMembershipNotFound):
			return nil, domainerrors.ErrNotAMember
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.TeamNotFound(teamID)
		}
		return nil, fmt.Errorf("leave team: %w", err)
	}

	s.sse.Emit(sse.NewTeamUpdatedEvent(team, now))
	s.logger.Info("team member left",
		"team_id", teamID,
		"user_id", userID,
		"leader_id", team.LeaderID,
		"member_count", team.MemberCount,
	)
	return team, nil
}

// GetTeam returns one team.
func (s *TeamService) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.TeamNotFound(teamID)
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return team, nil
}

// ListTeams returns the teams of eventID in creation order.
func (s *TeamService) ListTeams(ctx context.Context, eventID string) ([]*domain.Team, error) {
	if _, err := s.events.GetByID(eventID); err != nil {
		return nil, err
	}
	teams, err := s.store.ListTeamsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// AvailableTeams returns the teams of eventID that still have room.
func (s *TeamService) AvailableTeams(ctx context.Context, eventID string) ([]*domain.Team, error) {
	teams, err := s.ListTeams(ctx, eventID)
	if err != nil {
		return nil, err
	}
	open := make([]*domain.Team, 0, len(teams))
	for _, t := range teams {
		if !t.IsFull() {
			open = append(open, t)
		}
	}
	return open, nil
}

// ListMembers returns the members of teamID in join order.
func (s *TeamService) ListMembers(ctx context.Context, teamID string) ([]*domain.TeamMembership, error) {
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// MembershipFor returns the team membership of userID in eventID, or nil.
func (s *TeamService) MembershipFor(ctx context.Context, eventID, userID string) (*domain.TeamMembership, error) {
	m, err := s.store.GetMembershipForEvent(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// IsEligible reports whether team has enough members to be ranked.
func (s *TeamService) IsEligible(team *domain.Team) bool {
	return team.IsEligible()
}
