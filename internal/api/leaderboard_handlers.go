package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/retroarena/eventengine/internal/domain"
)

func (s *Server) registerLeaderboardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getLeaderboard",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}/leaderboard",
		Summary:     "Get leaderboard",
		Description: "Returns the live ranking with change indicators",
		Tags:        []string{"Leaderboards"},
	}, s.handleGetLeaderboard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTeamStandings",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}/leaderboard/teams",
		Summary:     "Get team standings",
		Description: "Ranks eligible teams by the sum of their members' best times",
		Tags:        []string{"Leaderboards"},
	}, s.handleGetTeamStandings)

	huma.Register(s.api, huma.Operation{
		OperationID: "finalizeLeaderboard",
		Method:      http.MethodPost,
		Path:        "/api/v1/events/{id}/leaderboard/finalize",
		Summary:     "Finalize leaderboard",
		Description: "Grants placement rewards for a completed event. Moderators only; runs at most once",
		Tags:        []string{"Leaderboards"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleFinalizeLeaderboard)
}

// === DTOs ===

// LeaderboardOutput wraps a snapshot for Huma.
type LeaderboardOutput struct {
	Body *domain.LeaderboardSnapshot
}

// TeamStandingsResponse contains ranked teams.
type TeamStandingsResponse struct {
	EventID   string                `json:"event_id" doc:"Event ID"`
	Standings []domain.TeamStanding `json:"standings" doc:"Teams by total time"`
}

// TeamStandingsOutput wraps team standings for Huma.
type TeamStandingsOutput struct {
	Body TeamStandingsResponse
}

// FinalizeResponse reports whether this call finalized the event.
type FinalizeResponse struct {
	EventID   string `json:"event_id" doc:"Event ID"`
	Finalized bool   `json:"finalized" doc:"False when the event is not completed or was already finalized"`
}

// FinalizeOutput wraps the finalize response for Huma.
type FinalizeOutput struct {
	Body FinalizeResponse
}

// === Handlers ===

func (s *Server) handleGetLeaderboard(ctx context.Context, input *EventIDInput) (*LeaderboardOutput, error) {
	snap, err := s.services.Leaderboard.Live(ctx, input.ID, s.now())
	if err != nil {
		return nil, err
	}
	return &LeaderboardOutput{Body: snap}, nil
}

func (s *Server) handleGetTeamStandings(ctx context.Context, input *EventIDInput) (*TeamStandingsOutput, error) {
	standings, err := s.services.Leaderboard.TeamStandings(ctx, input.ID, s.now())
	if err != nil {
		return nil, err
	}
	if standings == nil {
		standings = []domain.TeamStanding{}
	}
	return &TeamStandingsOutput{Body: TeamStandingsResponse{
		EventID:   input.ID,
		Standings: standings,
	}}, nil
}

func (s *Server) handleFinalizeLeaderboard(ctx context.Context, input *EventIDInput) (*FinalizeOutput, error) {
	if _, err := s.RequireModerator(ctx); err != nil {
		return nil, err
	}

	finalized, err := s.services.Leaderboard.Finalize(ctx, input.ID, s.now())
	if err != nil {
		return nil, err
	}
	return &FinalizeOutput{Body: FinalizeResponse{EventID: input.ID, Finalized: finalized}}, nil
}
