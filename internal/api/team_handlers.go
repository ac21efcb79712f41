package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/retroarena/eventengine/internal/domain"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/id"
	"github.com/retroarena/eventengine/internal/service"
)

func (s *Server) registerTeamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTeams",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}/teams",
		Summary:     "List teams",
		Description: "Returns the teams of an event, optionally only those with room",
		Tags:        []string{"Teams"},
	}, s.handleListTeams)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTeam",
		Method:        http.MethodPost,
		Path:          "/api/v1/events/{id}/teams",
		Summary:       "Create team",
		Description:   "Creates a team with the caller as leader and first member",
		Tags:          []string{"Teams"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateTeam)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMyTeam",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}/teams/mine",
		Summary:     "Get my team",
		Description: "Returns the caller's team membership for an event, if any",
		Tags:        []string{"Teams"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetMyTeam)

	huma.Register(s.api, huma.Operation{
		OperationID: "joinTeam",
		Method:      http.MethodPost,
		Path:        "/api/v1/teams/{id}/join",
		Summary:     "Join team",
		Description: "Adds the caller to a team with free capacity",
		Tags:        []string{"Teams"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleJoinTeam)

	huma.Register(s.api, huma.Operation{
		OperationID: "leaveTeam",
		Method:      http.MethodPost,
		Path:        "/api/v1/teams/{id}/leave",
		Summary:     "Leave team",
		Description: "Removes the caller from a team; a departing leader is succeeded",
		Tags:        []string{"Teams"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLeaveTeam)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTeamMembers",
		Method:      http.MethodGet,
		Path:        "/api/v1/teams/{id}/members",
		Summary:     "List team members",
		Description: "Returns the members of a team in join order",
		Tags:        []string{"Teams"},
	}, s.handleListTeamMembers)
}

// === DTOs ===

// ListTeamsInput contains parameters for listing teams.
type ListTeamsInput struct {
	ID        string `path:"id" doc:"Event ID"`
	Available bool   `query:"available" doc:"Only teams with a free slot"`
}

// TeamResponse contains team data in API responses.
type TeamResponse struct {
	domain.Team
	IsFull     bool `json:"is_full" doc:"No free slot"`
	IsEligible bool `json:"is_eligible" doc:"Meets the minimum size for team standings"`
}

// ListTeamsResponse contains a list of teams.
type ListTeamsResponse struct {
	Teams []TeamResponse `json:"teams" doc:"Teams in creation order"`
}

// ListTeamsOutput wraps the list teams response for Huma.
type ListTeamsOutput struct {
	Body ListTeamsResponse
}

// CreateTeamRequest is the request body for creating a team.
type CreateTeamRequest struct {
	Name        string `json:"name" doc:"Team name, unique per event ignoring case"`
	Description string `json:"description,omitempty" doc:"Optional description"`
}

// CreateTeamInput wraps the create team request for Huma.
type CreateTeamInput struct {
	ID   string `path:"id" doc:"Event ID"`
	Body CreateTeamRequest
}

// TeamOutput wraps the team response for Huma.
type TeamOutput struct {
	Body TeamResponse
}

// TeamIDInput identifies a team by path.
type TeamIDInput struct {
	ID string `path:"id" doc:"Team ID"`
}

// teamID rejects ids that cannot name a team without a store lookup.
func (i *TeamIDInput) teamID() (string, error) {
	if !id.Is(i.ID, id.PrefixTeam) {
		return "", domainerrors.TeamNotFound(i.ID)
	}
	return i.ID, nil
}

// MembershipResponse reports the caller's membership.
type MembershipResponse struct {
	Membership *domain.TeamMembership `json:"membership" doc:"Null when the caller has no team"`
}

// MembershipOutput wraps the membership response for Huma.
type MembershipOutput struct {
	Body MembershipResponse
}

// ListMembersResponse contains a team roster.
type ListMembersResponse struct {
	Members []*domain.TeamMembership `json:"members" doc:"Members in join order"`
}

// ListMembersOutput wraps the roster for Huma.
type ListMembersOutput struct {
	Body ListMembersResponse
}

// === Handlers ===

func (s *Server) handleListTeams(ctx context.Context, input *ListTeamsInput) (*ListTeamsOutput, error) {
	var (
		teams []*domain.Team
		err   error
	)
	if input.Available {
		teams, err = s.services.Teams.AvailableTeams(ctx, input.ID)
	} else {
		teams, err = s.services.Teams.ListTeams(ctx, input.ID)
	}
	if err != nil {
		return nil, err
	}

	resp := make([]TeamResponse, 0, len(teams))
	for _, t := range teams {
		resp = append(resp, teamResponse(t))
	}
	return &ListTeamsOutput{Body: ListTeamsResponse{Teams: resp}}, nil
}

func (s *Server) handleCreateTeam(ctx context.Context, input *CreateTeamInput) (*TeamOutput, error) {
	claims, err := GetClaims(ctx)
	if err != nil {
		return nil, err
	}

	team, err := s.services.Teams.CreateTeam(ctx, input.ID, claims.UserID, claims.Username, service.CreateTeamRequest{
		Name:        input.Body.Name,
		Description: input.Body.Description,
	}, s.now())
	if err != nil {
		return nil, err
	}
	return &TeamOutput{Body: teamResponse(team)}, nil
}

func (s *Server) handleGetMyTeam(ctx context.Context, input *EventIDInput) (*MembershipOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.services.Teams.MembershipFor(ctx, input.ID, userID)
	if err != nil {
		return nil, err
	}
	return &MembershipOutput{Body: MembershipResponse{Membership: m}}, nil
}

func (s *Server) handleJoinTeam(ctx context.Context, input *TeamIDInput) (*TeamOutput, error) {
	teamID, err := input.teamID()
	if err != nil {
		return nil, err
	}
	claims, err := GetClaims(ctx)
	if err != nil {
		return nil, err
	}

	team, err := s.services.Teams.JoinTeam(ctx, teamID, claims.UserID, claims.Username, s.now())
	if err != nil {
		return nil, err
	}
	return &TeamOutput{Body: teamResponse(team)}, nil
}

func (s *Server) handleLeaveTeam(ctx context.Context, input *TeamIDInput) (*TeamOutput, error) {
	teamID, err := input.teamID()
	if err != nil {
		return nil, err
	}
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	team, err := s.services.Teams.LeaveTeam(ctx, teamID, userID, s.now())
	if err != nil {
		return nil, err
	}
	return &TeamOutput{Body: teamResponse(team)}, nil
}

func (s *Server) handleListTeamMembers(ctx context.Context, input *TeamIDInput) (*ListMembersOutput, error) {
	teamID, err := input.teamID()
	if err != nil {
		return nil, err
	}
	members, err := s.services.Teams.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &ListMembersOutput{Body: ListMembersResponse{Members: members}}, nil
}

func teamResponse(t *domain.Team) TeamResponse {
	return TeamResponse{
		Team:       *t,
		IsFull:     t.IsFull(),
		IsEligible: t.IsEligible(),
	}
}
