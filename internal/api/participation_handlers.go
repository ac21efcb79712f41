package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/retroarena/eventengine/internal/domain"
)

func (s *Server) registerParticipationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "joinEvent",
		Method:        http.MethodPost,
		Path:          "/api/v1/events/{id}/join",
		Summary:       "Join event",
		Description:   "Records the caller as a participant of an active event",
		Tags:          []string{"Participation"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleJoinEvent)

	huma.Register(s.api, huma.Operation{
		OperationID: "listParticipants",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}/participants",
		Summary:     "List participants",
		Description: "Returns everyone who joined the event in join order",
		Tags:        []string{"Participation"},
	}, s.handleListParticipants)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}/progress",
		Summary:     "Get progress",
		Description: "Returns the caller's progress, 0 when not participating",
		Tags:        []string{"Participation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProgress",
		Method:      http.MethodPut,
		Path:        "/api/v1/events/{id}/progress",
		Summary:     "Update progress",
		Description: "Raises the caller's progress; lower values are ignored",
		Tags:        []string{"Participation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "completeEvent",
		Method:      http.MethodPost,
		Path:        "/api/v1/events/{id}/complete",
		Summary:     "Complete event",
		Description: "Marks the caller's participation complete and grants the event rewards once",
		Tags:        []string{"Participation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCompleteEvent)
}

// === DTOs ===

// ParticipationOutput wraps a participation record for Huma.
type ParticipationOutput struct {
	Body *domain.Participation
}

// ListParticipantsResponse lists an event's participants.
type ListParticipantsResponse struct {
	Participants []*domain.Participation `json:"participants" doc:"Participants in join order"`
}

// ListParticipantsOutput wraps the participant list for Huma.
type ListParticipantsOutput struct {
	Body ListParticipantsResponse
}

// ProgressResponse reports the caller's progress.
type ProgressResponse struct {
	EventID       string `json:"event_id" doc:"Event ID"`
	Progress      int    `json:"progress" doc:"Progress from 0 to 100"`
	Participating bool   `json:"participating" doc:"Whether the caller joined"`
}

// ProgressOutput wraps the progress response for Huma.
type ProgressOutput struct {
	Body ProgressResponse
}

// UpdateProgressRequest is the request body for updating progress.
type UpdateProgressRequest struct {
	Progress int `json:"progress" doc:"New progress; clamped to 0..100"`
}

// UpdateProgressInput wraps the update progress request for Huma.
type UpdateProgressInput struct {
	ID   string `path:"id" doc:"Event ID"`
	Body UpdateProgressRequest
}

// === Handlers ===

func (s *Server) handleJoinEvent(ctx context.Context, input *EventIDInput) (*ParticipationOutput, error) {
	claims, err := GetClaims(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Participation.Join(ctx, input.ID, claims.UserID, claims.Username, s.now())
	if err != nil {
		return nil, err
	}
	return &ParticipationOutput{Body: p}, nil
}

func (s *Server) handleListParticipants(ctx context.Context, input *EventIDInput) (*ListParticipantsOutput, error) {
	list, err := s.services.Participation.ListByEvent(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Participation{}
	}
	return &ListParticipantsOutput{Body: ListParticipantsResponse{Participants: list}}, nil
}

func (s *Server) handleGetProgress(ctx context.Context, input *EventIDInput) (*ProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.services.Events.Get(input.ID); err != nil {
		return nil, err
	}

	participating, err := s.services.Participation.IsParticipating(ctx, input.ID, userID)
	if err != nil {
		return nil, err
	}
	progress, err := s.services.Participation.GetProgress(ctx, input.ID, userID)
	if err != nil {
		return nil, err
	}

	return &ProgressOutput{Body: ProgressResponse{
		EventID:       input.ID,
		Progress:      progress,
		Participating: participating,
	}}, nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, input *UpdateProgressInput) (*ParticipationOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Participation.UpdateProgress(ctx, input.ID, userID, input.Body.Progress)
	if err != nil {
		return nil, err
	}
	return &ParticipationOutput{Body: p}, nil
}

func (s *Server) handleCompleteEvent(ctx context.Context, input *EventIDInput) (*ParticipationOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Participation.Complete(ctx, input.ID, userID, s.now())
	if err != nil {
		return nil, err
	}
	return &ParticipationOutput{Body: p}, nil
}
