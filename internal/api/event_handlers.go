package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/search"
	"github.com/retroarena/eventengine/internal/service"
	"github.com/retroarena/eventengine/internal/timewindow"
)

func (s *Server) registerEventRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listEvents",
		Method:      http.MethodGet,
		Path:        "/api/v1/events",
		Summary:     "List events",
		Description: "Returns catalog events in display priority order, optionally filtered",
		Tags:        []string{"Events"},
	}, s.handleListEvents)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchEvents",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/search",
		Summary:     "Search events",
		Description: "Full-text search over event titles, games and descriptions",
		Tags:        []string{"Events"},
	}, s.handleSearchEvents)

	huma.Register(s.api, huma.Operation{
		OperationID: "getEvent",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}",
		Summary:     "Get event",
		Description: "Returns an event with its current status, countdown and participant count",
		Tags:        []string{"Events"},
	}, s.handleGetEvent)
}

// === DTOs ===

// ListEventsInput contains parameters for listing events.
type ListEventsInput struct {
	Status string `query:"status" enum:"upcoming,active,completed" doc:"Filter by derived status"`
	Type   string `query:"type" doc:"Filter by event type"`
	Query  string `query:"q" doc:"Free-text filter"`
}

// EventResponse contains event data in API responses.
type EventResponse struct {
	domain.Event
	Status    domain.EventStatus   `json:"status" doc:"Status at request time"`
	Countdown timewindow.Countdown `json:"countdown" doc:"Time until end when active, until start otherwise"`
	// CountdownSeconds is the countdown collapsed to whole seconds.
	CountdownSeconds int64 `json:"countdown_seconds" doc:"Countdown in seconds"`
}

// EventDetailResponse adds per-event aggregates to EventResponse.
type EventDetailResponse struct {
	EventResponse
	Participants int `json:"participants" doc:"Users who joined the event"`
}

// ListEventsResponse contains a list of events.
type ListEventsResponse struct {
	Events []EventResponse `json:"events" doc:"Matching events"`
}

// ListEventsOutput wraps the list events response for Huma.
type ListEventsOutput struct {
	Body ListEventsResponse
}

// EventIDInput identifies an event by path.
type EventIDInput struct {
	ID string `path:"id" doc:"Event ID"`
}

// EventOutput wraps the event response for Huma.
type EventOutput struct {
	Body EventDetailResponse
}

// SearchEventsInput contains parameters for searching events.
type SearchEventsInput struct {
	Query     string `query:"q" doc:"Search text"`
	Type      string `query:"type" doc:"Filter by event type"`
	TeamOnly  bool   `query:"team_only" doc:"Only team events"`
	Limit     int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum hits"`
	Offset    int    `query:"offset" minimum:"0" doc:"Hits to skip"`
	Highlight bool   `query:"highlight" doc:"Include highlighted fragments"`
}

// SearchEventsOutput wraps search results for Huma.
type SearchEventsOutput struct {
	Body *search.SearchResult
}

// === Handlers ===

func (s *Server) handleListEvents(ctx context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
	req := service.ListEventsRequest{
		Status: domain.EventStatus(input.Status),
		Query:  input.Query,
	}
	if input.Type != "" {
		t, ok := domain.ParseEventType(input.Type)
		if !ok {
			return nil, huma.Error400BadRequest("unknown event type " + input.Type)
		}
		req.Type = t
	}

	now := s.now()
	events, err := s.services.Events.List(ctx, req, now)
	if err != nil {
		return nil, err
	}

	resp := make([]EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, eventResponse(e, now))
	}
	return &ListEventsOutput{Body: ListEventsResponse{Events: resp}}, nil
}

func (s *Server) handleSearchEvents(ctx context.Context, input *SearchEventsInput) (*SearchEventsOutput, error) {
	result, err := s.services.Events.Search(ctx, search.SearchParams{
		Query:     input.Query,
		Type:      input.Type,
		TeamOnly:  input.TeamOnly,
		Limit:     input.Limit,
		Offset:    input.Offset,
		Highlight: input.Highlight,
	})
	if err != nil {
		return nil, err
	}
	return &SearchEventsOutput{Body: result}, nil
}

func (s *Server) handleGetEvent(ctx context.Context, input *EventIDInput) (*EventOutput, error) {
	event, err := s.services.Events.Get(input.ID)
	if err != nil {
		return nil, err
	}

	participants, err := s.services.Participation.Count(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &EventOutput{Body: EventDetailResponse{
		EventResponse: eventResponse(event, s.now()),
		Participants:  participants,
	}}, nil
}

func eventResponse(e domain.Event, now time.Time) EventResponse {
	countdown := e.Countdown(now)
	return EventResponse{
		Event:            e,
		Status:           e.Status(now),
		Countdown:        countdown,
		CountdownSeconds: int64(countdown.Remaining() / time.Second),
	}
}
