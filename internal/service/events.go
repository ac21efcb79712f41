package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/retroarena/eventengine/internal/catalog"
	"github.com/retroarena/eventengine/internal/domain"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/search"
	"github.com/retroarena/eventengine/internal/sse"
)

// EventService answers catalog queries and swaps in reloaded catalogs.
type EventService struct {
	catalog *catalog.Store
	index   *search.SearchIndex
	metrics *metrics.Metrics
	sse     Broadcaster
	logger  *slog.Logger
}

// NewEventService creates a new event service. index may be nil, in which
// case text queries fall back to substring matching.
func NewEventService(cat *catalog.Store, index *search.SearchIndex, m *metrics.Metrics, b Broadcaster, logger *slog.Logger) *EventService {
	return &EventService{
		catalog: cat,
		index:   index,
		metrics: m,
		sse:     broadcasterOrNoop(b),
		logger:  logger,
	}
}

// ListEventsRequest narrows a catalog listing. Zero fields match everything.
type ListEventsRequest struct {
	Status domain.EventStatus
	Type   domain.EventType
	Query  string
}

// Get returns one event by id.
func (s *EventService) Get(id string) (domain.Event, error) {
	return s.catalog.GetByID(id)
}

// ListActive returns events whose window contains now, in catalog order.
func (s *EventService) ListActive(now time.Time) []domain.Event {
	return s.catalog.ListActive(now)
}

// ListUpcoming returns events that have not started at now.
func (s *EventService) ListUpcoming(now time.Time) []domain.Event {
	return s.catalog.ListUpcoming(now)
}

// ListCompleted returns events that ended before now.
func (s *EventService) ListCompleted(now time.Time) []domain.Event {
	return s.catalog.ListCompleted(now)
}

// List returns events matching req. Without a text query the result is in
// display priority order; with one it follows search relevance.
func (s *EventService) List(ctx context.Context, req ListEventsRequest, now time.Time) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []domain.Event
	if req.Query != "" && s.index != nil {
		res, err := s.index.Search(ctx, search.SearchParams{
			Query: req.Query,
			Type:  string(req.Type),
			Limit: max(s.catalog.Len(), 1),
		})
		if err != nil {
			return nil, fmt.Errorf("search events: %w", err)
		}
		events = make([]domain.Event, 0, len(res.Hits))
		for _, hit := range res.Hits {
			e, err := s.catalog.GetByID(hit.ID)
			if err != nil {
				// Index and catalog can briefly disagree during a reload.
				continue
			}
			events = append(events, e)
		}
	} else {
		events = catalog.SortByPriority(s.catalog.All(), now)
		if req.Type != "" {
			events = catalog.FilterByType(events, req.Type)
		}
		if req.Query != "" {
			events = filterBySubstring(events, req.Query)
		}
	}

	if req.Status != "" {
		filtered := events[:0:0]
		for _, e := range events {
			if e.Status(now) == req.Status {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	return events, nil
}

// Search runs a relevance query against the catalog index.
func (s *EventService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if s.index == nil {
		return nil, domainerrors.Internal("search index not configured")
	}
	return s.index.Search(ctx, params)
}

// Replace swaps the catalog for events and rebuilds the search index.
func (s *EventService) Replace(_ context.Context, events []domain.Event, now time.Time) error {
	s.catalog.Replace(events)
	s.metrics.SetCatalogEvents(s.catalog.Len())

	if s.index != nil {
		if err := s.index.ReplaceAll(s.catalog.All()); err != nil {
			s.logger.Error("search reindex failed", "error", err)
			return fmt.Errorf("reindex catalog: %w", err)
		}
	}

	s.sse.Emit(sse.NewCatalogReloadedEvent(s.catalog.Len(), now))
	s.logger.Info("catalog replaced", "events", s.catalog.Len())
	return nil
}

func filterBySubstring(events []domain.Event, q string) []domain.Event {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), q) || strings.Contains(strings.ToLower(e.Game), q) {
			out = append(out, e)
		}
	}
	return out
}
