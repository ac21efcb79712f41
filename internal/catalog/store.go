// Package catalog holds the read-only event catalog and the collaborators
// that ingest it from disk.
package catalog

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/retroarena/eventengine/internal/domain"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
)

// Store is the in-memory catalog. Readers always see a complete catalog;
// Replace swaps it atomically.
type Store struct {
	mu     sync.RWMutex
	events []domain.Event
	byID   map[string]int
}

// NewStore creates a store seeded with events.
func NewStore(events []domain.Event) *Store {
	s := &Store{}
	s.Replace(events)
	return s
}

// Replace swaps in a new catalog. The slice is copied.
func (s *Store) Replace(events []domain.Event) {
	cloned := slices.Clone(events)
	byID := make(map[string]int, len(cloned))
	for i, e := range cloned {
		byID[e.ID] = i
	}

	s.mu.Lock()
	s.events = cloned
	s.byID = byID
	s.mu.Unlock()
}

// GetByID returns the event or an EVENT_NOT_FOUND error.
func (s *Store) GetByID(id string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return domain.Event{}, domainerrors.EventNotFound(id)
	}
	return s.events[i], nil
}

// All returns the catalog in catalog order.
func (s *Store) All() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Len returns the number of events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// ListActive returns events active at now, in catalog order.
func (s *Store) ListActive(now time.Time) []domain.Event {
	return s.filter(func(e *domain.Event) bool { return e.Status(now) == domain.EventStatusActive })
}

// ListUpcoming returns events that have not started at now, in catalog order.
func (s *Store) ListUpcoming(now time.Time) []domain.Event {
	return s.filter(func(e *domain.Event) bool { return e.Status(now) == domain.EventStatusUpcoming })
}

// ListCompleted returns events that ended at or before now, in catalog order.
func (s *Store) ListCompleted(now time.Time) []domain.Event {
	return s.filter(func(e *domain.Event) bool { return e.Status(now) == domain.EventStatusCompleted })
}

func (s *Store) filter(keep func(*domain.Event) bool) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, 0, len(s.events))
	for i := range s.events {
		if keep(&s.events[i]) {
			out = append(out, s.events[i])
		}
	}
	return out
}

// FilterByType keeps events of type t, preserving order.
func FilterByType(events []domain.Event, t domain.EventType) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var statusPriority = map[domain.EventStatus]int{
	domain.EventStatusActive:    0,
	domain.EventStatusUpcoming:  1,
	domain.EventStatusCompleted: 2,
}

// SortByPriority returns a copy ordered active, upcoming, completed, each
// group by start date ascending.
func SortByPriority(events []domain.Event, now time.Time) []domain.Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b domain.Event) int {
		return cmp.Or(
			cmp.Compare(statusPriority[a.Status(now)], statusPriority[b.Status(now)]),
			a.StartDate.Compare(b.StartDate),
		)
	})
	return out
}
