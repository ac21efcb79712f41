package domain

import (
	"strings"
	"time"

	"github.com/retroarena/eventengine/internal/timewindow"
)

// Catalog defaults applied at ingestion when an event leaves them unset.
const (
	DefaultMaxSubmissions = 3
	DefaultMaxTeamSize    = 4
	DefaultMinTeamSize    = 1
)

// EventType is the closed set of event formats.
type EventType string

const (
	EventTypeSpeedrun    EventType = "speedrun"
	EventTypeTimeTrial   EventType = "time-trial"
	EventTypeChallenge   EventType = "challenge"
	EventTypeCollection  EventType = "collection"
	EventTypeAnniversary EventType = "anniversary"
)

// ParseEventType normalizes catalog spellings such as "Time Trial" or "time_trial".
func ParseEventType(s string) (EventType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "-", "_", "-").Replace(normalized)

	switch t := EventType(normalized); t {
	case EventTypeSpeedrun, EventTypeTimeTrial, EventTypeChallenge, EventTypeCollection, EventTypeAnniversary:
		return t, true
	}
	return "", false
}

// EventStatus is derived from the activity window and never stored.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusActive    EventStatus = "active"
	EventStatusCompleted EventStatus = "completed"
)

// Event is a catalog entry. Events are immutable once loaded; activity is
// always recomputed against a caller-supplied clock.
type Event struct {
	StartDate        time.Time          `json:"start_date" yaml:"start_date"`
	EndDate          time.Time          `json:"end_date" yaml:"end_date"`
	ID               string             `json:"id" yaml:"id"`
	Title            string             `json:"title" yaml:"title"`
	Game             string             `json:"game" yaml:"game"`
	Description      string             `json:"description,omitempty" yaml:"description"`
	Type             EventType          `json:"type" yaml:"type"`
	Rewards          []RewardDescriptor `json:"rewards,omitempty" yaml:"rewards"`
	IsTeamEvent      bool               `json:"is_team_event" yaml:"is_team_event"`
	MinTeamSize      int                `json:"min_team_size,omitempty" yaml:"min_team_size"`
	MaxTeamSize      int                `json:"max_team_size,omitempty" yaml:"max_team_size"`
	MaxSubmissions   int                `json:"max_submissions" yaml:"max_submissions"`
	ParticipantCount int                `json:"participant_count" yaml:"participant_count"`
}

// Window returns the event's activity window.
func (e *Event) Window() timewindow.Window {
	return timewindow.Window{Start: e.StartDate, End: e.EndDate}
}

// IsActive reports whether the event accepts joins and captures at now.
func (e *Event) IsActive(now time.Time) bool {
	return timewindow.IsActive(e.Window(), now)
}

// IsCompleted reports whether the event has ended at now.
func (e *Event) IsCompleted(now time.Time) bool {
	return timewindow.IsCompleted(e.Window(), now)
}

// Status derives the lifecycle status at now.
func (e *Event) Status(now time.Time) EventStatus {
	w := e.Window()
	switch {
	case timewindow.IsUpcoming(w, now):
		return EventStatusUpcoming
	case timewindow.IsActive(w, now):
		return EventStatusActive
	default:
		return EventStatusCompleted
	}
}

// Countdown returns the time to the next boundary at now.
func (e *Event) Countdown(now time.Time) timewindow.Countdown {
	return timewindow.CountdownTo(e.Window(), now)
}

// ApplyDefaults fills unset limits with catalog defaults.
func (e *Event) ApplyDefaults() {
	if e.MaxSubmissions <= 0 {
		e.MaxSubmissions = DefaultMaxSubmissions
	}
	if e.IsTeamEvent {
		if e.MaxTeamSize <= 0 {
			e.MaxTeamSize = DefaultMaxTeamSize
		}
		if e.MinTeamSize <= 0 {
			e.MinTeamSize = DefaultMinTeamSize
		}
	}
}
