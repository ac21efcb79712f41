// Package search provides full-text search over the event catalog using Bleve.
package search

import "github.com/retroarena/eventengine/internal/domain"

// EventDocument is the indexed form of a catalog event.
type EventDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Game        string `json:"game"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	TeamEvent   bool   `json:"team_event"`
	StartUnix   int64  `json:"start"` // Unix millis
	EndUnix     int64  `json:"end"`   // Unix millis
}

// NewEventDocument converts a catalog event.
func NewEventDocument(e *domain.Event) *EventDocument {
	return &EventDocument{
		ID:          e.ID,
		Title:       e.Title,
		Game:        e.Game,
		Description: e.Description,
		Type:        string(e.Type),
		TeamEvent:   e.IsTeamEvent,
		StartUnix:   e.StartDate.UnixMilli(),
		EndUnix:     e.EndDate.UnixMilli(),
	}
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *EventDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"game":       d.Game,
		"type":       d.Type,
		"team_event": d.TeamEvent,
		"start":      d.StartUnix,
		"end":        d.EndUnix,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	return m
}
