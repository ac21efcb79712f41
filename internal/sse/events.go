// Package sse implements Server-Sent Events for live event, team and leaderboard updates.
package sse

import (
	"time"

	"github.com/retroarena/eventengine/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"

	// EventCatalogReloaded is sent after the event catalog file was reloaded.
	EventCatalogReloaded EventType = "catalog.reloaded"

	EventParticipationJoined    EventType = "participation.joined"
	EventParticipationCompleted EventType = "participation.completed"

	EventTeamCreated EventType = "team.created"
	EventTeamUpdated EventType = "team.updated"

	EventSubmissionCreated  EventType = "submission.created"
	EventSubmissionReviewed EventType = "submission.reviewed"
	EventSubmissionDeleted  EventType = "submission.deleted"
	// EventSubmissionReported is only sent to moderators.
	EventSubmissionReported EventType = "submission.reported"

	EventLeaderboardUpdated EventType = "leaderboard.updated"

	// EventRewardGranted is only sent to the receiving user.
	EventRewardGranted EventType = "reward.granted"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// Filtering fields. Empty means "broadcast to all".
	UserID  string `json:"-"`
	EventID string `json:"-"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// CatalogEventData is the data payload for catalog reloads.
type CatalogEventData struct {
	EventCount int `json:"event_count"`
}

// ParticipationEventData is the data payload for participation events.
type ParticipationEventData struct {
	Participation *domain.Participation `json:"participation"`
}

// TeamEventData is the data payload for team events.
type TeamEventData struct {
	Team *domain.Team `json:"team"`
}

// SubmissionEventData is the data payload for submission events.
type SubmissionEventData struct {
	Submission *domain.MediaSubmission `json:"submission"`
}

// SubmissionDeletedEventData is the data payload for submission delete events.
type SubmissionDeletedEventData struct {
	SubmissionID string `json:"submission_id"`
}

// SubmissionReportedEventData is the data payload for report events.
type SubmissionReportedEventData struct {
	SubmissionID string `json:"submission_id"`
	Reason       string `json:"reason"`
	Reports      int    `json:"reports"`
}

// LeaderboardEventData is the data payload for leaderboard updates.
type LeaderboardEventData struct {
	Snapshot *domain.LeaderboardSnapshot `json:"snapshot"`
}

// RewardEventData is the data payload for reward grants.
type RewardEventData struct {
	Grant domain.RewardGrant `json:"grant"`
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}

// NewCatalogReloadedEvent creates a catalog reload event.
func NewCatalogReloadedEvent(count int, at time.Time) Event {
	return Event{
		Type:      EventCatalogReloaded,
		Data:      CatalogEventData{EventCount: count},
		Timestamp: at,
	}
}

// NewParticipationJoinedEvent creates a join event scoped to the event.
func NewParticipationJoinedEvent(p *domain.Participation, at time.Time) Event {
	return Event{
		Type:      EventParticipationJoined,
		Data:      ParticipationEventData{Participation: p},
		Timestamp: at,
		EventID:   p.EventID,
	}
}

// NewParticipationCompletedEvent creates a completion event scoped to the event.
func NewParticipationCompletedEvent(p *domain.Participation, at time.Time) Event {
	return Event{
		Type:      EventParticipationCompleted,
		Data:      ParticipationEventData{Participation: p},
		Timestamp: at,
		EventID:   p.EventID,
	}
}

// NewTeamCreatedEvent creates a team creation event.
func NewTeamCreatedEvent(t *domain.Team, at time.Time) Event {
	return Event{
		Type:      EventTeamCreated,
		Data:      TeamEventData{Team: t},
		Timestamp: at,
		EventID:   t.EventID,
	}
}

// NewTeamUpdatedEvent creates a team membership change event.
func NewTeamUpdatedEvent(t *domain.Team, at time.Time) Event {
	return Event{
		Type:      EventTeamUpdated,
		Data:      TeamEventData{Team: t},
		Timestamp: at,
		EventID:   t.EventID,
	}
}

// NewSubmissionCreatedEvent creates a submission event.
func NewSubmissionCreatedEvent(m *domain.MediaSubmission, at time.Time) Event {
	return Event{
		Type:      EventSubmissionCreated,
		Data:      SubmissionEventData{Submission: m},
		Timestamp: at,
		EventID:   m.EventID,
	}
}

// NewSubmissionReviewedEvent creates a moderation decision event.
func NewSubmissionReviewedEvent(m *domain.MediaSubmission, at time.Time) Event {
	return Event{
		Type:      EventSubmissionReviewed,
		Data:      SubmissionEventData{Submission: m},
		Timestamp: at,
		EventID:   m.EventID,
	}
}

// NewSubmissionDeletedEvent creates a submission delete event.
func NewSubmissionDeletedEvent(submissionID, eventID string, at time.Time) Event {
	return Event{
		Type:      EventSubmissionDeleted,
		Data:      SubmissionDeletedEventData{SubmissionID: submissionID},
		Timestamp: at,
		EventID:   eventID,
	}
}

// NewSubmissionReportedEvent creates a moderator-only report event.
func NewSubmissionReportedEvent(submissionID, reason string, reports int, at time.Time) Event {
	return Event{
		Type: EventSubmissionReported,
		Data: SubmissionReportedEventData{
			SubmissionID: submissionID,
			Reason:       reason,
			Reports:      reports,
		},
		Timestamp: at,
	}
}

// NewLeaderboardUpdatedEvent creates a leaderboard snapshot event.
func NewLeaderboardUpdatedEvent(snap *domain.LeaderboardSnapshot) Event {
	return Event{
		Type:      EventLeaderboardUpdated,
		Data:      LeaderboardEventData{Snapshot: snap},
		Timestamp: snap.GeneratedAt,
		EventID:   snap.EventID,
	}
}

// NewRewardGrantedEvent creates a reward event delivered only to its recipient.
func NewRewardGrantedEvent(g domain.RewardGrant) Event {
	return Event{
		Type:      EventRewardGranted,
		Data:      RewardEventData{Grant: g},
		Timestamp: g.IssuedAt,
		UserID:    g.UserID,
	}
}
