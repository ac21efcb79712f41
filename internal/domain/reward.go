package domain

import "time"

// RewardKind classifies what a reward grants.
type RewardKind string

const (
	RewardKindPoints RewardKind = "points"
	RewardKindBadge  RewardKind = "badge"
	RewardKindTitle  RewardKind = "title"
	RewardKindItem   RewardKind = "item"
)

// RewardDescriptor is one entry of an event's reward list.
type RewardDescriptor struct {
	Kind   RewardKind `json:"kind" yaml:"kind"`
	Label  string     `json:"label" yaml:"label"`
	Points int        `json:"points,omitempty" yaml:"points"`
}

// Reward reasons carried on grants.
const (
	RewardReasonCompletion   = "event_completed"
	RewardReasonVerification = "submission_verified"
	RewardReasonPlacement    = "leaderboard_placement"
)

// VerificationPoints is granted to the owner the first time a submission is approved.
const VerificationPoints = 25

// RewardGrant is an intent to credit a user. Applying it to a balance happens elsewhere.
type RewardGrant struct {
	IssuedAt     time.Time  `json:"issued_at"`
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Kind         RewardKind `json:"kind"`
	Amount       int        `json:"amount,omitempty"`
	Descriptor   string     `json:"descriptor,omitempty"`
	Reason       string     `json:"reason"`
	EventID      string     `json:"event_id,omitempty"`
	SubmissionID string     `json:"submission_id,omitempty"`
}

// GrantFromDescriptor builds the grant for one catalog reward.
func GrantFromDescriptor(id, userID, eventID string, r RewardDescriptor, reason string, now time.Time) RewardGrant {
	return RewardGrant{
		ID:         id,
		UserID:     userID,
		Kind:       r.Kind,
		Amount:     r.Points,
		Descriptor: r.Label,
		Reason:     reason,
		EventID:    eventID,
		IssuedAt:   now,
	}
}
