package domain

import (
	"slices"
	"time"
)

// Participation is a user's enrollment in one event. It is identified by
// (EventID, UserID) and is never deleted.
type Participation struct {
	JoinedAt    time.Time          `json:"joined_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	EventID     string             `json:"event_id"`
	UserID      string             `json:"user_id"`
	Username    string             `json:"username"`
	Rewards     []RewardDescriptor `json:"rewards,omitempty"`
	Progress    int                `json:"progress"`
	IsCompleted bool               `json:"is_completed"`
}

// AdvanceProgress clamps progress to [current, 100]. Completed participations
// are left untouched. Returns whether the value changed.
func (p *Participation) AdvanceProgress(progress int) bool {
	if p.IsCompleted {
		return false
	}
	next := min(max(progress, p.Progress), 100)
	if next == p.Progress {
		return false
	}
	p.Progress = next
	return true
}

// Complete marks the participation done and snapshots the rewards. Returns
// false if it was already complete.
func (p *Participation) Complete(now time.Time, rewards []RewardDescriptor) bool {
	if p.IsCompleted {
		return false
	}
	p.Progress = 100
	p.IsCompleted = true
	p.CompletedAt = &now
	p.Rewards = slices.Clone(rewards)
	return true
}

// IsLive reports whether the participant is still running the event.
func (p *Participation) IsLive() bool {
	return !p.IsCompleted
}
