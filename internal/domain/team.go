package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Team limits on user-supplied text.
const (
	MaxTeamNameLength        = 30
	MaxTeamDescriptionLength = 200
)

// Team is a capacity-limited group scoped to one event.
type Team struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	LeaderID    string    `json:"leader_id,omitempty"`
	MaxMembers  int       `json:"max_members"`
	MinMembers  int       `json:"min_members"`
	MemberCount int       `json:"member_count"`
}

// IsFull reports whether no more members fit.
func (t *Team) IsFull() bool {
	return t.MemberCount >= t.MaxMembers
}

// IsEligible reports whether the team has enough members to be ranked.
func (t *Team) IsEligible() bool {
	return t.MemberCount >= t.MinMembers
}

// TeamMembership links a user to a team. A user holds at most one per event.
type TeamMembership struct {
	JoinedAt time.Time `json:"joined_at"`
	TeamID   string    `json:"team_id"`
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	IsLeader bool      `json:"is_leader"`
}

var teamNameFolder = cases.Fold()

// NormalizeTeamName returns the comparison key for a team name: trimmed,
// NFC-normalized and Unicode case-folded.
func NormalizeTeamName(name string) string {
	return teamNameFolder.String(norm.NFC.String(strings.TrimSpace(name)))
}
