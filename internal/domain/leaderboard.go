package domain

import "time"

// LeaderboardEntry is one ranked row. Entries are derived, never stored
// except as snapshots for change detection.
type LeaderboardEntry struct {
	CreatedAt    time.Time `json:"created_at"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	SubmissionID string    `json:"submission_id"`
	DisplayTime  string    `json:"display_time"`
	TeamID       string    `json:"team_id,omitempty"`
	PreviousRank *int      `json:"previous_rank,omitempty"`
	Rank         int       `json:"rank"`
	ParsedTimeMs int64     `json:"parsed_time_ms"`
	IsVerified   bool      `json:"is_verified"`
	IsLive       bool      `json:"is_live"`
	IsNewEntry   bool      `json:"is_new_entry"`
}

// RankDelta is positive when the entry moved up since the previous snapshot.
func (e *LeaderboardEntry) RankDelta() int {
	if e.PreviousRank == nil {
		return 0
	}
	return *e.PreviousRank - e.Rank
}

// LeaderboardSnapshot is a persisted ranking used as the next diff baseline.
type LeaderboardSnapshot struct {
	GeneratedAt time.Time          `json:"generated_at"`
	EventID     string             `json:"event_id"`
	Entries     []LeaderboardEntry `json:"entries"`
}

// TeamStanding is a ranked team total.
type TeamStanding struct {
	TeamID      string   `json:"team_id"`
	TeamName    string   `json:"team_name"`
	DisplayTime string   `json:"display_time"`
	Members     []string `json:"members"`
	Rank        int      `json:"rank"`
	TotalTimeMs int64    `json:"total_time_ms"`
}
