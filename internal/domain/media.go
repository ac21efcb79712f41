package domain

import (
	"strings"
	"time"
)

// Submission text limits.
const (
	MaxSubmissionTitleLength   = 100
	MaxSubmissionCommentLength = 500
)

// MediaType is the kind of proof attached to a submission.
type MediaType string

const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeVideo MediaType = "video"
)

var allowedContentTypes = map[string]MediaType{
	"image/jpeg": MediaTypePhoto,
	"image/png":  MediaTypePhoto,
	"image/gif":  MediaTypePhoto,
	"image/webp": MediaTypePhoto,
	"video/mp4":  MediaTypeVideo,
	"video/webm": MediaTypeVideo,
	"video/ogg":  MediaTypeVideo,
}

// MediaTypeForContentType maps an allowed MIME type to its media type.
// Parameters such as "; codecs=vp9" are ignored.
func MediaTypeForContentType(contentType string) (MediaType, bool) {
	base, _, _ := strings.Cut(contentType, ";")
	t, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(base))]
	return t, ok
}

// SubmissionStatus is the moderation state.
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// VoteChoice is a single user's vote. The empty value means no vote.
type VoteChoice string

const (
	VoteNone    VoteChoice = ""
	VoteLike    VoteChoice = "like"
	VoteDislike VoteChoice = "dislike"
)

// Valid reports whether c is a castable choice.
func (c VoteChoice) Valid() bool {
	return c == VoteLike || c == VoteDislike
}

// Votes holds the tallies plus the viewer's own vote when known.
type Votes struct {
	UserVote VoteChoice `json:"user_vote,omitempty"`
	Likes    int        `json:"likes"`
	Dislikes int        `json:"dislikes"`
}

// VoteTransition computes the next vote for a user and the tally deltas.
// Casting the same choice again clears it; the other choice moves it.
func VoteTransition(prev, choice VoteChoice) (next VoteChoice, likes, dislikes int) {
	if prev == choice {
		next = VoteNone
	} else {
		next = choice
	}

	delta := func(c VoteChoice, sign int) {
		switch c {
		case VoteLike:
			likes += sign
		case VoteDislike:
			dislikes += sign
		}
	}
	delta(prev, -1)
	delta(next, +1)
	return next, likes, dislikes
}

// MediaSubmission is a captured or uploaded proof of a declared result.
type MediaSubmission struct {
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	ReviewedAt         *time.Time       `json:"reviewed_at,omitempty"`
	FirstApprovedAt    *time.Time       `json:"-"`
	ID                 string           `json:"id"`
	UserID             string           `json:"user_id"`
	Username           string           `json:"username"`
	GameID             string           `json:"game_id"`
	EventID            string           `json:"event_id,omitempty"`
	Type               MediaType        `json:"type"`
	ContentType        string           `json:"content_type"`
	URL                string           `json:"url"`
	BlurHash           string           `json:"blurhash,omitempty"`
	DeclaredResultTime string           `json:"declared_result_time"`
	Title              string           `json:"title,omitempty"`
	Comment            string           `json:"comment,omitempty"`
	Status             SubmissionStatus `json:"status"`
	ReviewedBy         string           `json:"reviewed_by,omitempty"`
	ModeratorNotes     string           `json:"moderator_notes,omitempty"`
	Votes              Votes            `json:"votes"`
	SizeBytes          int64            `json:"size_bytes"`
	Reports            int              `json:"reports"`
	IsPublic           bool             `json:"is_public"`
	IsVerified         bool             `json:"is_verified"`
}

// SetVerification moves the submission to approved or rejected and keeps
// IsVerified in step with the status. Returns true only the first time the
// submission is ever approved.
func (m *MediaSubmission) SetVerification(verified bool, moderatorID, notes string, now time.Time) bool {
	firstApproval := verified && m.FirstApprovedAt == nil

	if verified {
		m.Status = SubmissionStatusApproved
		if firstApproval {
			m.FirstApprovedAt = &now
		}
	} else {
		m.Status = SubmissionStatusRejected
	}
	m.IsVerified = m.Status == SubmissionStatusApproved
	m.ReviewedBy = moderatorID
	m.ReviewedAt = &now
	m.ModeratorNotes = notes
	m.UpdatedAt = now
	return firstApproval
}

// MediaDraft is an unaccepted submission as supplied by a caller.
type MediaDraft struct {
	UserID             string    `json:"user_id"`
	Username           string    `json:"username"`
	GameID             string    `json:"game_id"`
	EventID            string    `json:"event_id,omitempty"`
	Type               MediaType `json:"type,omitempty"`
	ContentType        string    `json:"content_type"`
	DeclaredResultTime string    `json:"declared_result_time"`
	Title              string    `json:"title,omitempty" validate:"max=100,nocontrol"`
	Comment            string    `json:"comment,omitempty" validate:"max=500,nocontrol"`
	SizeBytes          int64     `json:"size_bytes"`
	IsPublic           bool      `json:"is_public"`
}

// MediaReport is one user's report against a submission.
type MediaReport struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	UserID       string    `json:"user_id"`
	Reason       string    `json:"reason"`
}

// SubmissionFilter narrows submission listings. Zero fields match everything.
type SubmissionFilter struct {
	EventID    string
	GameID     string
	UserID     string
	PublicOnly bool
	Limit      int
}
