package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/retroarena/eventengine/internal/domain"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ApplyVote toggles userID's vote on a submission and returns the resulting
// tallies with the user's current choice. Repeating a choice clears it and
// the opposite choice moves the vote between tallies.
func (s *Store) ApplyVote(ctx context.Context, submissionID, userID string, choice domain.VoteChoice, now time.Time) (domain.Votes, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Votes{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := lockSubmission(ctx, tx, submissionID); err != nil {
		return domain.Votes{}, err
	}

	prev, err := s.userVote(ctx, tx, submissionID, userID)
	if err != nil {
		return domain.Votes{}, err
	}

	next, dLikes, dDislikes := domain.VoteTransition(prev, choice)

	switch {
	case next == domain.VoteNone:
		_, err = tx.ExecContext(ctx,
			`DELETE FROM media_votes WHERE submission_id = ? AND user_id = ?`,
			submissionID, userID)
	case prev == domain.VoteNone:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO media_votes (submission_id, user_id, choice, created_at) VALUES (?, ?, ?, ?)`,
			submissionID, userID, string(next), formatTime(now))
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE media_votes SET choice = ? WHERE submission_id = ? AND user_id = ?`,
			string(next), submissionID, userID)
	}
	if err != nil {
		return domain.Votes{}, fmt.Errorf("write vote: %w", mapConstraintErr(err))
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE media_submissions
		SET likes = likes + ?, dislikes = dislikes + ?
		WHERE id = ?`,
		dLikes, dDislikes, submissionID)
	if err != nil {
		return domain.Votes{}, fmt.Errorf("update tallies: %w", err)
	}

	votes := domain.Votes{UserVote: next}
	err = tx.QueryRowContext(ctx,
		`SELECT likes, dislikes FROM media_submissions WHERE id = ?`, submissionID,
	).Scan(&votes.Likes, &votes.Dislikes)
	if err != nil {
		return domain.Votes{}, fmt.Errorf("read tallies: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Votes{}, fmt.Errorf("commit: %w", err)
	}
	return votes, nil
}

func (s *Store) userVote(ctx context.Context, q querier, submissionID, userID string) (domain.VoteChoice, error) {
	var choice string
	err := q.QueryRowContext(ctx,
		`SELECT choice FROM media_votes WHERE submission_id = ? AND user_id = ?`,
		submissionID, userID).Scan(&choice)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VoteNone, nil
	}
	if err != nil {
		return domain.VoteNone, fmt.Errorf("get vote: %w", err)
	}
	return domain.VoteChoice(choice), nil
}

// userVotes returns userID's votes across subs keyed by submission id.
func (s *Store) userVotes(ctx context.Context, userID string, subs []*domain.MediaSubmission) (map[string]domain.VoteChoice, error) {
	placeholders := make([]string, len(subs))
	args := make([]any, 0, len(subs)+1)
	args = append(args, userID)
	for i, m := range subs {
		placeholders[i] = "?"
		args = append(args, m.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT submission_id, choice FROM media_votes WHERE user_id = ? AND submission_id IN (`+
			strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	votes := make(map[string]domain.VoteChoice, len(subs))
	for rows.Next() {
		var id, choice string
		if err := rows.Scan(&id, &choice); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes[id] = domain.VoteChoice(choice)
	}
	return votes, rows.Err()
}
