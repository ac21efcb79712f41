package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/store"
)

// submissionColumns is the ordered list of columns selected in submission
// queries. Must match the scan order in scanSubmission.
const submissionColumns = `id, user_id, username, game_id, event_id, type, content_type,
	size_bytes, url, blurhash, declared_result_time, title, comment, is_public,
	is_verified, status, likes, dislikes, reports, reviewed_by, reviewed_at,
	moderator_notes, first_approved_at, created_at, updated_at`

func scanSubmission(scanner interface{ Scan(dest ...any) error }) (*domain.MediaSubmission, error) {
	var m domain.MediaSubmission

	var (
		isPublic, isVerified        int
		reviewedAt, firstApprovedAt sql.NullString
		createdAt, updatedAt        string
	)

	err := scanner.Scan(
		&m.ID,
		&m.UserID,
		&m.Username,
		&m.GameID,
		&m.EventID,
		&m.Type,
		&m.ContentType,
		&m.SizeBytes,
		&m.URL,
		&m.BlurHash,
		&m.DeclaredResultTime,
		&m.Title,
		&m.Comment,
		&isPublic,
		&isVerified,
		&m.Status,
		&m.Votes.Likes,
		&m.Votes.Dislikes,
		&m.Reports,
		&m.ReviewedBy,
		&reviewedAt,
		&m.ModeratorNotes,
		&firstApprovedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.IsPublic = isPublic != 0
	m.IsVerified = isVerified != 0

	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if m.ReviewedAt, err = parseNullableTime(reviewedAt); err != nil {
		return nil, err
	}
	if m.FirstApprovedAt, err = parseNullableTime(firstApprovedAt); err != nil {
		return nil, err
	}

	return &m, nil
}

// CreateSubmission inserts a new submission.
// Returns store.ErrAlreadyExists on a duplicate id.
func (s *Store) CreateSubmission(ctx context.Context, m *domain.MediaSubmission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO media_submissions (`+submissionColumns+`) VALUES (`+submissionPlaceholders+`)`,
		submissionArgs(m)...)
	if err != nil {
		return mapConstraintErr(err)
	}
	return nil
}

// CreateSubmissionCapped inserts m only while its user has fewer than limit
// submissions in its event. Count and insert are one statement, so SQLite's
// write lock covers both and concurrent uploads cannot overshoot the limit.
// Returns store.ErrLimitReached when the user is at the limit.
func (s *Store) CreateSubmissionCapped(ctx context.Context, m *domain.MediaSubmission, limit int) error {
	args := append(submissionArgs(m), m.EventID, m.UserID, limit)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO media_submissions (`+submissionColumns+`)
		SELECT `+submissionPlaceholders+`
		WHERE (SELECT COUNT(*) FROM media_submissions WHERE event_id = ? AND user_id = ?) < ?`,
		args...)
	if err != nil {
		return mapConstraintErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	if n == 0 {
		return store.ErrLimitReached
	}
	return nil
}

// submissionPlaceholders binds one value per submissionColumns entry.
var submissionPlaceholders = strings.TrimSuffix(strings.Repeat("?, ", 25), ", ")

// submissionArgs lists m's values in submissionColumns order.
func submissionArgs(m *domain.MediaSubmission) []any {
	return []any{
		m.ID,
		m.UserID,
		m.Username,
		m.GameID,
		m.EventID,
		string(m.Type),
		m.ContentType,
		m.SizeBytes,
		m.URL,
		m.BlurHash,
		m.DeclaredResultTime,
		m.Title,
		m.Comment,
		boolToInt(m.IsPublic),
		boolToInt(m.IsVerified),
		string(m.Status),
		m.Votes.Likes,
		m.Votes.Dislikes,
		m.Reports,
		m.ReviewedBy,
		nullTimeString(m.ReviewedAt),
		m.ModeratorNotes,
		nullTimeString(m.FirstApprovedAt),
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	}
}

// GetSubmission returns a submission with viewerID's vote filled in.
// Returns store.ErrNotFound if the submission does not exist.
func (s *Store) GetSubmission(ctx context.Context, id, viewerID string) (*domain.MediaSubmission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM media_submissions WHERE id = ?`, id)

	m, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	if viewerID != "" {
		vote, err := s.userVote(ctx, s.db, id, viewerID)
		if err != nil {
			return nil, err
		}
		m.Votes.UserVote = vote
	}
	return m, nil
}

// ListSubmissions returns submissions matching filter, newest first, with
// viewerID's vote filled in.
func (s *Store) ListSubmissions(ctx context.Context, filter domain.SubmissionFilter, viewerID string) ([]*domain.MediaSubmission, error) {
	var (
		where []string
		args  []any
	)
	if filter.EventID != "" {
		where = append(where, "event_id = ?")
		args = append(args, filter.EventID)
	}
	if filter.GameID != "" {
		where = append(where, "game_id = ?")
		args = append(args, filter.GameID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.PublicOnly {
		where = append(where, "is_public = 1")
	}

	q := `SELECT ` + submissionColumns + ` FROM media_submissions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	subs, err := s.querySubmissions(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	if viewerID != "" && len(subs) > 0 {
		votes, err := s.userVotes(ctx, viewerID, subs)
		if err != nil {
			return nil, err
		}
		for _, m := range subs {
			m.Votes.UserVote = votes[m.ID]
		}
	}
	return subs, nil
}

// Query returns every submission attached to eventID in creation order.
// It is the leaderboard's data source.
func (s *Store) Query(ctx context.Context, eventID string) ([]*domain.MediaSubmission, error) {
	subs, err := s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM media_submissions WHERE event_id = ? ORDER BY created_at, id`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("query event submissions: %w", err)
	}
	return subs, nil
}

// CountUserEventSubmissions returns how many submissions userID holds for eventID.
func (s *Store) CountUserEventSubmissions(ctx context.Context, eventID, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_submissions WHERE event_id = ? AND user_id = ?`,
		eventID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// UpdateSubmission applies fn to the stored submission inside one
// transaction and writes back the moderation fields. The transaction writes
// before it reads, so it holds the database write lock for its whole life.
func (s *Store) UpdateSubmission(ctx context.Context, id string, fn func(m *domain.MediaSubmission) error) (*domain.MediaSubmission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := lockSubmission(ctx, tx, id); err != nil {
		return nil, err
	}

	m, err := scanSubmission(tx.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM media_submissions WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("read submission: %w", err)
	}

	if err := fn(m); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE media_submissions SET
			status = ?, is_verified = ?, is_public = ?, title = ?, comment = ?,
			reviewed_by = ?, reviewed_at = ?, moderator_notes = ?,
			first_approved_at = ?, updated_at = ?
		WHERE id = ?`,
		string(m.Status),
		boolToInt(m.IsVerified),
		boolToInt(m.IsPublic),
		m.Title,
		m.Comment,
		m.ReviewedBy,
		nullTimeString(m.ReviewedAt),
		m.ModeratorNotes,
		nullTimeString(m.FirstApprovedAt),
		formatTime(m.UpdatedAt),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update submission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return m, nil
}

// DeleteSubmission removes a submission together with its votes and reports.
// Returns store.ErrNotFound if nothing was deleted.
func (s *Store) DeleteSubmission(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM media_submissions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) querySubmissions(ctx context.Context, q string, args ...any) ([]*domain.MediaSubmission, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.MediaSubmission
	for rows.Next() {
		m, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, m)
	}
	return subs, rows.Err()
}

// lockSubmission performs a no-op write on the submission row so the
// transaction acquires the write lock before any read. Returns
// store.ErrNotFound when the row does not exist.
func lockSubmission(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `UPDATE media_submissions SET likes = likes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("lock submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("lock submission: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
