package sqlite

import (
	"context"
	"fmt"

	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/store"
)

// AddReport records a report and bumps the submission's report counter in
// one transaction. It returns the new counter value.
func (s *Store) AddReport(ctx context.Context, r *domain.MediaReport) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		`UPDATE media_submissions SET reports = reports + 1 WHERE id = ?`, r.SubmissionID)
	if err != nil {
		return 0, fmt.Errorf("bump reports: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO media_reports (id, submission_id, user_id, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.SubmissionID, r.UserID, r.Reason, formatTime(r.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", mapConstraintErr(err))
	}

	var reports int
	if err := tx.QueryRowContext(ctx,
		`SELECT reports FROM media_submissions WHERE id = ?`, r.SubmissionID).Scan(&reports); err != nil {
		return 0, fmt.Errorf("read reports: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return reports, nil
}

// ListReports returns the reports filed against a submission, oldest first.
func (s *Store) ListReports(ctx context.Context, submissionID string) ([]domain.MediaReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, submission_id, user_id, reason, created_at FROM media_reports
		 WHERE submission_id = ? ORDER BY created_at, id`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.MediaReport
	for rows.Next() {
		var (
			r         domain.MediaReport
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.SubmissionID, &r.UserID, &r.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
