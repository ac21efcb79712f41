package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/retroarena/eventengine/internal/domain"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/id"
	"github.com/retroarena/eventengine/internal/media/blobs"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/rewards"
	"github.com/retroarena/eventengine/internal/sse"
	"github.com/retroarena/eventengine/internal/store"
)

// MaxReportReasonLength bounds a report reason.
const MaxReportReasonLength = 500

// SubmissionStore is the persistence the moderation pipeline needs.
// *sqlite.Store satisfies it.
type SubmissionStore interface {
	GetSubmission(ctx context.Context, id, viewerID string) (*domain.MediaSubmission, error)
	ListSubmissions(ctx context.Context, filter domain.SubmissionFilter, viewerID string) ([]*domain.MediaSubmission, error)
	ApplyVote(ctx context.Context, submissionID, userID string, choice domain.VoteChoice, now time.Time) (domain.Votes, error)
	AddReport(ctx context.Context, r *domain.MediaReport) (int, error)
	ListReports(ctx context.Context, submissionID string) ([]domain.MediaReport, error)
	UpdateSubmission(ctx context.Context, id string, fn func(m *domain.MediaSubmission) error) (*domain.MediaSubmission, error)
	DeleteSubmission(ctx context.Context, id string) error
}

// ModerationService handles votes, reports, reviews and deletion of submissions.
type ModerationService struct {
	submissions SubmissionStore
	blobs       blobs.Storage
	emitter     rewards.Emitter
	sse         Broadcaster
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewModerationService creates a new moderation service.
func NewModerationService(
	submissions SubmissionStore,
	blobStorage blobs.Storage,
	emitter rewards.Emitter,
	b Broadcaster,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		submissions: submissions,
		blobs:       blobStorage,
		emitter:     emitter,
		sse:         broadcasterOrNoop(b),
		metrics:     m,
		logger:      logger,
	}
}

// Get returns a submission with viewerID's vote.
func (s *ModerationService) Get(ctx context.Context, submissionID, viewerID string) (*domain.MediaSubmission, error) {
	m, err := s.submissions.GetSubmission(ctx, submissionID, viewerID)
	if err != nil {
		return nil, mapSubmissionErr(err, submissionID)
	}
	return m, nil
}

// List returns submissions matching filter, newest first.
func (s *ModerationService) List(ctx context.Context, filter domain.SubmissionFilter, viewerID string) ([]*domain.MediaSubmission, error) {
	subs, err := s.submissions.ListSubmissions(ctx, filter, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// Vote casts or toggles userID's vote. Voting the same choice twice clears it.
func (s *ModerationService) Vote(ctx context.Context, submissionID, userID string, choice domain.VoteChoice, now time.Time) (domain.Votes, error) {
	if !choice.Valid() {
		return domain.Votes{}, domainerrors.Validationf("vote must be %q or %q", domain.VoteLike, domain.VoteDislike)
	}

	votes, err := s.submissions.ApplyVote(ctx, submissionID, userID, choice, now)
	if err != nil {
		return domain.Votes{}, mapSubmissionErr(err, submissionID)
	}

	s.metrics.IncVote(string(choice))
	return votes, nil
}

// Report records a report against a submission. The moderation status is
// left alone; moderators see the report on the live stream.
func (s *ModerationService) Report(ctx context.Context, submissionID, userID, reason string, now time.Time) (int, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return 0, domainerrors.MissingRequiredField("reason")
	}
	if len(reason) > MaxReportReasonLength {
		return 0, domainerrors.Validationf("reason must not exceed %d characters", MaxReportReasonLength)
	}

	reportID, err := id.Generate(id.PrefixReport)
	if err != nil {
		return 0, fmt.Errorf("generate report ID: %w", err)
	}

	reports, err := s.submissions.AddReport(ctx, &domain.MediaReport{
		ID:           reportID,
		SubmissionID: submissionID,
		UserID:       userID,
		Reason:       reason,
		CreatedAt:    now,
	})
	if err != nil {
		return 0, mapSubmissionErr(err, submissionID)
	}

	s.sse.Emit(sse.NewSubmissionReportedEvent(submissionID, reason, reports, now))
	s.logger.Info("submission reported",
		"submission_id", submissionID,
		"user_id", userID,
		"reports", reports,
	)
	return reports, nil
}

// Reports returns the reports filed against a submission, oldest first.
func (s *ModerationService) Reports(ctx context.Context, submissionID string) ([]domain.MediaReport, error) {
	if _, err := s.Get(ctx, submissionID, ""); err != nil {
		return nil, err
	}
	reports, err := s.submissions.ListReports(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// SetVerification approves or rejects a submission. The first approval a
// submission ever receives grants its owner verification points.
func (s *ModerationService) SetVerification(ctx context.Context, submissionID, moderatorID string, verified bool, notes string, now time.Time) (*domain.MediaSubmission, error) {
	var firstApproval bool
	m, err := s.submissions.UpdateSubmission(ctx, submissionID, func(m *domain.MediaSubmission) error {
		firstApproval = m.SetVerification(verified, moderatorID, strings.TrimSpace(notes), now)
		return nil
	})
	if err != nil {
		return nil, mapSubmissionErr(err, submissionID)
	}

	s.metrics.IncModeration(string(m.Status))
	s.sse.Emit(sse.NewSubmissionReviewedEvent(m, now))
	s.logger.Info("submission reviewed",
		"submission_id", submissionID,
		"moderator_id", moderatorID,
		"status", m.Status,
	)

	if firstApproval {
		grant := domain.RewardGrant{
			ID:           newGrantID(now),
			UserID:       m.UserID,
			Kind:         domain.RewardKindPoints,
			Amount:       domain.VerificationPoints,
			Reason:       domain.RewardReasonVerification,
			EventID:      m.EventID,
			SubmissionID: m.ID,
			IssuedAt:     now,
		}
		emitGrants(ctx, s.emitter, s.logger, []domain.RewardGrant{grant})
	}
	return m, nil
}

// Delete removes requesterID's own submission and releases its bytes. The
// row is gone even when releasing the bytes fails.
func (s *ModerationService) Delete(ctx context.Context, submissionID, requesterID string, now time.Time) error {
	m, err := s.submissions.GetSubmission(ctx, submissionID, "")
	if err != nil {
		return mapSubmissionErr(err, submissionID)
	}
	if m.UserID != requesterID {
		return domainerrors.ErrNotOwner
	}

	if err := s.submissions.DeleteSubmission(ctx, submissionID); err != nil {
		return mapSubmissionErr(err, submissionID)
	}
	s.sse.Emit(sse.NewSubmissionDeletedEvent(submissionID, m.EventID, now))

	if err := s.blobs.Release(ctx, m.URL); err != nil {
		s.logger.Warn("release submission bytes failed",
			"submission_id", submissionID,
			"ref", m.URL,
			"error", err,
		)
		return domainerrors.CollaboratorFailure("byte storage", err)
	}

	s.logger.Info("submission deleted", "submission_id", submissionID, "user_id", requesterID)
	return nil
}

func mapSubmissionErr(err error, submissionID string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.SubmissionNotFound(submissionID)
	}
	return fmt.Errorf("submission %s: %w", submissionID, err)
}
