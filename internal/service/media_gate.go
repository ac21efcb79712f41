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
	"github.com/retroarena/eventengine/internal/media/images"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/sse"
	"github.com/retroarena/eventengine/internal/store"
	"github.com/retroarena/eventengine/internal/validation"
)

// DefaultMaxUploadBytes is the upload limit when none is configured.
const DefaultMaxUploadBytes int64 = 100 << 20

// SubmissionWriter persists accepted submissions. *sqlite.Store satisfies it.
type SubmissionWriter interface {
	CreateSubmission(ctx context.Context, m *domain.MediaSubmission) error
	// CreateSubmissionCapped inserts m unless its user already holds limit
	// submissions in the event, failing with store.ErrLimitReached.
	CreateSubmissionCapped(ctx context.Context, m *domain.MediaSubmission, limit int) error
	CountUserEventSubmissions(ctx context.Context, eventID, userID string) (int, error)
}

// MediaGate decides whether a result may be captured and admits submissions.
type MediaGate struct {
	events      EventLookup
	ledger      *store.Store
	submissions SubmissionWriter
	blobs       blobs.Storage
	validator   *validation.Validator
	maxBytes    int64
	sse         Broadcaster
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// MediaGateConfig holds the gate's collaborators.
type MediaGateConfig struct {
	Events      EventLookup
	Ledger      *store.Store
	Submissions SubmissionWriter
	Blobs       blobs.Storage
	Validator   *validation.Validator
	MaxBytes    int64
	SSE         Broadcaster
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// NewMediaGate creates a new media gate.
func NewMediaGate(cfg MediaGateConfig) *MediaGate {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxUploadBytes
	}
	if cfg.Validator == nil {
		cfg.Validator = validation.New()
	}
	return &MediaGate{
		events:      cfg.Events,
		ledger:      cfg.Ledger,
		submissions: cfg.Submissions,
		blobs:       cfg.Blobs,
		validator:   cfg.Validator,
		maxBytes:    cfg.MaxBytes,
		sse:         broadcasterOrNoop(cfg.SSE),
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// MaxBytes returns the configured upload limit.
func (g *MediaGate) MaxBytes() int64 {
	return g.maxBytes
}

// CaptureBlockReason returns why a capture for eventID is refused at now, or
// nil when it is allowed. Captures outside any event are always allowed.
func (g *MediaGate) CaptureBlockReason(eventID string, now time.Time) error {
	if eventID == "" {
		return nil
	}
	event, err := g.events.GetByID(eventID)
	if err != nil {
		return err
	}
	if !event.IsActive(now) {
		return domainerrors.EventNotActive(eventID)
	}
	return nil
}

// CanCapture reports whether a capture for eventID is allowed at now.
func (g *MediaGate) CanCapture(eventID string, now time.Time) bool {
	return g.CaptureBlockReason(eventID, now) == nil
}

// Validate checks a draft without touching storage. On success the draft's
// Type is filled in from its content type when it was left empty.
func (g *MediaGate) Validate(draft *domain.MediaDraft) error {
	if strings.TrimSpace(draft.DeclaredResultTime) == "" {
		return domainerrors.MissingRequiredField("declaredResultTime")
	}
	if strings.TrimSpace(draft.GameID) == "" {
		return domainerrors.MissingRequiredField("gameId")
	}
	if draft.SizeBytes > g.maxBytes {
		return domainerrors.FileTooLarge(draft.SizeBytes, g.maxBytes)
	}

	inferred, ok := domain.MediaTypeForContentType(draft.ContentType)
	if !ok || (draft.Type != "" && draft.Type != inferred) {
		return domainerrors.UnsupportedMediaType(draft.ContentType)
	}
	draft.Type = inferred

	return g.validator.Validate(draft)
}

// Accept admits a submission: it re-runs the capture gate and validation,
// enforces participation and the per-event limit, stores the bytes and
// persists a pending submission. Stored bytes are released if persisting fails.
func (g *MediaGate) Accept(ctx context.Context, draft domain.MediaDraft, data []byte, now time.Time) (*domain.MediaSubmission, error) {
	sub, err := g.accept(ctx, draft, data, now)
	if err != nil {
		var de *domainerrors.Error
		if errors.As(err, &de) {
			g.metrics.IncSubmissionRefused(string(de.Code))
		}
		return nil, err
	}
	g.metrics.IncSubmissionAccepted(string(sub.Type))
	return sub, nil
}

func (g *MediaGate) accept(ctx context.Context, draft domain.MediaDraft, data []byte, now time.Time) (*domain.MediaSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	draft.SizeBytes = int64(len(data))
	if err := g.CaptureBlockReason(draft.EventID, now); err != nil {
		return nil, err
	}
	if err := g.Validate(&draft); err != nil {
		return nil, err
	}

	var limit int
	if draft.EventID != "" {
		var err error
		if limit, err = g.checkEventQuota(ctx, draft); err != nil {
			return nil, err
		}
	}

	ref, err := g.blobs.Store(ctx, data, draft.ContentType, draft.GameID)
	if err != nil {
		return nil, domainerrors.CollaboratorFailure("byte storage", err)
	}

	var hash string
	if draft.Type == domain.MediaTypePhoto {
		info, err := images.Inspect(data)
		switch {
		case err != nil:
			g.logger.Warn("photo inspection failed", "game_id", draft.GameID, "error", err)
		default:
			hash = info.BlurHash
			if !strings.EqualFold(info.ContentType(), draft.ContentType) {
				g.logger.Warn("photo content type mismatch",
					"game_id", draft.GameID,
					"declared", draft.ContentType,
					"decoded", info.ContentType(),
				)
			}
		}
	}

	subID, err := id.Generate(id.PrefixMedia)
	if err != nil {
		g.release(ref)
		return nil, fmt.Errorf("generate media ID: %w", err)
	}

	sub := &domain.MediaSubmission{
		ID:                 subID,
		UserID:             draft.UserID,
		Username:           draft.Username,
		GameID:             draft.GameID,
		EventID:            draft.EventID,
		Type:               draft.Type,
		ContentType:        draft.ContentType,
		SizeBytes:          draft.SizeBytes,
		URL:                ref,
		BlurHash:           hash,
		DeclaredResultTime: strings.TrimSpace(draft.DeclaredResultTime),
		Title:              draft.Title,
		Comment:            draft.Comment,
		IsPublic:           draft.IsPublic,
		Status:             domain.SubmissionStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := g.persist(ctx, sub, limit); err != nil {
		g.release(ref)
		if errors.Is(err, store.ErrLimitReached) {
			return nil, limitReached(limit)
		}
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	g.sse.Emit(sse.NewSubmissionCreatedEvent(sub, now))
	g.logger.Info("submission accepted",
		"submission_id", sub.ID,
		"user_id", sub.UserID,
		"event_id", sub.EventID,
		"type", sub.Type,
	)
	return sub, nil
}

// checkEventQuota refuses early, before any bytes are stored, and returns
// the per-user limit that persist enforces again atomically.
func (g *MediaGate) checkEventQuota(ctx context.Context, draft domain.MediaDraft) (int, error) {
	event, err := g.events.GetByID(draft.EventID)
	if err != nil {
		return 0, err
	}

	if _, err := g.ledger.GetParticipation(ctx, draft.EventID, draft.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, domainerrors.ErrNotParticipating
		}
		return 0, fmt.Errorf("get participation: %w", err)
	}

	count, err := g.submissions.CountUserEventSubmissions(ctx, draft.EventID, draft.UserID)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	limit := event.MaxSubmissions
	if limit <= 0 {
		limit = domain.DefaultMaxSubmissions
	}
	if count >= limit {
		return 0, limitReached(limit)
	}
	return limit, nil
}

// persist writes sub, capped at limit when it belongs to an event.
func (g *MediaGate) persist(ctx context.Context, sub *domain.MediaSubmission, limit int) error {
	if sub.EventID == "" {
		return g.submissions.CreateSubmission(ctx, sub)
	}
	return g.submissions.CreateSubmissionCapped(ctx, sub, limit)
}

func limitReached(limit int) error {
	return domainerrors.ErrSubmissionLimitReached.WithDetails(map[string]int{"limit": limit})
}

// release drops bytes that will never be referenced. It uses a detached
// context so a cancelled request still cleans up.
func (g *MediaGate) release(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.blobs.Release(ctx, ref); err != nil {
		g.logger.Warn("release orphaned blob failed", "ref", ref, "error", err)
	}
}
