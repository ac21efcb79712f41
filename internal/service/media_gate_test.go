package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroarena/eventengine/internal/domain"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
)

func TestMediaGate_CaptureBlockReason(t *testing.T) {
	e := newTestEngine(t)

	assert.NoError(t, e.gate.CaptureBlockReason("", now))
	assert.NoError(t, e.gate.CaptureBlockReason("E1", now))
	assert.ErrorIs(t, e.gate.CaptureBlockReason("nope", now), domainerrors.ErrEventNotFound)
	assert.ErrorIs(t, e.gate.CaptureBlockReason("E-upcoming", now), domainerrors.ErrEventNotActive)
	assert.ErrorIs(t, e.gate.CaptureBlockReason("E-past", now), domainerrors.ErrEventNotActive)

	assert.True(t, e.gate.CanCapture("E1", now))
	assert.False(t, e.gate.CanCapture("E1", e1End))
}

func TestMediaGate_Validate(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name   string
		mutate func(d *domain.MediaDraft)
		want   error
		field  string
	}{
		{"valid photo", func(d *domain.MediaDraft) {}, nil, ""},
		{"missing result time", func(d *domain.MediaDraft) { d.DeclaredResultTime = " " }, domainerrors.ErrMissingRequiredField, "declaredResultTime"},
		{"missing game", func(d *domain.MediaDraft) { d.GameID = "" }, domainerrors.ErrMissingRequiredField, "gameId"},
		{"result checked before game", func(d *domain.MediaDraft) { d.GameID = ""; d.DeclaredResultTime = "" }, domainerrors.ErrMissingRequiredField, "declaredResultTime"},
		{"too large", func(d *domain.MediaDraft) { d.SizeBytes = DefaultMaxUploadBytes + 1 }, domainerrors.ErrFileTooLarge, ""},
		{"exactly at limit", func(d *domain.MediaDraft) { d.SizeBytes = DefaultMaxUploadBytes }, nil, ""},
		{"unsupported mime", func(d *domain.MediaDraft) { d.ContentType = "application/pdf" }, domainerrors.ErrUnsupportedMediaType, ""},
		{"type contradicts mime", func(d *domain.MediaDraft) { d.Type = domain.MediaTypeVideo }, domainerrors.ErrUnsupportedMediaType, ""},
		{"video with codecs", func(d *domain.MediaDraft) { d.ContentType = "video/webm; codecs=vp9" }, nil, ""},
		{"long title", func(d *domain.MediaDraft) { d.Title = strings.Repeat("t", 101) }, domainerrors.ErrValidation, ""},
		{"long comment", func(d *domain.MediaDraft) { d.Comment = strings.Repeat("c", 501) }, domainerrors.ErrValidation, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := photoDraft("U1", "E1", "1:32.45")
			tt.mutate(&d)
			err := e.gate.Validate(&d)
			if tt.want == nil {
				require.NoError(t, err)
				assert.NotEmpty(t, d.Type)
				return
			}
			require.ErrorIs(t, err, tt.want)
			if tt.field != "" {
				var de *domainerrors.Error
				require.ErrorAs(t, err, &de)
				assert.Equal(t, map[string]string{"field": tt.field}, de.Details)
			}
		})
	}
}

func TestMediaGate_AcceptRequiresParticipation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.gate.Accept(ctx, photoDraft("U1", "E1", "1:32.45"), pngBytes(t), now)
	assert.ErrorIs(t, err, domainerrors.ErrNotParticipating)

	_, err = e.gate.Accept(ctx, photoDraft("U1", "E-past", "1:32.45"), pngBytes(t), now)
	assert.ErrorIs(t, err, domainerrors.ErrEventNotActive)
}

func TestMediaGate_AcceptPersistsPending(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ledger.Join(ctx, "E1", "U1", "ann", now)
	require.NoError(t, err)

	draft := photoDraft("U1", "E1", " 1:32.45 ")
	draft.Title = "PB!"
	sub, err := e.gate.Accept(ctx, draft, pngBytes(t), now)
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionStatusPending, sub.Status)
	assert.False(t, sub.IsVerified)
	assert.Equal(t, domain.MediaTypePhoto, sub.Type)
	assert.Equal(t, "1:32.45", sub.DeclaredResultTime)
	assert.Zero(t, sub.Votes.Likes)
	assert.Zero(t, sub.Reports)
	assert.NotEmpty(t, sub.BlurHash)
	assert.True(t, e.blobs.Exists(sub.URL))

	stored, err := e.moderation.Get(ctx, sub.ID, "U1")
	require.NoError(t, err)
	assert.Equal(t, sub.URL, stored.URL)
	assert.Equal(t, "PB!", stored.Title)
}

func TestMediaGate_FreeCaptureSkipsEventChecks(t *testing.T) {
	e := newTestEngine(t)

	draft := photoDraft("U1", "", "12:00")
	draft.ContentType = "video/mp4"
	sub, err := e.gate.Accept(context.Background(), draft, []byte("not really a video"), now)
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeVideo, sub.Type)
	assert.Empty(t, sub.BlurHash)
}

func TestMediaGate_SubmissionLimit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ledger.Join(ctx, "E1", "U1", "ann", now)
	require.NoError(t, err)

	var last *domain.MediaSubmission
	for range domain.DefaultMaxSubmissions {
		last, err = e.gate.Accept(ctx, photoDraft("U1", "E1", "1:40.00"), pngBytes(t), now)
		require.NoError(t, err)
	}

	_, err = e.gate.Accept(ctx, photoDraft("U1", "E1", "1:39.00"), pngBytes(t), now)
	assert.ErrorIs(t, err, domainerrors.ErrSubmissionLimitReached)

	// Deleting a submission frees its slot.
	require.NoError(t, e.moderation.Delete(ctx, last.ID, "U1", now))
	_, err = e.gate.Accept(ctx, photoDraft("U1", "E1", "1:39.00"), pngBytes(t), now)
	assert.NoError(t, err)
}

func TestMediaGate_ConcurrentUploadsRespectLimit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ledger.Join(ctx, "E1", "U1", "ann", now)
	require.NoError(t, err)

	data := pngBytes(t)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		limited  int
	)
	for range 8 {
		wg.Go(func() {
			_, err := e.gate.Accept(ctx, photoDraft("U1", "E1", "1:40.00"), data, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, domainerrors.ErrSubmissionLimitReached):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, domain.DefaultMaxSubmissions, accepted)
	assert.Equal(t, 8-domain.DefaultMaxSubmissions, limited)

	n, err := e.media.CountUserEventSubmissions(ctx, "E1", "U1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultMaxSubmissions, n)
}

type failingWriter struct{}

func (failingWriter) CreateSubmission(context.Context, *domain.MediaSubmission) error {
	return errors.New("disk full")
}

func (failingWriter) CreateSubmissionCapped(context.Context, *domain.MediaSubmission, int) error {
	return errors.New("disk full")
}

func (failingWriter) CountUserEventSubmissions(context.Context, string, string) (int, error) {
	return 0, nil
}

type recordingBlobs struct {
	stored   []string
	released []string
	storeErr error
}

func (r *recordingBlobs) Store(_ context.Context, _ []byte, _, _ string) (string, error) {
	if r.storeErr != nil {
		return "", r.storeErr
	}
	ref := "mem:" + string(rune('a'+len(r.stored)))
	r.stored = append(r.stored, ref)
	return ref, nil
}

func (r *recordingBlobs) Release(_ context.Context, ref string) error {
	r.released = append(r.released, ref)
	return nil
}

func TestMediaGate_PersistFailureReleasesBytes(t *testing.T) {
	e := newTestEngine(t)
	b := &recordingBlobs{}
	gate := NewMediaGate(MediaGateConfig{
		Events:      e.catalog,
		Ledger:      e.store,
		Submissions: failingWriter{},
		Blobs:       b,
		Logger:      slog.New(slog.DiscardHandler),
	})

	_, err := gate.Accept(context.Background(), photoDraft("U1", "", "1:00"), pngBytes(t), now)
	require.Error(t, err)
	assert.Equal(t, b.stored, b.released)
	assert.Len(t, b.released, 1)
}

func TestMediaGate_ByteStoreFailureIsCollaboratorFailure(t *testing.T) {
	e := newTestEngine(t)
	gate := NewMediaGate(MediaGateConfig{
		Events:      e.catalog,
		Ledger:      e.store,
		Submissions: e.media,
		Blobs:       &recordingBlobs{storeErr: errors.New("bucket gone")},
		Logger:      slog.New(slog.DiscardHandler),
	})

	_, err := gate.Accept(context.Background(), photoDraft("U1", "", "1:00"), pngBytes(t), now)
	assert.ErrorIs(t, err, domainerrors.ErrCollaboratorFailure)
}
