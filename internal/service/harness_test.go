package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retroarena/eventengine/internal/catalog"
	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/media/blobs"
	"github.com/retroarena/eventengine/internal/store"
	"github.com/retroarena/eventengine/internal/store/sqlite"
	"github.com/retroarena/eventengine/internal/validation"
)

var (
	e1Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e1End   = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	now     = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
)

// recordingEmitter captures grants instead of delivering them.
type recordingEmitter struct {
	mu     sync.Mutex
	grants []domain.RewardGrant
	err    error
}

func (r *recordingEmitter) Emit(_ context.Context, g domain.RewardGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants = append(r.grants, g)
	return r.err
}

func (r *recordingEmitter) Grants() []domain.RewardGrant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RewardGrant(nil), r.grants...)
}

type testEngine struct {
	catalog     *catalog.Store
	store       *store.Store
	media       *sqlite.Store
	blobs       *blobs.FileStorage
	rewards     *recordingEmitter
	events      *EventService
	ledger      *ParticipationService
	teams       *TeamService
	gate        *MediaGate
	moderation  *ModerationService
	leaderboard *LeaderboardService
}

func testEvents() []domain.Event {
	events := []domain.Event{
		{
			ID:        "E1",
			Title:     "Any% Sprint",
			Game:      "Super Metroid",
			Type:      domain.EventTypeSpeedrun,
			StartDate: e1Start,
			EndDate:   e1End,
			Rewards: []domain.RewardDescriptor{
				{Kind: domain.RewardKindPoints, Label: "Finisher", Points: 50},
				{Kind: domain.RewardKindBadge, Label: "Speed Demon"},
			},
		},
		{
			ID:          "E2",
			Title:       "Relay Cup",
			Game:        "Sonic 2",
			Type:        domain.EventTypeChallenge,
			StartDate:   e1Start,
			EndDate:     e1End,
			IsTeamEvent: true,
			MaxTeamSize: 2,
			MinTeamSize: 2,
		},
		{
			ID:        "E-upcoming",
			Title:     "Spring Trial",
			Game:      "F-Zero",
			Type:      domain.EventTypeTimeTrial,
			StartDate: e1End,
			EndDate:   e1End.Add(7 * 24 * time.Hour),
		},
		{
			ID:        "E-past",
			Title:     "Winter Trial",
			Game:      "F-Zero",
			Type:      domain.EventTypeTimeTrial,
			StartDate: e1Start.Add(-14 * 24 * time.Hour),
			EndDate:   e1Start.Add(-7 * 24 * time.Hour),
		},
	}
	for i := range events {
		events[i].ApplyDefaults()
	}
	return events
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	st, err := store.New(filepath.Join(t.TempDir(), "badger"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	media, err := sqlite.Open(filepath.Join(t.TempDir(), "media.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = media.Close() })

	files, err := blobs.NewFileStorage(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	cat := catalog.NewStore(testEvents())
	rec := &recordingEmitter{}
	v := validation.New()

	return &testEngine{
		catalog:    cat,
		store:      st,
		media:      media,
		blobs:      files,
		rewards:    rec,
		events:     NewEventService(cat, nil, nil, nil, logger),
		ledger:     NewParticipationService(cat, st, rec, nil, nil, logger),
		teams:      NewTeamService(cat, st, v, nil, nil, logger),
		moderation: NewModerationService(media, files, rec, nil, nil, logger),
		gate: NewMediaGate(MediaGateConfig{
			Events:      cat,
			Ledger:      st,
			Submissions: media,
			Blobs:       files,
			Validator:   v,
			Logger:      logger,
		}),
		leaderboard: NewLeaderboardService(LeaderboardConfig{
			Events:      cat,
			Submissions: media,
			Store:       st,
			Emitter:     rec,
			Logger:      logger,
		}),
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func photoDraft(userID, eventID, result string) domain.MediaDraft {
	return domain.MediaDraft{
		UserID:             userID,
		Username:           userID,
		GameID:             "super-metroid",
		EventID:            eventID,
		ContentType:        "image/png",
		DeclaredResultTime: result,
		IsPublic:           true,
	}
}
