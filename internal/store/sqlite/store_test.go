package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/store"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeSubmission(t *testing.T, s *Store, id, userID, eventID string, created time.Time) *domain.MediaSubmission {
	t.Helper()
	m := &domain.MediaSubmission{
		CreatedAt:          created,
		UpdatedAt:          created,
		ID:                 id,
		UserID:             userID,
		Username:           userID,
		GameID:             "super-metroid",
		EventID:            eventID,
		Type:               domain.MediaTypePhoto,
		ContentType:        "image/png",
		URL:                "local:" + id + ".png",
		DeclaredResultTime: "1:32.45",
		Status:             domain.SubmissionStatusPending,
		SizeBytes:          1024,
		IsPublic:           true,
	}
	if err := s.CreateSubmission(context.Background(), m); err != nil {
		t.Fatalf("create submission: %v", err)
	}
	return m
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	for _, table := range []string{"media_submissions", "media_votes", "media_reports"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "media.db")

	s, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if v != schemaVersion {
		t.Errorf("user_version = %d, want %d", v, schemaVersion)
	}

	// Pretend a newer build migrated the file.
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion+1)); err != nil {
		t.Fatalf("bump user_version: %v", err)
	}
	s.Close()

	if _, err := Open(dbPath, nil); err == nil {
		t.Fatal("expected Open to refuse a newer schema")
	}
}

func TestCreateSubmission_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	first := makeSubmission(t, s, "media-dup", "alice", "E1", t0)

	dup := *first
	err := s.CreateSubmission(context.Background(), &dup)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateAndGetSubmission(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := makeSubmission(t, s, "media-1", "u1", "evt-1", t0)

	got, err := s.GetSubmission(ctx, "media-1", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DeclaredResultTime != want.DeclaredResultTime || got.Type != domain.MediaTypePhoto {
		t.Errorf("unexpected submission: %+v", got)
	}
	if !got.CreatedAt.Equal(t0) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, t0)
	}
	if !got.IsPublic || got.IsVerified {
		t.Errorf("flags not round-tripped: public=%v verified=%v", got.IsPublic, got.IsVerified)
	}

	if err := s.CreateSubmission(ctx, want); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("duplicate create: got %v, want ErrAlreadyExists", err)
	}

	if _, err := s.GetSubmission(ctx, "missing", ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing get: got %v, want ErrNotFound", err)
	}
}

func TestApplyVote_Toggling(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	makeSubmission(t, s, "media-1", "owner", "", t0)

	steps := []struct {
		choice   domain.VoteChoice
		likes    int
		dislikes int
		userVote domain.VoteChoice
	}{
		{domain.VoteLike, 1, 0, domain.VoteLike},
		{domain.VoteLike, 0, 0, domain.VoteNone},
		{domain.VoteDislike, 0, 1, domain.VoteDislike},
		{domain.VoteLike, 1, 0, domain.VoteLike},
	}

	for i, step := range steps {
		votes, err := s.ApplyVote(ctx, "media-1", "voter", step.choice, t0)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if votes.Likes != step.likes || votes.Dislikes != step.dislikes || votes.UserVote != step.userVote {
			t.Errorf("step %d: got %+v, want likes=%d dislikes=%d vote=%q",
				i, votes, step.likes, step.dislikes, step.userVote)
		}
	}

	got, err := s.GetSubmission(ctx, "media-1", "voter")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Votes.UserVote != domain.VoteLike {
		t.Errorf("viewer vote = %q, want like", got.Votes.UserVote)
	}

	if _, err := s.ApplyVote(ctx, "missing", "voter", domain.VoteLike, t0); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("vote on missing: got %v, want ErrNotFound", err)
	}
}

func TestApplyVote_ConcurrentVotesLoseNoUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	makeSubmission(t, s, "media-1", "owner", "", t0)

	const voters = 20
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := range voters {
		wg.Go(func() {
			choice := domain.VoteLike
			if i%4 == 0 {
				choice = domain.VoteDislike
			}
			if _, err := s.ApplyVote(ctx, "media-1", fmt.Sprintf("voter-%d", i), choice, t0); err != nil {
				errs <- err
			}
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("vote: %v", err)
	}

	got, err := s.GetSubmission(ctx, "media-1", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Votes.Likes != 15 || got.Votes.Dislikes != 5 {
		t.Errorf("tallies = %d/%d, want 15/5", got.Votes.Likes, got.Votes.Dislikes)
	}
}

func TestCreateSubmissionCapped_ConcurrentUploadsStopAtLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	makeSubmission(t, s, "media-other", "someone-else", "evt-1", t0)

	const (
		uploads = 12
		limit   = 3
	)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []string
		refused  int
	)
	for i := range uploads {
		wg.Go(func() {
			m := &domain.MediaSubmission{
				CreatedAt:   t0,
				UpdatedAt:   t0,
				ID:          fmt.Sprintf("media-%d", i),
				UserID:      "runner",
				EventID:     "evt-1",
				Type:        domain.MediaTypePhoto,
				ContentType: "image/png",
				Status:      domain.SubmissionStatusPending,
			}
			err := s.CreateSubmissionCapped(ctx, m, limit)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted = append(accepted, m.ID)
			case errors.Is(err, store.ErrLimitReached):
				refused++
			default:
				t.Errorf("create: %v", err)
			}
		})
	}
	wg.Wait()

	if len(accepted) != limit || refused != uploads-limit {
		t.Fatalf("accepted/refused = %d/%d, want %d/%d", len(accepted), refused, limit, uploads-limit)
	}
	n, err := s.CountUserEventSubmissions(ctx, "evt-1", "runner")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != limit {
		t.Errorf("stored = %d, want %d", n, limit)
	}

	got, err := s.GetSubmission(ctx, accepted[0], "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "runner" || got.EventID != "evt-1" || got.Status != domain.SubmissionStatusPending || !got.CreatedAt.Equal(t0) {
		t.Errorf("capped insert stored %+v", got)
	}
}

func TestAddReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	makeSubmission(t, s, "media-1", "owner", "", t0)

	for i, reason := range []string{"spam", "not a real time"} {
		n, err := s.AddReport(ctx, &domain.MediaReport{
			CreatedAt:    t0.Add(time.Duration(i) * time.Minute),
			ID:           fmt.Sprintf("report-%d", i),
			SubmissionID: "media-1",
			UserID:       "reporter",
			Reason:       reason,
		})
		if err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
		if n != i+1 {
			t.Errorf("reports = %d, want %d", n, i+1)
		}
	}

	reports, err := s.ListReports(ctx, "media-1")
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 2 || reports[1].Reason != "not a real time" {
		t.Errorf("unexpected reports: %+v", reports)
	}

	got, err := s.GetSubmission(ctx, "media-1", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.SubmissionStatusPending {
		t.Errorf("report changed status to %s", got.Status)
	}

	_, err = s.AddReport(ctx, &domain.MediaReport{CreatedAt: t0, ID: "report-x", SubmissionID: "missing", UserID: "u", Reason: "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("report on missing: got %v, want ErrNotFound", err)
	}
}

func TestUpdateSubmission_Verification(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	makeSubmission(t, s, "media-1", "owner", "evt-1", t0)

	reviewed := t0.Add(time.Hour)
	var first bool
	got, err := s.UpdateSubmission(ctx, "media-1", func(m *domain.MediaSubmission) error {
		first = m.SetVerification(true, "mod-1", "clean run", reviewed)
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !first || !got.IsVerified || got.Status != domain.SubmissionStatusApproved {
		t.Errorf("approval not applied: first=%v %+v", first, got)
	}

	reloaded, err := s.GetSubmission(ctx, "media-1", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.ReviewedBy != "mod-1" || reloaded.ModeratorNotes != "clean run" {
		t.Errorf("review fields not stored: %+v", reloaded)
	}
	if reloaded.FirstApprovedAt == nil || !reloaded.FirstApprovedAt.Equal(reviewed) {
		t.Errorf("first_approved_at = %v, want %v", reloaded.FirstApprovedAt, reviewed)
	}

	_, err = s.UpdateSubmission(ctx, "media-1", func(m *domain.MediaSubmission) error {
		first = m.SetVerification(true, "mod-2", "", reviewed.Add(time.Hour))
		return nil
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if first {
		t.Error("re-approval reported as first approval")
	}

	_, err = s.UpdateSubmission(ctx, "missing", func(*domain.MediaSubmission) error { return nil })
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update missing: got %v, want ErrNotFound", err)
	}
}

func TestListSubmissionsAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeSubmission(t, s, "media-1", "u1", "evt-1", t0)
	makeSubmission(t, s, "media-2", "u2", "evt-1", t0.Add(time.Minute))
	makeSubmission(t, s, "media-3", "u1", "evt-2", t0.Add(2*time.Minute))
	private := makeSubmission(t, s, "media-4", "u1", "", t0.Add(3*time.Minute))
	_, err := s.UpdateSubmission(ctx, private.ID, func(m *domain.MediaSubmission) error {
		m.IsPublic = false
		return nil
	})
	if err != nil {
		t.Fatalf("make private: %v", err)
	}

	if _, err := s.ApplyVote(ctx, "media-2", "viewer", domain.VoteDislike, t0); err != nil {
		t.Fatalf("vote: %v", err)
	}

	tests := []struct {
		name   string
		filter domain.SubmissionFilter
		want   []string
	}{
		{"all newest first", domain.SubmissionFilter{}, []string{"media-4", "media-3", "media-2", "media-1"}},
		{"by event", domain.SubmissionFilter{EventID: "evt-1"}, []string{"media-2", "media-1"}},
		{"by user public", domain.SubmissionFilter{UserID: "u1", PublicOnly: true}, []string{"media-3", "media-1"}},
		{"limit", domain.SubmissionFilter{Limit: 1}, []string{"media-4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs, err := s.ListSubmissions(ctx, tt.filter, "viewer")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var ids []string
			for _, m := range subs {
				ids = append(ids, m.ID)
				if m.ID == "media-2" && m.Votes.UserVote != domain.VoteDislike {
					t.Errorf("viewer vote missing on media-2")
				}
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
		})
	}

	subs, err := s.Query(ctx, "evt-1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(subs) != 2 || subs[0].ID != "media-1" {
		t.Errorf("query order wrong: %v", subs)
	}

	n, err := s.CountUserEventSubmissions(ctx, "evt-1", "u1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestDeleteSubmissionCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	makeSubmission(t, s, "media-1", "owner", "", t0)

	if _, err := s.ApplyVote(ctx, "media-1", "voter", domain.VoteLike, t0); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.DeleteSubmission(ctx, "media-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var votes int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM media_votes`).Scan(&votes); err != nil {
		t.Fatalf("count votes: %v", err)
	}
	if votes != 0 {
		t.Errorf("votes left after delete: %d", votes)
	}

	if err := s.DeleteSubmission(ctx, "media-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}
