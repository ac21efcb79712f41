package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/retroarena/eventengine/internal/domain"
	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/leaderboard"
	"github.com/retroarena/eventengine/internal/metrics"
	"github.com/retroarena/eventengine/internal/rewards"
	"github.com/retroarena/eventengine/internal/sse"
	"github.com/retroarena/eventengine/internal/store"
)

// EventCatalog is the catalog view the leaderboard jobs need.
type EventCatalog interface {
	EventLookup
	ListActive(now time.Time) []domain.Event
	ListCompleted(now time.Time) []domain.Event
}

// SubmissionRepository is the only source of leaderboard rows.
type SubmissionRepository interface {
	Query(ctx context.Context, eventID string) ([]*domain.MediaSubmission, error)
}

// SnapshotCache is a shared fast path for snapshots. Implementations return
// an error on a miss.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, eventID string) (*domain.LeaderboardSnapshot, error)
	SetSnapshot(ctx context.Context, snap *domain.LeaderboardSnapshot) error
	PublishSnapshot(ctx context.Context, snap *domain.LeaderboardSnapshot) error
}

// LeaderboardService composes rankings from submissions, participation and teams.
type LeaderboardService struct {
	events       EventCatalog
	submissions  SubmissionRepository
	store        *store.Store
	cache        SnapshotCache
	emitter      rewards.Emitter
	sse          Broadcaster
	verifiedOnly bool
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// LeaderboardConfig holds the leaderboard service's collaborators.
type LeaderboardConfig struct {
	Events      EventCatalog
	Submissions SubmissionRepository
	Store       *store.Store
	Cache       SnapshotCache // optional
	Emitter     rewards.Emitter
	SSE         Broadcaster
	// VerifiedOnly ranks approved submissions only. Otherwise pending ones
	// are ranked too and only rejected ones are dropped.
	VerifiedOnly bool
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service.
func NewLeaderboardService(cfg LeaderboardConfig) *LeaderboardService {
	return &LeaderboardService{
		events:       cfg.Events,
		submissions:  cfg.Submissions,
		store:        cfg.Store,
		cache:        cfg.Cache,
		emitter:      cfg.Emitter,
		sse:          broadcasterOrNoop(cfg.SSE),
		verifiedOnly: cfg.VerifiedOnly,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

// Live ranks eventID at now and annotates entries against the last snapshot.
// A new snapshot is stored and published only when the ranking changed;
// otherwise the previous change indicators are kept.
func (s *LeaderboardService) Live(ctx context.Context, eventID string, now time.Time) (*domain.LeaderboardSnapshot, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveLeaderboardRefresh(time.Since(start)) }()

	event, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	best, err := s.bestSubmissions(ctx, eventID, s.verifiedOnly)
	if err != nil {
		return nil, err
	}

	liveness, err := s.liveness(ctx, &event, now)
	if err != nil {
		return nil, err
	}

	prev, err := s.previousSnapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var prevEntries []domain.LeaderboardEntry
	if prev != nil {
		prevEntries = prev.Entries
		if prevEntries == nil {
			prevEntries = []domain.LeaderboardEntry{}
		}
	}

	entries := leaderboard.Rank(best, liveness, prevEntries)
	if event.IsTeamEvent {
		if err := s.assignTeams(ctx, eventID, entries); err != nil {
			return nil, err
		}
	}

	if prev != nil && !rankingChanged(prev.Entries, entries) {
		carryIndicators(prev.Entries, entries)
		return &domain.LeaderboardSnapshot{
			EventID:     eventID,
			GeneratedAt: prev.GeneratedAt,
			Entries:     entries,
		}, nil
	}

	snap := &domain.LeaderboardSnapshot{
		EventID:     eventID,
		GeneratedAt: now,
		Entries:     entries,
	}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetSnapshot(ctx, snap); err != nil {
			s.logger.Warn("cache leaderboard snapshot failed", "event_id", eventID, "error", err)
		}
		if err := s.cache.PublishSnapshot(ctx, snap); err != nil {
			s.logger.Warn("publish leaderboard snapshot failed", "event_id", eventID, "error", err)
		}
	}
	s.sse.Emit(sse.NewLeaderboardUpdatedEvent(snap))

	s.logger.Info("leaderboard updated", "event_id", eventID, "entries", len(entries))
	return snap, nil
}

// TeamStandings totals member best times for each eligible team of eventID.
func (s *LeaderboardService) TeamStandings(ctx context.Context, eventID string, now time.Time) ([]domain.TeamStanding, error) {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsTeamEvent {
		return nil, domainerrors.ErrEventNotTeamEnabled
	}

	best, err := s.bestSubmissions(ctx, eventID, s.verifiedOnly)
	if err != nil {
		return nil, err
	}
	liveness, err := s.liveness(ctx, &event, now)
	if err != nil {
		return nil, err
	}
	entries := leaderboard.Rank(best, liveness, nil)

	teams, err := s.store.ListTeamsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	rosters := make([]leaderboard.Roster, 0, len(teams))
	for _, t := range teams {
		members, err := s.store.ListMembers(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		r := leaderboard.Roster{Team: *t, Members: make([]domain.TeamMembership, 0, len(members))}
		for _, m := range members {
			r.Members = append(r.Members, *m)
		}
		rosters = append(rosters, r)
	}

	return leaderboard.RankTeams(entries, rosters), nil
}

// Finalize ranks the approved submissions of a completed event and emits
// placement rewards. It runs at most once per event; later calls and calls
// before the event ends return false.
func (s *LeaderboardService) Finalize(ctx context.Context, eventID string, now time.Time) (bool, error) {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return false, err
	}
	if !event.IsCompleted(now) {
		return false, nil
	}

	done, err := s.store.IsFinalized(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("check finalized: %w", err)
	}
	if done {
		return false, nil
	}

	// Rank before marking so a failed query leaves the event retryable.
	best, err := s.bestSubmissions(ctx, eventID, true)
	if err != nil {
		return false, err
	}
	entries := leaderboard.Rank(best, nil, nil)

	marked, err := s.store.MarkFinalized(ctx, eventID, now)
	if err != nil {
		return false, fmt.Errorf("mark finalized: %w", err)
	}
	if !marked {
		return false, nil
	}

	grants := make([]domain.RewardGrant, 0, len(entries))
	for _, e := range entries {
		grants = append(grants, domain.RewardGrant{
			ID:           newGrantID(now),
			UserID:       e.UserID,
			Kind:         domain.RewardKindPoints,
			Amount:       leaderboard.PlacementPoints(e.Rank),
			Descriptor:   fmt.Sprintf("rank %d", e.Rank),
			Reason:       domain.RewardReasonPlacement,
			EventID:      eventID,
			SubmissionID: e.SubmissionID,
			IssuedAt:     now,
		})
	}
	emitGrants(ctx, s.emitter, s.logger, grants)

	s.logger.Info("event finalized", "event_id", eventID, "placements", len(grants))
	return true, nil
}

// RefreshActive recomputes the live leaderboard of every active event.
func (s *LeaderboardService) RefreshActive(ctx context.Context, now time.Time) (int, error) {
	var errs []error
	n := 0
	for _, e := range s.events.ListActive(now) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := s.Live(ctx, e.ID, now); err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", e.ID, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// FinalizeCompleted finalizes every completed event not yet finalized.
func (s *LeaderboardService) FinalizeCompleted(ctx context.Context, now time.Time) (int, error) {
	var errs []error
	n := 0
	for _, e := range s.events.ListCompleted(now) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		done, err := s.store.IsFinalized(ctx, e.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("check %s: %w", e.ID, err))
			continue
		}
		if done {
			continue
		}
		ok, err := s.Finalize(ctx, e.ID, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("finalize %s: %w", e.ID, err))
			continue
		}
		if ok {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// bestSubmissions returns each user's best rankable submission. Rejected
// submissions never rank; approvedOnly also drops pending ones.
func (s *LeaderboardService) bestSubmissions(ctx context.Context, eventID string, approvedOnly bool) ([]domain.MediaSubmission, error) {
	rows, err := s.submissions.Query(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}

	kept := make([]domain.MediaSubmission, 0, len(rows))
	for _, m := range rows {
		switch {
		case m.Status == domain.SubmissionStatusRejected:
			continue
		case approvedOnly && m.Status != domain.SubmissionStatusApproved:
			continue
		}
		kept = append(kept, *m)
	}
	return leaderboard.BestPerUser(kept), nil
}

// liveness marks users who joined, have not completed, and whose event is
// still active at now.
func (s *LeaderboardService) liveness(ctx context.Context, event *domain.Event, now time.Time) (map[string]bool, error) {
	parts, err := s.store.ListParticipations(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	active := event.IsActive(now)
	live := make(map[string]bool, len(parts))
	for _, p := range parts {
		live[p.UserID] = active && p.IsLive()
	}
	return live, nil
}

func (s *LeaderboardService) previousSnapshot(ctx context.Context, eventID string) (*domain.LeaderboardSnapshot, error) {
	if s.cache != nil {
		snap, err := s.cache.GetSnapshot(ctx, eventID)
		if err == nil {
			return snap, nil
		}
	}

	snap, err := s.store.GetSnapshot(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

func (s *LeaderboardService) assignTeams(ctx context.Context, eventID string, entries []domain.LeaderboardEntry) error {
	for i := range entries {
		m, err := s.store.GetMembershipForEvent(ctx, eventID, entries[i].UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("get membership: %w", err)
		}
		entries[i].TeamID = m.TeamID
	}
	return nil
}

// rankingChanged compares who holds each rank with which result.
func rankingChanged(prev, next []domain.LeaderboardEntry) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range next {
		p, n := prev[i], next[i]
		if p.UserID != n.UserID || p.SubmissionID != n.SubmissionID || p.ParsedTimeMs != n.ParsedTimeMs {
			return true
		}
	}
	return false
}

// carryIndicators keeps the movement shown by the stored snapshot while the
// ranking stands still.
func carryIndicators(prev, next []domain.LeaderboardEntry) {
	for i := range next {
		next[i].PreviousRank = prev[i].PreviousRank
		next[i].IsNewEntry = prev[i].IsNewEntry
	}
}
