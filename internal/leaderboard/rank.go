// Package leaderboard ranks result submissions. Everything here is pure:
// callers supply submissions, liveness and the previous snapshot.
package leaderboard

import (
	"cmp"
	"slices"

	"github.com/retroarena/eventengine/internal/domain"
)

type parsed struct {
	sub *domain.MediaSubmission
	ms  int64
}

func compareParsed(a, b parsed) int {
	return cmp.Or(
		cmp.Compare(a.ms, b.ms),
		a.sub.CreatedAt.Compare(b.sub.CreatedAt),
		cmp.Compare(a.sub.ID, b.sub.ID),
	)
}

// parseAll drops submissions whose declared time does not parse.
func parseAll(subs []domain.MediaSubmission) []parsed {
	out := make([]parsed, 0, len(subs))
	for i := range subs {
		ms, ok := ParseResultTime(subs[i].DeclaredResultTime)
		if !ok {
			continue
		}
		out = append(out, parsed{sub: &subs[i], ms: ms})
	}
	return out
}

// Rank orders submissions by parsed time, then creation time, then id, and
// assigns ranks 1..n without gaps. Equal times get consecutive ranks so the
// earlier submission keeps the better rank. When previous is non-nil each
// entry is annotated with its previous rank, matched by user, and flagged new
// when the user was absent.
func Rank(subs []domain.MediaSubmission, liveness map[string]bool, previous []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	items := parseAll(subs)
	slices.SortStableFunc(items, compareParsed)

	var prevRanks map[string]int
	if previous != nil {
		prevRanks = make(map[string]int, len(previous))
		for _, e := range previous {
			if _, seen := prevRanks[e.UserID]; !seen {
				prevRanks[e.UserID] = e.Rank
			}
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(items))
	for i, it := range items {
		entry := domain.LeaderboardEntry{
			Rank:         i + 1,
			UserID:       it.sub.UserID,
			Username:     it.sub.Username,
			SubmissionID: it.sub.ID,
			ParsedTimeMs: it.ms,
			DisplayTime:  FormatResultTime(it.ms),
			IsVerified:   it.sub.IsVerified,
			IsLive:       liveness[it.sub.UserID],
			CreatedAt:    it.sub.CreatedAt,
		}
		if prevRanks != nil {
			if r, ok := prevRanks[entry.UserID]; ok {
				entry.PreviousRank = &r
			} else {
				entry.IsNewEntry = true
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// BestPerUser keeps each user's best parseable submission under the ranking
// order. The result is in ranking order.
func BestPerUser(subs []domain.MediaSubmission) []domain.MediaSubmission {
	items := parseAll(subs)
	slices.SortStableFunc(items, compareParsed)

	seen := make(map[string]struct{}, len(items))
	out := make([]domain.MediaSubmission, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.sub.UserID]; ok {
			continue
		}
		seen[it.sub.UserID] = struct{}{}
		out = append(out, *it.sub)
	}
	return out
}

// PlacementPoints is the finalization reward for a rank: 100, 75 and 50 for
// the podium and 10 for every other ranked participant.
func PlacementPoints(rank int) int {
	switch {
	case rank <= 0:
		return 0
	case rank == 1:
		return 100
	case rank == 2:
		return 75
	case rank == 3:
		return 50
	default:
		return 10
	}
}
