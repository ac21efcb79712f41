package leaderboard

import (
	"cmp"
	"slices"

	"github.com/retroarena/eventengine/internal/domain"
)

// Roster is a team with its members in join order.
type Roster struct {
	Team    domain.Team
	Members []domain.TeamMembership
}

type teamTotal struct {
	roster *Roster
	total  int64
}

// RankTeams totals each eligible team's member times from entries. A team is
// included only when it meets its minimum size and every member has a ranked
// entry. Teams sort by total, then creation time, then id.
func RankTeams(entries []domain.LeaderboardEntry, rosters []Roster) []domain.TeamStanding {
	best := make(map[string]int64, len(entries))
	for _, e := range entries {
		if cur, ok := best[e.UserID]; !ok || e.ParsedTimeMs < cur {
			best[e.UserID] = e.ParsedTimeMs
		}
	}

	totals := make([]teamTotal, 0, len(rosters))
	for i := range rosters {
		r := &rosters[i]
		if len(r.Members) == 0 || len(r.Members) < r.Team.MinMembers {
			continue
		}
		var sum int64
		complete := true
		for _, m := range r.Members {
			ms, ok := best[m.UserID]
			if !ok {
				complete = false
				break
			}
			sum += ms
		}
		if complete {
			totals = append(totals, teamTotal{roster: r, total: sum})
		}
	}

	slices.SortStableFunc(totals, func(a, b teamTotal) int {
		return cmp.Or(
			cmp.Compare(a.total, b.total),
			a.roster.Team.CreatedAt.Compare(b.roster.Team.CreatedAt),
			cmp.Compare(a.roster.Team.ID, b.roster.Team.ID),
		)
	})

	standings := make([]domain.TeamStanding, 0, len(totals))
	for i, t := range totals {
		members := make([]string, 0, len(t.roster.Members))
		for _, m := range t.roster.Members {
			members = append(members, m.Username)
		}
		standings = append(standings, domain.TeamStanding{
			Rank:        i + 1,
			TeamID:      t.roster.Team.ID,
			TeamName:    t.roster.Team.Name,
			TotalTimeMs: t.total,
			DisplayTime: FormatResultTime(t.total),
			Members:     members,
		})
	}
	return standings
}
