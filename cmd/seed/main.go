// Package main provides a tool to seed a development data directory with a
// demo event catalog, participations and teams.
//
// Usage:
//
//	DATA_PATH=~/RetroArena/data go run ./cmd/seed
//	DATA_PATH=~/RetroArena/data go run ./cmd/seed --users 12 --catalog events.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/retroarena/eventengine/internal/auth"
	"github.com/retroarena/eventengine/internal/catalog"
	"github.com/retroarena/eventengine/internal/domain"
	"github.com/retroarena/eventengine/internal/id"
	"github.com/retroarena/eventengine/internal/store"
)

var (
	userCount   = flag.Int("users", 8, "Number of demo users to enroll")
	catalogName = flag.String("catalog", "events.yaml", "Catalog file name inside the data path (.yaml or .json)")
)

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/RetroArena/data")
	}
	if err := os.MkdirAll(dataPath, 0o750); err != nil {
		log.Fatalf("Failed to create data path: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Hour)
	events := demoEvents(now)

	catalogPath := filepath.Join(dataPath, *catalogName)
	if err := catalog.Write(catalogPath, events); err != nil {
		log.Fatalf("Failed to write catalog: %v", err)
	}
	fmt.Printf("Wrote %d events to %s\n", len(events), catalogPath)

	dbPath := filepath.Join(dataPath, "db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, slog.New(slog.DiscardHandler))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	users := demoUsers(*userCount)

	joined := 0
	for _, e := range events {
		if !e.IsActive(now) {
			continue
		}
		for _, u := range users {
			p := &domain.Participation{
				EventID:  e.ID,
				UserID:   u.id,
				Username: u.name,
				JoinedAt: e.StartDate.Add(time.Duration(rand.IntN(24)) * time.Hour),
				Progress: rand.IntN(100),
			}
			if err := s.CreateParticipation(ctx, p); err != nil {
				if errors.Is(err, store.ErrAlreadyExists) {
					continue
				}
				log.Fatalf("Failed to create participation: %v", err)
			}
			joined++
		}
	}
	fmt.Printf("Created %d participations\n", joined)

	teams := 0
	for _, e := range events {
		if !e.IsTeamEvent || !e.IsActive(now) {
			continue
		}
		n, err := seedTeams(ctx, s, &e, users, now)
		if err != nil {
			log.Fatalf("Failed to seed teams for %s: %v", e.ID, err)
		}
		teams += n
	}
	fmt.Printf("Created %d teams\n", teams)

	if err := printTokens(dataPath, users, now); err != nil {
		log.Fatalf("Failed to issue tokens: %v", err)
	}

	fmt.Println("Done!")
}

// printTokens issues bearer tokens signed with the server's key so the
// seeded users can call the API right away. The last user is a moderator.
func printTokens(dataPath string, users []demoUser, now time.Time) error {
	if len(users) == 0 {
		return nil
	}
	key, err := auth.LoadOrGenerateKey(dataPath)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(key, 30*24*time.Hour)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Bearer tokens (30 days):")
	for i, u := range users {
		role := auth.RoleMember
		if i == len(users)-1 {
			role = auth.RoleModerator
		}
		token, err := tokens.Issue(u.id, u.name, role, now)
		if err != nil {
			return err
		}
		fmt.Printf("  %-16s %-10s %s\n", u.name, role, token)
	}
	fmt.Println()
	return nil
}

type demoUser struct {
	id   string
	name string
}

func demoUsers(n int) []demoUser {
	names := []string{"pixelpilot", "blastprocessing", "mode7", "konamicode", "warpzone", "chiptune", "cartridge", "scanline"}
	users := make([]demoUser, 0, n)
	for i := range n {
		name := names[i%len(names)]
		if i >= len(names) {
			name = fmt.Sprintf("%s%d", name, i/len(names))
		}
		users = append(users, demoUser{id: fmt.Sprintf("user-%03d", i+1), name: name})
	}
	return users
}

// seedTeams splits users into full teams. Users left over stay solo.
func seedTeams(ctx context.Context, s *store.Store, e *domain.Event, users []demoUser, now time.Time) (int, error) {
	created := 0
	for start := 0; start+e.MaxTeamSize <= len(users); start += e.MaxTeamSize {
		teamID, err := id.Generate(id.PrefixTeam)
		if err != nil {
			return created, err
		}
		members := users[start : start+e.MaxTeamSize]

		team := &domain.Team{
			ID:         teamID,
			EventID:    e.ID,
			Name:       fmt.Sprintf("Squad %d", created+1),
			CreatedBy:  members[0].id,
			MaxMembers: e.MaxTeamSize,
			MinMembers: e.MinTeamSize,
			CreatedAt:  now,
		}
		leader := &domain.TeamMembership{UserID: members[0].id, Username: members[0].name, JoinedAt: now}
		if err := s.CreateTeamWithLeader(ctx, team, leader); err != nil {
			var conflict *store.IndexConflictError
			if errors.As(err, &conflict) {
				continue
			}
			return created, err
		}

		for j, m := range members[1:] {
			membership := &domain.TeamMembership{
				UserID:   m.id,
				Username: m.name,
				JoinedAt: now.Add(time.Duration(j+1) * time.Minute),
			}
			if _, err := s.AddTeamMember(ctx, teamID, membership); err != nil {
				return created, err
			}
		}
		created++
	}
	return created, nil
}

func demoEvents(now time.Time) []domain.Event {
	day := 24 * time.Hour
	events := []domain.Event{
		{
			ID:          "smw-any-sprint",
			Title:       "Any% Sprint",
			Game:        "Super Mario World",
			Description: "Fastest **any%** run. Submit a screenshot of the final timer.",
			Type:        domain.EventTypeSpeedrun,
			StartDate:   now.Add(-2 * day),
			EndDate:     now.Add(5 * day),
			Rewards: []domain.RewardDescriptor{
				{Kind: domain.RewardKindPoints, Label: "Finisher", Points: 50},
				{Kind: domain.RewardKindBadge, Label: "Cape Runner"},
			},
		},
		{
			ID:          "sonic2-relay",
			Title:       "Emerald Hill Relay",
			Game:        "Sonic the Hedgehog 2",
			Description: "Teams of two. Combined best times decide the standings.",
			Type:        domain.EventTypeChallenge,
			StartDate:   now.Add(-1 * day),
			EndDate:     now.Add(6 * day),
			IsTeamEvent: true,
			MinTeamSize: 2,
			MaxTeamSize: 2,
			Rewards: []domain.RewardDescriptor{
				{Kind: domain.RewardKindTitle, Label: "Relay Champions"},
			},
		},
		{
			ID:        "fzero-time-trial",
			Title:     "Mute City Time Trial",
			Game:      "F-Zero",
			Type:      domain.EventTypeTimeTrial,
			StartDate: now.Add(3 * day),
			EndDate:   now.Add(10 * day),
		},
		{
			ID:        "zelda-anniversary",
			Title:     "Hyrule Anniversary",
			Game:      "The Legend of Zelda",
			Type:      domain.EventTypeAnniversary,
			StartDate: now.Add(-20 * day),
			EndDate:   now.Add(-13 * day),
			Rewards: []domain.RewardDescriptor{
				{Kind: domain.RewardKindItem, Label: "Golden Cartridge"},
			},
		},
	}
	for i := range events {
		events[i].ApplyDefaults()
	}
	return events
}
