package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/retroarena/eventengine/internal/domain"
)

// CreateTeamWithLeader creates team and its founding membership atomically.
// A taken name surfaces as an *IndexConflictError on IndexTeamName, and a
// founder already on another team of the event as one on IndexEventMember.
func (s *Store) CreateTeamWithLeader(ctx context.Context, team *domain.Team, leader *domain.TeamMembership) error {
	if err := checkKeyParts(team.EventID, team.ID, leader.UserID); err != nil {
		return err
	}
	err := s.update(ctx, func(txn *badger.Txn) error {
		t := *team
		t.LeaderID = leader.UserID
		t.MemberCount = 1
		if err := s.Teams.CreateTxn(txn, t.ID, &t); err != nil {
			return err
		}
		m := *leader
		m.TeamID = t.ID
		m.EventID = t.EventID
		m.IsLeader = true
		return s.Memberships.CreateTxn(txn, membershipID(t.ID, m.UserID), &m)
	})
	if err != nil {
		return err
	}

	team.LeaderID = leader.UserID
	team.MemberCount = 1
	leader.TeamID = team.ID
	leader.EventID = team.EventID
	leader.IsLeader = true
	return nil
}

// AddTeamMember joins m to teamID. The capacity check and the count increment
// happen in one transaction, so concurrent joins never overfill a team.
// A user already on any team of the event, this one included, gets an
// *IndexConflictError on IndexEventMember before capacity is considered.
// A team without a leader gets the new member as leader.
func (s *Store) AddTeamMember(ctx context.Context, teamID string, m *domain.TeamMembership) (*domain.Team, error) {
	if err := checkKeyParts(teamID, m.UserID); err != nil {
		return nil, err
	}
	var updated *domain.Team
	err := s.update(ctx, func(txn *badger.Txn) error {
		team, err := s.Teams.GetTxn(txn, teamID)
		if err != nil {
			return err
		}
		if err := s.Memberships.ClaimableTxn(txn, IndexEventMember, eventMemberKey(team.EventID, m.UserID)); err != nil {
			return err
		}
		if team.IsFull() {
			return ErrCapacity
		}

		member := *m
		member.TeamID = team.ID
		member.EventID = team.EventID
		member.IsLeader = team.LeaderID == ""
		if err := s.Memberships.CreateTxn(txn, membershipID(team.ID, member.UserID), &member); err != nil {
			return err
		}

		team.MemberCount++
		if member.IsLeader {
			team.LeaderID = member.UserID
		}
		if err := s.Teams.UpdateTxn(txn, team.ID, team); err != nil {
			return err
		}

		*m = member
		updated = team
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveTeamMember removes userID from teamID. When the leader leaves, the
// earliest-joined remaining member is promoted. The team is kept when it
// empties so it can be joined again.
func (s *Store) RemoveTeamMember(ctx context.Context, teamID, userID string) (*domain.Team, error) {
	var updated *domain.Team
	err := s.update(ctx, func(txn *badger.Txn) error {
		team, err := s.Teams.GetTxn(txn, teamID)
		if err != nil {
			return err
		}

		_, err = s.Memberships.GetTxn(txn, membershipID(teamID, userID))
		if errors.Is(err, ErrNotFound) {
			return ErrMembershipNotFound
		}
		if err != nil {
			return err
		}
		if err := s.Memberships.DeleteTxn(txn, membershipID(teamID, userID)); err != nil {
			return err
		}

		team.MemberCount--
		if team.MemberCount < 0 {
			team.MemberCount = 0
		}

		if team.LeaderID == userID {
			team.LeaderID = ""
			remaining, err := collectMembers(s.Memberships.ListTxn(txn, scopePrefix(teamID)))
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				next := remaining[0]
				next.IsLeader = true
				if err := s.Memberships.UpdateTxn(txn, membershipID(teamID, next.UserID), next); err != nil {
					return err
				}
				team.LeaderID = next.UserID
			}
		}

		if err := s.Teams.UpdateTxn(txn, teamID, team); err != nil {
			return err
		}
		updated = team
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetTeam returns a team by id.
func (s *Store) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	return s.Teams.Get(ctx, teamID)
}

// ListTeamsByEvent returns the teams of eventID in creation order.
func (s *Store) ListTeamsByEvent(ctx context.Context, eventID string) ([]*domain.Team, error) {
	if err := checkKeyParts(eventID); err != nil {
		return nil, err
	}
	ids, err := s.Teams.IDsByIndexPrefix(ctx, indexTeamEvent, scopePrefix(eventID))
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	teams := make([]*domain.Team, 0, len(ids))
	for _, id := range ids {
		t, err := s.Teams.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get team %s: %w", id, err)
		}
		teams = append(teams, t)
	}

	sort.Slice(teams, func(i, j int) bool {
		if !teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].CreatedAt.Before(teams[j].CreatedAt)
		}
		return teams[i].ID < teams[j].ID
	})
	return teams, nil
}

// ListMembers returns the members of teamID in join order.
func (s *Store) ListMembers(ctx context.Context, teamID string) ([]*domain.TeamMembership, error) {
	if err := checkKeyParts(teamID); err != nil {
		return nil, err
	}
	var members []*domain.TeamMembership
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		members, err = collectMembers(s.Memberships.ListTxn(txn, scopePrefix(teamID)))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// GetMembershipForEvent returns the membership userID holds in eventID, if any.
func (s *Store) GetMembershipForEvent(ctx context.Context, eventID, userID string) (*domain.TeamMembership, error) {
	return s.Memberships.GetByIndex(ctx, IndexEventMember, eventMemberKey(eventID, userID))
}

func collectMembers(seq iter.Seq2[*domain.TeamMembership, error]) ([]*domain.TeamMembership, error) {
	var members []*domain.TeamMembership
	for m, err := range seq {
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}
