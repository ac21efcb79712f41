package store

import (
	"fmt"
	"strings"
)

// Key prefixes. Index keys live under <prefix>idx:<name>:<value>.
const (
	prefixParticipation = "participation:"
	prefixTeam          = "team:"
	prefixMembership    = "membership:"
	prefixSnapshot      = "lbsnap:"
	prefixFinalized     = "finalized:"
)

// Index names. The exported ones surface in *IndexConflictError.
const (
	IndexTeamName    = "event_name"
	IndexEventMember = "event_user"
	indexTeamEvent   = "event"
)

// keySep joins the parts of composite keys. Ids must not contain it, or a
// prefix scan for one event would also match another.
const keySep = ":"

func participationID(eventID, userID string) string {
	return eventID + keySep + userID
}

func membershipID(teamID, userID string) string {
	return teamID + keySep + userID
}

func eventMemberKey(eventID, userID string) string {
	return eventID + keySep + userID
}

// scopePrefix is the scan prefix for records keyed under id.
func scopePrefix(id string) string {
	return id + keySep
}

// checkKeyParts rejects ids that are empty or contain keySep.
func checkKeyParts(parts ...string) error {
	for _, p := range parts {
		if p == "" || strings.Contains(p, keySep) {
			return ErrInvalidKey.WithMessage(fmt.Sprintf("invalid identifier %q", p))
		}
	}
	return nil
}
