package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTeamName(t *testing.T) {
	assert.Equal(t, NormalizeTeamName("Alpha"), NormalizeTeamName("  ALPHA "))
	assert.Equal(t, NormalizeTeamName("Straße"), NormalizeTeamName("STRASSE"))
	// Precomposed and combining forms of é compare equal.
	assert.Equal(t, NormalizeTeamName("Caf\u00e9"), NormalizeTeamName("Cafe\u0301"))
	assert.NotEqual(t, NormalizeTeamName("Alpha"), NormalizeTeamName("Alpha Two"))
}

func TestTeam_Capacity(t *testing.T) {
	team := &Team{MaxMembers: 2, MinMembers: 2, MemberCount: 1}
	assert.False(t, team.IsFull())
	assert.False(t, team.IsEligible())

	team.MemberCount = 2
	assert.True(t, team.IsFull())
	assert.True(t, team.IsEligible())
}
