package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipation_AdvanceProgressNeverRegresses(t *testing.T) {
	p := &Participation{EventID: "E1", UserID: "U1"}

	observed := []int{}
	for _, v := range []int{40, 20, 55, -5, 130, 90} {
		p.AdvanceProgress(v)
		observed = append(observed, p.Progress)
	}

	assert.Equal(t, []int{40, 40, 55, 55, 100, 100}, observed)
}

func TestParticipation_AdvanceProgressReportsChange(t *testing.T) {
	p := &Participation{Progress: 40}

	assert.False(t, p.AdvanceProgress(20))
	assert.True(t, p.AdvanceProgress(41))
}

func TestParticipation_CompleteIsIdempotent(t *testing.T) {
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	rewards := []RewardDescriptor{{Kind: RewardKindPoints, Label: "Finisher", Points: 50}}
	p := &Participation{Progress: 40}

	require.True(t, p.Complete(now, rewards))
	assert.Equal(t, 100, p.Progress)
	assert.True(t, p.IsCompleted)
	assert.Equal(t, now, *p.CompletedAt)
	assert.Equal(t, rewards, p.Rewards)

	later := now.Add(time.Hour)
	assert.False(t, p.Complete(later, nil))
	assert.Equal(t, now, *p.CompletedAt)
	assert.Equal(t, rewards, p.Rewards)

	assert.False(t, p.AdvanceProgress(10))
	assert.Equal(t, 100, p.Progress)
}

func TestParticipation_CompleteSnapshotsRewards(t *testing.T) {
	rewards := []RewardDescriptor{{Kind: RewardKindBadge, Label: "Star"}}
	p := &Participation{}
	p.Complete(time.Now(), rewards)

	rewards[0].Label = "changed later"
	assert.Equal(t, "Star", p.Rewards[0].Label)
}
