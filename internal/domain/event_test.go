package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in   string
		want EventType
		ok   bool
	}{
		{"Speedrun", EventTypeSpeedrun, true},
		{"Time Trial", EventTypeTimeTrial, true},
		{"time_trial", EventTypeTimeTrial, true},
		{" challenge ", EventTypeChallenge, true},
		{"COLLECTION", EventTypeCollection, true},
		{"anniversary", EventTypeAnniversary, true},
		{"tournament", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseEventType(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvent_Status(t *testing.T) {
	e := &Event{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, EventStatusUpcoming, e.Status(e.StartDate.Add(-time.Second)))
	assert.Equal(t, EventStatusActive, e.Status(e.StartDate))
	assert.True(t, e.IsActive(time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, EventStatusCompleted, e.Status(e.EndDate))
	assert.True(t, e.IsCompleted(e.EndDate))
}

func TestEvent_ApplyDefaults(t *testing.T) {
	solo := &Event{}
	solo.ApplyDefaults()
	assert.Equal(t, DefaultMaxSubmissions, solo.MaxSubmissions)
	assert.Zero(t, solo.MaxTeamSize)

	team := &Event{IsTeamEvent: true, MaxTeamSize: 2, MaxSubmissions: 5}
	team.ApplyDefaults()
	assert.Equal(t, 5, team.MaxSubmissions)
	assert.Equal(t, 2, team.MaxTeamSize)
	assert.Equal(t, DefaultMinTeamSize, team.MinTeamSize)
}
