package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var e1 = Window{
	Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
}

func TestWindow_HalfOpen(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		active    bool
		completed bool
		upcoming  bool
	}{
		{"before start", e1.Start.Add(-time.Nanosecond), false, false, true},
		{"at start", e1.Start, true, false, false},
		{"mid window", time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC), true, false, false},
		{"just before end", e1.End.Add(-time.Nanosecond), true, false, false},
		{"at end", e1.End, false, true, false},
		{"after end", e1.End.Add(time.Hour), false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, IsActive(e1, tt.now))
			assert.Equal(t, tt.completed, IsCompleted(e1, tt.now))
			assert.Equal(t, tt.upcoming, IsUpcoming(e1, tt.now))
		})
	}
}

func TestCountdownTo(t *testing.T) {
	t.Run("active counts to end", func(t *testing.T) {
		now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
		got := CountdownTo(e1, now)

		assert.Equal(t, Countdown{Days: 4, Hours: 12}, got)
		assert.Equal(t, e1.End.Sub(now), got.Remaining())
	})

	t.Run("upcoming counts to start", func(t *testing.T) {
		now := e1.Start.Add(-(26*time.Hour + 3*time.Minute + 7*time.Second))
		assert.Equal(t, Countdown{Days: 1, Hours: 2, Minutes: 3, Seconds: 7}, CountdownTo(e1, now))
	})

	t.Run("completed is zero", func(t *testing.T) {
		assert.Equal(t, Countdown{}, CountdownTo(e1, e1.End))
		assert.Equal(t, Countdown{}, CountdownTo(e1, e1.End.Add(48*time.Hour)))
	})

	t.Run("sub-second remainder truncates", func(t *testing.T) {
		now := e1.Start.Add(-500 * time.Millisecond)
		assert.Equal(t, Countdown{}, CountdownTo(e1, now))
	})
}
