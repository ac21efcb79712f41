// Package timewindow answers whether an instant falls inside an event's
// half-open activity window [start, end) and how long remains until the next boundary.
package timewindow

import "time"

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Countdown is the remaining time to a boundary, broken into display units.
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// IsActive reports start <= now < end.
func IsActive(w Window, now time.Time) bool {
	return !now.Before(w.Start) && now.Before(w.End)
}

// IsCompleted reports now >= end.
func IsCompleted(w Window, now time.Time) bool {
	return !now.Before(w.End)
}

// IsUpcoming reports now < start.
func IsUpcoming(w Window, now time.Time) bool {
	return now.Before(w.Start)
}

// CountdownTo breaks down the time until the end of an active window, or until
// the start otherwise. Every field is zero once the target has passed.
func CountdownTo(w Window, now time.Time) Countdown {
	target := w.Start
	if IsActive(w, now) {
		target = w.End
	}

	remaining := target.Sub(now)
	if remaining <= 0 {
		return Countdown{}
	}

	total := int64(remaining / time.Second)
	return Countdown{
		Days:    int(total / 86400),
		Hours:   int(total % 86400 / 3600),
		Minutes: int(total % 3600 / 60),
		Seconds: int(total % 60),
	}
}

// Remaining returns the countdown as a duration for callers that need arithmetic.
func (c Countdown) Remaining() time.Duration {
	return time.Duration(c.Days)*24*time.Hour +
		time.Duration(c.Hours)*time.Hour +
		time.Duration(c.Minutes)*time.Minute +
		time.Duration(c.Seconds)*time.Second
}
