package leaderboard

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseResultTime converts a declared result time in MM:SS(.fff) or
// HH:MM:SS(.fff) form to milliseconds. The fraction is one to three digits
// and is right-padded, so "1:32.4" is 92400ms. Seconds must be below 60, and
// minutes too when an hour component is present. The leading component takes
// at most four digits and the others two, which keeps every accepted time far
// from int64 overflow.
func ParseResultTime(s string) (int64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}

	last := parts[len(parts)-1]
	secPart, fracPart, hasFrac := strings.Cut(last, ".")

	secs, ok := parseDigits(secPart, 2)
	if !ok || secs >= 60 {
		return 0, false
	}

	var ms int64
	if hasFrac {
		if len(fracPart) == 0 || len(fracPart) > 3 {
			return 0, false
		}
		frac, ok := parseDigits(fracPart+strings.Repeat("0", 3-len(fracPart)), 3)
		if !ok {
			return 0, false
		}
		ms = frac
	}

	var hours, minutes int64
	if len(parts) == 3 {
		if hours, ok = parseDigits(parts[0], maxLeadingDigits); !ok {
			return 0, false
		}
		if minutes, ok = parseDigits(parts[1], 2); !ok || minutes >= 60 {
			return 0, false
		}
	} else if minutes, ok = parseDigits(parts[0], maxLeadingDigits); !ok {
		return 0, false
	}

	return ((hours*60+minutes)*60+secs)*1000 + ms, true
}

const maxLeadingDigits = 4

// parseDigits accepts one to maxLen ASCII digits.
func parseDigits(s string, maxLen int) (int64, bool) {
	if s == "" || len(s) > maxLen {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatResultTime renders milliseconds as M:SS.cc, or H:MM:SS.cc from one hour up.
func FormatResultTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	centis := ms % 1000 / 10
	totalSecs := ms / 1000
	hours := totalSecs / 3600
	minutes := totalSecs % 3600 / 60
	secs := totalSecs % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
	}
	return fmt.Sprintf("%d:%02d.%02d", minutes, secs, centis)
}
