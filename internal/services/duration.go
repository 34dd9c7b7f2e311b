package services

import (
	"fmt"
	"strconv"
	"strings"

	"studycircle-backend/internal/models"
)

// ParseClock converts a "H:MM:SS" clock string to fractional hours.
func ParseClock(clock string) (float64, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock string %q", clock)
	}

	var nums [3]float64
	for i, part := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock string %q", clock)
		}
		nums[i] = n
	}

	return nums[0] + nums[1]/60 + nums[2]/3600, nil
}

// FormatClock renders whole seconds as the canonical "H:MM:SS" string.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// SessionHours resolves a session's duration in hours. Timestamps win when
// both are present; otherwise the stored clock string is parsed. Rows that
// have neither, or a malformed clock string, contribute zero hours rather
// than failing the whole aggregation.
func SessionHours(s *models.StudySession) float64 {
	if s.StartedAt != nil && s.EndedAt != nil {
		hours := s.EndedAt.Sub(*s.StartedAt).Hours()
		if hours < 0 {
			return 0
		}
		return hours
	}
	if s.Duration != nil {
		hours, err := ParseClock(*s.Duration)
		if err != nil {
			return 0
		}
		return hours
	}
	return 0
}
