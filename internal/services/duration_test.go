package services

import (
	"math"
	"testing"
	"time"

	"studycircle-backend/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		clock string
		want  float64
		ok    bool
	}{
		{"1:30:00", 1.5, true},
		{"0:45:00", 0.75, true},
		{"2:00:00", 2.0, true},
		{"0:00:36", 0.01, true},
		{"90:00", 0, false},
		{"1:30", 0, false},
		{"abc", 0, false},
		{"1:xx:00", 0, false},
		{"-1:00:00", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseClock(tt.clock)
		if tt.ok && err != nil {
			t.Errorf("ParseClock(%q) unexpected error: %v", tt.clock, err)
			continue
		}
		if !tt.ok {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error, got %v", tt.clock, got)
			}
			continue
		}
		if !almostEqual(got, tt.want) {
			t.Errorf("ParseClock(%q) = %v, want %v", tt.clock, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(5445); got != "1:30:45" {
		t.Errorf("FormatClock(5445) = %q, want 1:30:45", got)
	}
	if got := FormatClock(-5); got != "0:00:00" {
		t.Errorf("FormatClock(-5) = %q, want 0:00:00", got)
	}
}

func TestSessionHoursTimestampsWin(t *testing.T) {
	start := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	bogus := "9:00:00"

	s := &models.StudySession{StartedAt: &start, EndedAt: &end, Duration: &bogus}
	if got := SessionHours(s); !almostEqual(got, 1.5) {
		t.Errorf("SessionHours = %v, want 1.5 (timestamps should win)", got)
	}
}

func TestSessionHoursClockFallback(t *testing.T) {
	clock := "1:30:00"
	s := &models.StudySession{Duration: &clock}
	if got := SessionHours(s); !almostEqual(got, 1.5) {
		t.Errorf("SessionHours = %v, want 1.5", got)
	}
}

func TestSessionHoursNeverFails(t *testing.T) {
	malformed := "not-a-clock"
	start := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	tests := []struct {
		name string
		s    *models.StudySession
	}{
		{"legacy row with nothing", &models.StudySession{}},
		{"malformed clock string", &models.StudySession{Duration: &malformed}},
		{"end before start", &models.StudySession{StartedAt: &start, EndedAt: &end}},
	}
	for _, tt := range tests {
		if got := SessionHours(tt.s); got != 0 {
			t.Errorf("%s: SessionHours = %v, want 0", tt.name, got)
		}
	}
}
