package services

import (
	"strings"
	"testing"
	"time"

	"studycircle-backend/internal/models"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds int
		paused  bool
		want    string
	}{
		{3725, false, "1h 2m"},
		{7200, false, "2h 0m"},
		{125, false, "2m 5s"},
		{42, false, "42s"},
		{0, false, "0s"},
		{125, true, "2m 5s\nbreak ☕"},
		{3725, true, "1h 2m\nbreak ☕"},
	}

	for _, tt := range tests {
		if got := FormatElapsed(tt.seconds, tt.paused); got != tt.want {
			t.Errorf("FormatElapsed(%d, %v) = %q, want %q", tt.seconds, tt.paused, got, tt.want)
		}
	}
}

func TestCalculateElapsed(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	t.Run("pauses subtract from the clock", func(t *testing.T) {
		p := &models.Presence{
			StartedAt:     now.Add(-time.Hour),
			PausedSeconds: 600,
		}
		seconds, display := CalculateElapsed(p, now)
		if seconds != 3000 {
			t.Errorf("seconds = %d, want 3000", seconds)
		}
		if display != "50m 0s" {
			t.Errorf("display = %q, want 50m 0s", display)
		}
	})

	t.Run("a pause in progress keeps counting against the clock", func(t *testing.T) {
		p := &models.Presence{
			StartedAt:     now.Add(-time.Hour),
			IsPaused:      true,
			PausedSeconds: 600,
			UpdatedAt:     now.Add(-5 * time.Minute),
		}
		seconds, display := CalculateElapsed(p, now)
		if seconds != 2700 {
			t.Errorf("seconds = %d, want 2700", seconds)
		}
		if !strings.HasSuffix(display, "break ☕") {
			t.Errorf("display = %q, want paused suffix", display)
		}
	})

	t.Run("never negative", func(t *testing.T) {
		p := &models.Presence{
			StartedAt:     now.Add(-time.Minute),
			PausedSeconds: 3600,
		}
		seconds, display := CalculateElapsed(p, now)
		if seconds != 0 {
			t.Errorf("seconds = %d, want 0", seconds)
		}
		if display != "0s" {
			t.Errorf("display = %q, want 0s", display)
		}
	})
}
