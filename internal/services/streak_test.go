package services

import (
	"testing"
	"time"
)

func TestComputeStreak(t *testing.T) {
	now := time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time { return now.AddDate(0, 0, offset) }

	tests := []struct {
		name    string
		anchors []time.Time
		want    int
	}{
		{"no sessions", nil, 0},
		{"four consecutive days through today", []time.Time{day(0), day(-1), day(-2), day(-3)}, 4},
		{"chain ended two days ago", []time.Time{day(-2), day(-3)}, 0},
		{"yesterday anchors the streak", []time.Time{day(-1), day(-2)}, 2},
		{"gap breaks the walk", []time.Time{day(0), day(-2), day(-3)}, 1},
		{"today only", []time.Time{day(0)}, 1},
		{"multiple sessions one day count once", []time.Time{day(0), day(0).Add(time.Hour), day(-1)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStreak(tt.anchors, now, time.UTC); got != tt.want {
				t.Errorf("ComputeStreak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeStreakLocalMidnight(t *testing.T) {
	// 01:00 UTC on the 8th is still the 7th at UTC-5. A session late on the
	// local 7th and one on the local 6th make a 2-day streak there, while
	// the UTC calendar would see a broken chain.
	loc := OffsetZone(-300)
	now := time.Date(2024, 3, 8, 1, 0, 0, 0, time.UTC)
	anchors := []time.Time{
		time.Date(2024, 3, 7, 23, 30, 0, 0, time.UTC), // local Mar 7 18:30
		time.Date(2024, 3, 6, 20, 0, 0, 0, time.UTC),  // local Mar 6 15:00
	}

	if got := ComputeStreak(anchors, now, loc); got != 2 {
		t.Errorf("ComputeStreak = %d, want 2 in UTC-5", got)
	}
}
