package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// The id format is shared with documents written by the original mobile
// clients, so it must match JavaScript's Date.toDateString() byte for byte.
func TestPostID(t *testing.T) {
	userID := uuid.MustParse("3d9a4e31-5c6f-4a8e-9b2d-7f1c8e6a0b4d")

	tests := []struct {
		day  time.Time
		want string
	}{
		{time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			"3d9a4e31-5c6f-4a8e-9b2d-7f1c8e6a0b4d-Tue Mar 05 2024"},
		{time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			"3d9a4e31-5c6f-4a8e-9b2d-7f1c8e6a0b4d-Sun Dec 31 2023"},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			"3d9a4e31-5c6f-4a8e-9b2d-7f1c8e6a0b4d-Mon Jan 01 2024"},
	}

	for _, tt := range tests {
		if got := PostID(userID, tt.day); got != tt.want {
			t.Errorf("PostID(%v) = %q, want %q", tt.day, got, tt.want)
		}
	}
}

func TestAnchorTime(t *testing.T) {
	created := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	started := created.Add(-2 * time.Hour)

	withStart := &StudySession{StartedAt: &started, CreatedAt: created}
	if !withStart.AnchorTime().Equal(started) {
		t.Error("expected started_at to anchor the session")
	}

	legacy := &StudySession{CreatedAt: created}
	if !legacy.AnchorTime().Equal(created) {
		t.Error("expected created_at to anchor a legacy session")
	}
}
