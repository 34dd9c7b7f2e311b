package models

import (
	"time"

	"github.com/google/uuid"
)

// StudySession is an immutable record of a completed session. Older clients
// wrote only a clock-string duration; newer ones write both timestamps. Some
// legacy rows carry neither, and aggregation has to survive all three shapes.
type StudySession struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Subject   string     `json:"subject"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Duration  *string    `json:"duration,omitempty"` // canonical "H:MM:SS"
	Notes     *string    `json:"notes,omitempty"`
	Color     *string    `json:"color,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AnchorTime is the instant a session is bucketed by: the start time when
// recorded, otherwise the write time.
func (s *StudySession) AnchorTime() time.Time {
	if s.StartedAt != nil {
		return *s.StartedAt
	}
	return s.CreatedAt
}
