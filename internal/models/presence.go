package models

import (
	"time"

	"github.com/google/uuid"
)

// Presence is the ephemeral "currently studying" record. At most one exists
// per user; it is deleted when the session stops.
type Presence struct {
	UserID        uuid.UUID `json:"user_id"`
	Subject       string    `json:"subject"`
	StartedAt     time.Time `json:"started_at"`
	Notes         *string   `json:"notes,omitempty"`
	IsPaused      bool      `json:"is_paused"`
	PausedSeconds int       `json:"paused_seconds"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PresenceEntry is a presence record joined with the studying user's profile
// and the elapsed time computed at read time. This is what followers see.
type PresenceEntry struct {
	Presence
	Author         Profile `json:"author"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	Elapsed        string  `json:"elapsed"`
}
