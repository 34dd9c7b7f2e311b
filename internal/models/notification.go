package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationFollow         = "follow"
	NotificationLike           = "like"
	NotificationStreakReminder = "streak_reminder"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Type      string     `json:"type"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	PostID    *string    `json:"post_id,omitempty"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

// WSMessage is the envelope pushed over the websocket hub.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
