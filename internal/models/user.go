package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	FullName       string     `json:"full_name"`
	Username       string     `json:"username"`
	AvatarURL      *string    `json:"avatar_url"`
	Bio            *string    `json:"bio"`
	AuthProvider   string     `json:"auth_provider"`
	GoogleID       *string    `json:"-"`
	IsActive       bool       `json:"is_active"`
	FollowersCount int        `json:"followers_count"`
	FollowingCount int        `json:"following_count"`
	TotalSessions  int        `json:"total_sessions"`
	StreakCount    int        `json:"streak_count"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at"`
}

// Profile is the public, denormalizable slice of a user: what gets stamped
// onto posts and presence entries as an author snapshot.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
}

type PublicProfile struct {
	Profile
	Bio            *string `json:"bio"`
	FollowersCount int     `json:"followers_count"`
	FollowingCount int     `json:"following_count"`
	TotalSessions  int     `json:"total_sessions"`
	StreakCount    int     `json:"streak_count"`
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}
