package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"studycircle-backend/internal/models"
	"studycircle-backend/internal/repository"
)

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name"`
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
}

type UserService struct {
	users    *repository.UserRepository
	sessions *repository.StudySessionRepository
	posts    *repository.PostRepository
}

func NewUserService(users *repository.UserRepository, sessions *repository.StudySessionRepository, posts *repository.PostRepository) *UserService {
	return &UserService{users: users, sessions: sessions, posts: posts}
}

func (s *UserService) GetMe(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &NotFoundError{Resource: "user"}
	}
	return user, nil
}

func (s *UserService) GetPublicProfile(ctx context.Context, userID uuid.UUID) (*models.PublicProfile, error) {
	profile, err := s.users.GetPublicProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &NotFoundError{Resource: "user"}
	}
	return profile, nil
}

// UpdateProfile applies the given fields and restamps the user's denormalized
// author snapshots so old posts show the new identity.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetMe(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		if !usernameRe.MatchString(*req.Username) {
			return nil, &ValidationError{Field: "username", Message: "username must be 3-30 characters: lowercase letters, digits, underscores"}
		}
		existing, err := s.users.GetByUsername(ctx, *req.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, &ConflictError{Message: "username is taken"}
		}
		user.Username = *req.Username
	}
	if req.FullName != nil {
		if *req.FullName == "" {
			return nil, &ValidationError{Field: "full_name", Message: "full name cannot be empty"}
		}
		user.FullName = *req.FullName
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.posts.RefreshAuthorSnapshot(ctx, models.Profile{
		ID:        user.ID,
		FullName:  user.FullName,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
	}); err != nil {
		log.Printf("failed to refresh author snapshot for %s: %v", user.ID, err)
	}
	return user, nil
}

// Streak computes the user's current streak live from their sessions,
// bypassing the cached streak_count column.
func (s *UserService) Streak(ctx context.Context, userID uuid.UUID, tzOffsetMinutes int) (int, error) {
	anchors, err := s.sessions.ListAnchorTimes(ctx, userID, streakLookback)
	if err != nil {
		return 0, err
	}
	return ComputeStreak(anchors, time.Now(), OffsetZone(tzOffsetMinutes)), nil
}

func (s *UserService) Deactivate(ctx context.Context, userID uuid.UUID) error {
	return s.users.Deactivate(ctx, userID)
}
