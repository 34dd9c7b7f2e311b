package services

import (
	"context"

	"github.com/google/uuid"

	"studycircle-backend/internal/models"
	"studycircle-backend/internal/repository"
)

type SocialService struct {
	follows  *repository.FollowRepository
	users    *repository.UserRepository
	notifier *Notifier
}

func NewSocialService(follows *repository.FollowRepository, users *repository.UserRepository, notifier *Notifier) *SocialService {
	return &SocialService{follows: follows, users: users, notifier: notifier}
}

func (s *SocialService) Follow(ctx context.Context, followerID, followingID uuid.UUID) error {
	if followerID == followingID {
		return &ValidationError{Field: "user_id", Message: "cannot follow yourself"}
	}

	target, err := s.users.GetByID(ctx, followingID)
	if err != nil {
		return err
	}
	if target == nil {
		return &NotFoundError{Resource: "user"}
	}

	created, err := s.follows.Follow(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	actor, err := s.users.GetByID(ctx, followerID)
	if err != nil || actor == nil {
		return nil
	}
	s.notifier.Send(ctx, &models.Notification{
		UserID:  followingID,
		Type:    models.NotificationFollow,
		ActorID: &followerID,
		Message: actor.FullName + " started following you",
	})
	return nil
}

func (s *SocialService) Unfollow(ctx context.Context, followerID, followingID uuid.UUID) error {
	_, err := s.follows.Unfollow(ctx, followerID, followingID)
	return err
}

func (s *SocialService) IsFollowing(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	return s.follows.IsFollowing(ctx, followerID, followingID)
}

func (s *SocialService) ListFollowers(ctx context.Context, userID uuid.UUID) ([]models.Profile, error) {
	return s.follows.ListFollowers(ctx, userID)
}

func (s *SocialService) ListFollowing(ctx context.Context, userID uuid.UUID) ([]models.Profile, error) {
	return s.follows.ListFollowing(ctx, userID)
}
