package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studycircle-backend/internal/models"
)

type FollowRepository struct {
	pool *pgxpool.Pool
}

func NewFollowRepository(pool *pgxpool.Pool) *FollowRepository {
	return &FollowRepository{pool: pool}
}

// Follow inserts the edge and bumps both denormalized counters in one
// transaction. Returns false if the edge already existed.
func (r *FollowRepository) Follow(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO follows (follower_id, following_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING
	`, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to insert follow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		"UPDATE users SET following_count = following_count + 1 WHERE id = $1",
		followerID); err != nil {
		return false, fmt.Errorf("failed to bump following count: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE users SET followers_count = followers_count + 1 WHERE id = $1",
		followingID); err != nil {
		return false, fmt.Errorf("failed to bump followers count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit follow: %w", err)
	}
	return true, nil
}

// Unfollow removes the edge and decrements the counters. Counters only move
// when a row was actually deleted, so repeated unfollows cannot drive them
// negative.
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"DELETE FROM follows WHERE follower_id = $1 AND following_id = $2",
		followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		"UPDATE users SET following_count = GREATEST(following_count - 1, 0) WHERE id = $1",
		followerID); err != nil {
		return false, fmt.Errorf("failed to drop following count: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE users SET followers_count = GREATEST(followers_count - 1, 0) WHERE id = $1",
		followingID); err != nil {
		return false, fmt.Errorf("failed to drop followers count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit unfollow: %w", err)
	}
	return true, nil
}

func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)
	`, followerID, followingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

func (r *FollowRepository) ListFollowingIDs(ctx context.Context, followerID uuid.UUID) ([]uuid.UUID, error) {
	return r.listIDs(ctx,
		"SELECT following_id FROM follows WHERE follower_id = $1", followerID)
}

func (r *FollowRepository) ListFollowerIDs(ctx context.Context, followingID uuid.UUID) ([]uuid.UUID, error) {
	return r.listIDs(ctx,
		"SELECT follower_id FROM follows WHERE following_id = $1", followingID)
}

func (r *FollowRepository) listIDs(ctx context.Context, query string, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow edges: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan follow edge: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *FollowRepository) ListFollowers(ctx context.Context, userID uuid.UUID) ([]models.Profile, error) {
	return r.listProfiles(ctx, `
		SELECT u.id, u.full_name, u.username, u.avatar_url
		FROM follows f JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1 AND u.is_active = TRUE
		ORDER BY f.created_at DESC
	`, userID)
}

func (r *FollowRepository) ListFollowing(ctx context.Context, userID uuid.UUID) ([]models.Profile, error) {
	return r.listProfiles(ctx, `
		SELECT u.id, u.full_name, u.username, u.avatar_url
		FROM follows f JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1 AND u.is_active = TRUE
		ORDER BY f.created_at DESC
	`, userID)
}

func (r *FollowRepository) listProfiles(ctx context.Context, query string, id uuid.UUID) ([]models.Profile, error) {
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Username, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
