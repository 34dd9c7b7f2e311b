package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LikeRepository struct {
	pool *pgxpool.Pool
}

func NewLikeRepository(pool *pgxpool.Pool) *LikeRepository {
	return &LikeRepository{pool: pool}
}

// Like inserts the (post, user) pair and bumps the post's likes_count in the
// same transaction. Returns false if the user already liked the post.
func (r *LikeRepository) Like(ctx context.Context, postID string, userID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO likes (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to insert like: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		"UPDATE posts SET likes_count = likes_count + 1 WHERE id = $1",
		postID); err != nil {
		return false, fmt.Errorf("failed to bump likes count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit like: %w", err)
	}
	return true, nil
}

func (r *LikeRepository) Unlike(ctx context.Context, postID string, userID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"DELETE FROM likes WHERE post_id = $1 AND user_id = $2", postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete like: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		"UPDATE posts SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1",
		postID); err != nil {
		return false, fmt.Errorf("failed to drop likes count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit unlike: %w", err)
	}
	return true, nil
}

// LikedSet reports which of the given posts the user has liked, for
// decorating feed responses in one query instead of one per post.
func (r *LikeRepository) LikedSet(ctx context.Context, userID uuid.UUID, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}

	rows, err := r.pool.Query(ctx,
		"SELECT post_id FROM likes WHERE user_id = $1 AND post_id = ANY($2)",
		userID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch liked set: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		liked[id] = true
	}
	return liked, rows.Err()
}
