package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studycircle-backend/internal/models"
)

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

const postColumns = `id, user_id, post_date, total_study_time, session_count,
	subjects, longest_session, insights, most_productive_time, likes_count,
	author_name, author_username, author_avatar_url, created_at, updated_at`

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID, &p.UserID, &p.PostDate, &p.TotalStudyTime, &p.SessionCount,
		&p.Subjects, &p.LongestSession, &p.Insights, &p.MostProductiveTime,
		&p.LikesCount, &p.Author.FullName, &p.Author.Username,
		&p.Author.AvatarURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Author.ID = p.UserID
	return &p, nil
}

func scanPosts(rows pgx.Rows) ([]*models.Post, error) {
	defer rows.Close()
	var posts []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *PostRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
}

// ApplyIncremental runs a read-modify-write against one post row inside a
// transaction, locking the row with FOR UPDATE so two workers updating the
// same day serialize instead of clobbering each other. The callback receives
// nil when no row exists yet and returns the post to store. likes_count is
// never written here: likes belong to the social layer, not the aggregation
// that rebuilt the row.
func (r *PostRepository) ApplyIncremental(ctx context.Context, id string, apply func(existing *models.Post) (*models.Post, error)) (*models.Post, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := scanPost(tx.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock post row: %w", err)
	}

	updated, err := apply(existing)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO posts (id, user_id, post_date, total_study_time,
			session_count, subjects, longest_session, insights,
			most_productive_time, author_name, author_username,
			author_avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			total_study_time = EXCLUDED.total_study_time,
			session_count = EXCLUDED.session_count,
			subjects = EXCLUDED.subjects,
			longest_session = EXCLUDED.longest_session,
			insights = EXCLUDED.insights,
			most_productive_time = EXCLUDED.most_productive_time,
			updated_at = NOW()
	`, updated.ID, updated.UserID, updated.PostDate, updated.TotalStudyTime,
		updated.SessionCount, updated.Subjects, updated.LongestSession,
		updated.Insights, updated.MostProductiveTime, updated.Author.FullName,
		updated.Author.Username, updated.Author.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("failed to write post: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit post update: %w", err)
	}
	return updated, nil
}

func (r *PostRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE user_id = $1 ORDER BY post_date DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return scanPosts(rows)
}

// RefreshAuthorSnapshot restamps the denormalized author columns on all of a
// user's posts after a profile edit.
func (r *PostRepository) RefreshAuthorSnapshot(ctx context.Context, p models.Profile) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE posts SET author_name = $2, author_username = $3,
			author_avatar_url = $4, updated_at = NOW()
		WHERE user_id = $1
	`, p.ID, p.FullName, p.Username, p.AvatarURL)
	if err != nil {
		return fmt.Errorf("failed to refresh author snapshot: %w", err)
	}
	return nil
}
