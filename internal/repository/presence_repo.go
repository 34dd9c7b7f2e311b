package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studycircle-backend/internal/models"
)

// ErrAlreadyStudying is returned by Start when the user has a live session.
var ErrAlreadyStudying = errors.New("user already has an active study session")

type PresenceRepository struct {
	pool *pgxpool.Pool
}

func NewPresenceRepository(pool *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{pool: pool}
}

// Start creates the presence row and bumps total_sessions in one
// transaction. A second start while one is live is rejected, not merged.
func (r *PresenceRepository) Start(ctx context.Context, p *models.Presence) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO currently_studying (user_id, subject, started_at, notes,
			is_paused, paused_seconds, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, 0, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, p.UserID, p.Subject, p.StartedAt, p.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert presence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyStudying
	}

	if _, err := tx.Exec(ctx,
		"UPDATE users SET total_sessions = total_sessions + 1 WHERE id = $1",
		p.UserID); err != nil {
		return fmt.Errorf("failed to bump total sessions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit presence start: %w", err)
	}
	return nil
}

// Stop deletes the presence row and writes the given streak value in one
// transaction. Returns the deleted row, or nil if none existed.
func (r *PresenceRepository) Stop(ctx context.Context, userID uuid.UUID, streak int) (*models.Presence, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var p models.Presence
	err = tx.QueryRow(ctx, `
		DELETE FROM currently_studying WHERE user_id = $1
		RETURNING user_id, subject, started_at, notes, is_paused, paused_seconds, updated_at
	`, userID).Scan(&p.UserID, &p.Subject, &p.StartedAt, &p.Notes, &p.IsPaused,
		&p.PausedSeconds, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete presence: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE users SET streak_count = $2 WHERE id = $1", userID, streak); err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit presence stop: %w", err)
	}
	return &p, nil
}

// SetPaused flips the pause flag. When resuming, the seconds spent paused
// since the last update are folded into paused_seconds.
func (r *PresenceRepository) SetPaused(ctx context.Context, userID uuid.UUID, paused bool, now time.Time) (*models.Presence, error) {
	var p models.Presence
	err := r.pool.QueryRow(ctx, `
		UPDATE currently_studying SET
			paused_seconds = CASE
				WHEN is_paused AND NOT $2 THEN paused_seconds + GREATEST(0, EXTRACT(EPOCH FROM ($3 - updated_at)))::INT
				ELSE paused_seconds
			END,
			is_paused = $2,
			updated_at = $3
		WHERE user_id = $1
		RETURNING user_id, subject, started_at, notes, is_paused, paused_seconds, updated_at
	`, userID, paused, now).Scan(&p.UserID, &p.Subject, &p.StartedAt, &p.Notes,
		&p.IsPaused, &p.PausedSeconds, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update presence pause state: %w", err)
	}
	return &p, nil
}

// ListActiveFor returns live presence rows for the given users joined with
// their profiles, newest start first.
func (r *PresenceRepository) ListActiveFor(ctx context.Context, userIDs []uuid.UUID) ([]*models.PresenceEntry, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT c.user_id, c.subject, c.started_at, c.notes, c.is_paused,
			c.paused_seconds, c.updated_at,
			u.full_name, u.username, u.avatar_url
		FROM currently_studying c
		JOIN users u ON u.id = c.user_id
		WHERE c.user_id = ANY($1) AND u.is_active = TRUE
		ORDER BY c.started_at DESC
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}
	defer rows.Close()

	var entries []*models.PresenceEntry
	for rows.Next() {
		var e models.PresenceEntry
		if err := rows.Scan(&e.UserID, &e.Subject, &e.StartedAt, &e.Notes,
			&e.IsPaused, &e.PausedSeconds, &e.UpdatedAt,
			&e.Author.FullName, &e.Author.Username, &e.Author.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan presence entry: %w", err)
		}
		e.Author.ID = e.UserID
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
