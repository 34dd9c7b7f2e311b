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

type StudySessionRepository struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepository(pool *pgxpool.Pool) *StudySessionRepository {
	return &StudySessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, subject, started_at, ended_at, duration,
	notes, color, created_at`

func scanSessions(rows pgx.Rows) ([]*models.StudySession, error) {
	defer rows.Close()
	var sessions []*models.StudySession
	for rows.Next() {
		var s models.StudySession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Subject, &s.StartedAt, &s.EndedAt,
			&s.Duration, &s.Notes, &s.Color, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func (r *StudySessionRepository) Create(ctx context.Context, s *models.StudySession) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO study_sessions (id, user_id, subject, started_at, ended_at,
			duration, notes, color, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.UserID, s.Subject, s.StartedAt, s.EndedAt, s.Duration, s.Notes,
		s.Color, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create study session: %w", err)
	}
	return nil
}

func (r *StudySessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	var s models.StudySession
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.Subject, &s.StartedAt, &s.EndedAt, &s.Duration,
		&s.Notes, &s.Color, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return &s, nil
}

// ListForRange returns a user's sessions whose anchor time falls in
// [from, to). Rows without a start time are anchored at created_at.
func (r *StudySessionRepository) ListForRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.StudySession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM study_sessions
		WHERE user_id = $1
		  AND COALESCE(started_at, created_at) >= $2
		  AND COALESCE(started_at, created_at) < $3
		ORDER BY COALESCE(started_at, created_at)
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return scanSessions(rows)
}

// ListAnchorTimes returns just the anchor instants of a user's recent
// sessions, newest first. Used by the streak walk; lookback bounds the scan.
func (r *StudySessionRepository) ListAnchorTimes(ctx context.Context, userID uuid.UUID, lookback time.Duration) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(started_at, created_at)
		FROM study_sessions
		WHERE user_id = $1 AND COALESCE(started_at, created_at) >= $2
		ORDER BY COALESCE(started_at, created_at) DESC
	`, userID, time.Now().Add(-lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to list session times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan session time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (r *StudySessionRepository) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM study_sessions WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
