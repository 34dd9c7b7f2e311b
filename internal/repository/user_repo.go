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

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, username, avatar_url, bio,
	auth_provider, google_id, is_active, followers_count, following_count,
	total_sessions, streak_count, created_at, last_login_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Username,
		&u.AvatarURL, &u.Bio, &u.AuthProvider, &u.GoogleID, &u.IsActive,
		&u.FollowersCount, &u.FollowingCount, &u.TotalSessions, &u.StreakCount,
		&u.CreatedAt, &u.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, username,
			avatar_url, auth_provider, google_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Email, user.PasswordHash, user.FullName, user.Username,
		user.AvatarURL, user.AuthProvider, user.GoogleID, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND is_active = TRUE`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
	return scanUser(row)
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET full_name = $2, username = $3, avatar_url = $4, bio = $5
		WHERE id = $1
	`, user.ID, user.FullName, user.Username, user.AvatarURL, user.Bio)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET password_hash = $2 WHERE id = $1", id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET last_login_at = $2 WHERE id = $1", id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *UserRepository) LinkGoogle(ctx context.Context, id uuid.UUID, googleID string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET google_id = $2 WHERE id = $1", id, googleID)
	if err != nil {
		return fmt.Errorf("failed to link google account: %w", err)
	}
	return nil
}

func (r *UserRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET is_active = FALSE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}

// GetProfiles fetches the public profile slice for a batch of users in one
// query. Missing or deactivated ids are simply absent from the result map.
func (r *UserRepository) GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	profiles := make(map[uuid.UUID]models.Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, full_name, username, avatar_url
		FROM users WHERE id = ANY($1) AND is_active = TRUE
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Username, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}

// ListStreakReminderCandidates returns users holding a streak who have not
// recorded a session since the given instant. Only id and streak_count are
// populated.
func (r *UserRepository) ListStreakReminderCandidates(ctx context.Context, since time.Time) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.streak_count
		FROM users u
		WHERE u.is_active = TRUE AND u.streak_count > 0
		  AND NOT EXISTS (
			SELECT 1 FROM study_sessions s
			WHERE s.user_id = u.id AND COALESCE(s.started_at, s.created_at) >= $1
		  )
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list streak reminder candidates: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.StreakCount); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (r *UserRepository) GetPublicProfile(ctx context.Context, id uuid.UUID) (*models.PublicProfile, error) {
	var p models.PublicProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id, full_name, username, avatar_url, bio,
			followers_count, following_count, total_sessions, streak_count
		FROM users WHERE id = $1 AND is_active = TRUE
	`, id).Scan(
		&p.ID, &p.FullName, &p.Username, &p.AvatarURL, &p.Bio,
		&p.FollowersCount, &p.FollowingCount, &p.TotalSessions, &p.StreakCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch public profile: %w", err)
	}
	return &p, nil
}
