package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"studycircle-backend/internal/middleware"
	"studycircle-backend/internal/models"
	"studycircle-backend/internal/repository"
)

const (
	bcryptCost      = 12
	refreshTokenTTL = 30 * 24 * time.Hour
	accessExpiresIn = 900 // seconds, mirrors the JWT ttl
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

type AuthService struct {
	users          *repository.UserRepository
	rdb            *redis.Client
	jwt            *middleware.JWTAuth
	googleClientID string
	httpClient     *http.Client
}

func NewAuthService(users *repository.UserRepository, rdb *redis.Client, jwt *middleware.JWTAuth, googleClientID string) *AuthService {
	return &AuthService{
		users:          users,
		rdb:            rdb,
		jwt:            jwt,
		googleClientID: googleClientID,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *models.AuthTokens, error) {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, nil, &ValidationError{Field: "email", Message: "invalid email address"}
	}
	if !usernameRe.MatchString(req.Username) {
		return nil, nil, &ValidationError{Field: "username", Message: "username must be 3-30 characters: lowercase letters, digits, underscores"}
	}
	if len(req.Password) < 8 {
		return nil, nil, &ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	if req.FullName == "" {
		return nil, nil, &ValidationError{Field: "full_name", Message: "full name is required"}
	}

	if existing, err := s.users.GetByEmail(ctx, req.Email); err != nil {
		return nil, nil, err
	} else if existing != nil {
		return nil, nil, &ConflictError{Message: "email is already registered"}
	}
	if existing, err := s.users.GetByUsername(ctx, req.Username); err != nil {
		return nil, nil, err
	} else if existing != nil {
		return nil, nil, &ConflictError{Message: "username is taken"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Username:     req.Username,
		AuthProvider: "email",
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, *models.AuthTokens, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil, &UnauthorizedError{Message: "invalid email or password"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, &UnauthorizedError{Message: "invalid email or password"}
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, nil, err
	}
	user.LastLoginAt = &now

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Refresh rotates the refresh token: the presented token is consumed and a
// new pair is issued, so a replayed token fails instead of minting twice.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	key := "refresh:" + refreshToken
	userIDStr, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, &UnauthorizedError{Message: "invalid or expired refresh token"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, &UnauthorizedError{Message: "invalid refresh token"}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &UnauthorizedError{Message: "account no longer exists"}
	}

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.rdb.Del(ctx, "refresh:"+refreshToken).Err()
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return &ValidationError{Field: "new_password", Message: "password must be at least 8 characters"}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return &NotFoundError{Resource: "user"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return &UnauthorizedError{Message: "current password is incorrect"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

type googleTokenInfo struct {
	Aud     string `json:"aud"`
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleLogin verifies the id token against Google's tokeninfo endpoint and
// finds-or-creates the matching account.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*models.User, *models.AuthTokens, error) {
	if s.googleClientID == "" {
		return nil, nil, &ForbiddenError{Message: "google login is not configured"}
	}

	endpoint := "https://oauth2.googleapis.com/tokeninfo?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build tokeninfo request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify google token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, &UnauthorizedError{Message: "invalid google token"}
	}

	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, nil, fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}
	if info.Aud != s.googleClientID {
		return nil, nil, &UnauthorizedError{Message: "google token audience mismatch"}
	}

	user, err := s.users.GetByGoogleID(ctx, info.Sub)
	if err != nil {
		return nil, nil, err
	}

	if user == nil {
		// Link by email if the account already exists, otherwise create.
		user, err = s.users.GetByEmail(ctx, info.Email)
		if err != nil {
			return nil, nil, err
		}
		if user != nil {
			if err := s.users.LinkGoogle(ctx, user.ID, info.Sub); err != nil {
				return nil, nil, err
			}
		} else {
			user = &models.User{
				ID:           uuid.New(),
				Email:        info.Email,
				FullName:     info.Name,
				Username:     s.generateUsername(ctx, info.Email),
				AuthProvider: "google",
				GoogleID:     &info.Sub,
				IsActive:     true,
				CreatedAt:    time.Now(),
			}
			if info.Picture != "" {
				user.AvatarURL = &info.Picture
			}
			if err := s.users.Create(ctx, user); err != nil {
				return nil, nil, err
			}
		}
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *AuthService) generateUsername(ctx context.Context, email string) string {
	base := ""
	for _, r := range email {
		if r == '@' {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			base += string(r)
		} else if r >= 'A' && r <= 'Z' {
			base += string(r + 32)
		}
	}
	if len(base) < 3 {
		base = "user"
	}

	candidate := base
	for i := 0; i < 5; i++ {
		existing, err := s.users.GetByUsername(ctx, candidate)
		if err == nil && existing == nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%s", base, randomToken(2))
	}
	return fmt.Sprintf("%s_%s", base, randomToken(4))
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := randomToken(32)
	if err := s.rdb.Set(ctx, "refresh:"+refresh, user.ID.String(), refreshTokenTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    accessExpiresIn,
	}, nil
}

func randomToken(bytes int) string {
	b := make([]byte, bytes)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Service error types. Handlers map these onto HTTP status codes.

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }
