package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"studycircle-backend/internal/middleware"
	"studycircle-backend/internal/models"
	"studycircle-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func errorResp(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	errorRespWithFields(w, r, status, code, message, nil)
}

func errorRespWithFields(w http.ResponseWriter, r *http.Request, status int, code, message string, fields map[string]string) {
	writeJSON(w, status, models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}

// handleServiceError maps the service error taxonomy onto HTTP statuses.
// Anything unrecognized is a 500 with the detail kept in the logs.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr   *services.ValidationError
		conflictErr     *services.ConflictError
		notFoundErr     *services.NotFoundError
		unauthorizedErr *services.UnauthorizedError
		forbiddenErr    *services.ForbiddenError
	)

	switch {
	case errors.As(err, &validationErr):
		errorRespWithFields(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			validationErr.Message, map[string]string{validationErr.Field: validationErr.Message})
	case errors.As(err, &conflictErr):
		errorResp(w, r, http.StatusConflict, "CONFLICT", conflictErr.Message)
	case errors.As(err, &notFoundErr):
		errorResp(w, r, http.StatusNotFound, "NOT_FOUND", notFoundErr.Error())
	case errors.As(err, &unauthorizedErr):
		errorResp(w, r, http.StatusUnauthorized, "UNAUTHORIZED", unauthorizedErr.Message)
	case errors.As(err, &forbiddenErr):
		errorResp(w, r, http.StatusForbidden, "FORBIDDEN", forbiddenErr.Message)
	default:
		log.Printf("internal error [%s]: %v", middleware.GetRequestID(r.Context()), err)
		errorResp(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "something went wrong")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errorResp(w, r, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		return false
	}
	return true
}

// tzOffset reads the client's UTC offset in minutes east of UTC from the
// tz_offset query parameter. Absent or garbage means UTC.
func tzOffset(r *http.Request) int {
	v := r.URL.Query().Get("tz_offset")
	if v == "" {
		return 0
	}
	offset, err := strconv.Atoi(v)
	if err != nil || offset < -840 || offset > 840 {
		return 0
	}
	return offset
}

type authResponse struct {
	User   *models.User       `json:"user"`
	Tokens *models.AuthTokens `json:"tokens"`
}

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, tokens, err := h.auth.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: user, Tokens: tokens})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, tokens, err := h.auth.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.GoogleLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, tokens, err := h.auth.GoogleLogin(r.Context(), req.IDToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}
