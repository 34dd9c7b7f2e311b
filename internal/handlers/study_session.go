package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studycircle-backend/internal/middleware"
	"studycircle-backend/internal/models"
	"studycircle-backend/internal/repository"
	"studycircle-backend/internal/services"
	"studycircle-backend/internal/worker"
)

type StudySessionHandler struct {
	sessions          *repository.StudySessionRepository
	posts             *services.PostService
	rdb               *redis.Client
	minSessionSeconds int
}

func NewStudySessionHandler(sessions *repository.StudySessionRepository,
	posts *services.PostService, rdb *redis.Client, minSessionSeconds int) *StudySessionHandler {
	return &StudySessionHandler{
		sessions:          sessions,
		posts:             posts,
		rdb:               rdb,
		minSessionSeconds: minSessionSeconds,
	}
}

type createSessionRequest struct {
	Subject   string     `json:"subject"`
	StartedAt *time.Time `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Duration  *string    `json:"duration"`
	Notes     *string    `json:"notes"`
	Color     *string    `json:"color"`
}

func (h *StudySessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Subject == "" {
		errorResp(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "subject is required")
		return
	}
	if (req.StartedAt == nil) != (req.EndedAt == nil) {
		errorResp(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "started_at and ended_at must be sent together")
		return
	}
	if req.StartedAt == nil && req.Duration == nil {
		errorResp(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "either timestamps or a duration is required")
		return
	}

	session := &models.StudySession{
		ID:        uuid.New(),
		UserID:    userID,
		Subject:   req.Subject,
		StartedAt: req.StartedAt,
		EndedAt:   req.EndedAt,
		Duration:  req.Duration,
		Notes:     req.Notes,
		Color:     req.Color,
		CreatedAt: time.Now(),
	}

	// Clients fire session writes on every timer stop; drop the fat-finger
	// ones before they pollute the daily aggregates.
	if services.SessionHours(session)*3600 < float64(h.minSessionSeconds) {
		errorResp(w, r, http.StatusBadRequest, "SESSION_TOO_SHORT",
			"session is too short to record")
		return
	}

	if err := h.sessions.Create(r.Context(), session); err != nil {
		handleServiceError(w, r, err)
		return
	}

	sessionID := session.ID
	if err := worker.Enqueue(r.Context(), h.rdb, worker.QueuePostAggregation, worker.Job{
		Type:            worker.JobTypePost,
		UserID:          userID,
		SessionID:       &sessionID,
		TZOffsetMinutes: tzOffset(r),
	}); err != nil {
		// The session is saved; the next session on this day folds the
		// missing one back in via the full rebuild path.
		log.Printf("failed to enqueue aggregation for session %s: %v", sessionID, err)
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *StudySessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}

	sessions, err := h.sessions.ListForRange(r.Context(), userID, from, to)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// Delete removes a session and synchronously rebuilds that day's post, since
// the incremental path can only add.
func (h *StudySessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		errorResp(w, r, http.StatusBadRequest, "INVALID_ID", "invalid session id")
		return
	}

	session, err := h.sessions.GetByID(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if session == nil || session.UserID != userID {
		errorResp(w, r, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}

	deleted, err := h.sessions.Delete(r.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !deleted {
		errorResp(w, r, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}

	if _, err := h.posts.RecomputeDay(r.Context(), userID, session.AnchorTime(), tzOffset(r)); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
