package handlers

import (
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"studycircle-backend/internal/middleware"
	"studycircle-backend/internal/models"
	"studycircle-backend/internal/services"
	"studycircle-backend/internal/worker"
)

type PresenceHandler struct {
	presence *services.PresenceService
	rdb      *redis.Client
}

func NewPresenceHandler(presence *services.PresenceService, rdb *redis.Client) *PresenceHandler {
	return &PresenceHandler{presence: presence, rdb: rdb}
}

type startPresenceRequest struct {
	Subject string  `json:"subject"`
	Notes   *string `json:"notes"`
}

func (h *PresenceHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req startPresenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Subject == "" {
		errorResp(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "subject is required")
		return
	}

	p, err := h.presence.Start(r.Context(), userID, req.Subject, req.Notes)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.enqueueFanout(r, "started")
	writeJSON(w, http.StatusCreated, p)
}

func (h *PresenceHandler) Stop(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	p, streak, err := h.presence.Stop(r.Context(), userID, tzOffset(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.enqueueFanout(r, "stopped")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"presence": p,
		"streak":   streak,
	})
}

func (h *PresenceHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

func (h *PresenceHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *PresenceHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	userID, _ := middleware.GetUserID(r.Context())

	var (
		p   *models.Presence
		err error
	)
	if paused {
		p, err = h.presence.Pause(r.Context(), userID)
	} else {
		p, err = h.presence.Resume(r.Context(), userID)
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	event := "resumed"
	if paused {
		event = "paused"
	}
	h.enqueueFanout(r, event)
	writeJSON(w, http.StatusOK, p)
}

// WatchList shows live sessions of the viewer and everyone they follow.
func (h *PresenceHandler) WatchList(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	entries, err := h.presence.WatchList(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"studying": entries})
}

// Fanout is best-effort: the state change already committed, and the next
// poll of the watch list shows it regardless.
func (h *PresenceHandler) enqueueFanout(r *http.Request, event string) {
	userID, _ := middleware.GetUserID(r.Context())
	if err := worker.Enqueue(r.Context(), h.rdb, worker.QueuePresenceFanout, worker.Job{
		Type:   worker.JobTypeFan,
		UserID: userID,
		Event:  event,
	}); err != nil {
		log.Printf("failed to enqueue presence fanout for %s: %v", userID, err)
	}
}
