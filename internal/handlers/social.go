package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studycircle-backend/internal/middleware"
	"studycircle-backend/internal/services"
)

type SocialHandler struct {
	social *services.SocialService
}

func NewSocialHandler(social *services.SocialService) *SocialHandler {
	return &SocialHandler{social: social}
}

func (h *SocialHandler) targetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		errorResp(w, r, http.StatusBadRequest, "INVALID_ID", "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	target, ok := h.targetID(w, r)
	if !ok {
		return
	}

	if err := h.social.Follow(r.Context(), userID, target); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "following"})
}

func (h *SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	target, ok := h.targetID(w, r)
	if !ok {
		return
	}

	if err := h.social.Unfollow(r.Context(), userID, target); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unfollowed"})
}

func (h *SocialHandler) FollowStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	target, ok := h.targetID(w, r)
	if !ok {
		return
	}

	following, err := h.social.IsFollowing(r.Context(), userID, target)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"following": following})
}

func (h *SocialHandler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	target, ok := h.targetID(w, r)
	if !ok {
		return
	}

	profiles, err := h.social.ListFollowers(r.Context(), target)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"followers": profiles})
}

func (h *SocialHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	target, ok := h.targetID(w, r)
	if !ok {
		return
	}

	profiles, err := h.social.ListFollowing(r.Context(), target)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"following": profiles})
}
