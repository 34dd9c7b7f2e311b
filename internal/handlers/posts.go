package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studycircle-backend/internal/middleware"
	"studycircle-backend/internal/services"
)

const defaultFeedLimit = 30

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// feedLimit reads the limit query parameter, capped so one request cannot
// drag an unbounded page out of the store.
func feedLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return defaultFeedLimit
}

// GetSocialFeed merges the viewer's posts with everyone they follow.
func (h *PostHandler) GetSocialFeed(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	feed, err := h.posts.GetSocialFeed(r.Context(), userID, feedLimit(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": feed})
}

// GetUserPosts returns one user's recent daily posts.
func (h *PostHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.GetUserID(r.Context())

	targetID := viewerID
	if param := chi.URLParam(r, "id"); param != "" {
		parsed, err := uuid.Parse(param)
		if err != nil {
			errorResp(w, r, http.StatusBadRequest, "INVALID_ID", "invalid user id")
			return
		}
		targetID = parsed
	}

	feed, err := h.posts.GetUserFeed(r.Context(), viewerID, targetID, feedLimit(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": feed})
}

// dailyAnchor resolves the requested local day: the date query parameter
// interpreted in the client's zone, defaulting to the client's today.
func dailyAnchor(r *http.Request) (time.Time, bool) {
	loc := services.OffsetZone(tzOffset(r))
	if v := r.URL.Query().Get("date"); v != "" {
		day, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			return time.Time{}, false
		}
		return day, true
	}
	return time.Now().In(loc), true
}

// GetDaily serves the viewer's aggregate for one local day, materializing it
// if needed.
func (h *PostHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	anchor, ok := dailyAnchor(r)
	if !ok {
		errorResp(w, r, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
		return
	}

	post, err := h.posts.GetDaily(r.Context(), userID, anchor, tzOffset(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// RecomputeDaily force-rebuilds one local day from the raw sessions,
// discarding the incremental aggregate.
func (h *PostHandler) RecomputeDaily(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	anchor, ok := dailyAnchor(r)
	if !ok {
		errorResp(w, r, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
		return
	}

	post, err := h.posts.RecomputeDay(r.Context(), userID, anchor, tzOffset(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	postID := chi.URLParam(r, "id")

	if err := h.posts.Like(r.Context(), postID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "liked"})
}

func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	postID := chi.URLParam(r, "id")

	if err := h.posts.Unlike(r.Context(), postID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unliked"})
}
