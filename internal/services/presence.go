package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"studycircle-backend/internal/models"
	"studycircle-backend/internal/repository"
)

// Sessions older than this never count toward a streak, which bounds the
// walk no matter how long a user has been around.
const streakLookback = 400 * 24 * time.Hour

type presenceStore interface {
	Start(ctx context.Context, p *models.Presence) error
	Stop(ctx context.Context, userID uuid.UUID, streak int) (*models.Presence, error)
	SetPaused(ctx context.Context, userID uuid.UUID, paused bool, now time.Time) (*models.Presence, error)
	ListActiveFor(ctx context.Context, userIDs []uuid.UUID) ([]*models.PresenceEntry, error)
}

type edgeStore interface {
	ListFollowingIDs(ctx context.Context, followerID uuid.UUID) ([]uuid.UUID, error)
	ListFollowerIDs(ctx context.Context, followingID uuid.UUID) ([]uuid.UUID, error)
}

type anchorStore interface {
	ListAnchorTimes(ctx context.Context, userID uuid.UUID, lookback time.Duration) ([]time.Time, error)
}

type updatePublisher interface {
	PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error
}

type PresenceService struct {
	presence  presenceStore
	edges     edgeStore
	sessions  anchorStore
	publisher updatePublisher
	now       func() time.Time
}

func NewPresenceService(presence presenceStore, edges edgeStore, sessions anchorStore, publisher updatePublisher) *PresenceService {
	return &PresenceService{
		presence:  presence,
		edges:     edges,
		sessions:  sessions,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *PresenceService) Start(ctx context.Context, userID uuid.UUID, subject string, notes *string) (*models.Presence, error) {
	p := &models.Presence{
		UserID:    userID,
		Subject:   subject,
		StartedAt: s.now(),
		Notes:     notes,
	}
	if err := s.presence.Start(ctx, p); err != nil {
		if errors.Is(err, repository.ErrAlreadyStudying) {
			return nil, &ConflictError{Message: "a study session is already running"}
		}
		return nil, err
	}
	return p, nil
}

// Stop ends the live session and settles the user's streak from their
// recorded sessions, both in the same transaction as the presence delete.
func (s *PresenceService) Stop(ctx context.Context, userID uuid.UUID, tzOffsetMinutes int) (*models.Presence, int, error) {
	anchors, err := s.sessions.ListAnchorTimes(ctx, userID, streakLookback)
	if err != nil {
		return nil, 0, err
	}
	streak := ComputeStreak(anchors, s.now(), OffsetZone(tzOffsetMinutes))

	p, err := s.presence.Stop(ctx, userID, streak)
	if err != nil {
		return nil, 0, err
	}
	if p == nil {
		return nil, 0, &NotFoundError{Resource: "active study session"}
	}
	return p, streak, nil
}

func (s *PresenceService) Pause(ctx context.Context, userID uuid.UUID) (*models.Presence, error) {
	return s.setPaused(ctx, userID, true)
}

func (s *PresenceService) Resume(ctx context.Context, userID uuid.UUID) (*models.Presence, error) {
	return s.setPaused(ctx, userID, false)
}

func (s *PresenceService) setPaused(ctx context.Context, userID uuid.UUID, paused bool) (*models.Presence, error) {
	p, err := s.presence.SetPaused(ctx, userID, paused, s.now())
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &NotFoundError{Resource: "active study session"}
	}
	return p, nil
}

// WatchList is what a user's "currently studying" panel shows: live sessions
// of themselves and everyone they follow, elapsed clocks computed at read
// time.
func (s *PresenceService) WatchList(ctx context.Context, viewerID uuid.UUID) ([]*models.PresenceEntry, error) {
	following, err := s.edges.ListFollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	ids := append([]uuid.UUID{viewerID}, following...)

	entries, err := s.presence.ListActiveFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, e := range entries {
		e.ElapsedSeconds, e.Elapsed = CalculateElapsed(&e.Presence, now)
	}
	return entries, nil
}

// NotifyFollowers rebuilds each follower's watch list and pushes it to their
// channel, so clients never have to merge deltas. One follower's failure
// loses that follower's update, not everyone's.
func (s *PresenceService) NotifyFollowers(ctx context.Context, userID uuid.UUID, event string) error {
	followers, err := s.edges.ListFollowerIDs(ctx, userID)
	if err != nil {
		return err
	}
	for _, follower := range followers {
		entries, err := s.WatchList(ctx, follower)
		if err != nil {
			log.Printf("presence fanout: failed to build watch list for %s: %v", follower, err)
			continue
		}
		msg := models.WSMessage{
			Type: "studying_update",
			Payload: map[string]interface{}{
				"user_id":  userID,
				"event":    event,
				"studying": entries,
			},
		}
		if err := s.publisher.PublishUpdate(ctx, follower, msg); err != nil {
			log.Printf("presence fanout: failed to notify %s: %v", follower, err)
		}
	}
	return nil
}

// CalculateElapsed returns the studying seconds of a live session, with
// accumulated pauses (including the one in progress) taken out, never
// negative, plus the display string.
func CalculateElapsed(p *models.Presence, now time.Time) (int, string) {
	paused := p.PausedSeconds
	if p.IsPaused {
		paused += int(now.Sub(p.UpdatedAt).Seconds())
	}

	seconds := int(now.Sub(p.StartedAt).Seconds()) - paused
	if seconds < 0 {
		seconds = 0
	}
	return seconds, FormatElapsed(seconds, p.IsPaused)
}

// FormatElapsed renders an elapsed clock the way the clients display it.
func FormatElapsed(seconds int, paused bool) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	sec := seconds % 60

	var out string
	switch {
	case h > 0:
		out = fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		out = fmt.Sprintf("%dm %ds", m, sec)
	default:
		out = fmt.Sprintf("%ds", sec)
	}

	if paused {
		out += "\nbreak ☕"
	}
	return out
}
