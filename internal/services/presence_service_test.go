package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"studycircle-backend/internal/models"
)

type fakePresenceStore struct {
	active      []*models.PresenceEntry
	stopped     *models.Presence
	stoppedWith int
}

func (f *fakePresenceStore) Start(context.Context, *models.Presence) error { return nil }

func (f *fakePresenceStore) Stop(_ context.Context, _ uuid.UUID, streak int) (*models.Presence, error) {
	f.stoppedWith = streak
	return f.stopped, nil
}

func (f *fakePresenceStore) SetPaused(context.Context, uuid.UUID, bool, time.Time) (*models.Presence, error) {
	return nil, nil
}

func (f *fakePresenceStore) ListActiveFor(context.Context, []uuid.UUID) ([]*models.PresenceEntry, error) {
	return f.active, nil
}

type fakeEdgeStore struct {
	following []uuid.UUID
	followers []uuid.UUID
}

func (f *fakeEdgeStore) ListFollowingIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.following, nil
}

func (f *fakeEdgeStore) ListFollowerIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.followers, nil
}

type fakeAnchorStore struct {
	anchors []time.Time
}

func (f *fakeAnchorStore) ListAnchorTimes(context.Context, uuid.UUID, time.Duration) ([]time.Time, error) {
	return f.anchors, nil
}

type fakePublisher struct {
	sent    []uuid.UUID
	failFor map[uuid.UUID]bool
}

func (f *fakePublisher) PublishUpdate(_ context.Context, userID uuid.UUID, _ models.WSMessage) error {
	if f.failFor[userID] {
		return errors.New("publish failed")
	}
	f.sent = append(f.sent, userID)
	return nil
}

func TestNotifyFollowersIsolatesFailures(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	pub := &fakePublisher{failFor: map[uuid.UUID]bool{b: true}}
	svc := NewPresenceService(&fakePresenceStore{},
		&fakeEdgeStore{followers: []uuid.UUID{a, b, c}}, &fakeAnchorStore{}, pub)

	err := svc.NotifyFollowers(context.Background(), uuid.New(), "started")
	if err != nil {
		t.Fatalf("NotifyFollowers: %v", err)
	}

	if len(pub.sent) != 2 {
		t.Fatalf("published to %d followers, want 2 (one failure skipped)", len(pub.sent))
	}
	for _, id := range pub.sent {
		if id == b {
			t.Error("failed follower should not appear in sent list")
		}
	}
}

func TestWatchListFillsElapsed(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	store := &fakePresenceStore{active: []*models.PresenceEntry{
		{Presence: models.Presence{UserID: uuid.New(), StartedAt: now.Add(-45 * time.Minute)}},
		{Presence: models.Presence{
			UserID:        uuid.New(),
			StartedAt:     now.Add(-time.Hour),
			IsPaused:      true,
			PausedSeconds: 300,
			UpdatedAt:     now.Add(-10 * time.Minute),
		}},
	}}

	svc := NewPresenceService(store, &fakeEdgeStore{}, &fakeAnchorStore{}, &fakePublisher{})
	svc.now = func() time.Time { return now }

	entries, err := svc.WatchList(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("WatchList: %v", err)
	}

	if entries[0].ElapsedSeconds != 2700 || entries[0].Elapsed != "45m 0s" {
		t.Errorf("entry 0 = %d %q, want 2700 \"45m 0s\"", entries[0].ElapsedSeconds, entries[0].Elapsed)
	}
	// 1h minus 5m banked pause minus the 10m pause in progress.
	if entries[1].ElapsedSeconds != 2700 {
		t.Errorf("entry 1 = %d seconds, want 2700", entries[1].ElapsedSeconds)
	}
	if entries[1].Elapsed != "45m 0s\nbreak ☕" {
		t.Errorf("entry 1 display = %q, want paused suffix", entries[1].Elapsed)
	}
}

func TestStopSettlesStreak(t *testing.T) {
	now := time.Now()
	store := &fakePresenceStore{stopped: &models.Presence{UserID: uuid.New(), StartedAt: now.Add(-time.Hour)}}
	anchors := &fakeAnchorStore{anchors: []time.Time{now, now.AddDate(0, 0, -1), now.AddDate(0, 0, -2)}}

	svc := NewPresenceService(store, &fakeEdgeStore{}, anchors, &fakePublisher{})

	_, streak, err := svc.Stop(context.Background(), uuid.New(), 0)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if streak != 3 {
		t.Errorf("streak = %d, want 3", streak)
	}
	if store.stoppedWith != 3 {
		t.Errorf("streak written on stop = %d, want 3", store.stoppedWith)
	}
}

func TestStopWithoutActiveSession(t *testing.T) {
	svc := NewPresenceService(&fakePresenceStore{}, &fakeEdgeStore{}, &fakeAnchorStore{}, &fakePublisher{})

	_, _, err := svc.Stop(context.Background(), uuid.New(), 0)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
