package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"studycircle-backend/internal/models"
)

type fakePostStore struct {
	byID      map[string]*models.Post
	byUser    map[uuid.UUID][]*models.Post
	failFor   map[uuid.UUID]bool
	refreshed []models.Profile
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{
		byID:    make(map[string]*models.Post),
		byUser:  make(map[uuid.UUID][]*models.Post),
		failFor: make(map[uuid.UUID]bool),
	}
}

func (f *fakePostStore) Get(_ context.Context, id string) (*models.Post, error) {
	return f.byID[id], nil
}

func (f *fakePostStore) ApplyIncremental(_ context.Context, id string, apply func(*models.Post) (*models.Post, error)) (*models.Post, error) {
	updated, err := apply(f.byID[id])
	if err != nil {
		return nil, err
	}
	f.byID[id] = updated
	return updated, nil
}

func (f *fakePostStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*models.Post, error) {
	if f.failFor[userID] {
		return nil, errors.New("storage unavailable")
	}
	posts := f.byUser[userID]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (f *fakePostStore) RefreshAuthorSnapshot(_ context.Context, p models.Profile) error {
	f.refreshed = append(f.refreshed, p)
	return nil
}

type fakeSessionStore struct {
	sessions []*models.StudySession
}

func (f *fakeSessionStore) ListForRange(_ context.Context, userID uuid.UUID, from, to time.Time) ([]*models.StudySession, error) {
	var out []*models.StudySession
	for _, s := range f.sessions {
		if s.UserID != userID {
			continue
		}
		anchor := s.AnchorTime()
		if !anchor.Before(from) && anchor.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeFollowStore struct {
	following []uuid.UUID
}

func (f *fakeFollowStore) ListFollowingIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.following, nil
}

type fakeProfileStore struct {
	profiles map[uuid.UUID]models.Profile
}

func (f *fakeProfileStore) GetProfiles(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	out := make(map[uuid.UUID]models.Profile)
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeLikeStore struct {
	liked map[string]bool
}

func (f *fakeLikeStore) Like(context.Context, string, uuid.UUID) (bool, error)   { return true, nil }
func (f *fakeLikeStore) Unlike(context.Context, string, uuid.UUID) (bool, error) { return true, nil }
func (f *fakeLikeStore) LikedSet(_ context.Context, _ uuid.UUID, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range ids {
		if f.liked[id] {
			out[id] = true
		}
	}
	return out, nil
}

func newTestPostService(posts *fakePostStore, sessions *fakeSessionStore,
	follows *fakeFollowStore, profiles *fakeProfileStore, likes *fakeLikeStore) *PostService {
	if likes == nil {
		likes = &fakeLikeStore{liked: map[string]bool{}}
	}
	return NewPostService(posts, sessions, follows, profiles, likes, nil, 5)
}

func testProfile(id uuid.UUID, name string) models.Profile {
	return models.Profile{ID: id, FullName: name, Username: name}
}

func durSession(userID uuid.UUID, start time.Time, d time.Duration, subject string) *models.StudySession {
	end := start.Add(d)
	return &models.StudySession{
		ID:        uuid.New(),
		UserID:    userID,
		Subject:   subject,
		StartedAt: &start,
		EndedAt:   &end,
		CreatedAt: end,
	}
}

func TestApplySessionFoldsIntoExisting(t *testing.T) {
	userID := uuid.New()
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	existing := &models.Post{
		ID:             models.PostID(userID, day),
		UserID:         userID,
		PostDate:       day,
		TotalStudyTime: 0,
		SessionCount:   0,
	}

	s := durSession(userID, day.Add(10*time.Hour), 30*time.Minute, "Math")
	updated := ApplySession(existing, s)

	if updated.TotalStudyTime != 0.5 {
		t.Errorf("total = %v, want 0.5", updated.TotalStudyTime)
	}
	if updated.SessionCount != 1 {
		t.Errorf("count = %d, want 1", updated.SessionCount)
	}
	if updated.LongestSession != 0.5 {
		t.Errorf("longest = %v, want 0.5", updated.LongestSession)
	}
	if len(updated.Subjects) != 1 || updated.Subjects[0] != "Math" {
		t.Errorf("subjects = %v, want [Math]", updated.Subjects)
	}
	if existing.SessionCount != 0 {
		t.Error("ApplySession mutated its input")
	}
}

func TestUpsertForSessionIncrementalMatchesRebuild(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	// 40-minute sessions do not land on a tenth of an hour, so this only
	// holds because both paths quantize each session before accumulating.
	all := []*models.StudySession{
		durSession(userID, day.Add(9*time.Hour), 40*time.Minute, "Math"),
		durSession(userID, day.Add(14*time.Hour), 40*time.Minute, "Bio"),
		durSession(userID, day.Add(20*time.Hour), 40*time.Minute, "Math"),
	}

	posts := newFakePostStore()
	sessions := &fakeSessionStore{}
	profiles := &fakeProfileStore{profiles: map[uuid.UUID]models.Profile{
		userID: testProfile(userID, "dana"),
	}}
	svc := newTestPostService(posts, sessions, &fakeFollowStore{}, profiles, nil)

	var lastTotal float64
	for _, s := range all {
		sessions.sessions = append(sessions.sessions, s)
		post, err := svc.UpsertForSession(ctx, s, 0)
		if err != nil {
			t.Fatalf("UpsertForSession: %v", err)
		}
		if post.TotalStudyTime < lastTotal {
			t.Fatalf("total went backwards: %v -> %v", lastTotal, post.TotalStudyTime)
		}
		lastTotal = post.TotalStudyTime
	}

	truth := BuildDailySummary(all, time.UTC)
	got := posts.byID[models.PostID(userID, day)]

	if got.TotalStudyTime != 2.1 {
		t.Errorf("total = %v, want 2.1 (three 40-minute sessions)", got.TotalStudyTime)
	}
	if got.TotalStudyTime != truth.TotalStudyTime {
		t.Errorf("total = %v, rebuild says %v", got.TotalStudyTime, truth.TotalStudyTime)
	}
	if got.SessionCount != truth.SessionCount {
		t.Errorf("count = %d, rebuild says %d", got.SessionCount, truth.SessionCount)
	}
	if got.LongestSession != truth.LongestSession {
		t.Errorf("longest = %v, rebuild says %v", got.LongestSession, truth.LongestSession)
	}
	if len(got.Subjects) != len(truth.Subjects) {
		t.Errorf("subjects = %v, rebuild says %v", got.Subjects, truth.Subjects)
	}
}

func TestUpsertForSessionSplitsDaysByClientZone(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	// 23:30 UTC on Mar 5 is already Mar 6 at UTC+2.
	s := durSession(userID, time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC), 30*time.Minute, "Math")

	posts := newFakePostStore()
	sessions := &fakeSessionStore{sessions: []*models.StudySession{s}}
	profiles := &fakeProfileStore{profiles: map[uuid.UUID]models.Profile{
		userID: testProfile(userID, "dana"),
	}}
	svc := newTestPostService(posts, sessions, &fakeFollowStore{}, profiles, nil)

	post, err := svc.UpsertForSession(ctx, s, 120)
	if err != nil {
		t.Fatalf("UpsertForSession: %v", err)
	}

	wantDay := time.Date(2024, 3, 6, 0, 0, 0, 0, OffsetZone(120))
	if post.ID != models.PostID(userID, wantDay) {
		t.Errorf("post id = %q, want the Mar 6 local-day id", post.ID)
	}
}

func TestGetSocialFeedSkipsFailingMembers(t *testing.T) {
	ctx := context.Background()
	viewer := uuid.New()
	friendA := uuid.New()
	friendB := uuid.New()

	d := func(day int) time.Time { return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC) }
	post := func(owner uuid.UUID, day int) *models.Post {
		return &models.Post{ID: models.PostID(owner, d(day)), UserID: owner, PostDate: d(day)}
	}

	posts := newFakePostStore()
	posts.byUser[viewer] = []*models.Post{post(viewer, 5)}
	posts.byUser[friendA] = []*models.Post{post(friendA, 7), post(friendA, 3)}
	posts.failFor[friendB] = true

	likes := &fakeLikeStore{liked: map[string]bool{posts.byUser[friendA][0].ID: true}}
	svc := newTestPostService(posts, &fakeSessionStore{},
		&fakeFollowStore{following: []uuid.UUID{friendA, friendB}},
		&fakeProfileStore{profiles: map[uuid.UUID]models.Profile{}}, likes)

	feed, err := svc.GetSocialFeed(ctx, viewer, 30)
	if err != nil {
		t.Fatalf("GetSocialFeed: %v", err)
	}

	if len(feed) != 3 {
		t.Fatalf("feed has %d posts, want 3 (failing member skipped)", len(feed))
	}
	if !feed[0].PostDate.Equal(d(7)) || !feed[1].PostDate.Equal(d(5)) || !feed[2].PostDate.Equal(d(3)) {
		t.Errorf("feed out of order: %v, %v, %v", feed[0].PostDate, feed[1].PostDate, feed[2].PostDate)
	}
	if !feed[0].Liked {
		t.Error("viewer's like on the newest post was not decorated")
	}
	if feed[1].Liked {
		t.Error("unliked post decorated as liked")
	}
}

func TestGetSocialFeedSameDayOrdersByID(t *testing.T) {
	ctx := context.Background()
	viewer := uuid.New()
	friend := uuid.New()
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	posts := newFakePostStore()
	posts.byUser[viewer] = []*models.Post{{ID: models.PostID(viewer, day), UserID: viewer, PostDate: day}}
	posts.byUser[friend] = []*models.Post{{ID: models.PostID(friend, day), UserID: friend, PostDate: day}}

	svc := newTestPostService(posts, &fakeSessionStore{},
		&fakeFollowStore{following: []uuid.UUID{friend}},
		&fakeProfileStore{profiles: map[uuid.UUID]models.Profile{}}, nil)

	first, err := svc.GetSocialFeed(ctx, viewer, 30)
	if err != nil {
		t.Fatalf("GetSocialFeed: %v", err)
	}
	second, err := svc.GetSocialFeed(ctx, viewer, 30)
	if err != nil {
		t.Fatalf("GetSocialFeed: %v", err)
	}

	if first[0].ID > first[1].ID {
		t.Errorf("same-day posts not ordered by id: %q before %q", first[0].ID, first[1].ID)
	}
	if first[0].ID != second[0].ID || first[1].ID != second[1].ID {
		t.Error("same-day ordering is not stable between reads")
	}
}

func TestGetSocialFeedTruncatesToLimit(t *testing.T) {
	ctx := context.Background()
	viewer := uuid.New()
	friend := uuid.New()

	d := func(day int) time.Time { return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC) }
	post := func(owner uuid.UUID, day int) *models.Post {
		return &models.Post{ID: models.PostID(owner, d(day)), UserID: owner, PostDate: d(day)}
	}

	posts := newFakePostStore()
	posts.byUser[viewer] = []*models.Post{post(viewer, 8), post(viewer, 4)}
	posts.byUser[friend] = []*models.Post{post(friend, 7), post(friend, 6)}

	svc := newTestPostService(posts, &fakeSessionStore{},
		&fakeFollowStore{following: []uuid.UUID{friend}},
		&fakeProfileStore{profiles: map[uuid.UUID]models.Profile{}}, nil)

	feed, err := svc.GetSocialFeed(ctx, viewer, 2)
	if err != nil {
		t.Fatalf("GetSocialFeed: %v", err)
	}

	if len(feed) != 2 {
		t.Fatalf("feed has %d posts, want 2 after truncation", len(feed))
	}
	if !feed[0].PostDate.Equal(d(8)) || !feed[1].PostDate.Equal(d(7)) {
		t.Errorf("truncation kept the wrong posts: %v, %v", feed[0].PostDate, feed[1].PostDate)
	}
}

func TestGetSocialFeedRefreshesStaleSnapshots(t *testing.T) {
	ctx := context.Background()
	viewer := uuid.New()
	friend := uuid.New()
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	posts := newFakePostStore()
	posts.byUser[friend] = []*models.Post{{
		ID:       models.PostID(friend, day),
		UserID:   friend,
		PostDate: day,
		Author:   testProfile(friend, "old_name"),
	}}

	profiles := &fakeProfileStore{profiles: map[uuid.UUID]models.Profile{
		friend: testProfile(friend, "new_name"),
	}}
	svc := newTestPostService(posts, &fakeSessionStore{},
		&fakeFollowStore{following: []uuid.UUID{friend}}, profiles, nil)

	feed, err := svc.GetSocialFeed(ctx, viewer, 30)
	if err != nil {
		t.Fatalf("GetSocialFeed: %v", err)
	}

	if len(feed) != 1 || feed[0].Author.FullName != "new_name" {
		t.Fatalf("stale author snapshot served: %+v", feed)
	}
	if len(posts.refreshed) != 1 {
		t.Errorf("snapshot refresh ran %d times, want 1", len(posts.refreshed))
	}
}

func TestGetUserFeedRefreshesStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	posts := newFakePostStore()
	posts.byUser[userID] = []*models.Post{{
		ID:       models.PostID(userID, day),
		UserID:   userID,
		PostDate: day,
		Author:   testProfile(userID, "old_name"),
	}}

	profiles := &fakeProfileStore{profiles: map[uuid.UUID]models.Profile{
		userID: testProfile(userID, "new_name"),
	}}
	svc := newTestPostService(posts, &fakeSessionStore{}, &fakeFollowStore{}, profiles, nil)

	feed, err := svc.GetUserFeed(ctx, userID, userID, 10)
	if err != nil {
		t.Fatalf("GetUserFeed: %v", err)
	}

	if feed[0].Author.FullName != "new_name" {
		t.Errorf("author = %q, want restamped new_name", feed[0].Author.FullName)
	}
	if len(posts.refreshed) != 1 {
		t.Errorf("snapshot refresh ran %d times, want 1", len(posts.refreshed))
	}
}
