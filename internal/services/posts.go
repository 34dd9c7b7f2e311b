package services

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"studycircle-backend/internal/models"
)

// Narrow store interfaces so the feed and aggregation logic can be tested
// against fakes. The concrete pgx repositories satisfy them.

type postStore interface {
	Get(ctx context.Context, id string) (*models.Post, error)
	ApplyIncremental(ctx context.Context, id string, apply func(existing *models.Post) (*models.Post, error)) (*models.Post, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Post, error)
	RefreshAuthorSnapshot(ctx context.Context, p models.Profile) error
}

type sessionStore interface {
	ListForRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.StudySession, error)
}

type followStore interface {
	ListFollowingIDs(ctx context.Context, followerID uuid.UUID) ([]uuid.UUID, error)
}

type profileStore interface {
	GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error)
}

type likeStore interface {
	Like(ctx context.Context, postID string, userID uuid.UUID) (bool, error)
	Unlike(ctx context.Context, postID string, userID uuid.UUID) (bool, error)
	LikedSet(ctx context.Context, userID uuid.UUID, postIDs []string) (map[string]bool, error)
}

type PostService struct {
	posts         postStore
	sessions      sessionStore
	follows       followStore
	profiles      profileStore
	likes         likeStore
	notifier      *Notifier
	fanoutPerUser int
}

func NewPostService(posts postStore, sessions sessionStore, follows followStore,
	profiles profileStore, likes likeStore, notifier *Notifier, fanoutPerUser int) *PostService {
	return &PostService{
		posts:         posts,
		sessions:      sessions,
		follows:       follows,
		profiles:      profiles,
		likes:         likes,
		notifier:      notifier,
		fanoutPerUser: fanoutPerUser,
	}
}

// OffsetZone builds the fixed zone for a client-reported UTC offset in
// minutes east of UTC.
func OffsetZone(offsetMinutes int) *time.Location {
	return time.FixedZone("client", offsetMinutes*60)
}

// dayWindow returns local midnight for t plus the half-open UTC-instant
// window covering that local calendar day.
func dayWindow(t time.Time, loc *time.Location) (day, from, to time.Time) {
	local := t.In(loc)
	day = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return day, day, day.AddDate(0, 0, 1)
}

// ApplySession folds one new session into an existing daily post without
// touching the rest of the day's rows. Longest-session and subjects update
// from the one session alone; most_productive_time is left as-is since it
// needs the full day to recompute.
func ApplySession(existing *models.Post, s *models.StudySession) *models.Post {
	// Same tenth-of-an-hour quantization as the full rebuild, so folding
	// sessions one at a time lands on the same totals as a one-shot rebuild.
	hours := Round1(SessionHours(s))

	updated := *existing
	updated.TotalStudyTime = Round1(existing.TotalStudyTime + hours)
	updated.SessionCount = existing.SessionCount + 1
	if hours > updated.LongestSession {
		updated.LongestSession = hours
	}

	updated.Subjects = append([]string(nil), existing.Subjects...)
	if s.Subject != "" {
		found := false
		for _, subject := range updated.Subjects {
			if subject == s.Subject {
				found = true
				break
			}
		}
		if !found {
			updated.Subjects = append(updated.Subjects, s.Subject)
		}
	}

	updated.Insights = incrementalInsights(updated.TotalStudyTime, updated.SessionCount, updated.Subjects)
	return &updated
}

// UpsertForSession materializes the daily post covering the session's local
// calendar day. A first session creates the post from the full day's data;
// later sessions fold in incrementally under a row lock.
func (s *PostService) UpsertForSession(ctx context.Context, session *models.StudySession, tzOffsetMinutes int) (*models.Post, error) {
	loc := OffsetZone(tzOffsetMinutes)
	day, from, to := dayWindow(session.AnchorTime(), loc)
	id := models.PostID(session.UserID, day)

	author, err := s.authorProfile(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	// Fetched outside the row lock; only the create path needs them.
	daySessions, err := s.sessions.ListForRange(ctx, session.UserID, from, to)
	if err != nil {
		return nil, err
	}

	return s.posts.ApplyIncremental(ctx, id, func(existing *models.Post) (*models.Post, error) {
		if existing == nil {
			return buildPost(id, session.UserID, day, author, BuildDailySummary(daySessions, loc)), nil
		}
		updated := ApplySession(existing, session)
		updated.Author = author
		return updated, nil
	})
}

// RecomputeDay rebuilds a user's post for one local day from scratch,
// discarding whatever the incremental path accumulated. Used after a session
// is deleted.
func (s *PostService) RecomputeDay(ctx context.Context, userID uuid.UUID, anchor time.Time, tzOffsetMinutes int) (*models.Post, error) {
	loc := OffsetZone(tzOffsetMinutes)
	day, from, to := dayWindow(anchor, loc)
	id := models.PostID(userID, day)

	author, err := s.authorProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	daySessions, err := s.sessions.ListForRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	return s.posts.ApplyIncremental(ctx, id, func(_ *models.Post) (*models.Post, error) {
		return buildPost(id, userID, day, author, BuildDailySummary(daySessions, loc)), nil
	})
}

// GetDaily returns the materialized post for one local day, rebuilding it on
// the spot when the worker has not gotten to it yet.
func (s *PostService) GetDaily(ctx context.Context, userID uuid.UUID, anchor time.Time, tzOffsetMinutes int) (*models.Post, error) {
	loc := OffsetZone(tzOffsetMinutes)
	day, _, _ := dayWindow(anchor, loc)

	post, err := s.posts.Get(ctx, models.PostID(userID, day))
	if err != nil {
		return nil, err
	}
	if post != nil {
		return post, nil
	}
	return s.RecomputeDay(ctx, userID, anchor, tzOffsetMinutes)
}

func buildPost(id string, userID uuid.UUID, day time.Time, author models.Profile, summary DailySummary) *models.Post {
	return &models.Post{
		ID:                 id,
		UserID:             userID,
		PostDate:           day,
		TotalStudyTime:     summary.TotalStudyTime,
		SessionCount:       summary.SessionCount,
		Subjects:           summary.Subjects,
		LongestSession:     summary.LongestSession,
		Insights:           summary.Insights,
		MostProductiveTime: summary.MostProductiveTime,
		Author:             author,
	}
}

func (s *PostService) authorProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	profiles, err := s.profiles.GetProfiles(ctx, []uuid.UUID{userID})
	if err != nil {
		return models.Profile{}, err
	}
	profile, ok := profiles[userID]
	if !ok {
		return models.Profile{}, &NotFoundError{Resource: "user"}
	}
	return profile, nil
}

// FeedPost decorates a post with the viewer's like state.
type FeedPost struct {
	*models.Post
	Liked bool `json:"liked"`
}

// GetUserFeed returns a user's own recent posts. Stale author snapshots are
// refreshed in place when the profile has changed since the post was stamped.
func (s *PostService) GetUserFeed(ctx context.Context, viewerID, userID uuid.UUID, limit int) ([]*FeedPost, error) {
	posts, err := s.posts.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if len(posts) > 0 {
		profile, err := s.authorProfile(ctx, userID)
		if err == nil && profileChanged(posts[0].Author, profile) {
			if err := s.posts.RefreshAuthorSnapshot(ctx, profile); err != nil {
				log.Printf("failed to refresh author snapshot for %s: %v", userID, err)
			}
			for _, p := range posts {
				p.Author = profile
			}
		}
	}
	return s.decorate(ctx, viewerID, posts)
}

// GetSocialFeed merges the recent posts of the viewer and everyone they
// follow, newest first, truncated to limit. One member's failure drops that
// member's posts, not the feed.
func (s *PostService) GetSocialFeed(ctx context.Context, viewerID uuid.UUID, limit int) ([]*FeedPost, error) {
	following, err := s.follows.ListFollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	members := append([]uuid.UUID{viewerID}, following...)

	var merged []*models.Post
	for _, member := range members {
		posts, err := s.posts.ListByUser(ctx, member, s.fanoutPerUser)
		if err != nil {
			log.Printf("social feed: skipping member %s: %v", member, err)
			continue
		}
		merged = append(merged, posts...)
	}

	// Newest day first; same-day posts order by id so pagination is stable.
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].PostDate.Equal(merged[j].PostDate) {
			return merged[i].PostDate.After(merged[j].PostDate)
		}
		return merged[i].ID < merged[j].ID
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	s.refreshStaleSnapshots(ctx, merged)
	return s.decorate(ctx, viewerID, merged)
}

// refreshStaleSnapshots restamps posts whose denormalized author fields lag
// the live profile, and writes the fresh snapshot back once per author.
// Best-effort: a failed lookup just serves the stored snapshot.
func (s *PostService) refreshStaleSnapshots(ctx context.Context, posts []*models.Post) {
	if len(posts) == 0 {
		return
	}
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, p := range posts {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			ids = append(ids, p.UserID)
		}
	}

	profiles, err := s.profiles.GetProfiles(ctx, ids)
	if err != nil {
		log.Printf("social feed: snapshot lookup failed: %v", err)
		return
	}

	written := make(map[uuid.UUID]bool)
	for _, p := range posts {
		profile, ok := profiles[p.UserID]
		if !ok || !profileChanged(p.Author, profile) {
			continue
		}
		if !written[p.UserID] {
			written[p.UserID] = true
			if err := s.posts.RefreshAuthorSnapshot(ctx, profile); err != nil {
				log.Printf("failed to refresh author snapshot for %s: %v", p.UserID, err)
			}
		}
		p.Author = profile
	}
}

func (s *PostService) decorate(ctx context.Context, viewerID uuid.UUID, posts []*models.Post) ([]*FeedPost, error) {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	liked, err := s.likes.LikedSet(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	feed := make([]*FeedPost, len(posts))
	for i, p := range posts {
		feed[i] = &FeedPost{Post: p, Liked: liked[p.ID]}
	}
	return feed, nil
}

func profileChanged(a, b models.Profile) bool {
	if a.FullName != b.FullName || a.Username != b.Username {
		return true
	}
	switch {
	case a.AvatarURL == nil && b.AvatarURL == nil:
		return false
	case a.AvatarURL == nil || b.AvatarURL == nil:
		return true
	default:
		return *a.AvatarURL != *b.AvatarURL
	}
}

// Like records the viewer's like and notifies the post's author.
func (s *PostService) Like(ctx context.Context, postID string, userID uuid.UUID) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return &NotFoundError{Resource: "post"}
	}

	created, err := s.likes.Like(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !created || post.UserID == userID {
		return nil
	}

	actor, err := s.authorProfile(ctx, userID)
	if err != nil {
		return nil
	}
	s.notifier.Send(ctx, &models.Notification{
		UserID:  post.UserID,
		Type:    models.NotificationLike,
		ActorID: &userID,
		PostID:  &postID,
		Message: actor.FullName + " liked your study post",
	})
	return nil
}

func (s *PostService) Unlike(ctx context.Context, postID string, userID uuid.UUID) error {
	_, err := s.likes.Unlike(ctx, postID, userID)
	return err
}
