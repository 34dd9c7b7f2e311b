package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studycircle-backend/internal/models"
	"studycircle-backend/internal/repository"
)

// UserChannel is the pubsub channel a user's websocket connections listen
// on.
func UserChannel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Notifier persists in-app notifications and pushes them over pubsub to any
// live websocket connections.
type Notifier struct {
	store notificationStore
	rdb   *redis.Client
}

func NewNotifier(store notificationStore, rdb *redis.Client) *Notifier {
	return &Notifier{store: store, rdb: rdb}
}

// Send is best-effort: the caller's operation already succeeded, so a
// notification failure is logged rather than bubbled up.
func (n *Notifier) Send(ctx context.Context, notification *models.Notification) {
	notification.ID = uuid.New()
	notification.CreatedAt = time.Now()

	if err := n.store.Create(ctx, notification); err != nil {
		log.Printf("failed to store notification for %s: %v", notification.UserID, err)
		return
	}

	if err := n.PublishUpdate(ctx, notification.UserID, models.WSMessage{
		Type:    "notification",
		Payload: notification,
	}); err != nil {
		log.Printf("failed to push notification to %s: %v", notification.UserID, err)
	}
}

func (n *Notifier) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), data).Err()
}

// StreakReminderScheduler nudges users whose streak would break if they skip
// today. Runs in-process; the redis guard key keeps multiple instances from
// double-sending.
type StreakReminderScheduler struct {
	users    *repository.UserRepository
	notifier *Notifier
	rdb      *redis.Client
	interval time.Duration
	stop     chan struct{}
}

// Reminders go out in the UTC evening. Per-user local evenings would need a
// stored timezone, which the clients do not report outside request scope.
const reminderHourUTC = 18

func NewStreakReminderScheduler(users *repository.UserRepository, notifier *Notifier, rdb *redis.Client) *StreakReminderScheduler {
	return &StreakReminderScheduler{
		users:    users,
		notifier: notifier,
		rdb:      rdb,
		interval: 30 * time.Minute,
		stop:     make(chan struct{}),
	}
}

func (s *StreakReminderScheduler) Start() {
	go s.loop()
}

func (s *StreakReminderScheduler) Stop() {
	close(s.stop)
}

func (s *StreakReminderScheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now().UTC()
			if now.Hour() < reminderHourUTC {
				continue
			}
			s.runOnce(context.Background(), now)
		}
	}
}

func (s *StreakReminderScheduler) runOnce(ctx context.Context, now time.Time) {
	guard := "streak_reminder_sent:" + now.Format("2006-01-02")
	ok, err := s.rdb.SetNX(ctx, guard, "1", 24*time.Hour).Result()
	if err != nil {
		log.Printf("streak reminder: guard check failed: %v", err)
		return
	}
	if !ok {
		return
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	candidates, err := s.users.ListStreakReminderCandidates(ctx, midnight)
	if err != nil {
		log.Printf("streak reminder: failed to list candidates: %v", err)
		return
	}

	for _, user := range candidates {
		s.notifier.Send(ctx, &models.Notification{
			UserID: user.ID,
			Type:   models.NotificationStreakReminder,
			Message: fmt.Sprintf(
				"Your %d-day streak is on the line - squeeze in a session today!",
				user.StreakCount),
		})
	}
	if len(candidates) > 0 {
		log.Printf("streak reminder: nudged %d users", len(candidates))
	}
}
