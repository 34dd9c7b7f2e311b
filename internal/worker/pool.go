package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studycircle-backend/internal/models"
	"studycircle-backend/internal/repository"
	"studycircle-backend/internal/services"
)

const (
	QueuePostAggregation = "queue:post-aggregation"
	QueuePresenceFanout  = "queue:presence-fanout"

	jobLockTTL  = 10 * time.Minute
	popTimeout  = 30 * time.Second
	JobTypePost = "post_aggregation"
	JobTypeFan  = "presence_fanout"
)

// Job is the self-contained queue payload: everything a worker needs to
// process it without a jobs table.
type Job struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	UserID          uuid.UUID  `json:"user_id"`
	SessionID       *uuid.UUID `json:"session_id,omitempty"`
	Event           string     `json:"event,omitempty"`
	TZOffsetMinutes int        `json:"tz_offset_minutes"`
}

func Enqueue(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := rdb.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Pool consumes the aggregation and fanout queues with a fixed set of
// goroutines. A redis lock per job id keeps redelivered jobs from running
// twice across instances.
type Pool struct {
	rdb      *redis.Client
	sessions *repository.StudySessionRepository
	posts    *services.PostService
	presence *services.PresenceService
	notifier *services.Notifier
	count    int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(rdb *redis.Client, sessions *repository.StudySessionRepository,
	posts *services.PostService, presence *services.PresenceService,
	notifier *services.Notifier, count int) *Pool {
	return &Pool{
		rdb:      rdb,
		sessions: sessions,
		posts:    posts,
		presence: presence,
		notifier: notifier,
		count:    count,
	}
}

func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		result, err := p.rdb.BLPop(ctx, popTimeout, QueuePostAggregation, QueuePresenceFanout).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if err != redis.Nil {
				log.Printf("worker %d: pop failed: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("worker %d: dropping malformed job: %v", id, err)
			continue
		}

		locked, err := p.rdb.SetNX(ctx, "job_lock:"+job.ID, "1", jobLockTTL).Result()
		if err != nil {
			log.Printf("worker %d: lock check failed for %s: %v", id, job.ID, err)
			continue
		}
		if !locked {
			continue
		}

		if err := p.process(ctx, job); err != nil {
			log.Printf("worker %d: job %s (%s) failed: %v", id, job.ID, job.Type, err)
		}
	}
}

func (p *Pool) process(ctx context.Context, job Job) error {
	switch job.Type {
	case JobTypePost:
		return p.aggregatePost(ctx, job)
	case JobTypeFan:
		return p.presence.NotifyFollowers(ctx, job.UserID, job.Event)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (p *Pool) aggregatePost(ctx context.Context, job Job) error {
	if job.SessionID == nil {
		return fmt.Errorf("post aggregation job without session id")
	}

	session, err := p.sessions.GetByID(ctx, *job.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		// Deleted between enqueue and processing; the delete path already
		// recomputed the day.
		return nil
	}

	post, err := p.posts.UpsertForSession(ctx, session, job.TZOffsetMinutes)
	if err != nil {
		return err
	}

	return p.notifier.PublishUpdate(ctx, session.UserID, models.WSMessage{
		Type:    "post_updated",
		Payload: post,
	})
}
