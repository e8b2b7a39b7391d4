package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/platform/cache"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// Realtime event names.
const (
	EventNotification = "notification"
	EventJobCreated   = "job_created"
	EventJobProgress  = "job_progress"
	EventJobFailed    = "job_failed"
	EventJobDone      = "job_done"
)

// RealtimeMessage is the envelope published on a user's channel.
type RealtimeMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// UserChannel is the pub/sub channel carrying a user's realtime events.
func UserChannel(userID uint) string { return fmt.Sprintf("casefile:user:%d", userID) }

// JobProgressKey holds the last progress snapshot of a job.
func JobProgressKey(id uuid.UUID) string { return "casefile:job:" + id.String() + ":progress" }

// Publisher pushes realtime events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, userID uint, event string, data any)
}

type cachePublisher struct {
	store cache.Store
	log   *logger.Logger
}

func NewPublisher(store cache.Store, baseLog *logger.Logger) Publisher {
	return &cachePublisher{store: store, log: baseLog.With("component", "Publisher")}
}

func (p *cachePublisher) Publish(ctx context.Context, userID uint, event string, data any) {
	if p == nil || p.store == nil || userID == 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := json.Marshal(RealtimeMessage{Event: event, Data: data})
	if err != nil {
		p.log.Warn("encode realtime message failed", "event", event, "error", err)
		return
	}
	if err := p.store.Publish(ctx, UserChannel(userID), b); err != nil {
		p.log.Warn("publish realtime message failed", "event", event, "user_id", userID, "error", err)
	}
}

// =========================
// Job notifier
// =========================

type JobNotifier interface {
	JobCreated(userID uint, job *types.JobRun)
	JobProgress(userID uint, job *types.JobRun, stage string, progress int, message string)
	JobFailed(userID uint, job *types.JobRun, stage string, errorMessage string)
	JobDone(userID uint, job *types.JobRun)
}

type jobNotifier struct {
	pub   Publisher
	store cache.Store
}

// NewJobNotifier publishes job lifecycle events and mirrors progress into the
// cache so pollers can read it without touching the database.
func NewJobNotifier(pub Publisher, store cache.Store) JobNotifier {
	return &jobNotifier{pub: pub, store: store}
}

func (n *jobNotifier) remember(job *types.JobRun, stage string, progress int, message string) {
	if n.store == nil || job == nil {
		return
	}
	b, _ := json.Marshal(map[string]any{"stage": stage, "progress": progress, "message": message, "status": job.Status})
	_ = n.store.Set(context.Background(), JobProgressKey(job.ID), string(b), 24*time.Hour)
}

func (n *jobNotifier) JobCreated(userID uint, job *types.JobRun) {
	if n == nil || job == nil {
		return
	}
	n.remember(job, job.Stage, 0, job.Message)
	n.pub.Publish(context.Background(), userID, EventJobCreated, map[string]any{"job": job})
}

func (n *jobNotifier) JobProgress(userID uint, job *types.JobRun, stage string, progress int, message string) {
	if n == nil || job == nil {
		return
	}
	n.remember(job, stage, progress, message)
	n.pub.Publish(context.Background(), userID, EventJobProgress, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *jobNotifier) JobFailed(userID uint, job *types.JobRun, stage string, errorMessage string) {
	if n == nil || job == nil {
		return
	}
	n.remember(job, stage, job.Progress, errorMessage)
	n.pub.Publish(context.Background(), userID, EventJobFailed, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"error":    errorMessage,
	})
}

func (n *jobNotifier) JobDone(userID uint, job *types.JobRun) {
	if n == nil || job == nil {
		return
	}
	n.remember(job, "done", 100, job.Message)
	n.pub.Publish(context.Background(), userID, EventJobDone, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"job":      job,
	})
}
