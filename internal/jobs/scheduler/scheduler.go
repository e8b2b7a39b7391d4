package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

// Entry enqueues Type every Every, skipping ticks while a job of that type is active.
type Entry struct {
	Type  string
	Every time.Duration
}

// Defaults runs retention and backup once a day.
func Defaults(backup bool) []Entry {
	out := []Entry{{Type: jobs.TypeActivityRetention, Every: 24 * time.Hour}}
	if backup {
		out = append(out, Entry{Type: jobs.TypeBackupSnapshot, Every: 24 * time.Hour})
	}
	return out
}

type Scheduler struct {
	log     *logger.Logger
	jobs    services.JobService
	users   repos.UserRepo
	entries []Entry
}

func New(baseLog *logger.Logger, jobSvc services.JobService, users repos.UserRepo, entries []Entry) *Scheduler {
	return &Scheduler{
		log:     baseLog.With("component", "Scheduler"),
		jobs:    jobSvc,
		users:   users,
		entries: entries,
	}
}

// Run fires every entry once at start, then on its interval, until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, e := range s.entries {
		if e.Type == "" || e.Every <= 0 {
			continue
		}
		wg.Add(1)
		go func(e Entry) {
			defer wg.Done()
			s.loop(ctx, e)
		}(e)
	}
	wg.Wait()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, e Entry) {
	t := time.NewTicker(e.Every)
	defer t.Stop()
	for {
		s.Tick(ctx, e.Type)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Tick enqueues one job of jobType owned by the first active admin.
func (s *Scheduler) Tick(ctx context.Context, jobType string) bool {
	dbc := dbctx.Context{Ctx: ctx}
	owner, err := s.owner(dbc)
	if err != nil {
		s.log.Warn("scheduler owner lookup failed", "type", jobType, "error", err)
		return false
	}
	if owner == 0 {
		s.log.Warn("no active admin to own scheduled job", "type", jobType)
		return false
	}
	job, created, err := s.jobs.EnqueueIfIdle(dbc, owner, jobType, map[string]any{"scheduled": true})
	if err != nil {
		s.log.Error("scheduled enqueue failed", "type", jobType, "error", err)
		return false
	}
	if created {
		s.log.Info("scheduled job enqueued", "type", jobType, "job_id", job.ID)
	}
	return created
}

func (s *Scheduler) owner(dbc dbctx.Context) (uint, error) {
	list, err := s.users.List(dbc, true)
	if err != nil {
		return 0, err
	}
	for _, u := range list {
		if u.IsAdmin() {
			return u.ID, nil
		}
	}
	return 0, nil
}
