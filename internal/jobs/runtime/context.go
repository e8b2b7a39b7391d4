package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/services"
)

/*
Context is the execution handle for a single claimed job run.
It wraps:
  - the request-scoped context.Context (cancellation, trace data),
  - the job_run row and its repo,
  - the realtime notifier.

Handlers never write job_run directly; they report through Progress, Fail and Succeed.
*/
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *types.JobRun
	Repo    repos.JobRunRepo
	Notify  services.JobNotifier
	payload map[string]any
}

/*
NewContext constructs a Context for a claimed job.
The payload is decoded eagerly; a decode failure leaves an empty map and
handlers that need fields validate them via DecodePayload.
*/
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Notify: notify,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// applyTraceData carries the enqueuing request's trace ids into the job.
func (c *Context) applyTraceData() {
	if c == nil || c.Ctx == nil {
		return
	}
	if td := ctxutil.TraceDataFromPayload(c.Payload()); td != nil {
		c.Ctx = ctxutil.WithTraceData(c.Ctx, td)
	}
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// DecodePayload unmarshals the raw job payload into dst.
func (c *Context) DecodePayload(dst any) error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return fmt.Errorf("job has no payload")
	}
	if err := json.Unmarshal(c.Job.Payload, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func (c *Context) ctx() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// transition writes cols to the job row unless the run was canceled, then
// mirrors the change onto c.Job through set. Unsaved jobs (nil id) only
// get the in-memory change.
func (c *Context) transition(cols map[string]interface{}, set func(j *types.JobRun)) bool {
	if c == nil || c.Job == nil {
		return false
	}
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, []string{jobs.StatusCanceled}, cols)
		if err != nil || !ok {
			return false
		}
	}
	set(c.Job)
	return true
}

// Progress records a non-terminal update and notifies the owner. It returns
// false once the run has been canceled, so long handlers can stop early.
func (c *Context) Progress(stage string, pct int, msg string) bool {
	now := time.Now().UTC()
	ok := c.transition(map[string]interface{}{
		"stage":        stage,
		"progress":     pct,
		"message":      msg,
		"heartbeat_at": now,
		"updated_at":   now,
	}, func(j *types.JobRun) {
		j.Stage, j.Progress, j.Message = stage, pct, msg
		j.HeartbeatAt, j.UpdatedAt = &now, now
	})
	if ok && c.Notify != nil {
		c.Notify.JobProgress(c.Job.OwnerUserID, c.Job, stage, pct, msg)
	}
	return ok
}

// Fail marks the run failed at stage and releases its lock. The worker may
// retry it while attempts remain.
func (c *Context) Fail(stage string, err error) {
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	ok := c.transition(map[string]interface{}{
		"status":        jobs.StatusFailed,
		"stage":         stage,
		"message":       "",
		"error":         msg,
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	}, func(j *types.JobRun) {
		j.Status, j.Stage, j.Message, j.Error = jobs.StatusFailed, stage, "", msg
		j.LastErrorAt, j.LockedAt, j.UpdatedAt = &now, nil, now
	})
	if ok && c.Notify != nil {
		c.Notify.JobFailed(c.Job.OwnerUserID, c.Job, stage, msg)
	}
}

// Succeed marks the run done and stores result as JSON.
func (c *Context) Succeed(finalStage string, result any) {
	now := time.Now().UTC()
	var res datatypes.JSON
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = datatypes.JSON(b)
		}
	}
	ok := c.transition(map[string]interface{}{
		"status":       jobs.StatusSucceeded,
		"stage":        finalStage,
		"progress":     100,
		"message":      "",
		"error":        "",
		"result":       res,
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	}, func(j *types.JobRun) {
		j.Status, j.Stage, j.Progress = jobs.StatusSucceeded, finalStage, 100
		j.Message, j.Error, j.Result = "", "", res
		j.LockedAt, j.HeartbeatAt, j.UpdatedAt = nil, &now, now
	})
	if ok && c.Notify != nil {
		c.Notify.JobDone(c.Job.OwnerUserID, c.Job)
	}
}
