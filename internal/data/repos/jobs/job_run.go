package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

var activeStatuses = []string{jobs.StatusQueued, jobs.StatusRunning}

// JobRunRepo is the durable queue behind the worker pool. Claims use
// FOR UPDATE SKIP LOCKED so several workers, in one process or many, never
// pick the same row.
type JobRunRepo interface {
	Create(dbc dbctx.Context, rows []*types.JobRun) ([]*types.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	GetActiveByDedupKey(dbc dbctx.Context, jobType, dedupKey string) (*types.JobRun, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uint, limit int) ([]*types.JobRun, error)
	ClaimNextRunnable(dbc dbctx.Context, retryDelay time.Duration, staleRunning time.Duration) (*types.JobRun, error)
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	Cancel(dbc dbctx.Context, id uuid.UUID, ownerUserID uint) (bool, error)
	ExistsRunnable(dbc dbctx.Context, jobType string) (bool, error)
	DeleteFinishedBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) Create(dbc dbctx.Context, rows []*types.JobRun) ([]*types.JobRun, error) {
	if len(rows) == 0 {
		return []*types.JobRun{}, nil
	}
	now := time.Now().UTC()
	for _, j := range rows {
		j.Status = orDefault(j.Status, jobs.StatusQueued)
		j.Stage = orDefault(j.Stage, j.Status)
		j.MaxAttempts = max(j.MaxAttempts, 1)
		if j.CreatedAt.IsZero() {
			j.CreatedAt = now
		}
		if j.UpdatedAt.IsZero() {
			j.UpdatedAt = j.CreatedAt
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return first(dbc.DB(r.db).Where("id = ?", id))
}

// GetActiveByDedupKey returns the newest queued or running job of jobType
// carrying dedupKey, if any.
func (r *jobRunRepo) GetActiveByDedupKey(dbc dbctx.Context, jobType, dedupKey string) (*types.JobRun, error) {
	if jobType == "" || dedupKey == "" {
		return nil, nil
	}
	return first(dbc.DB(r.db).
		Where("job_type = ? AND dedup_key = ? AND status IN ?", jobType, dedupKey, activeStatuses).
		Order("created_at DESC"))
}

func (r *jobRunRepo) ListByOwner(dbc dbctx.Context, ownerUserID uint, limit int) ([]*types.JobRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.JobRun
	err := dbc.DB(r.db).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// runnable matches queued jobs, failed jobs with attempts left whose last
// error is older than retryCutoff, and running jobs whose heartbeat is older
// than staleCutoff.
func runnable(retryCutoff, staleCutoff time.Time) clause.Expression {
	return clause.Or(
		clause.Eq{Column: "status", Value: jobs.StatusQueued},
		clause.And(
			clause.Eq{Column: "status", Value: jobs.StatusFailed},
			clause.Expr{SQL: "attempts < max_attempts"},
			clause.Or(
				clause.Eq{Column: "last_error_at", Value: nil},
				clause.Lt{Column: "last_error_at", Value: retryCutoff},
			),
		),
		clause.And(
			clause.Eq{Column: "status", Value: jobs.StatusRunning},
			clause.Neq{Column: "heartbeat_at", Value: nil},
			clause.Lt{Column: "heartbeat_at", Value: staleCutoff},
		),
	)
}

// ClaimNextRunnable locks the oldest runnable job, marks it running and
// counts the attempt. It returns nil when nothing is runnable.
func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, retryDelay time.Duration, staleRunning time.Duration) (*types.JobRun, error) {
	now := time.Now().UTC()
	var claimed *types.JobRun
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		job, err := first(tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(runnable(now.Add(-retryDelay), now.Add(-staleRunning))).
			Order("created_at ASC"))
		if err != nil || job == nil {
			return err
		}
		err = tx.Model(&types.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       jobs.StatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if err != nil {
			return err
		}
		job.Status = jobs.StatusRunning
		job.Attempts++
		job.LockedAt, job.HeartbeatAt = &now, &now
		claimed = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// UpdateFieldsUnlessStatus applies updates unless the row is in one of
// disallowedStatuses. It reports whether a row changed.
func (r *jobRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	q := dbc.DB(r.db).Model(&types.JobRun{}).Where("id = ?", id)
	if len(disallowedStatuses) > 0 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}
	res := q.Updates(stamped(updates))
	return res.RowsAffected > 0, res.Error
}

func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return dbc.DB(r.db).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, jobs.StatusRunning).
		Updates(map[string]interface{}{"heartbeat_at": now, "updated_at": now}).Error
}

// Cancel moves an owner's queued or running job to canceled. A running
// handler keeps going but its later status writes are discarded.
func (r *jobRunRepo) Cancel(dbc dbctx.Context, id uuid.UUID, ownerUserID uint) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).
		Model(&types.JobRun{}).
		Where("id = ? AND owner_user_id = ? AND status IN ?", id, ownerUserID, activeStatuses).
		Updates(stamped(map[string]interface{}{
			"status":    jobs.StatusCanceled,
			"stage":     jobs.StatusCanceled,
			"locked_at": nil,
		}))
	return res.RowsAffected > 0, res.Error
}

func (r *jobRunRepo) ExistsRunnable(dbc dbctx.Context, jobType string) (bool, error) {
	if jobType == "" {
		return false, nil
	}
	var count int64
	err := dbc.DB(r.db).Model(&types.JobRun{}).
		Where("job_type = ? AND status IN ?", jobType, activeStatuses).
		Count(&count).Error
	return count > 0, err
}

// DeleteFinishedBefore removes terminal jobs last touched before cutoff:
// succeeded, canceled, and failed with no attempts left.
func (r *jobRunRepo) DeleteFinishedBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	terminal := clause.Or(
		clause.IN{Column: "status", Values: []interface{}{jobs.StatusSucceeded, jobs.StatusCanceled}},
		clause.And(
			clause.Eq{Column: "status", Value: jobs.StatusFailed},
			clause.Expr{SQL: "attempts >= max_attempts"},
		),
	)
	res := dbc.DB(r.db).
		Where(terminal).
		Where("updated_at < ?", cutoff).
		Delete(&types.JobRun{})
	return res.RowsAffected, res.Error
}

func first(q *gorm.DB) (*types.JobRun, error) {
	var job types.JobRun
	err := q.Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func stamped(updates map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		out[k] = v
	}
	if _, ok := out["updated_at"]; !ok {
		out["updated_at"] = time.Now().UTC()
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
