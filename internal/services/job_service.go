package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// EnqueueOptions tunes a single enqueue.
type EnqueueOptions struct {
	// DedupKey returns the caller's active job of the same type and key
	// instead of creating another one.
	DedupKey    string
	MaxAttempts int
}

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID uint, jobType string, payload map[string]any, opts EnqueueOptions) (*types.JobRun, bool, error)
	// EnqueueIfIdle creates a job of jobType unless one is already queued or running.
	EnqueueIfIdle(dbc dbctx.Context, ownerUserID uint, jobType string, payload map[string]any) (*types.JobRun, bool, error)
	GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	ListForRequestUser(dbc dbctx.Context, limit int) ([]*types.JobRun, error)
	// CancelForRequestUser cancels the caller's queued or running job.
	CancelForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	notify JobNotifier
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, notify JobNotifier) JobService {
	return &jobService{
		db:     db,
		log:    baseLog.With("service", "JobService"),
		repo:   repo,
		notify: notify,
	}
}

// Enqueue persists a queued job. The bool result is true when a new row was
// created and false when an active job with the same dedup key was reused.
func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID uint, jobType string, payload map[string]any, opts EnqueueOptions) (*types.JobRun, bool, error) {
	if ownerUserID == 0 {
		return nil, false, apierr.Validation("missing_owner", "missing owner_user_id")
	}
	jobType = strings.TrimSpace(jobType)
	if jobType == "" {
		return nil, false, apierr.Validation("missing_job_type", "missing job_type")
	}
	if !jobs.KnownType(jobType) {
		return nil, false, apierr.Validation("unknown_job_type", "unknown job_type %q", jobType)
	}
	dedup := strings.TrimSpace(opts.DedupKey)
	if dedup != "" {
		// Keys are scoped per owner.
		dedup = fmt.Sprintf("%d:%s", ownerUserID, dedup)
		existing, err := s.repo.GetActiveByDedupKey(dbc, jobType, dedup)
		if err != nil {
			return nil, false, dbErr(err)
		}
		if existing != nil {
			s.log.Debug("Reusing active job", "job_id", existing.ID, "job_type", jobType, "dedup_key", dedup)
			return existing, false, nil
		}
	}

	if payload == nil {
		payload = map[string]any{}
	}
	ctxutil.GetTraceData(dbc.Ctx).Stamp(payload)
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, false, apierr.Validation("invalid_payload", "job payload: %s", err.Error())
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		DedupKey:    dedup,
		Status:      jobs.StatusQueued,
		Stage:       jobs.StatusQueued,
		MaxAttempts: opts.MaxAttempts,
		Message:     "Queued",
		Payload:     datatypes.JSON(b),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, false, dbErr(err)
	}
	if s.notify != nil {
		s.notify.JobCreated(ownerUserID, job)
	}
	s.log.Info("Job enqueued", "job_id", job.ID, "job_type", jobType, "owner_user_id", ownerUserID)
	return job, true, nil
}

func (s *jobService) EnqueueIfIdle(dbc dbctx.Context, ownerUserID uint, jobType string, payload map[string]any) (*types.JobRun, bool, error) {
	busy, err := s.repo.ExistsRunnable(dbc, jobType)
	if err != nil {
		return nil, false, dbErr(err)
	}
	if busy {
		return nil, false, nil
	}
	return s.Enqueue(dbc, ownerUserID, jobType, payload, EnqueueOptions{})
}

func (s *jobService) GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == 0 {
		return nil, errUnauthenticated
	}
	if jobID == uuid.Nil {
		return nil, apierr.Validation("missing_job_id", "missing job id")
	}
	job, err := s.repo.GetByID(dbc, jobID)
	if err != nil {
		return nil, dbErr(err)
	}
	if job == nil || job.OwnerUserID != rd.UserID {
		return nil, apierr.NotFound("job_not_found", "job %s not found", jobID)
	}
	return job, nil
}

func (s *jobService) ListForRequestUser(dbc dbctx.Context, limit int) ([]*types.JobRun, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == 0 {
		return nil, errUnauthenticated
	}
	rows, err := s.repo.ListByOwner(dbc, rd.UserID, limit)
	if err != nil {
		return nil, dbErr(err)
	}
	return rows, nil
}

func (s *jobService) CancelForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	job, err := s.GetByIDForRequestUser(dbc, jobID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.Cancel(dbc, job.ID, job.OwnerUserID)
	if err != nil {
		return nil, dbErr(err)
	}
	if !ok {
		return nil, apierr.Conflict("job_not_active", fmt.Errorf("job %s is already %s", job.ID, job.Status))
	}
	s.log.Info("Job canceled", "job_id", job.ID, "job_type", job.JobType, "owner_user_id", job.OwnerUserID)
	job, err = s.repo.GetByID(dbc, job.ID)
	if err != nil {
		return nil, dbErr(err)
	}
	if s.notify != nil && job != nil {
		s.notify.JobFailed(job.OwnerUserID, job, job.Stage, "canceled by owner")
	}
	return job, nil
}
