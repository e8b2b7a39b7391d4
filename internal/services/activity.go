package services

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/activity"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/platform/observability"
)

// ActivityEntry is one audit event before it is persisted.
type ActivityEntry struct {
	UserID  uint
	Action  activity.Action
	Status  activity.Status
	Subject map[string]any
	Model   string
	Details string
}

type ActivityService interface {
	// Record persists e. Successful actions are written only when their action
	// is switched on in ACTIVITIES; denials are always written.
	Record(dbc dbctx.Context, e ActivityEntry) error
	// Denied records a DENIED row for an access failure on ent.
	Denied(dbc dbctx.Context, userID uint, action activity.Action, ent entities.Entity, details string)
	Search(dbc dbctx.Context, f repos.ActivityFilter) ([]*types.Activity, int64, error)
	// Purge drops rows older than the retention window.
	Purge(dbc dbctx.Context, now time.Time) (int64, error)
}

type activityService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.ActivityRepo
	cfg  *config.Manager
}

func NewActivityService(db *gorm.DB, baseLog *logger.Logger, repo repos.ActivityRepo, cfg *config.Manager) ActivityService {
	return &activityService{
		db:   db,
		log:  baseLog.With("service", "ActivityService"),
		repo: repo,
		cfg:  cfg,
	}
}

func (s *activityService) Record(dbc dbctx.Context, e ActivityEntry) error {
	if !e.Action.Valid() {
		return apierr.Validation("invalid_action", "unknown activity action %q", e.Action)
	}
	if e.Status == "" {
		e.Status = activity.StatusSuccess
	}
	if e.Status == activity.StatusSuccess && !s.cfg.Get().ActivityEnabled(string(e.Action)) {
		return nil
	}
	subject := datatypes.JSON([]byte(`{}`))
	if e.Subject != nil {
		b, err := json.Marshal(e.Subject)
		if err != nil {
			return apierr.Internal(err)
		}
		subject = datatypes.JSON(b)
	}
	row := &types.Activity{
		UserID:    e.UserID,
		Action:    e.Action,
		Status:    e.Status,
		Model:     e.Model,
		Subject:   subject,
		Details:   e.Details,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(dbc, []*types.Activity{row}); err != nil {
		return dbErr(err)
	}
	observability.Current().IncActivity(string(e.Action), string(e.Status))
	return nil
}

func (s *activityService) Denied(dbc dbctx.Context, userID uint, action activity.Action, ent entities.Entity, details string) {
	entry := ActivityEntry{UserID: userID, Action: action, Status: activity.StatusDenied, Details: details}
	kind := ""
	if ent != nil {
		entry.Subject = ent.Subject()
		entry.Model = ent.EntityKind().ModelName()
		kind = string(ent.EntityKind())
	}
	// outside any request transaction so a rollback cannot lose it
	if err := s.Record(dbctx.Context{Ctx: dbc.Ctx}, entry); err != nil {
		s.log.Warn("record denied activity failed", "user_id", userID, "action", action, "error", err)
	}
	observability.Current().IncAccessDenied(kind, string(action))
}

func (s *activityService) Search(dbc dbctx.Context, f repos.ActivityFilter) ([]*types.Activity, int64, error) {
	rows, total, err := s.repo.Search(dbc, f)
	if err != nil {
		return nil, 0, dbErr(err)
	}
	return rows, total, nil
}

func (s *activityService) Purge(dbc dbctx.Context, now time.Time) (int64, error) {
	cutoff := now.UTC().Add(-s.cfg.Get().ActivitiesRetention())
	n, err := s.repo.DeleteBefore(dbc, cutoff, 5000)
	if err != nil {
		return n, dbErr(err)
	}
	s.log.Info("activity retention purge", "cutoff", cutoff, "deleted", n)
	return n, nil
}
