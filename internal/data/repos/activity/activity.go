package activity

import (
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// Filter selects activity rows. Zero fields are ignored; To is exclusive.
type Filter struct {
	UserID  uint
	Actions []string
	Model   string
	Status  string
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

type ActivityRepo interface {
	Create(dbc dbctx.Context, rows []*types.Activity) error
	Search(dbc dbctx.Context, f Filter) ([]*types.Activity, int64, error)
	DeleteBefore(dbc dbctx.Context, cutoff time.Time, batch int) (int64, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) Create(dbc dbctx.Context, rows []*types.Activity) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&rows).Error
}

func (r *activityRepo) Search(dbc dbctx.Context, f Filter) ([]*types.Activity, int64, error) {
	q := dbc.DB(r.db).Model(&types.Activity{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if len(f.Actions) > 0 {
		q = q.Where("action IN ?", f.Actions)
	}
	if f.Model != "" {
		q = q.Where("model = ?", f.Model)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	perPage := f.PerPage
	if perPage <= 0 || perPage > 1000 {
		perPage = 30
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	var out []*types.Activity
	if err := q.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteBefore removes rows older than cutoff in batches of batch ids and
// returns the number removed.
func (r *activityRepo) DeleteBefore(dbc dbctx.Context, cutoff time.Time, batch int) (int64, error) {
	if batch <= 0 {
		batch = 1000
	}
	var total int64
	for {
		if dbc.Ctx != nil {
			if err := dbc.Ctx.Err(); err != nil {
				return total, err
			}
		}
		var ids []uint
		if err := dbc.DB(r.db).Model(&types.Activity{}).
			Where("created_at < ?", cutoff).
			Order("id ASC").
			Limit(batch).
			Pluck("id", &ids).Error; err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		res := dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Activity{})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
		if len(ids) < batch {
			return total, nil
		}
	}
}
