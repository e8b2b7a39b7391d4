package history

import (
	"gorm.io/gorm"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type RevisionRepo interface {
	Append(dbc dbctx.Context, revs []*types.Revision) error
	// ListFor returns the entity's revisions newest first.
	ListFor(dbc dbctx.Context, kind string, id uint) ([]*types.Revision, error)
	Count(dbc dbctx.Context, kind string, id uint) (int64, error)
	// Latest returns the newest revision or (nil, nil).
	Latest(dbc dbctx.Context, kind string, id uint) (*types.Revision, error)
	// ListAfter pages through every revision by id, for exports.
	ListAfter(dbc dbctx.Context, afterID uint, limit int) ([]*types.Revision, error)
}

type revisionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRevisionRepo(db *gorm.DB, baseLog *logger.Logger) RevisionRepo {
	return &revisionRepo{db: db, log: baseLog.With("repo", "RevisionRepo")}
}

func (r *revisionRepo) Append(dbc dbctx.Context, revs []*types.Revision) error {
	if len(revs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&revs).Error
}

func (r *revisionRepo) ListFor(dbc dbctx.Context, kind string, id uint) ([]*types.Revision, error) {
	var out []*types.Revision
	if err := dbc.DB(r.db).
		Where("entity_kind = ? AND entity_id = ?", kind, id).
		Order("created_at DESC").
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *revisionRepo) Count(dbc dbctx.Context, kind string, id uint) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Revision{}).
		Where("entity_kind = ? AND entity_id = ?", kind, id).
		Count(&n).Error
	return n, err
}

func (r *revisionRepo) Latest(dbc dbctx.Context, kind string, id uint) (*types.Revision, error) {
	var out []*types.Revision
	if err := dbc.DB(r.db).
		Where("entity_kind = ? AND entity_id = ?", kind, id).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *revisionRepo) ListAfter(dbc dbctx.Context, afterID uint, limit int) ([]*types.Revision, error) {
	if limit <= 0 {
		limit = 500
	}
	var out []*types.Revision
	err := dbc.DB(r.db).Where("id > ?", afterID).Order("id").Limit(limit).Find(&out).Error
	return out, err
}
