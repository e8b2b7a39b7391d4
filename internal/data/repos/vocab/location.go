package vocab

import (
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/domain/vocab"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type LocationRepo interface {
	TreeRepo[vocab.Location]
	// Chain loads id's ancestors and id itself, root first, with admin level
	// and location type attached.
	Chain(dbc dbctx.Context, id uint) ([]*vocab.Location, error)
	// Subtree returns id and every location whose id_tree passes through it.
	Subtree(dbc dbctx.Context, id uint) ([]*vocab.Location, error)
	UpdateDerived(dbc dbctx.Context, id uint, idTree, fullLocation string) error
	// Batch returns up to limit locations with id > after, by id.
	Batch(dbc dbctx.Context, after uint, limit int) ([]*vocab.Location, error)
}

type locationRepo struct {
	*treeRepo[vocab.Location]
}

func NewLocationRepo(db *gorm.DB, baseLog *logger.Logger) LocationRepo {
	return &locationRepo{treeRepo: &treeRepo[vocab.Location]{
		repo:      newRepo[vocab.Location](db, baseLog, vocab.Location{}.TableName()),
		parentCol: "parent_id",
	}}
}

func (r *locationRepo) Chain(dbc dbctx.Context, id uint) ([]*vocab.Location, error) {
	ids, err := r.Ancestors(dbc, id)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	var rows []*vocab.Location
	if err := dbc.DB(r.db).
		Preload("AdminLevel").
		Preload("LocationType").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*vocab.Location, len(rows))
	for _, l := range rows {
		byID[l.ID] = l
	}
	out := make([]*vocab.Location, 0, len(ids))
	for _, lid := range ids {
		if l, ok := byID[lid]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *locationRepo) Subtree(dbc dbctx.Context, id uint) ([]*vocab.Location, error) {
	var out []*vocab.Location
	if err := dbc.DB(r.db).
		Where("id = ? OR id_tree LIKE ?", id, "%"+vocab.IDTreeToken(id)+"%").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *locationRepo) UpdateDerived(dbc dbctx.Context, id uint, idTree, fullLocation string) error {
	return dbc.DB(r.db).
		Model(&vocab.Location{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"id_tree": idTree, "full_location": fullLocation}).Error
}

func (r *locationRepo) Batch(dbc dbctx.Context, after uint, limit int) ([]*vocab.Location, error) {
	if limit <= 0 {
		limit = 500
	}
	var out []*vocab.Location
	if err := dbc.DB(r.db).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
