package vocab

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// ListOptions narrows a vocabulary listing. Zero values mean no filter and
// no pagination.
type ListOptions struct {
	Where   clause.Expression
	Title   string
	Preload []string
	Page    int
	PerPage int
}

// Repo is the store for one vocabulary table.
type Repo[T any] interface {
	List(dbc dbctx.Context, opts ListOptions) ([]*T, int64, error)
	GetByID(dbc dbctx.Context, id uint, preload ...string) (*T, error)
	GetByIDs(dbc dbctx.Context, ids []uint) ([]*T, error)
	Missing(dbc dbctx.Context, ids []uint) ([]uint, error)
	Create(dbc dbctx.Context, rows []*T) error
	Save(dbc dbctx.Context, row *T) error
	Delete(dbc dbctx.Context, id uint) error
}

type repo[T any] struct {
	db    *gorm.DB
	log   *logger.Logger
	table string
}

func NewRepo[T any](db *gorm.DB, baseLog *logger.Logger, table string) Repo[T] {
	return newRepo[T](db, baseLog, table)
}

func newRepo[T any](db *gorm.DB, baseLog *logger.Logger, table string) *repo[T] {
	return &repo[T]{db: db, log: baseLog.With("repo", "VocabRepo", "table", table), table: table}
}

func (r *repo[T]) List(dbc dbctx.Context, opts ListOptions) ([]*T, int64, error) {
	q := dbc.DB(r.db).Model(new(T))
	if opts.Where != nil {
		q = q.Where(opts.Where)
	}
	if t := strings.TrimSpace(opts.Title); t != "" {
		like := "%" + strings.ToLower(t) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(title_ar) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	for _, p := range opts.Preload {
		q = q.Preload(p)
	}
	q = q.Order("id ASC")
	if opts.PerPage > 0 {
		page := opts.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * opts.PerPage).Limit(opts.PerPage)
	}
	var out []*T
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID returns (nil, nil) when the row does not exist.
func (r *repo[T]) GetByID(dbc dbctx.Context, id uint, preload ...string) (*T, error) {
	if id == 0 {
		return nil, nil
	}
	q := dbc.DB(r.db)
	for _, p := range preload {
		q = q.Preload(p)
	}
	row := new(T)
	err := q.Where("id = ?", id).Take(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *repo[T]) GetByIDs(dbc dbctx.Context, ids []uint) ([]*T, error) {
	var out []*T
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Missing returns the ids that have no row, in input order.
func (r *repo[T]) Missing(dbc dbctx.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := dbc.DB(r.db).Model(new(T)).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}
	var missing []uint
	for _, id := range ids {
		if !seen[id] {
			missing = append(missing, id)
			seen[id] = true
		}
	}
	return missing, nil
}

func (r *repo[T]) Create(dbc dbctx.Context, rows []*T) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Omit(clause.Associations).Create(&rows).Error
}

func (r *repo[T]) Save(dbc dbctx.Context, row *T) error {
	return dbc.DB(r.db).Omit(clause.Associations).Save(row).Error
}

func (r *repo[T]) Delete(dbc dbctx.Context, id uint) error {
	return dbc.DB(r.db).Delete(new(T), id).Error
}
