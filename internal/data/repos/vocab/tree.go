package vocab

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// maxDepth bounds the upward walk so a corrupted cycle cannot loop forever.
const maxDepth = 64

// TreeRepo is a Repo over a self-referencing table.
type TreeRepo[T any] interface {
	Repo[T]
	// Ancestors returns id's chain root first, ending with id itself.
	Ancestors(dbc dbctx.Context, id uint) ([]uint, error)
	// Descendants returns ids and everything below them.
	Descendants(dbc dbctx.Context, ids []uint) ([]uint, error)
	Children(dbc dbctx.Context, id uint) ([]*T, error)
}

type treeRepo[T any] struct {
	*repo[T]
	parentCol string
}

func NewTreeRepo[T any](db *gorm.DB, baseLog *logger.Logger, table, parentCol string) TreeRepo[T] {
	return &treeRepo[T]{repo: newRepo[T](db, baseLog, table), parentCol: parentCol}
}

func (r *treeRepo[T]) Ancestors(dbc dbctx.Context, id uint) ([]uint, error) {
	if id == 0 {
		return nil, nil
	}
	sql := fmt.Sprintf(`
WITH RECURSIVE a(id, parent, depth) AS (
  SELECT id, %[2]s, 0 FROM %[1]s WHERE id = ?
  UNION ALL
  SELECT t.id, t.%[2]s, a.depth + 1 FROM %[1]s t JOIN a ON t.id = a.parent WHERE a.depth < ?
)
SELECT id FROM a ORDER BY depth DESC`, r.table, r.parentCol)
	var out []uint
	if err := dbc.DB(r.db).Raw(sql, id, maxDepth).Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *treeRepo[T]) Descendants(dbc dbctx.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sql := fmt.Sprintf(`
WITH RECURSIVE c(id) AS (
  SELECT id FROM %[1]s WHERE id IN ?
  UNION
  SELECT t.id FROM %[1]s t JOIN c ON t.%[2]s = c.id
)
SELECT id FROM c ORDER BY id`, r.table, r.parentCol)
	var out []uint
	if err := dbc.DB(r.db).Raw(sql, ids).Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *treeRepo[T]) Children(dbc dbctx.Context, id uint) ([]*T, error) {
	var out []*T
	if err := dbc.DB(r.db).Where(r.parentCol+" = ?", id).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
