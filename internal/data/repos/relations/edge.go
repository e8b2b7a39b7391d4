package relations

import (
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// EdgeRepo reads and writes every edge table through its relations.Kind.
type EdgeRepo interface {
	Get(dbc dbctx.Context, k relations.Kind, leftID, rightID uint) (*relations.Edge, error)
	// Upsert inserts e or overwrites the mutable fields of the existing row.
	Upsert(dbc dbctx.Context, e *relations.Edge) error
	Delete(dbc dbctx.Context, k relations.Kind, leftID, rightID uint) error
	// ListFor returns the edges of k touching the focal entity, newest first.
	ListFor(dbc dbctx.Context, k relations.Kind, self entities.Kind, selfID uint, limit, offset int) ([]*relations.Edge, error)
	CountFor(dbc dbctx.Context, k relations.Kind, self entities.Kind, selfID uint) (int64, error)
	CounterpartIDs(dbc dbctx.Context, k relations.Kind, self entities.Kind, selfID uint) ([]uint, error)
}

type edgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEdgeRepo(db *gorm.DB, baseLog *logger.Logger) EdgeRepo {
	return &edgeRepo{db: db, log: baseLog.With("repo", "EdgeRepo")}
}

type edgeRow struct {
	L           uint          `gorm:"column:l"`
	R           uint          `gorm:"column:r"`
	Vec         pq.Int64Array `gorm:"column:related_as_vec"`
	One         *int64        `gorm:"column:related_as_one"`
	Probability *int          `gorm:"column:probability"`
	Comment     string        `gorm:"column:comment"`
	UserID      *uint         `gorm:"column:user_id"`
	CreatedAt   time.Time     `gorm:"column:created_at"`
	UpdatedAt   time.Time     `gorm:"column:updated_at"`
}

func (row edgeRow) edge(k relations.Kind) *relations.Edge {
	e := &relations.Edge{
		Kind:      k,
		LeftID:    row.L,
		RightID:   row.R,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	e.Probability = row.Probability
	e.Comment = row.Comment
	if k.Vector {
		e.RelatedAs = []int64(row.Vec)
	} else if row.One != nil {
		e.RelatedAs = []int64{*row.One}
	}
	if e.RelatedAs == nil {
		e.RelatedAs = []int64{}
	}
	return e
}

func selectCols(k relations.Kind) string {
	ras := "related_as AS related_as_one"
	if k.Vector {
		ras = "related_as AS related_as_vec"
	}
	return k.LeftCol + " AS l, " + k.RightCol + " AS r, " + ras + ", probability, comment, user_id, created_at, updated_at"
}

// touching restricts q to rows with the focal entity on its side.
func touching(q *gorm.DB, k relations.Kind, self entities.Kind, selfID uint) *gorm.DB {
	if k.Symmetric {
		return q.Where(k.LeftCol+" = ? OR "+k.RightCol+" = ?", selfID, selfID)
	}
	if self == k.Left {
		return q.Where(k.LeftCol+" = ?", selfID)
	}
	return q.Where(k.RightCol+" = ?", selfID)
}

func (r *edgeRepo) Get(dbc dbctx.Context, k relations.Kind, leftID, rightID uint) (*relations.Edge, error) {
	var row edgeRow
	err := dbc.DB(r.db).Table(k.Table).Select(selectCols(k)).
		Where(k.LeftCol+" = ? AND "+k.RightCol+" = ?", leftID, rightID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.edge(k), nil
}

func relatedAsValue(k relations.Kind, ras []int64) any {
	if k.Vector {
		if ras == nil {
			ras = []int64{}
		}
		return pq.Int64Array(ras)
	}
	if len(ras) == 0 {
		return nil
	}
	return ras[0]
}

func (r *edgeRepo) Upsert(dbc dbctx.Context, e *relations.Edge) error {
	k := e.Kind
	if k.Symmetric && e.LeftID >= e.RightID {
		return relations.ErrSelfRelation
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	row := map[string]any{
		k.LeftCol:     e.LeftID,
		k.RightCol:    e.RightID,
		"related_as":  relatedAsValue(k, e.RelatedAs),
		"probability": e.Probability,
		"comment":     e.Comment,
		"user_id":     e.UserID,
		"created_at":  e.CreatedAt,
		"updated_at":  e.UpdatedAt,
	}
	return dbc.DB(r.db).Table(k.Table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: k.LeftCol}, {Name: k.RightCol}},
		DoUpdates: clause.AssignmentColumns([]string{"related_as", "probability", "comment", "updated_at"}),
	}).Create(row).Error
}

func (r *edgeRepo) Delete(dbc dbctx.Context, k relations.Kind, leftID, rightID uint) error {
	return dbc.DB(r.db).Table(k.Table).
		Where(k.LeftCol+" = ? AND "+k.RightCol+" = ?", leftID, rightID).
		Delete(nil).Error
}

func (r *edgeRepo) ListFor(dbc dbctx.Context, k relations.Kind, self entities.Kind, selfID uint, limit, offset int) ([]*relations.Edge, error) {
	q := touching(dbc.DB(r.db).Table(k.Table).Select(selectCols(k)), k, self, selfID).
		Order("updated_at DESC").Order(k.LeftCol).Order(k.RightCol)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var rows []edgeRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*relations.Edge, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.edge(k))
	}
	return out, nil
}

func (r *edgeRepo) CountFor(dbc dbctx.Context, k relations.Kind, self entities.Kind, selfID uint) (int64, error) {
	var n int64
	err := touching(dbc.DB(r.db).Table(k.Table), k, self, selfID).Count(&n).Error
	return n, err
}

func (r *edgeRepo) CounterpartIDs(dbc dbctx.Context, k relations.Kind, self entities.Kind, selfID uint) ([]uint, error) {
	edges, err := r.ListFor(dbc, k, self, selfID, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]uint, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.OtherID(self, selfID))
	}
	return out, nil
}
