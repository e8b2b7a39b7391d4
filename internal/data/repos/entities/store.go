package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/search"
)

// Depth selects how much of an entity Get loads.
type Depth int

const (
	// DepthControl loads the fields the access evaluator needs.
	DepthControl Depth = iota
	// DepthFull loads every association.
	DepthFull
)

// Store persists one entity kind.
type Store[T any] interface {
	Kind() entities.Kind
	Create(dbc dbctx.Context, e *T) error
	Get(dbc dbctx.Context, id uint, depth Depth) (*T, error)
	GetMany(dbc dbctx.Context, ids []uint, depth Depth) ([]*T, error)
	// SaveScalars writes the row's own columns, leaving associations alone.
	SaveScalars(dbc dbctx.Context, e *T) error
	UpdateColumns(dbc dbctx.Context, ids []uint, cols map[string]any) error
	// SetLinks replaces the join rows of assoc for id.
	SetLinks(dbc dbctx.Context, id uint, assoc string, targetIDs []uint) error
	AddLinks(dbc dbctx.Context, id uint, assoc string, targetIDs []uint) error
	LinkIDs(dbc dbctx.Context, id uint, assoc string) ([]uint, error)
	Delete(dbc dbctx.Context, id uint) error
	Exists(dbc dbctx.Context, id uint) (bool, error)

	SearchIDs(dbc dbctx.Context, where clause.Expression, page search.Page) ([]uint, error)
	Count(dbc dbctx.Context, where clause.Expression) (int64, error)
	EstimateCount(dbc dbctx.Context, where clause.Expression) (int64, error)
}

type store[T any] struct {
	db      *gorm.DB
	log     *logger.Logger
	kind    entities.Kind
	control []string
	full    []string
}

func newStore[T any](db *gorm.DB, baseLog *logger.Logger, kind entities.Kind, full []string) *store[T] {
	return &store[T]{
		db:      db,
		log:     baseLog.With("repo", kind.ModelName()+"Repo"),
		kind:    kind,
		control: []string{"Roles"},
		full:    full,
	}
}

func (s *store[T]) Kind() entities.Kind { return s.kind }

func (s *store[T]) table() string { return s.kind.Table() }

func (s *store[T]) Create(dbc dbctx.Context, e *T) error {
	return dbc.DB(s.db).Omit(clause.Associations).Create(e).Error
}

func (s *store[T]) preload(q *gorm.DB, depth Depth) *gorm.DB {
	paths := s.control
	if depth == DepthFull {
		paths = s.full
	}
	for _, p := range paths {
		q = q.Preload(p)
	}
	return q
}

// Get returns (nil, nil) when the row does not exist.
func (s *store[T]) Get(dbc dbctx.Context, id uint, depth Depth) (*T, error) {
	if id == 0 {
		return nil, nil
	}
	e := new(T)
	err := s.preload(dbc.DB(s.db), depth).Where(s.table()+".id = ?", id).Take(e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetMany keeps the order of ids and skips missing rows.
func (s *store[T]) GetMany(dbc dbctx.Context, ids []uint, depth Depth) ([]*T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []*T
	if err := s.preload(dbc.DB(s.db), depth).Where(s.table()+".id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*T, len(rows))
	for _, r := range rows {
		byID[idOf(r)] = r
	}
	out := make([]*T, 0, len(rows))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
			delete(byID, id)
		}
	}
	return out, nil
}

func idOf[T any](e *T) uint {
	if g, ok := any(e).(interface{ GetID() uint }); ok {
		return g.GetID()
	}
	return 0
}

func (s *store[T]) SaveScalars(dbc dbctx.Context, e *T) error {
	return dbc.DB(s.db).Omit(clause.Associations).Save(e).Error
}

func (s *store[T]) UpdateColumns(dbc dbctx.Context, ids []uint, cols map[string]any) error {
	if len(ids) == 0 || len(cols) == 0 {
		return nil
	}
	return dbc.DB(s.db).Model(new(T)).Where("id IN ?", ids).Updates(cols).Error
}

func (s *store[T]) link(assoc string) (table, fk, target string, err error) {
	if !slices.Contains(s.kind.Assocs(), assoc) {
		return "", "", "", fmt.Errorf("%s has no %s link", s.kind, assoc)
	}
	table, fk = s.kind.JoinTable(assoc)
	return table, fk, entities.TargetColumn(assoc), nil
}

func (s *store[T]) SetLinks(dbc dbctx.Context, id uint, assoc string, targetIDs []uint) error {
	table, fk, target, err := s.link(assoc)
	if err != nil {
		return err
	}
	return replaceLinks(dbc.DB(s.db), table, fk, target, id, targetIDs)
}

func (s *store[T]) AddLinks(dbc dbctx.Context, id uint, assoc string, targetIDs []uint) error {
	table, fk, target, err := s.link(assoc)
	if err != nil {
		return err
	}
	return insertLinks(dbc.DB(s.db), table, fk, target, id, targetIDs)
}

func (s *store[T]) LinkIDs(dbc dbctx.Context, id uint, assoc string) ([]uint, error) {
	table, fk, target, err := s.link(assoc)
	if err != nil {
		return nil, err
	}
	var out []uint
	err = dbc.DB(s.db).Table(table).Where(fk+" = ?", id).Order(target).Pluck(target, &out).Error
	return out, err
}

func replaceLinks(db *gorm.DB, table, fk, target string, id uint, targetIDs []uint) error {
	if err := db.Table(table).Where(fk+" = ?", id).Delete(nil).Error; err != nil {
		return err
	}
	return insertLinks(db, table, fk, target, id, targetIDs)
}

func insertLinks(db *gorm.DB, table, fk, target string, id uint, targetIDs []uint) error {
	rows := make([]map[string]any, 0, len(targetIDs))
	seen := map[uint]bool{}
	for _, t := range targetIDs {
		if t == 0 || seen[t] {
			continue
		}
		seen[t] = true
		rows = append(rows, map[string]any{fk: id, target: t})
	}
	if len(rows) == 0 {
		return nil
	}
	return db.Table(table).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// Delete removes the row and its join rows. Owned events go with it.
func (s *store[T]) Delete(dbc dbctx.Context, id uint) error {
	db := dbc.DB(s.db)
	eventTable, fk := s.kind.JoinTable("events")
	var eventIDs []uint
	if err := db.Table(eventTable).Where(fk+" = ?", id).Pluck("event_id", &eventIDs).Error; err != nil {
		return err
	}
	for _, assoc := range s.kind.Assocs() {
		table, fk := s.kind.JoinTable(assoc)
		if err := db.Table(table).Where(fk+" = ?", id).Delete(nil).Error; err != nil {
			return err
		}
	}
	if len(eventIDs) > 0 {
		if err := db.Where("id IN ?", eventIDs).Delete(&entities.Event{}).Error; err != nil {
			return err
		}
	}
	switch s.kind {
	case entities.KindBulletin:
		if err := db.Where("bulletin_id = ?", id).Delete(&entities.GeoLocation{}).Error; err != nil {
			return err
		}
		if err := db.Model(&entities.Media{}).Where("bulletin_id = ?", id).
			Updates(map[string]any{"bulletin_id": nil, "deleted": true}).Error; err != nil {
			return err
		}
	case entities.KindActor:
		var profileIDs []uint
		if err := db.Model(&entities.ActorProfile{}).Where("actor_id = ?", id).Pluck("id", &profileIDs).Error; err != nil {
			return err
		}
		if len(profileIDs) > 0 {
			for _, assoc := range entities.ProfileAssocs {
				if err := db.Table("actor_profile_"+assoc).Where("actor_profile_id IN ?", profileIDs).Delete(nil).Error; err != nil {
					return err
				}
			}
			if err := db.Where("id IN ?", profileIDs).Delete(&entities.ActorProfile{}).Error; err != nil {
				return err
			}
		}
	}
	return db.Delete(new(T), id).Error
}

func (s *store[T]) Exists(dbc dbctx.Context, id uint) (bool, error) {
	var n int64
	err := dbc.DB(s.db).Model(new(T)).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (s *store[T]) SearchIDs(dbc dbctx.Context, where clause.Expression, page search.Page) ([]uint, error) {
	q := search.Scoped(dbc.DB(s.db).Table(s.table()), where)
	q = page.Apply(q, s.table())
	var ids []uint
	if err := q.Pluck(s.table()+".id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *store[T]) Count(dbc dbctx.Context, where clause.Expression) (int64, error) {
	var n int64
	err := search.Scoped(dbc.DB(s.db).Table(s.table()), where).Count(&n).Error
	return n, err
}

// EstimateCount reads the planner's row estimate for the filtered scan.
func (s *store[T]) EstimateCount(dbc dbctx.Context, where clause.Expression) (int64, error) {
	db := dbc.DB(s.db)
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var ids []uint
		return search.Scoped(tx.Table(s.table()), where).Select(s.table() + ".id").Find(&ids)
	})
	var raw string
	if err := db.Raw("EXPLAIN (FORMAT JSON) " + sql).Row().Scan(&raw); err != nil {
		return 0, err
	}
	return planRows(raw)
}

func planRows(raw string) (int64, error) {
	var plans []struct {
		Plan struct {
			Rows float64 `json:"Plan Rows"`
		} `json:"Plan"`
	}
	if err := json.Unmarshal([]byte(raw), &plans); err != nil {
		return 0, fmt.Errorf("parse explain output: %w", err)
	}
	if len(plans) == 0 {
		return 0, errors.New("empty explain output")
	}
	return int64(plans[0].Plan.Rows), nil
}
