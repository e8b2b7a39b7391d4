package services

import (
	"gorm.io/gorm/clause"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	entrepo "github.com/yungbote/casefile-backend/internal/data/repos/entities"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/search"
)

// EntityStore is a kind-erased view over one of the typed entity repos, so
// the relation, history, search and bulk paths can treat the three kinds alike.
type EntityStore interface {
	Kind() entities.Kind
	Get(dbc dbctx.Context, id uint, depth entrepo.Depth) (entities.Entity, error)
	GetMany(dbc dbctx.Context, ids []uint, depth entrepo.Depth) ([]entities.Entity, error)
	Create(dbc dbctx.Context, e entities.Entity) error
	SaveScalars(dbc dbctx.Context, e entities.Entity) error
	UpdateColumns(dbc dbctx.Context, ids []uint, cols map[string]any) error
	SetLinks(dbc dbctx.Context, id uint, assoc string, targetIDs []uint) error
	AddLinks(dbc dbctx.Context, id uint, assoc string, targetIDs []uint) error
	LinkIDs(dbc dbctx.Context, id uint, assoc string) ([]uint, error)
	Delete(dbc dbctx.Context, id uint) error
	Exists(dbc dbctx.Context, id uint) (bool, error)
	SearchIDs(dbc dbctx.Context, where clause.Expression, page search.Page) ([]uint, error)
	Count(dbc dbctx.Context, where clause.Expression) (int64, error)
	EstimateCount(dbc dbctx.Context, where clause.Expression) (int64, error)
}

type entityPtr[T any] interface {
	*T
	entities.Entity
}

type typedStore[T any, PT entityPtr[T]] struct {
	entrepo.Store[T]
}

func erase[T any, PT entityPtr[T]](s entrepo.Store[T]) EntityStore {
	return typedStore[T, PT]{Store: s}
}

func (s typedStore[T, PT]) Get(dbc dbctx.Context, id uint, depth entrepo.Depth) (entities.Entity, error) {
	e, err := s.Store.Get(dbc, id, depth)
	if err != nil || e == nil {
		return nil, err
	}
	return PT(e), nil
}

func (s typedStore[T, PT]) GetMany(dbc dbctx.Context, ids []uint, depth entrepo.Depth) ([]entities.Entity, error) {
	rows, err := s.Store.GetMany(dbc, ids, depth)
	if err != nil {
		return nil, err
	}
	out := make([]entities.Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, PT(r))
	}
	return out, nil
}

func (s typedStore[T, PT]) typed(e entities.Entity) (*T, error) {
	pt, ok := e.(PT)
	if !ok || pt == nil {
		return nil, apierr.Internal(errWrongKind(s.Kind(), e))
	}
	return (*T)(pt), nil
}

func (s typedStore[T, PT]) Create(dbc dbctx.Context, e entities.Entity) error {
	t, err := s.typed(e)
	if err != nil {
		return err
	}
	return s.Store.Create(dbc, t)
}

func (s typedStore[T, PT]) SaveScalars(dbc dbctx.Context, e entities.Entity) error {
	t, err := s.typed(e)
	if err != nil {
		return err
	}
	return s.Store.SaveScalars(dbc, t)
}

// EntityStores indexes the erased stores by kind.
type EntityStores map[entities.Kind]EntityStore

func NewEntityStores(b repos.BulletinRepo, a repos.ActorRepo, i repos.IncidentRepo) EntityStores {
	return EntityStores{
		entities.KindBulletin: erase[entities.Bulletin, *entities.Bulletin](b),
		entities.KindActor:    erase[entities.Actor, *entities.Actor](a),
		entities.KindIncident: erase[entities.Incident, *entities.Incident](i),
	}
}

func (s EntityStores) For(k entities.Kind) (EntityStore, error) {
	st, ok := s[k]
	if !ok {
		return nil, apierr.Validation("unknown_kind", "unknown entity kind %q", k)
	}
	return st, nil
}
