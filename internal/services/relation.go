package services

import (
	"context"
	"errors"
	"slices"

	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/graph"
	"github.com/yungbote/casefile-backend/internal/data/repos"
	entrepo "github.com/yungbote/casefile-backend/internal/data/repos/entities"
	"github.com/yungbote/casefile-backend/internal/domain/activity"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/views"
)

// RelationPage is one page of a focal entity's edges toward one kind.
type RelationPage struct {
	Items []views.M `json:"items"`
	More  bool      `json:"more"`
	Total int64     `json:"total"`
}

type RelationService interface {
	// ReplaceSet makes items the complete edge set between self and kind
	// other. It must run inside the caller's transaction.
	ReplaceSet(dbc dbctx.Context, userID uint, self entities.Entity, other entities.Kind, items []RelationInput, cs *ChangeSet) error
	// Unlink removes every edge touching self, for deletes.
	Unlink(dbc dbctx.Context, self entities.Entity, cs *ChangeSet) error
	// AppendCounterpartRevisions snapshots every entity cs touched.
	AppendCounterpartRevisions(dbc dbctx.Context, userID uint, cs *ChangeSet) error
	// Relate upserts one edge without touching the others. It reports
	// whether anything changed.
	Relate(dbc dbctx.Context, selfKind entities.Kind, selfID uint, other entities.Kind, item RelationInput) (bool, error)
	List(dbc dbctx.Context, selfKind entities.Kind, selfID uint, other entities.Kind, page, perPage int) (*RelationPage, error)
	// Blocks renders every edge list of self, for full-mode reads.
	Blocks(dbc dbctx.Context, caller *Caller, self entities.Entity) (map[string][]views.M, error)
	// Mirror replays committed edge writes on the graph store.
	Mirror(ctx context.Context, cs *ChangeSet)
}

type relationService struct {
	db       *gorm.DB
	log      *logger.Logger
	edges    repos.EdgeRepo
	stores   EntityStores
	vocab    *repos.VocabRegistry
	users    repos.UserRepo
	history  HistoryService
	activity ActivityService
	mirror   graph.Mirror
	cfg      *config.Manager
}

func NewRelationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	edges repos.EdgeRepo,
	stores EntityStores,
	vocab *repos.VocabRegistry,
	users repos.UserRepo,
	history HistoryService,
	act ActivityService,
	mirror graph.Mirror,
	cfg *config.Manager,
) RelationService {
	return &relationService{
		db:       db,
		log:      baseLog.With("service", "RelationService"),
		edges:    edges,
		stores:   stores,
		vocab:    vocab,
		users:    users,
		history:  history,
		activity: act,
		mirror:   mirror,
		cfg:      cfg,
	}
}

func (s *relationService) kindFor(self, other entities.Kind) (relations.Kind, error) {
	k, ok := relations.Between(self, other)
	if !ok {
		return relations.Kind{}, apierr.Validation("unknown_relation", "no relation between %s and %s", self, other)
	}
	return k, nil
}

// missingInfo reports related_as ids absent from the kind's catalog.
func (s *relationService) missingInfo(dbc dbctx.Context, k relations.Kind, ids []uint) ([]uint, error) {
	if len(ids) == 0 || s.vocab == nil {
		return nil, nil
	}
	r := s.vocab
	switch k.Name {
	case relations.KindAtoa.Name:
		return r.AtoaInfos.Missing(dbc, ids)
	case relations.KindAtob.Name:
		return r.AtobInfos.Missing(dbc, ids)
	case relations.KindBtob.Name:
		return r.BtobInfos.Missing(dbc, ids)
	case relations.KindItoa.Name:
		return r.ItoaInfos.Missing(dbc, ids)
	case relations.KindItob.Name:
		return r.ItobInfos.Missing(dbc, ids)
	case relations.KindItoi.Name:
		return r.ItoiInfos.Missing(dbc, ids)
	}
	return nil, nil
}

// infos loads the catalog rows named by the related_as ids of edges.
func (s *relationService) infos(dbc dbctx.Context, k relations.Kind, edges []*relations.Edge) (views.RelationInfos, error) {
	if s.vocab == nil {
		return nil, nil
	}
	var ids []uint
	for _, e := range edges {
		for _, id := range e.RelatedAs {
			if id > 0 && !slices.Contains(ids, uint(id)) {
				ids = append(ids, uint(id))
			}
		}
	}
	out := views.RelationInfos{}
	if len(ids) == 0 {
		return out, nil
	}
	r := s.vocab
	var err error
	switch k.Name {
	case relations.KindAtoa.Name:
		err = collectInfos(r.AtoaInfos.GetByIDs(dbc, ids))(out, func(v *vocab.AtoaInfo) vocab.RelationInfo { return v.RelationInfo })
	case relations.KindAtob.Name:
		err = collectInfos(r.AtobInfos.GetByIDs(dbc, ids))(out, func(v *vocab.AtobInfo) vocab.RelationInfo { return v.RelationInfo })
	case relations.KindBtob.Name:
		err = collectInfos(r.BtobInfos.GetByIDs(dbc, ids))(out, func(v *vocab.BtobInfo) vocab.RelationInfo { return v.RelationInfo })
	case relations.KindItoa.Name:
		err = collectInfos(r.ItoaInfos.GetByIDs(dbc, ids))(out, func(v *vocab.ItoaInfo) vocab.RelationInfo { return v.RelationInfo })
	case relations.KindItob.Name:
		err = collectInfos(r.ItobInfos.GetByIDs(dbc, ids))(out, func(v *vocab.ItobInfo) vocab.RelationInfo { return v.RelationInfo })
	case relations.KindItoi.Name:
		err = collectInfos(r.ItoiInfos.GetByIDs(dbc, ids))(out, func(v *vocab.ItoiInfo) vocab.RelationInfo { return v.RelationInfo })
	}
	if err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

func collectInfos[T any](rows []*T, err error) func(views.RelationInfos, func(*T) vocab.RelationInfo) error {
	return func(out views.RelationInfos, get func(*T) vocab.RelationInfo) error {
		if err != nil {
			return err
		}
		for _, row := range rows {
			info := get(row)
			out[int64(info.ID)] = info
		}
		return nil
	}
}

// validate checks the counterpart ids and catalog ids of items and returns
// them deduplicated, last occurrence winning.
func (s *relationService) validate(dbc dbctx.Context, k relations.Kind, selfKind entities.Kind, selfID uint, items []RelationInput) ([]RelationInput, error) {
	var order []uint
	byID := map[uint]RelationInput{}
	var catalog []uint
	for _, it := range items {
		if it.ID == 0 {
			return nil, apierr.Validation("missing_relation_id", "relation item without counterpart id")
		}
		if k.Symmetric && selfID != 0 && it.ID == selfID {
			return nil, apierr.Validation("self_relation", "%s", relations.ErrSelfRelation.Error())
		}
		if it.Probability != nil && (*it.Probability < 0 || *it.Probability > 2) {
			return nil, apierr.Validation("invalid_probability", "probability must be 0, 1 or 2")
		}
		it.Fields = it.Fields.Normalize(k)
		for _, v := range it.RelatedAs {
			if !slices.Contains(catalog, uint(v)) {
				catalog = append(catalog, uint(v))
			}
		}
		if _, ok := byID[it.ID]; !ok {
			order = append(order, it.ID)
		}
		byID[it.ID] = it
	}
	if len(order) == 0 {
		return nil, nil
	}

	otherStore, err := s.stores.For(k.OtherSide(selfKind))
	if err != nil {
		return nil, err
	}
	found, err := otherStore.GetMany(dbc, order, entrepo.DepthControl)
	if err != nil {
		return nil, dbErr(err)
	}
	if len(found) != len(order) {
		have := map[uint]bool{}
		for _, e := range found {
			have[e.GetID()] = true
		}
		for _, id := range order {
			if !have[id] {
				return nil, apierr.Validation("unknown_relation_target", "%s %d does not exist", k.OtherSide(selfKind).ModelName(), id)
			}
		}
	}
	missing, err := s.missingInfo(dbc, k, catalog)
	if err != nil {
		return nil, dbErr(err)
	}
	if len(missing) > 0 {
		return nil, apierr.Validation("unknown_relation_kind", "unknown %s relation types %v", k.Name, missing)
	}

	out := make([]RelationInput, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

// applyEdge is the single write path for edges: look the canonical row up,
// update its fields when they differ, or create it.
func (s *relationService) applyEdge(dbc dbctx.Context, k relations.Kind, selfKind entities.Kind, selfID, otherID uint, f relations.Fields, userID uint) (created, changed bool, err error) {
	left, right, err := k.Key(selfKind, selfID, otherID)
	if err != nil {
		return false, false, apierr.Validation("self_relation", "%s", err.Error())
	}
	f = f.Normalize(k)
	existing, err := s.edges.Get(dbc, k, left, right)
	if err != nil {
		return false, false, dbErr(err)
	}
	if existing != nil {
		if existing.Fields.Equal(f) {
			return false, false, nil
		}
		existing.Fields = f
		if err := s.edges.Upsert(dbc, existing); err != nil {
			return false, false, dbErr(err)
		}
		return false, true, nil
	}
	e := &relations.Edge{Kind: k, LeftID: left, RightID: right, Fields: f, UserID: userPtr(userID)}
	if err := s.edges.Upsert(dbc, e); err != nil {
		return false, false, dbErr(err)
	}
	return true, true, nil
}

func (s *relationService) ReplaceSet(dbc dbctx.Context, userID uint, self entities.Entity, other entities.Kind, items []RelationInput, cs *ChangeSet) error {
	selfKind, selfID := self.EntityKind(), self.GetID()
	if selfID == 0 {
		return apierr.Internal(errors.New("relations applied before the entity was persisted"))
	}
	k, err := s.kindFor(selfKind, other)
	if err != nil {
		return err
	}
	items, err = s.validate(dbc, k, selfKind, selfID, items)
	if err != nil {
		return err
	}
	current, err := s.edges.CounterpartIDs(dbc, k, selfKind, selfID)
	if err != nil {
		return dbErr(err)
	}

	wanted := make([]uint, 0, len(items))
	for _, it := range items {
		wanted = append(wanted, it.ID)
		created, changed, err := s.applyEdge(dbc, k, selfKind, selfID, it.ID, it.Fields, userID)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}
		left, right, _ := k.Key(selfKind, selfID, it.ID)
		cs.Edges = append(cs.Edges, graph.EdgeChange{Kind: k, LeftID: left, RightID: right, Fields: it.Fields.Normalize(k)})
		if created && !cs.SkipNewEdgeRevisions {
			cs.Touch(other, it.ID)
		}
	}

	for _, id := range current {
		if slices.Contains(wanted, id) {
			continue
		}
		left, right, err := k.Key(selfKind, selfID, id)
		if err != nil {
			continue
		}
		if err := s.edges.Delete(dbc, k, left, right); err != nil {
			return dbErr(err)
		}
		cs.Edges = append(cs.Edges, graph.EdgeChange{Kind: k, LeftID: left, RightID: right, Deleted: true})
		cs.Touch(other, id)
	}
	return nil
}

func (s *relationService) Unlink(dbc dbctx.Context, self entities.Entity, cs *ChangeSet) error {
	selfKind, selfID := self.EntityKind(), self.GetID()
	for _, k := range relations.Touching(selfKind) {
		other := k.OtherSide(selfKind)
		ids, err := s.edges.CounterpartIDs(dbc, k, selfKind, selfID)
		if err != nil {
			return dbErr(err)
		}
		for _, id := range ids {
			left, right, err := k.Key(selfKind, selfID, id)
			if err != nil {
				continue
			}
			if err := s.edges.Delete(dbc, k, left, right); err != nil {
				return dbErr(err)
			}
			cs.Edges = append(cs.Edges, graph.EdgeChange{Kind: k, LeftID: left, RightID: right, Deleted: true})
			cs.Touch(other, id)
		}
	}
	return nil
}

func (s *relationService) AppendCounterpartRevisions(dbc dbctx.Context, userID uint, cs *ChangeSet) error {
	for _, k := range entities.Kinds {
		ids := cs.Touched(k)
		if len(ids) == 0 {
			continue
		}
		store, err := s.stores.For(k)
		if err != nil {
			return err
		}
		ents, err := store.GetMany(dbc, ids, entrepo.DepthFull)
		if err != nil {
			return dbErr(err)
		}
		if err := s.history.Append(dbc, userID, ents...); err != nil {
			return err
		}
	}
	return nil
}

func (s *relationService) Relate(dbc dbctx.Context, selfKind entities.Kind, selfID uint, other entities.Kind, item RelationInput) (bool, error) {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return false, err
	}
	k, err := s.kindFor(selfKind, other)
	if err != nil {
		return false, err
	}
	store, err := s.stores.For(selfKind)
	if err != nil {
		return false, err
	}
	self, err := store.Get(dbc, selfID, entrepo.DepthControl)
	if err != nil {
		return false, dbErr(err)
	}
	if self == nil {
		return false, notFound(selfKind, selfID)
	}
	if !policyOf(s.cfg).CanUpdate(caller.Subject, self.AccessControl()) {
		s.activity.Denied(dbc, caller.ID(), activity.ActionUpdate, self, "relate")
		return false, apierr.Denied("restricted")
	}

	cs := NewChangeSet()
	changed := false
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		items, err := s.validate(inner, k, selfKind, selfID, []RelationInput{item})
		if err != nil {
			return err
		}
		it := items[0]
		_, changed, err = s.applyEdge(inner, k, selfKind, selfID, it.ID, it.Fields, caller.ID())
		if err != nil || !changed {
			return err
		}
		left, right, _ := k.Key(selfKind, selfID, it.ID)
		cs.Edges = append(cs.Edges, graph.EdgeChange{Kind: k, LeftID: left, RightID: right, Fields: it.Fields.Normalize(k)})
		cs.Touch(selfKind, selfID)
		cs.Touch(other, it.ID)
		if err := s.AppendCounterpartRevisions(inner, caller.ID(), cs); err != nil {
			return err
		}
		return s.activity.Record(inner, ActivityEntry{
			UserID:  caller.ID(),
			Action:  activity.ActionUpdate,
			Subject: self.Subject(),
			Model:   selfKind.ModelName(),
			Details: "relate " + string(other),
		})
	})
	if err != nil {
		return false, dbErr(err)
	}
	s.Mirror(dbc.Ctx, cs)
	return changed, nil
}

func (s *relationService) List(dbc dbctx.Context, selfKind entities.Kind, selfID uint, other entities.Kind, page, perPage int) (*RelationPage, error) {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return nil, err
	}
	k, err := s.kindFor(selfKind, other)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.For(selfKind)
	if err != nil {
		return nil, err
	}
	self, err := store.Get(dbc, selfID, entrepo.DepthControl)
	if err != nil {
		return nil, dbErr(err)
	}
	if self == nil {
		return nil, notFound(selfKind, selfID)
	}
	if !policyOf(s.cfg).CanAccess(caller.Subject, self.AccessControl()) {
		s.activity.Denied(dbc, caller.ID(), activity.ActionView, self, "relations")
		return nil, apierr.Denied("restricted")
	}

	if perPage <= 0 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}
	edges, err := s.edges.ListFor(dbc, k, selfKind, selfID, perPage+1, (page-1)*perPage)
	if err != nil {
		return nil, dbErr(err)
	}
	more := len(edges) > perPage
	if more {
		edges = edges[:perPage]
	}
	total, err := s.edges.CountFor(dbc, k, selfKind, selfID)
	if err != nil {
		return nil, dbErr(err)
	}
	items, err := s.render(dbc, caller, k, selfKind, selfID, edges)
	if err != nil {
		return nil, err
	}
	return &RelationPage{Items: items, More: more, Total: total}, nil
}

func (s *relationService) Blocks(dbc dbctx.Context, caller *Caller, self entities.Entity) (map[string][]views.M, error) {
	selfKind, selfID := self.EntityKind(), self.GetID()
	out := map[string][]views.M{}
	for _, k := range relations.Touching(selfKind) {
		edges, err := s.edges.ListFor(dbc, k, selfKind, selfID, 0, 0)
		if err != nil {
			return nil, dbErr(err)
		}
		items, err := s.render(dbc, caller, k, selfKind, selfID, edges)
		if err != nil {
			return nil, err
		}
		out[views.RelationKey(k, selfKind)] = items
	}
	return out, nil
}

// render loads the counterparts of edges and collapses the ones the caller
// cannot read.
func (s *relationService) render(dbc dbctx.Context, caller *Caller, k relations.Kind, selfKind entities.Kind, selfID uint, edges []*relations.Edge) ([]views.M, error) {
	otherKind := k.OtherSide(selfKind)
	otherStore, err := s.stores.For(otherKind)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.OtherID(selfKind, selfID))
	}
	opts := caller.ViewOptions()
	depth := entrepo.DepthControl
	if opts.ViewUsernames {
		depth = entrepo.DepthFull
	}
	others, err := otherStore.GetMany(dbc, ids, depth)
	if err != nil {
		return nil, dbErr(err)
	}
	byID := make(map[uint]entities.Entity, len(others))
	for _, o := range others {
		byID[o.GetID()] = o
	}
	infos, err := s.infos(dbc, k, edges)
	if err != nil {
		return nil, err
	}
	policy := policyOf(s.cfg)
	items := make([]views.M, 0, len(edges))
	for _, e := range edges {
		o := byID[e.OtherID(selfKind, selfID)]
		cp := views.Counterpart{Entity: o}
		if o != nil {
			cp.Allowed = policy.CanAccess(caller.Subject, o.AccessControl())
		}
		items = append(items, views.RelationBlock(e, selfKind, selfID, cp, infos, opts))
	}
	return items, nil
}

func (s *relationService) Mirror(ctx context.Context, cs *ChangeSet) {
	if s.mirror == nil || cs == nil || len(cs.Edges) == 0 {
		return
	}
	s.mirror.Apply(ctx, cs.Edges)
}
