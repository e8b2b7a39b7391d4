package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	entrepo "github.com/yungbote/casefile-backend/internal/data/repos/entities"
	"github.com/yungbote/casefile-backend/internal/domain/activity"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/notification"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/views"
)

// EntityService is the write and read path for Bulletins, Actors and
// Incidents. Every save appends the entity's revision, the revisions of the
// counterparts it touched and its activity row in one transaction.
type EntityService interface {
	Create(dbc dbctx.Context, kind entities.Kind, raw []byte) (views.M, error)
	Update(dbc dbctx.Context, kind entities.Kind, id uint, raw []byte) (views.M, error)
	Get(dbc dbctx.Context, kind entities.Kind, id uint, mode views.Mode) (views.M, error)
	Assign(dbc dbctx.Context, kind entities.Kind, id uint, raw []byte) (views.M, error)
	Review(dbc dbctx.Context, kind entities.Kind, id uint, raw []byte) (views.M, error)
	Delete(dbc dbctx.Context, kind entities.Kind, id uint) error
}

type entityService struct {
	db            *gorm.DB
	log           *logger.Logger
	stores        EntityStores
	children      repos.ChildRepo
	vocab         *repos.VocabRegistry
	users         repos.UserRepo
	roles         repos.RoleRepo
	relations     RelationService
	history       HistoryService
	activity      ActivityService
	notifications NotificationService
	cfg           *config.Manager
}

func NewEntityService(
	db *gorm.DB,
	baseLog *logger.Logger,
	stores EntityStores,
	children repos.ChildRepo,
	vocab *repos.VocabRegistry,
	users repos.UserRepo,
	roles repos.RoleRepo,
	relations RelationService,
	history HistoryService,
	act ActivityService,
	notifications NotificationService,
	cfg *config.Manager,
) EntityService {
	return &entityService{
		db:            db,
		log:           baseLog.With("service", "EntityService"),
		stores:        stores,
		children:      children,
		vocab:         vocab,
		users:         users,
		roles:         roles,
		relations:     relations,
		history:       history,
		activity:      act,
		notifications: notifications,
		cfg:           cfg,
	}
}

func newEntity(kind entities.Kind) entities.Entity {
	switch kind {
	case entities.KindBulletin:
		return &entities.Bulletin{}
	case entities.KindActor:
		return &entities.Actor{Type: entities.ActorTypePerson}
	case entities.KindIncident:
		return &entities.Incident{}
	}
	return nil
}

// workflowFields points into the workflow columns every entity kind shares.
type workflowFields struct {
	Status             *string
	AssignedTo         **uint
	FirstPeerReviewer  **uint
	SecondPeerReviewer **uint
	Owner              **uint
	Comments           *string
	Review             *string
	ReviewAction       *string
}

func workflowOf(e entities.Entity) workflowFields {
	switch v := e.(type) {
	case *entities.Bulletin:
		return workflowFields{&v.Status, &v.AssignedToID, &v.FirstPeerReviewerID, &v.SecondPeerReviewerID, &v.UserID, &v.Comments, &v.Review, &v.ReviewAction}
	case *entities.Actor:
		return workflowFields{&v.Status, &v.AssignedToID, &v.FirstPeerReviewerID, &v.SecondPeerReviewerID, &v.UserID, &v.Comments, &v.Review, &v.ReviewAction}
	case *entities.Incident:
		return workflowFields{&v.Status, &v.AssignedToID, &v.FirstPeerReviewerID, &v.SecondPeerReviewerID, &v.UserID, &v.Comments, &v.Review, &v.ReviewAction}
	}
	var s string
	var p *uint
	return workflowFields{&s, &p, &p, &p, &p, &s, &s, &s}
}

func sameRef(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// checkRefs rejects payloads that point at missing vocabulary, roles or users.
func (s *entityService) checkRefs(dbc dbctx.Context, in entityInput) error {
	var r refSet
	in.refs(&r)
	type check struct {
		name string
		ids  []uint
		fn   func(dbctx.Context, []uint) ([]uint, error)
	}
	v := s.vocab
	checks := []check{
		{"label", r.Labels, v.Labels.Missing},
		{"source", r.Sources, v.Sources.Missing},
		{"location", r.Locations, v.Locations.Missing},
		{"event type", r.EventTypes, v.EventTypes.Missing},
		{"country", r.Countries, v.Countries.Missing},
		{"ethnography", r.Ethnographies, v.Ethnographies.Missing},
		{"dialect", r.Dialects, v.Dialects.Missing},
		{"potential violation", r.PotentialViolations, v.PotentialViolations.Missing},
		{"claimed violation", r.ClaimedViolations, v.ClaimedViolations.Missing},
	}
	for _, c := range checks {
		if len(c.ids) == 0 {
			continue
		}
		missing, err := c.fn(dbc, c.ids)
		if err != nil {
			return dbErr(err)
		}
		if len(missing) > 0 {
			return apierr.Validation("unknown_reference", "unknown %s ids %v", c.name, missing)
		}
	}
	if len(r.Roles) > 0 {
		found, err := s.roles.GetByIDs(dbc, r.Roles)
		if err != nil {
			return dbErr(err)
		}
		if len(found) != len(r.Roles) {
			return apierr.Validation("unknown_reference", "unknown role ids in %v", r.Roles)
		}
	}
	if len(r.Users) > 0 {
		found, err := s.users.GetByIDs(dbc, r.Users)
		if err != nil {
			return dbErr(err)
		}
		if len(found) != len(r.Users) {
			return apierr.Validation("unknown_reference", "unknown user ids in %v", r.Users)
		}
	}
	return nil
}

// applyWorkflow copies the workflow block onto e. It returns the new
// assignee when the assignment changed.
func (s *entityService) applyWorkflow(caller *Caller, e entities.Entity, w *WorkflowInput, create bool) (newAssignee *uint) {
	f := workflowOf(e)
	if w.Status != nil {
		*f.Status = *w.Status
	}
	if w.Comments != nil {
		*f.Comments = *w.Comments
	}
	if w.AssignedTo != nil {
		next := w.AssignedTo.Ptr()
		if !sameRef(*f.AssignedTo, next) {
			newAssignee = next
		}
		*f.AssignedTo = next
	}
	if w.FirstPeerReviewer != nil {
		*f.FirstPeerReviewer = w.FirstPeerReviewer.Ptr()
	}
	if w.SecondPeerReviewer != nil {
		*f.SecondPeerReviewer = w.SecondPeerReviewer.Ptr()
	}
	if create {
		*f.Owner = userPtr(caller.ID())
		if *f.Status == "" {
			*f.Status = entities.StatusHumanCreated
		}
	}
	return newAssignee
}

// write runs one entity save: scalars, links, owned rows, relations, the
// revision of e and of every counterpart, and the activity row.
func (s *entityService) write(dbc dbctx.Context, caller *Caller, e entities.Entity, in entityInput, create bool) (entities.Entity, error) {
	kind := e.EntityKind()
	store, err := s.stores.For(kind)
	if err != nil {
		return nil, err
	}
	if err := in.build(e); err != nil {
		return nil, err
	}
	if err := s.checkRefs(dbc, in); err != nil {
		return nil, err
	}
	w := in.workflow()
	newAssignee := s.applyWorkflow(caller, e, w, create)
	policy := policyOf(s.cfg)
	setRoles := w.Roles != nil && policy.CanRestrictNew(caller.Subject, s.cfg.Get().UsersCanRestrictNew)

	action := activity.ActionUpdate
	if create {
		action = activity.ActionCreate
	}
	cs := NewChangeSet()
	var saved entities.Entity
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if create {
			if err := store.Create(inner, e); err != nil {
				return dbErr(err)
			}
		} else if err := store.SaveScalars(inner, e); err != nil {
			return dbErr(err)
		}
		id := e.GetID()
		for assoc, ids := range in.links() {
			if err := store.SetLinks(inner, id, assoc, ids); err != nil {
				return dbErr(err)
			}
		}
		if setRoles {
			if err := store.SetLinks(inner, id, "roles", idsOf(w.Roles)); err != nil {
				return dbErr(err)
			}
		}
		if err := in.children(inner, childWriter{repo: s.children}, e, caller.ID(), create); err != nil {
			return err
		}
		for other, items := range in.relationSets().Present() {
			if err := s.relations.ReplaceSet(inner, caller.ID(), e, other, items, cs); err != nil {
				return err
			}
		}

		full, err := store.Get(inner, id, entrepo.DepthFull)
		if err != nil {
			return dbErr(err)
		}
		if full == nil {
			return notFound(kind, id)
		}
		saved = full
		cs.Untouch(kind, id)
		if err := s.history.Append(inner, caller.ID(), full); err != nil {
			return err
		}
		if err := s.relations.AppendCounterpartRevisions(inner, caller.ID(), cs); err != nil {
			return err
		}
		if newAssignee != nil && *newAssignee != caller.ID() {
			rows, err := s.notifications.Send(inner, []uint{*newAssignee}, "New assignment",
				fmt.Sprintf("%s %d has been assigned to you", kind.ModelName(), id), notification.CategoryUpdate)
			if err != nil {
				return err
			}
			cs.Notifications = append(cs.Notifications, rows...)
		}
		return s.activity.Record(inner, ActivityEntry{
			UserID:  caller.ID(),
			Action:  action,
			Subject: full.Subject(),
			Model:   kind.ModelName(),
		})
	})
	if err != nil {
		return nil, dbErr(err)
	}
	s.afterCommit(dbc.Ctx, cs)
	return saved, nil
}

func (s *entityService) afterCommit(ctx context.Context, cs *ChangeSet) {
	s.relations.Mirror(ctx, cs)
	if len(cs.Notifications) > 0 {
		s.notifications.Publish(cs.Notifications)
	}
}

// render projects e for caller, with relation lists in full mode.
func (s *entityService) render(dbc dbctx.Context, caller *Caller, e entities.Entity, mode views.Mode) (views.M, error) {
	opts := caller.ViewOptions()
	modified, err := s.history.Modified(dbc, e.EntityKind(), e.GetID())
	if err != nil {
		return nil, err
	}
	opts.Modified = modified
	m := views.Project(e, mode, opts)
	if mode != views.ModeFull {
		return m, nil
	}
	blocks, err := s.relations.Blocks(dbc, caller, e)
	if err != nil {
		return nil, err
	}
	return views.WithRelations(m, blocks), nil
}

func (s *entityService) Create(dbc dbctx.Context, kind entities.Kind, raw []byte) (views.M, error) {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return nil, err
	}
	e := newEntity(kind)
	if e == nil {
		return nil, apierr.Validation("unknown_kind", "unknown entity kind %q", kind)
	}
	if !policyOf(s.cfg).CanCreate(caller.Subject) {
		s.activity.Denied(dbc, caller.ID(), activity.ActionCreate, nil, kind.ModelName())
		return nil, apierr.Denied("create_not_permitted")
	}
	in, err := decodeEntityInput(kind, raw)
	if err != nil {
		return nil, err
	}
	if err := in.requireNew(); err != nil {
		return nil, err
	}
	saved, err := s.write(dbc, caller, e, in, true)
	if err != nil {
		return nil, err
	}
	s.log.Info("entity created", "kind", kind, "id", saved.GetID(), "user_id", caller.ID())
	return s.render(dbc, caller, saved, views.ModeFull)
}

// load fetches kind/id and checks gate against it, recording a denial.
func (s *entityService) load(dbc dbctx.Context, caller *Caller, kind entities.Kind, id uint, depth entrepo.Depth, action activity.Action, gate func(entities.Control) bool) (entities.Entity, error) {
	store, err := s.stores.For(kind)
	if err != nil {
		return nil, err
	}
	e, err := store.Get(dbc, id, depth)
	if err != nil {
		return nil, dbErr(err)
	}
	if e == nil {
		return nil, notFound(kind, id)
	}
	if !gate(e.AccessControl()) {
		s.activity.Denied(dbc, caller.ID(), action, e, "")
		return nil, apierr.Denied("restricted")
	}
	return e, nil
}

func (s *entityService) Update(dbc dbctx.Context, kind entities.Kind, id uint, raw []byte) (views.M, error) {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return nil, err
	}
	policy := policyOf(s.cfg)
	e, err := s.load(dbc, caller, kind, id, entrepo.DepthControl, activity.ActionUpdate, func(c entities.Control) bool {
		return policy.CanUpdate(caller.Subject, c)
	})
	if err != nil {
		return nil, err
	}
	in, err := decodeEntityInput(kind, raw)
	if err != nil {
		return nil, err
	}
	saved, err := s.write(dbc, caller, e, in, false)
	if err != nil {
		return nil, err
	}
	return s.render(dbc, caller, saved, views.ModeFull)
}

func (s *entityService) Get(dbc dbctx.Context, kind entities.Kind, id uint, mode views.Mode) (views.M, error) {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return nil, err
	}
	policy := policyOf(s.cfg)
	e, err := s.load(dbc, caller, kind, id, entrepo.DepthFull, activity.ActionView, func(c entities.Control) bool {
		return policy.CanAccess(caller.Subject, c)
	})
	if err != nil {
		return nil, err
	}
	if err := s.activity.Record(dbc, ActivityEntry{
		UserID:  caller.ID(),
		Action:  activity.ActionView,
		Subject: e.Subject(),
		Model:   kind.ModelName(),
	}); err != nil {
		s.log.Warn("record view activity failed", "kind", kind, "id", id, "error", err)
	}
	return s.render(dbc, caller, e, mode)
}

// stamp saves the workflow columns of e, appends its revision and records
// action, all in one transaction.
func (s *entityService) stamp(dbc dbctx.Context, caller *Caller, e entities.Entity, action activity.Action, details string) (entities.Entity, error) {
	kind := e.EntityKind()
	store, err := s.stores.For(kind)
	if err != nil {
		return nil, err
	}
	var saved entities.Entity
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if err := store.SaveScalars(inner, e); err != nil {
			return dbErr(err)
		}
		full, err := store.Get(inner, e.GetID(), entrepo.DepthFull)
		if err != nil {
			return dbErr(err)
		}
		saved = full
		if err := s.history.Append(inner, caller.ID(), full); err != nil {
			return err
		}
		return s.activity.Record(inner, ActivityEntry{
			UserID:  caller.ID(),
			Action:  action,
			Subject: full.Subject(),
			Model:   kind.ModelName(),
			Details: details,
		})
	})
	if err != nil {
		return nil, dbErr(err)
	}
	return saved, nil
}

func (s *entityService) Assign(dbc dbctx.Context, kind entities.Kind, id uint, raw []byte) (views.M, error) {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return nil, err
	}
	policy := policyOf(s.cfg)
	e, err := s.load(dbc, caller, kind, id, entrepo.DepthControl, activity.ActionSelfAssign, func(c entities.Control) bool {
		return policy.CanSelfAssign(caller.Subject, c)
	})
	if err != nil {
		return nil, err
	}
	var in AssignInput
	if len(raw) > 0 {
		if err := decodePayload(raw, &in); err != nil {
			return nil, err
		}
	}
	f := workflowOf(e)
	if cur := *f.AssignedTo; cur != nil && *cur != caller.ID() {
		return nil, apierr.Conflict("already_assigned", fmt.Errorf("%s %d is assigned to another user", kind.ModelName(), id))
	}
	*f.AssignedTo = userPtr(caller.ID())
	*f.Status = entities.StatusAssigned
	if in.Comments != "" {
		*f.Comments = in.Comments
	}
	saved, err := s.stamp(dbc, caller, e, activity.ActionSelfAssign, "")
	if err != nil {
		return nil, err
	}
	return s.render(dbc, caller, saved, views.ModeEntity)
}

func (s *entityService) Review(dbc dbctx.Context, kind entities.Kind, id uint, raw []byte) (views.M, error) {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return nil, err
	}
	policy := policyOf(s.cfg)
	e, err := s.load(dbc, caller, kind, id, entrepo.DepthControl, activity.ActionReview, func(c entities.Control) bool {
		return policy.CanReview(caller.Subject, c)
	})
	if err != nil {
		return nil, err
	}
	var in ReviewInput
	if err := decodePayload(raw, &in); err != nil {
		return nil, err
	}
	f := workflowOf(e)
	*f.Review = in.Review
	*f.ReviewAction = in.ReviewAction
	if second := *f.SecondPeerReviewer; second != nil && *second == caller.ID() {
		*f.Status = entities.StatusSecondPeerReviewed
	} else {
		*f.Status = entities.StatusPeerReviewed
	}
	saved, err := s.stamp(dbc, caller, e, activity.ActionReview, in.ReviewAction)
	if err != nil {
		return nil, err
	}
	return s.render(dbc, caller, saved, views.ModeEntity)
}

func (s *entityService) Delete(dbc dbctx.Context, kind entities.Kind, id uint) error {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return err
	}
	policy := policyOf(s.cfg)
	e, err := s.load(dbc, caller, kind, id, entrepo.DepthControl, activity.ActionDelete, func(entities.Control) bool {
		return policy.CanDelete(caller.Subject)
	})
	if err != nil {
		return err
	}
	store, err := s.stores.For(kind)
	if err != nil {
		return err
	}
	cs := NewChangeSet()
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if err := s.relations.Unlink(inner, e, cs); err != nil {
			return err
		}
		cs.Untouch(kind, id)
		if err := store.Delete(inner, id); err != nil {
			return dbErr(err)
		}
		if err := s.relations.AppendCounterpartRevisions(inner, caller.ID(), cs); err != nil {
			return err
		}
		return s.activity.Record(inner, ActivityEntry{
			UserID:  caller.ID(),
			Action:  activity.ActionDelete,
			Subject: e.Subject(),
			Model:   kind.ModelName(),
		})
	})
	if err != nil {
		return dbErr(err)
	}
	s.afterCommit(dbc.Ctx, cs)
	s.log.Info("entity deleted", "kind", kind, "id", id, "user_id", caller.ID())
	return nil
}
