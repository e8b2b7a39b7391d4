package services

import (
	"slices"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	entrepo "github.com/yungbote/casefile-backend/internal/data/repos/entities"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/activity"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/platform/observability"
	"github.com/yungbote/casefile-backend/internal/views"
)

type HistoryService interface {
	// Append snapshots each entity as it stands inside dbc's transaction.
	Append(dbc dbctx.Context, userID uint, ents ...entities.Entity) error
	// AppendRaw stores a prepared snapshot, for kinds without an entity view.
	AppendRaw(dbc dbctx.Context, userID uint, kind entities.Kind, id uint, data []byte) error
	// List returns the timeline oldest first, full or reduced per the caller.
	List(dbc dbctx.Context, kind entities.Kind, id uint) ([]views.M, error)
	// Modified is the newest revision time, or nil when there is none.
	Modified(dbc dbctx.Context, kind entities.Kind, id uint) (*time.Time, error)
}

type historyService struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.RevisionRepo
	users    repos.UserRepo
	stores   EntityStores
	cfg      *config.Manager
	activity ActivityService
}

func NewHistoryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.RevisionRepo,
	users repos.UserRepo,
	stores EntityStores,
	cfg *config.Manager,
	act ActivityService,
) HistoryService {
	return &historyService{
		db:       db,
		log:      baseLog.With("service", "HistoryService"),
		repo:     repo,
		users:    users,
		stores:   stores,
		cfg:      cfg,
		activity: act,
	}
}

func (s *historyService) Append(dbc dbctx.Context, userID uint, ents ...entities.Entity) error {
	if len(ents) == 0 {
		return nil
	}
	now := time.Now().UTC()
	revs := make([]*types.Revision, 0, len(ents))
	for _, e := range ents {
		if e == nil {
			continue
		}
		data, err := views.Snapshot(e)
		if err != nil {
			return apierr.Internal(err)
		}
		revs = append(revs, &types.Revision{
			EntityKind: string(e.EntityKind()),
			EntityID:   e.GetID(),
			Data:       datatypes.JSON(data),
			UserID:     userPtr(userID),
			CreatedAt:  now,
		})
	}
	if err := s.repo.Append(dbc, revs); err != nil {
		return dbErr(err)
	}
	for _, r := range revs {
		observability.Current().IncRevision(r.EntityKind)
	}
	return nil
}

func (s *historyService) AppendRaw(dbc dbctx.Context, userID uint, kind entities.Kind, id uint, data []byte) error {
	rev := &types.Revision{
		EntityKind: string(kind),
		EntityID:   id,
		Data:       datatypes.JSON(data),
		UserID:     userPtr(userID),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Append(dbc, []*types.Revision{rev}); err != nil {
		return dbErr(err)
	}
	observability.Current().IncRevision(string(kind))
	return nil
}

func (s *historyService) List(dbc dbctx.Context, kind entities.Kind, id uint) ([]views.M, error) {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return nil, err
	}
	if kind != entities.KindLocation {
		store, err := s.stores.For(kind)
		if err != nil {
			return nil, err
		}
		ent, err := store.Get(dbc, id, entrepo.DepthControl)
		if err != nil {
			return nil, dbErr(err)
		}
		if ent == nil {
			return nil, notFound(kind, id)
		}
		if !policyOf(s.cfg).CanAccess(caller.Subject, ent.AccessControl()) {
			s.activity.Denied(dbc, caller.ID(), activity.ActionView, ent, "history")
			return nil, apierr.Denied("restricted")
		}
	}

	full := caller.Subject.Admin || caller.Subject.ViewFullHistory
	if !full && !caller.Subject.ViewSimpleHistory {
		return nil, apierr.Denied("history_not_permitted")
	}

	revs, err := s.repo.ListFor(dbc, string(kind), id)
	if err != nil {
		return nil, dbErr(err)
	}
	// stored newest first; the timeline reads oldest first
	slices.Reverse(revs)

	var authorIDs []uint
	for _, r := range revs {
		if r.UserID != nil && !slices.Contains(authorIDs, *r.UserID) {
			authorIDs = append(authorIDs, *r.UserID)
		}
	}
	authors := map[uint]*types.User{}
	if len(authorIDs) > 0 {
		us, err := s.users.GetByIDs(dbc, authorIDs)
		if err != nil {
			return nil, dbErr(err)
		}
		for _, u := range us {
			authors[u.ID] = u
		}
	}

	opts := caller.ViewOptions()
	out := make([]views.M, 0, len(revs))
	for _, r := range revs {
		var author *types.User
		if r.UserID != nil {
			author = authors[*r.UserID]
		}
		out = append(out, views.HistoryRow(r, author, full, opts))
	}
	return out, nil
}

func (s *historyService) Modified(dbc dbctx.Context, kind entities.Kind, id uint) (*time.Time, error) {
	rev, err := s.repo.Latest(dbc, string(kind), id)
	if err != nil {
		return nil, dbErr(err)
	}
	if rev == nil {
		return nil, nil
	}
	t := rev.CreatedAt
	return &t, nil
}

func userPtr(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}
