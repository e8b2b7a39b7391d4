package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	entrepo "github.com/yungbote/casefile-backend/internal/data/repos/entities"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/activity"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/domain/notification"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/platform/observability"
	"github.com/yungbote/casefile-backend/internal/search"
)

// BulkSpec is the mutation applied to every item of a bulk request.
type BulkSpec struct {
	AssignedTo        *Ref           `json:"assigned_to_id"`
	ClearAssignee     bool           `json:"clear_assignee"`
	FirstPeerReviewer *Ref           `json:"first_peer_reviewer_id"`
	ClearReviewer     bool           `json:"clear_reviewer"`
	Status            *string        `json:"status"`
	Tags              []string       `json:"tags"`
	TagsReplace       bool           `json:"tagsReplace"`
	Roles             *search.IDList `json:"roles"`
	RolesReplace      bool           `json:"rolesReplace"`
	Comments          string         `json:"comments"`
	AssignRelated     bool           `json:"assignRelated"`
	RestrictRelated   bool           `json:"restrictRelated"`

	// KeepStatus suppresses the implicit "Assigned" status. Set on specs
	// propagated from incidents.
	KeepStatus bool `json:"keep_status,omitempty"`
}

// BulkRequest is the body of PUT /{kind}/bulk.
type BulkRequest struct {
	Items    search.IDList `json:"items"`
	Bulk     BulkSpec      `json:"bulk"`
	DedupKey string        `json:"dedup_key"`
}

// BulkResult counts what a bulk run did, per kind.
type BulkResult struct {
	Updated map[entities.Kind][]uint `json:"updated"`
	Skipped map[entities.Kind][]uint `json:"skipped"`
	Failed  map[entities.Kind][]uint `json:"failed"`
}

func newBulkResult() *BulkResult {
	return &BulkResult{
		Updated: map[entities.Kind][]uint{},
		Skipped: map[entities.Kind][]uint{},
		Failed:  map[entities.Kind][]uint{},
	}
}

func (r *BulkResult) count(m map[entities.Kind][]uint) int {
	n := 0
	for _, ids := range m {
		n += len(ids)
	}
	return n
}

func (r *BulkResult) Summary() string {
	return fmt.Sprintf("%d updated, %d skipped, %d failed", r.count(r.Updated), r.count(r.Skipped), r.count(r.Failed))
}

// BulkProgress is called after each chunk with the processed and total item
// counts. Returning false stops the run before the next chunk.
type BulkProgress func(done, total int) bool

// ErrBulkCanceled is returned by Run when progress asked it to stop. Chunks
// already applied stay applied and are summarized as usual.
var ErrBulkCanceled = errors.New("bulk run canceled")

type BulkService interface {
	// Enqueue validates req and queues a bulk_update job owned by the caller.
	Enqueue(dbc dbctx.Context, kind entities.Kind, raw []byte) (*types.JobRun, error)
	// Run applies spec to ids in chunks on behalf of userID. Per-item failures
	// are logged and counted; only a failure to start returns an error.
	Run(ctx context.Context, userID uint, kind entities.Kind, ids []uint, spec BulkSpec, progress BulkProgress) (*BulkResult, error)
	// ReportFailure tells userID that their bulk job crashed.
	ReportFailure(ctx context.Context, userID uint, kind entities.Kind, cause error)
}

type bulkService struct {
	db            *gorm.DB
	log           *logger.Logger
	stores        EntityStores
	edges         repos.EdgeRepo
	users         repos.UserRepo
	roles         repos.RoleRepo
	history       HistoryService
	activity      ActivityService
	notifications NotificationService
	jobs          JobService
	cfg           *config.Manager
}

func NewBulkService(
	db *gorm.DB,
	baseLog *logger.Logger,
	stores EntityStores,
	edges repos.EdgeRepo,
	users repos.UserRepo,
	roles repos.RoleRepo,
	history HistoryService,
	act ActivityService,
	notifications NotificationService,
	jobSvc JobService,
	cfg *config.Manager,
) BulkService {
	return &bulkService{
		db:            db,
		log:           baseLog.With("service", "BulkService"),
		stores:        stores,
		edges:         edges,
		users:         users,
		roles:         roles,
		history:       history,
		activity:      act,
		notifications: notifications,
		jobs:          jobSvc,
		cfg:           cfg,
	}
}

func (sp BulkSpec) mutates() bool {
	return sp.AssignedTo != nil || sp.ClearAssignee ||
		sp.FirstPeerReviewer != nil || sp.ClearReviewer ||
		sp.Status != nil || sp.Tags != nil || sp.Roles != nil ||
		strings.TrimSpace(sp.Comments) != ""
}

// related derives the mutation applied to an incident's actors and bulletins.
// Status never propagates.
func (sp BulkSpec) related() (BulkSpec, bool) {
	if !sp.AssignRelated && !sp.RestrictRelated {
		return BulkSpec{}, false
	}
	out := sp
	out.Status = nil
	out.KeepStatus = true
	out.AssignRelated, out.RestrictRelated = false, false
	if !sp.AssignRelated {
		out.AssignedTo, out.ClearAssignee = nil, false
		out.FirstPeerReviewer, out.ClearReviewer = nil, false
	}
	if !sp.RestrictRelated {
		out.Roles, out.RolesReplace = nil, false
	}
	return out, out.mutates()
}

func (sp BulkSpec) normalize() BulkSpec {
	if sp.Status != nil {
		v := strings.TrimSpace(*sp.Status)
		if v == "" {
			sp.Status = nil
		} else {
			sp.Status = &v
		}
	}
	if sp.Tags != nil {
		var tags pq.StringArray
		setTags(&tags, &sp.Tags)
		sp.Tags = []string(tags)
	}
	sp.Comments = strings.TrimSpace(sp.Comments)
	return sp
}

func (s *bulkService) Enqueue(dbc dbctx.Context, kind entities.Kind, raw []byte) (*types.JobRun, error) {
	caller, err := callerFromCtx(dbc, s.users)
	if err != nil {
		return nil, err
	}
	if _, err := s.stores.For(kind); err != nil {
		return nil, err
	}
	if !policyOf(s.cfg).CanBulk(caller.Subject) {
		s.activity.Denied(dbc, caller.ID(), activity.ActionBulk, nil, kind.ModelName())
		return nil, apierr.Denied("bulk_not_permitted")
	}
	var req BulkRequest
	if err := decodePayload(raw, &req); err != nil {
		return nil, err
	}
	ids := dedupIDs(req.Items)
	if len(ids) == 0 {
		return nil, apierr.Validation("empty_items", "items must list at least one id")
	}
	spec := req.Bulk.normalize()
	if !spec.mutates() {
		return nil, apierr.Validation("empty_bulk", "bulk spec changes nothing")
	}
	if err := s.checkSpec(dbc, spec); err != nil {
		return nil, err
	}
	job, _, err := s.jobs.Enqueue(dbc, caller.ID(), jobs.TypeBulkUpdate, map[string]any{
		"kind":  string(kind),
		"items": ids,
		"bulk":  spec,
	}, EnqueueOptions{DedupKey: req.DedupKey})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// checkSpec rejects specs naming unknown users or roles.
func (s *bulkService) checkSpec(dbc dbctx.Context, spec BulkSpec) error {
	var users []uint
	for _, r := range []*Ref{spec.AssignedTo, spec.FirstPeerReviewer} {
		if p := r.Ptr(); p != nil {
			users = append(users, *p)
		}
	}
	if len(users) > 0 {
		found, err := s.users.GetByIDs(dbc, users)
		if err != nil {
			return dbErr(err)
		}
		if len(found) != len(dedupIDs(users)) {
			return apierr.Validation("unknown_user", "bulk spec names an unknown user")
		}
	}
	if roles := dedupIDs(idsOf(spec.Roles)); len(roles) > 0 {
		found, err := s.roles.GetByIDs(dbc, roles)
		if err != nil {
			return dbErr(err)
		}
		if len(found) != len(roles) {
			return apierr.Validation("unknown_role", "bulk spec names an unknown role")
		}
	}
	return nil
}

func (s *bulkService) Run(ctx context.Context, userID uint, kind entities.Kind, ids []uint, spec BulkSpec, progress BulkProgress) (*BulkResult, error) {
	ctx, span := observability.StartSpan(ctx, "bulk."+string(kind),
		attribute.Int("bulk.items", len(ids)),
		attribute.Int64("bulk.user_id", int64(userID)),
	)
	res, err := s.run(ctx, userID, kind, ids, spec, progress)
	observability.EndSpan(span, err)
	return res, err
}

func (s *bulkService) run(ctx context.Context, userID uint, kind entities.Kind, ids []uint, spec BulkSpec, progress BulkProgress) (*BulkResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	caller, err := callerByID(dbc, s.users, userID)
	if err != nil {
		return nil, err
	}
	if !policyOf(s.cfg).CanBulk(caller.Subject) {
		return nil, apierr.Denied("bulk_not_permitted")
	}
	if _, err := s.stores.For(kind); err != nil {
		return nil, err
	}
	spec = spec.normalize()
	ids = dedupIDs(ids)
	settings := s.cfg.Get()
	size := settings.BulkChunkSize
	if size <= 0 {
		size = 10
	}
	var limiter *rate.Limiter
	if pause := settings.BulkChunkPause(); pause > 0 {
		limiter = rate.NewLimiter(rate.Every(pause), 1)
	}

	res := newBulkResult()
	s.log.Info("Bulk run started", "kind", kind, "items", len(ids), "user_id", userID)

	relatedSpec, propagate := spec.related()
	propagate = propagate && kind == entities.KindIncident
	relatedIDs := map[entities.Kind][]uint{}

	total := len(ids)
	done := 0
	runKind := func(k entities.Kind, list []uint, sp BulkSpec) error {
		for start := 0; start < len(list); start += size {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}
			end := min(start+size, len(list))
			updated := s.applyChunk(ctx, caller, k, list[start:end], sp, res)
			if propagate && k == entities.KindIncident {
				s.collectRelated(dbc, updated, relatedIDs)
			}
			done += end - start
			if progress != nil && !progress(done, total) {
				return ErrBulkCanceled
			}
		}
		return nil
	}

	err = runKind(kind, ids, spec)
	if err == nil && propagate {
		for _, k := range []entities.Kind{entities.KindActor, entities.KindBulletin} {
			list := dedupIDs(relatedIDs[k])
			total += len(list)
			if err = runKind(k, list, relatedSpec); err != nil {
				break
			}
		}
	}
	if err != nil && !errors.Is(err, ErrBulkCanceled) {
		return res, err
	}
	if err != nil {
		s.log.Info("Bulk run canceled", "kind", kind, "done", done, "total", total, "user_id", userID)
	}
	s.finish(dbc, caller, kind, spec, res)
	return res, err
}

// applyChunk mutates one chunk in its own transaction and returns the ids it
// updated. Unauthorized and failing items are skipped.
func (s *bulkService) applyChunk(ctx context.Context, caller *Caller, kind entities.Kind, ids []uint, spec BulkSpec, res *BulkResult) []uint {
	store, _ := s.stores.For(kind)
	policy := policyOf(s.cfg)
	dbc := dbctx.Context{Ctx: ctx}

	rows, err := store.GetMany(dbc, ids, entrepo.DepthControl)
	if err != nil {
		s.log.Warn("bulk chunk load failed", "kind", kind, "error", err)
		res.Failed[kind] = append(res.Failed[kind], ids...)
		return nil
	}
	byID := make(map[uint]entities.Entity, len(rows))
	for _, e := range rows {
		byID[e.GetID()] = e
	}

	var updated []uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		for _, id := range ids {
			e := byID[id]
			if e == nil {
				res.Skipped[kind] = append(res.Skipped[kind], id)
				continue
			}
			if !policy.CanAccess(caller.Subject, e.AccessControl()) {
				s.activity.Denied(inner, caller.ID(), activity.ActionBulk, e, "")
				res.Skipped[kind] = append(res.Skipped[kind], id)
				continue
			}
			// Savepoint per item so one bad row does not poison the chunk.
			err := tx.Transaction(func(itx *gorm.DB) error {
				return s.applyItem(dbctx.Context{Ctx: ctx, Tx: itx}, store, e, spec)
			})
			if err != nil {
				s.log.Warn("bulk item failed", "kind", kind, "id", id, "error", err)
				res.Failed[kind] = append(res.Failed[kind], id)
				continue
			}
			updated = append(updated, id)
		}
		if len(updated) == 0 {
			return nil
		}
		full, err := store.GetMany(inner, updated, entrepo.DepthFull)
		if err != nil {
			return dbErr(err)
		}
		return s.history.Append(inner, caller.ID(), full...)
	})
	if err != nil {
		s.log.Warn("bulk chunk failed", "kind", kind, "error", err)
		res.Failed[kind] = append(res.Failed[kind], updated...)
		return nil
	}
	res.Updated[kind] = append(res.Updated[kind], updated...)
	return updated
}

func (s *bulkService) applyItem(dbc dbctx.Context, store EntityStore, e entities.Entity, spec BulkSpec) error {
	w := workflowOf(e)
	switch {
	case spec.ClearAssignee:
		*w.AssignedTo = nil
	case spec.AssignedTo != nil:
		*w.AssignedTo = spec.AssignedTo.Ptr()
		if spec.Status == nil && !spec.KeepStatus && *w.AssignedTo != nil {
			*w.Status = entities.StatusAssigned
		}
	}
	switch {
	case spec.ClearReviewer:
		*w.FirstPeerReviewer = nil
	case spec.FirstPeerReviewer != nil:
		*w.FirstPeerReviewer = spec.FirstPeerReviewer.Ptr()
	}
	if spec.Status != nil {
		*w.Status = *spec.Status
	}
	if spec.Comments != "" {
		*w.Comments = spec.Comments
	}
	if tags := tagsOf(e); tags != nil && spec.Tags != nil {
		merged := spec.Tags
		if !spec.TagsReplace {
			merged = append(append([]string{}, *tags...), spec.Tags...)
		}
		setTags(tags, &merged)
	}
	if err := store.SaveScalars(dbc, e); err != nil {
		return err
	}
	if spec.Roles != nil {
		roles := dedupIDs(idsOf(spec.Roles))
		if spec.RolesReplace {
			return store.SetLinks(dbc, e.GetID(), "roles", roles)
		}
		if len(roles) > 0 {
			return store.AddLinks(dbc, e.GetID(), "roles", roles)
		}
	}
	return nil
}

func tagsOf(e entities.Entity) *pq.StringArray {
	switch v := e.(type) {
	case *entities.Bulletin:
		return &v.Tags
	case *entities.Actor:
		return &v.Tags
	}
	return nil
}

func (s *bulkService) collectRelated(dbc dbctx.Context, incidents []uint, out map[entities.Kind][]uint) {
	for _, id := range incidents {
		for _, k := range []relations.Kind{relations.KindItoa, relations.KindItob} {
			ids, err := s.edges.CounterpartIDs(dbc, k, entities.KindIncident, id)
			if err != nil {
				s.log.Warn("bulk related lookup failed", "incident_id", id, "relation", k.Name, "error", err)
				continue
			}
			other := k.OtherSide(entities.KindIncident)
			out[other] = append(out[other], ids...)
		}
	}
}

// finish writes the single BULK activity and the completion notifications.
func (s *bulkService) finish(dbc dbctx.Context, caller *Caller, kind entities.Kind, spec BulkSpec, res *BulkResult) {
	m := observability.Current()
	for k, ids := range res.Updated {
		m.AddBulkItems(string(k), "updated", len(ids))
	}
	for k, ids := range res.Skipped {
		m.AddBulkItems(string(k), "skipped", len(ids))
	}
	for k, ids := range res.Failed {
		m.AddBulkItems(string(k), "failed", len(ids))
	}

	subject := map[string]any{}
	for k, ids := range res.Updated {
		subject[string(k)] = ids
	}
	details, _ := json.Marshal(spec)
	if err := s.activity.Record(dbc, ActivityEntry{
		UserID:  caller.ID(),
		Action:  activity.ActionBulk,
		Subject: subject,
		Model:   kind.ModelName(),
		Details: res.Summary() + " " + string(details),
	}); err != nil {
		s.log.Warn("record bulk activity failed", "error", err)
	}

	updated := res.count(res.Updated)
	var sent []*types.Notification
	send := func(userID uint, title, msg string) {
		rows, err := s.notifications.Send(dbc, []uint{userID}, title, msg, notification.CategoryUpdate)
		if err != nil {
			s.log.Warn("bulk notification failed", "user_id", userID, "error", err)
			return
		}
		sent = append(sent, rows...)
	}
	send(caller.ID(), "Bulk update complete",
		fmt.Sprintf("Bulk update of %s items finished: %s", kind.ModelName(), res.Summary()))
	if p := spec.AssignedTo.Ptr(); p != nil && *p != caller.ID() && updated > 0 {
		send(*p, "New assignment", fmt.Sprintf("%d items have been assigned to you", updated))
	}
	if p := spec.FirstPeerReviewer.Ptr(); p != nil && *p != caller.ID() && updated > 0 {
		send(*p, "New review assignment", fmt.Sprintf("%d items are waiting for your review", updated))
	}
	s.notifications.Publish(sent)
	s.log.Info("Bulk run finished", "kind", kind, "user_id", caller.ID(), "summary", res.Summary())
}

func (s *bulkService) ReportFailure(ctx context.Context, userID uint, kind entities.Kind, cause error) {
	msg := fmt.Sprintf("Bulk update of %s items failed", kind.ModelName())
	if cause != nil {
		msg += ": " + cause.Error()
	}
	rows, err := s.notifications.Send(dbctx.Context{Ctx: ctx}, []uint{userID}, "Bulk update failed", msg, notification.CategoryUpdate)
	if err != nil {
		s.log.Warn("bulk failure notification failed", "user_id", userID, "error", err)
		return
	}
	s.notifications.Publish(rows)
}

func dedupIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
