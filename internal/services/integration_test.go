package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	entrepo "github.com/yungbote/casefile-backend/internal/data/repos/entities"
	"github.com/yungbote/casefile-backend/internal/data/repos/testutil"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
	domuser "github.com/yungbote/casefile-backend/internal/domain/user"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/cache"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/search"
	"github.com/yungbote/casefile-backend/internal/views"
)

// harness wires the real repos and services on one rolled-back transaction.
// Service-level transactions nest as savepoints inside it.
type harness struct {
	tx     *gorm.DB
	stores EntityStores
	edges  repos.EdgeRepo
	revs   repos.RevisionRepo
	acts   repos.ActivityRepo
	notes  repos.NotificationRepo

	entity   EntityService
	relation RelationService
	history  HistoryService
	bulk     BulkService
	search   SearchService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tx := testutil.Tx(t, testutil.DB(t))
	log := testutil.Logger(t)

	settings := config.Defaults()
	settings.BulkChunkSize = 2
	settings.BulkChunkPauseMS = 0
	cfg := config.NewStatic(settings)
	store := cache.NewMemory(log)

	users := repos.NewUserRepo(tx, log)
	roles := repos.NewRoleRepo(tx, log)
	vocab := repos.NewVocabRegistry(tx, log)
	h := &harness{
		tx:     tx,
		stores: NewEntityStores(repos.NewBulletinRepo(tx, log), repos.NewActorRepo(tx, log), repos.NewIncidentRepo(tx, log)),
		edges:  repos.NewEdgeRepo(tx, log),
		revs:   repos.NewRevisionRepo(tx, log),
		acts:   repos.NewActivityRepo(tx, log),
		notes:  repos.NewNotificationRepo(tx, log),
	}
	pub := NewPublisher(store, log)
	act := NewActivityService(tx, log, h.acts, cfg)
	notifications := NewNotificationService(tx, log, h.notes, pub)
	jobs := NewJobService(tx, log, repos.NewJobRunRepo(tx, log), NewJobNotifier(pub, store))
	h.history = NewHistoryService(tx, log, h.revs, users, h.stores, cfg, act)
	h.relation = NewRelationService(tx, log, h.edges, h.stores, vocab, users, h.history, act, nil, cfg)
	h.entity = NewEntityService(tx, log, h.stores, repos.NewChildRepo(tx, log), vocab, users, roles, h.relation, h.history, act, notifications, cfg)
	h.bulk = NewBulkService(tx, log, h.stores, h.edges, users, roles, h.history, act, notifications, jobs, cfg)
	h.search = NewSearchService(tx, log, h.stores, users, act, store, cfg)
	return h
}

// as is a request context authenticated as userID.
func (h *harness) as(userID uint) dbctx.Context {
	return dbctx.Context{Ctx: ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID})}
}

func (h *harness) dbc() dbctx.Context { return testutil.Ctx(h.tx) }

func (h *harness) admin(t *testing.T, name string) *types.User {
	t.Helper()
	role := testutil.SeedRole(t, h.tx, domuser.RoleAdmin)
	return testutil.SeedUser(t, h.tx, name, *role)
}

func (h *harness) setFlags(t *testing.T, u *types.User, cols map[string]any) {
	t.Helper()
	require.NoError(t, h.tx.Model(&types.User{}).Where("id = ?", u.ID).Updates(cols).Error)
}

func (h *harness) load(t *testing.T, kind entities.Kind, id uint) entities.Entity {
	t.Helper()
	store, err := h.stores.For(kind)
	require.NoError(t, err)
	e, err := store.Get(h.dbc(), id, entrepo.DepthControl)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e
}

func (h *harness) revisions(t *testing.T, kind entities.Kind, id uint) int64 {
	t.Helper()
	n, err := h.revs.Count(h.dbc(), string(kind), id)
	require.NoError(t, err)
	return n
}

func (h *harness) link(t *testing.T, k relations.Kind, self entities.Kind, selfID, otherID uint) {
	t.Helper()
	left, right, err := k.Key(self, selfID, otherID)
	require.NoError(t, err)
	require.NoError(t, h.edges.Upsert(h.dbc(), &relations.Edge{Kind: k, LeftID: left, RightID: right, Fields: relations.Fields{}.Normalize(k)}))
}

func (h *harness) activities(t *testing.T, f repos.ActivityFilter) []*types.Activity {
	t.Helper()
	f.PerPage = 100
	rows, _, err := h.acts.Search(h.dbc(), f)
	require.NoError(t, err)
	return rows
}

func subjectID(t *testing.T, a *types.Activity) uint {
	t.Helper()
	var s struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(a.Subject, &s))
	return s.ID
}

func TestCreateThenReviewerUpdateKeepsTimeline(t *testing.T) {
	h := newHarness(t)
	u1 := h.admin(t, "u1")
	reviewer := testutil.SeedUser(t, h.tx, "reviewer")

	created, err := h.entity.Create(h.as(u1.ID), entities.KindBulletin, []byte(`{"title":"A","description":"d"}`))
	require.NoError(t, err)
	id, ok := created["id"].(uint)
	require.True(t, ok)
	assert.Equal(t, "A", created["title"])
	assert.Equal(t, int64(1), h.revisions(t, entities.KindBulletin, id))

	_, err = h.entity.Update(h.as(u1.ID), entities.KindBulletin, id, []byte(fmt.Sprintf(`{"first_peer_reviewer":{"id":%d}}`, reviewer.ID)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.revisions(t, entities.KindBulletin, id), "one revision per save")

	rows, err := h.history.List(h.as(u1.ID), entities.KindBulletin, id)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, u1.ID, r["user"].(views.M)["id"])
	}
	var snap struct {
		FirstPeerReviewer struct {
			ID uint `json:"id"`
		} `json:"first_peer_reviewer"`
	}
	require.NoError(t, json.Unmarshal(rows[1]["data"].(json.RawMessage), &snap))
	assert.Equal(t, reviewer.ID, snap.FirstPeerReviewer.ID)

	b := h.load(t, entities.KindBulletin, id).(*entities.Bulletin)
	latest, err := h.revs.Latest(h.dbc(), string(entities.KindBulletin), id)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.False(t, b.UpdatedAt.After(latest.CreatedAt), "row updated_at must not pass its newest revision")
}

func TestUpdateWithOwnRenderingIsStable(t *testing.T) {
	h := newHarness(t)
	u1 := h.admin(t, "u1")
	ctx := h.as(u1.ID)

	created, err := h.entity.Create(ctx, entities.KindBulletin,
		[]byte(`{"title":"T","description":"d","comments":"c","tags":["a","b"],"meta":{"k":"v"}}`))
	require.NoError(t, err)
	id := created["id"].(uint)

	first, err := h.entity.Get(ctx, entities.KindBulletin, id, views.ModeEntity)
	require.NoError(t, err)
	raw, err := json.Marshal(first)
	require.NoError(t, err)
	_, err = h.entity.Update(ctx, entities.KindBulletin, id, raw)
	require.NoError(t, err)
	second, err := h.entity.Get(ctx, entities.KindBulletin, id, views.ModeEntity)
	require.NoError(t, err)

	normalize := func(m views.M) map[string]any {
		b, err := json.Marshal(m)
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.Unmarshal(b, &out))
		delete(out, "updated_at")
		return out
	}
	assert.Equal(t, normalize(first), normalize(second))
}

func TestHistoryReducedForSimpleViewers(t *testing.T) {
	h := newHarness(t)
	u1 := h.admin(t, "u1")
	simple := testutil.SeedUser(t, h.tx, "simple")
	h.setFlags(t, simple, map[string]any{"view_full_history": false})
	none := testutil.SeedUser(t, h.tx, "none")
	h.setFlags(t, none, map[string]any{"view_full_history": false, "view_simple_history": false})

	created, err := h.entity.Create(h.as(u1.ID), entities.KindBulletin, []byte(`{"title":"secret title","comments":"first pass"}`))
	require.NoError(t, err)
	id := created["id"].(uint)

	full, err := h.history.List(h.as(u1.ID), entities.KindBulletin, id)
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.Contains(t, string(full[0]["data"].(json.RawMessage)), "secret title")

	reduced, err := h.history.List(h.as(simple.ID), entities.KindBulletin, id)
	require.NoError(t, err)
	require.Len(t, reduced, 1)
	assert.Equal(t, views.M{"comments": "first pass", "status": entities.StatusHumanCreated}, reduced[0]["data"])

	_, err = h.history.List(h.as(none.ID), entities.KindBulletin, id)
	assert.True(t, apierr.IsKind(err, apierr.KindAccessDenied))
}

func TestRestrictedReadIsDeniedAndLogged(t *testing.T) {
	h := newHarness(t)
	secret := testutil.SeedRole(t, h.tx, "R_secret")
	public := testutil.SeedRole(t, h.tx, "R_public")
	u2 := testutil.SeedUser(t, h.tx, "u2", *public)
	b := testutil.SeedBulletin(t, h.tx, "hidden", func(b *types.Bulletin) { b.Roles = []types.Role{*secret} })

	for _, mode := range []views.Mode{views.ModeFull, views.ModeEntity} {
		m, err := h.entity.Get(h.as(u2.ID), entities.KindBulletin, b.ID, mode)
		assert.Nil(t, m)
		require.True(t, apierr.IsKind(err, apierr.KindAccessDenied), "mode %d: %v", mode, err)
	}
	assert.Equal(t, views.M{"id": b.ID, "restricted": true}, views.Restricted(b.ID))

	denied := h.activities(t, repos.ActivityFilter{UserID: u2.ID, Actions: []string{"VIEW"}, Status: "DENIED"})
	require.Len(t, denied, 2)
	for _, a := range denied {
		assert.Equal(t, b.ID, subjectID(t, a))
	}

	_, err := h.history.List(h.as(u2.ID), entities.KindBulletin, b.ID)
	assert.True(t, apierr.IsKind(err, apierr.KindAccessDenied))
}

func TestRelateStoresOneCanonicalEdge(t *testing.T) {
	h := newHarness(t)
	u1 := h.admin(t, "u1")
	a5 := testutil.SeedActor(t, h.tx, "five")
	a9 := testutil.SeedActor(t, h.tx, "nine")
	require.Less(t, a5.ID, a9.ID)
	ctx := h.as(u1.ID)

	changed, err := h.relation.Relate(ctx, entities.KindActor, a5.ID, entities.KindActor,
		RelationInput{ID: a9.ID, Fields: relations.Fields{Comment: "c"}})
	require.NoError(t, err)
	assert.True(t, changed)
	e, err := h.edges.Get(h.dbc(), relations.KindAtoa, a5.ID, a9.ID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "c", e.Comment)
	assert.Equal(t, int64(1), h.revisions(t, entities.KindActor, a5.ID))
	assert.Equal(t, int64(1), h.revisions(t, entities.KindActor, a9.ID))

	// the reverse direction lands on the same row
	changed, err = h.relation.Relate(ctx, entities.KindActor, a9.ID, entities.KindActor,
		RelationInput{ID: a5.ID, Fields: relations.Fields{Comment: "c2"}})
	require.NoError(t, err)
	assert.True(t, changed)
	n, err := h.edges.CountFor(h.dbc(), relations.KindAtoa, entities.KindActor, a5.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	e, err = h.edges.Get(h.dbc(), relations.KindAtoa, a5.ID, a9.ID)
	require.NoError(t, err)
	assert.Equal(t, "c2", e.Comment)
	assert.Equal(t, int64(2), h.revisions(t, entities.KindActor, a5.ID))

	// same payload again writes nothing
	changed, err = h.relation.Relate(ctx, entities.KindActor, a9.ID, entities.KindActor,
		RelationInput{ID: a5.ID, Fields: relations.Fields{Comment: "c2"}})
	require.NoError(t, err)
	assert.False(t, changed)
	n, err = h.edges.CountFor(h.dbc(), relations.KindAtoa, entities.KindActor, a5.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(2), h.revisions(t, entities.KindActor, a5.ID))
	assert.Equal(t, int64(2), h.revisions(t, entities.KindActor, a9.ID))

	fromLow, err := h.relation.List(ctx, entities.KindActor, a5.ID, entities.KindActor, 1, 20)
	require.NoError(t, err)
	require.Len(t, fromLow.Items, 1)
	assert.Equal(t, a9.ID, fromLow.Items[0]["actor"].(views.M)["id"])
	assert.Equal(t, false, fromLow.Items[0]["reverse"])

	fromHigh, err := h.relation.List(ctx, entities.KindActor, a9.ID, entities.KindActor, 1, 20)
	require.NoError(t, err)
	require.Len(t, fromHigh.Items, 1)
	assert.Equal(t, a5.ID, fromHigh.Items[0]["actor"].(views.M)["id"])
	assert.Equal(t, true, fromHigh.Items[0]["reverse"])
}

func TestRelationSetRevisesCounterparts(t *testing.T) {
	h := newHarness(t)
	u1 := h.admin(t, "u1")
	a := testutil.SeedActor(t, h.tx, "witness")
	b := testutil.SeedBulletin(t, h.tx, "report")
	ctx := h.as(u1.ID)
	withActor := []byte(fmt.Sprintf(`{"actor_relations":[{"actor":{"id":%d},"comment":"seen"}]}`, a.ID))

	_, err := h.entity.Update(ctx, entities.KindBulletin, b.ID, withActor)
	require.NoError(t, err)
	left, right, err := relations.KindAtob.Key(entities.KindBulletin, b.ID, a.ID)
	require.NoError(t, err)
	e, err := h.edges.Get(h.dbc(), relations.KindAtob, left, right)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int64(1), h.revisions(t, entities.KindBulletin, b.ID))
	assert.Equal(t, int64(1), h.revisions(t, entities.KindActor, a.ID), "a new edge revises the counterpart")

	_, err = h.entity.Update(ctx, entities.KindBulletin, b.ID, withActor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.revisions(t, entities.KindBulletin, b.ID))
	assert.Equal(t, int64(1), h.revisions(t, entities.KindActor, a.ID), "unchanged edge leaves the counterpart alone")

	_, err = h.entity.Update(ctx, entities.KindBulletin, b.ID, []byte(`{"actor_relations":[]}`))
	require.NoError(t, err)
	e, err = h.edges.Get(h.dbc(), relations.KindAtob, left, right)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Equal(t, int64(2), h.revisions(t, entities.KindActor, a.ID), "a removed edge revises the counterpart")
}

func TestBulkAssignSetsStatusAndNotifies(t *testing.T) {
	h := newHarness(t)
	u1 := h.admin(t, "u1")
	u3 := testutil.SeedUser(t, h.tx, "u3")
	var ids []uint
	for _, title := range []string{"b10", "b11", "b12"} {
		ids = append(ids, testutil.SeedBulletin(t, h.tx, title).ID)
	}

	var steps [][2]int
	progress := func(done, total int) bool {
		steps = append(steps, [2]int{done, total})
		return true
	}
	ref := Ref(u3.ID)
	res, err := h.bulk.Run(context.Background(), u1.ID, entities.KindBulletin, ids, BulkSpec{AssignedTo: &ref}, progress)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, res.Updated[entities.KindBulletin])
	assert.Empty(t, res.Skipped[entities.KindBulletin])
	assert.Equal(t, [][2]int{{2, 3}, {3, 3}}, steps, "chunks of two")

	for _, id := range ids {
		c := h.load(t, entities.KindBulletin, id).AccessControl()
		require.NotNil(t, c.AssignedToID)
		assert.Equal(t, u3.ID, *c.AssignedToID)
		assert.Equal(t, entities.StatusAssigned, *workflowOf(h.load(t, entities.KindBulletin, id)).Status)
		assert.Equal(t, int64(1), h.revisions(t, entities.KindBulletin, id))
	}

	assert.Len(t, h.activities(t, repos.ActivityFilter{UserID: u1.ID, Actions: []string{"BULK"}}), 1)

	notes, _, err := h.notes.ListForUser(h.dbc(), u3.ID, false, 1, 50)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "New assignment", notes[0].Title)
	assert.Contains(t, notes[0].Message, "3 items")
}

func TestBulkExplicitStatusWins(t *testing.T) {
	h := newHarness(t)
	u1 := h.admin(t, "u1")
	u3 := testutil.SeedUser(t, h.tx, "u3")
	b := testutil.SeedBulletin(t, h.tx, "b")

	ref := Ref(u3.ID)
	_, err := h.bulk.Run(context.Background(), u1.ID, entities.KindBulletin, []uint{b.ID},
		BulkSpec{AssignedTo: &ref, Status: strp("Peer Review Assigned")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Peer Review Assigned", *workflowOf(h.load(t, entities.KindBulletin, b.ID)).Status)
}

func TestBulkSkipsItemsTheCallerCannotRead(t *testing.T) {
	h := newHarness(t)
	modRole := testutil.SeedRole(t, h.tx, domuser.RoleModerator)
	mod := testutil.SeedUser(t, h.tx, "mod", *modRole)
	secret := testutil.SeedRole(t, h.tx, "R_secret")
	open := testutil.SeedBulletin(t, h.tx, "open")
	hidden := testutil.SeedBulletin(t, h.tx, "hidden", func(b *types.Bulletin) { b.Roles = []types.Role{*secret} })

	res, err := h.bulk.Run(context.Background(), mod.ID, entities.KindBulletin, []uint{open.ID, hidden.ID},
		BulkSpec{Comments: "triaged"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{open.ID}, res.Updated[entities.KindBulletin])
	assert.Equal(t, []uint{hidden.ID}, res.Skipped[entities.KindBulletin])

	assert.Equal(t, "triaged", *workflowOf(h.load(t, entities.KindBulletin, open.ID)).Comments)
	assert.Empty(t, *workflowOf(h.load(t, entities.KindBulletin, hidden.ID)).Comments)
	assert.Zero(t, h.revisions(t, entities.KindBulletin, hidden.ID))

	denied := h.activities(t, repos.ActivityFilter{UserID: mod.ID, Actions: []string{"BULK"}, Status: "DENIED"})
	require.Len(t, denied, 1)
	assert.Equal(t, hidden.ID, subjectID(t, denied[0]))
}

func TestBulkIncidentRestrictsRelated(t *testing.T) {
	h := newHarness(t)
	u1 := h.admin(t, "u1")
	r5 := testutil.SeedRole(t, h.tx, "R5")
	old := testutil.SeedRole(t, h.tx, "R_old")
	i1 := testutil.SeedIncident(t, h.tx, "I1", func(i *types.Incident) { i.Roles = []types.Role{*old} })
	a1 := testutil.SeedActor(t, h.tx, "A1")
	a2 := testutil.SeedActor(t, h.tx, "A2")
	b1 := testutil.SeedBulletin(t, h.tx, "B1", func(b *types.Bulletin) { b.Roles = []types.Role{*old} })
	h.link(t, relations.KindItoa, entities.KindIncident, i1.ID, a1.ID)
	h.link(t, relations.KindItoa, entities.KindIncident, i1.ID, a2.ID)
	h.link(t, relations.KindItob, entities.KindIncident, i1.ID, b1.ID)

	roles := search.IDList{r5.ID}
	res, err := h.bulk.Run(context.Background(), u1.ID, entities.KindIncident, []uint{i1.ID},
		BulkSpec{Roles: &roles, RolesReplace: true, RestrictRelated: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{i1.ID}, res.Updated[entities.KindIncident])
	assert.ElementsMatch(t, []uint{a1.ID, a2.ID}, res.Updated[entities.KindActor])
	assert.Equal(t, []uint{b1.ID}, res.Updated[entities.KindBulletin])

	for _, ref := range []struct {
		kind entities.Kind
		id   uint
	}{{entities.KindIncident, i1.ID}, {entities.KindActor, a1.ID}, {entities.KindActor, a2.ID}, {entities.KindBulletin, b1.ID}} {
		e := h.load(t, ref.kind, ref.id)
		assert.Equal(t, []uint{r5.ID}, e.AccessControl().RoleIDs, "%s %d", ref.kind, ref.id)
		assert.Equal(t, int64(1), h.revisions(t, ref.kind, ref.id))
		assert.Equal(t, entities.StatusHumanCreated, *workflowOf(e).Status)
	}
}

func TestSearchAndsGroups(t *testing.T) {
	h := newHarness(t)
	u1 := h.admin(t, "u1")
	b1 := testutil.SeedBulletin(t, h.tx, "B1", func(b *types.Bulletin) { b.Tags = []string{"war"} })
	b2 := testutil.SeedBulletin(t, h.tx, "B2", func(b *types.Bulletin) { b.Tags = []string{"war", "syria"} })
	b3 := testutil.SeedBulletin(t, h.tx, "B3", func(b *types.Bulletin) { b.Tags = []string{"syria"} })

	var req search.Request
	require.NoError(t, json.Unmarshal([]byte(`{"per_page":100,"q":[
		{"tags":["war"],"inExact":true},
		{"op":"and","tags":["syria"],"inExact":true}
	]}`), &req))
	res, err := h.search.Search(h.as(u1.ID), entities.KindBulletin, req)
	require.NoError(t, err)

	seeded := map[uint]bool{b1.ID: true, b2.ID: true, b3.ID: true}
	var got []uint
	for _, it := range res.Items {
		if id := it["id"].(uint); seeded[id] {
			got = append(got, id)
		}
	}
	assert.Equal(t, []uint{b2.ID}, got)
}
