package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"

	"github.com/yungbote/casefile-backend/internal/data/repos/testutil"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
	"github.com/yungbote/casefile-backend/internal/search"
)

func TestBulletinStoreLinksAndDelete(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewBulletinRepo(db, testutil.Logger(t))

	l1 := &vocab.Label{Title: "l1", ForBulletin: true}
	l2 := &vocab.Label{Title: "l2", ForBulletin: true}
	require.NoError(t, tx.Create(l1).Error)
	require.NoError(t, tx.Create(l2).Error)

	b := &entities.Bulletin{Title: "b", Status: entities.StatusHumanCreated}
	require.NoError(t, repo.Create(dbc, b))
	require.NoError(t, repo.SetLinks(dbc, b.ID, "labels", []uint{l1.ID, l2.ID, l1.ID}))

	ids, err := repo.LinkIDs(dbc, b.ID, "labels")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{l1.ID, l2.ID}, ids)

	require.NoError(t, repo.SetLinks(dbc, b.ID, "labels", []uint{l2.ID}))
	got, err := repo.Get(dbc, b.ID, DepthFull)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Labels, 1)
	assert.Equal(t, l2.ID, got.Labels[0].ID)

	assert.Error(t, repo.SetLinks(dbc, b.ID, "ethnographies", []uint{1}))

	children := NewChildRepo(db, testutil.Logger(t))
	require.NoError(t, children.ReplaceEvents(dbc, entities.KindBulletin, b.ID, []entities.Event{{Title: "e1"}, {Title: "e2"}}))
	evIDs, err := repo.LinkIDs(dbc, b.ID, "events")
	require.NoError(t, err)
	require.Len(t, evIDs, 2)

	require.NoError(t, repo.Delete(dbc, b.ID))
	gone, err := repo.Get(dbc, b.ID, DepthControl)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var n int64
	require.NoError(t, tx.Model(&entities.Event{}).Where("id IN ?", evIDs).Count(&n).Error)
	assert.Zero(t, n)
}

func TestStoreSearchIDsPagesNewestFirst(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewIncidentRepo(db, testutil.Logger(t))

	var want []uint
	for _, title := range []string{"a", "b", "c"} {
		want = append([]uint{testutil.SeedIncident(t, tx, title).ID}, want...)
	}
	where := clause.Expr{SQL: "incident.id IN ?", Vars: []any{want}}

	ids, err := repo.SearchIDs(dbc, where, search.Page{PerPage: 2, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, want, ids, "limit is per_page+1 so the caller can detect more")

	n, err := repo.Count(dbc, where)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	est, err := repo.EstimateCount(dbc, where)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, est, int64(1))

	many, err := repo.GetMany(dbc, []uint{want[2], want[0]}, DepthControl)
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, want[2], many[0].ID)
}

func TestActorDeleteRemovesProfiles(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewActorRepo(db, testutil.Logger(t))
	children := NewChildRepo(db, testutil.Logger(t))

	a := testutil.SeedActor(t, tx, "someone")
	src := &vocab.Source{Title: "s"}
	require.NoError(t, tx.Create(src).Error)
	p := a.Profiles[0]
	p.Sources = []vocab.Source{*src}
	require.NoError(t, children.SaveProfile(dbc, &p))

	full, err := repo.Get(dbc, a.ID, DepthFull)
	require.NoError(t, err)
	require.Len(t, full.Profiles, 1)
	assert.Len(t, full.Sources(), 1)

	require.NoError(t, repo.Delete(dbc, a.ID))
	var n int64
	require.NoError(t, tx.Model(&entities.ActorProfile{}).Where("actor_id = ?", a.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPlanRows(t *testing.T) {
	n, err := planRows(`[{"Plan": {"Node Type": "Seq Scan", "Plan Rows": 1234}}]`)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, n)

	_, err = planRows(`[]`)
	assert.Error(t, err)
}
