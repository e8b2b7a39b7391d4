package relations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/data/repos/testutil"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
)

func TestSymmetricEdgeUpsertAndList(t *testing.T) {
	db := testutil.SQLite(t, &relations.Atoa{})
	dbc := testutil.Ctx(db)
	repo := NewEdgeRepo(db, testutil.Logger(t))

	left, right, err := relations.KindAtoa.Key(entities.KindActor, 9, 5)
	require.NoError(t, err)
	require.Equal(t, uint(5), left)

	prob := 1
	e := &relations.Edge{Kind: relations.KindAtoa, LeftID: left, RightID: right,
		Fields: relations.Fields{RelatedAs: []int64{3}, Probability: &prob, Comment: "first"}}
	require.NoError(t, repo.Upsert(dbc, e))

	e.Comment = "second"
	require.NoError(t, repo.Upsert(dbc, e))

	got, err := repo.Get(dbc, relations.KindAtoa, 5, 9)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Comment)
	assert.Equal(t, []int64{3}, got.RelatedAs)

	missing, err := repo.Get(dbc, relations.KindAtoa, 9, 5)
	require.NoError(t, err)
	assert.Nil(t, missing)

	for _, self := range []uint{5, 9} {
		n, err := repo.CountFor(dbc, relations.KindAtoa, entities.KindActor, self)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	}
	others, err := repo.CounterpartIDs(dbc, relations.KindAtoa, entities.KindActor, 9)
	require.NoError(t, err)
	assert.Equal(t, []uint{5}, others)

	require.NoError(t, repo.Delete(dbc, relations.KindAtoa, 5, 9))
	n, err := repo.CountFor(dbc, relations.KindAtoa, entities.KindActor, 5)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSymmetricEdgeRejectsNonCanonicalPair(t *testing.T) {
	db := testutil.SQLite(t, &relations.Itoi{})
	repo := NewEdgeRepo(db, testutil.Logger(t))
	err := repo.Upsert(testutil.Ctx(db), &relations.Edge{Kind: relations.KindItoi, LeftID: 4, RightID: 4})
	assert.ErrorIs(t, err, relations.ErrSelfRelation)
}

func TestDirectedVectorEdge(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewEdgeRepo(db, testutil.Logger(t))

	i := testutil.SeedIncident(t, tx, "inc")
	a := testutil.SeedActor(t, tx, "someone")

	left, right, err := relations.KindItoa.Key(entities.KindActor, a.ID, i.ID)
	require.NoError(t, err)
	assert.Equal(t, i.ID, left)

	require.NoError(t, repo.Upsert(dbc, &relations.Edge{Kind: relations.KindItoa, LeftID: left, RightID: right,
		Fields: relations.Fields{RelatedAs: []int64{1, 2}}}))

	fromActor, err := repo.ListFor(dbc, relations.KindItoa, entities.KindActor, a.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, fromActor, 1)
	assert.Equal(t, []int64{1, 2}, fromActor[0].RelatedAs)
	assert.Equal(t, i.ID, fromActor[0].OtherID(entities.KindActor, a.ID))

	fromIncident, err := repo.CounterpartIDs(dbc, relations.KindItoa, entities.KindIncident, i.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, fromIncident)
}
