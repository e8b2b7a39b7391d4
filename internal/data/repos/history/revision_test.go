package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/casefile-backend/internal/data/repos/testutil"
	types "github.com/yungbote/casefile-backend/internal/domain"
)

func TestRevisionRepoOrdersNewestFirst(t *testing.T) {
	db := testutil.SQLite(t, &types.Revision{})
	dbc := testutil.Ctx(db)
	repo := NewRevisionRepo(db, testutil.Logger(t))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(dbc, []*types.Revision{
		{EntityKind: "bulletin", EntityID: 1, Data: datatypes.JSON(`{"v":1}`), CreatedAt: base},
		{EntityKind: "bulletin", EntityID: 1, Data: datatypes.JSON(`{"v":2}`), CreatedAt: base.Add(time.Minute)},
		{EntityKind: "bulletin", EntityID: 1, Data: datatypes.JSON(`{"v":3}`), CreatedAt: base.Add(time.Minute)},
		{EntityKind: "actor", EntityID: 1, Data: datatypes.JSON(`{}`), CreatedAt: base},
	}))

	revs, err := repo.ListFor(dbc, "bulletin", 1)
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.JSONEq(t, `{"v":3}`, string(revs[0].Data))
	assert.JSONEq(t, `{"v":1}`, string(revs[2].Data))

	n, err := repo.Count(dbc, "actor", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	latest, err := repo.Latest(dbc, "bulletin", 1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.JSONEq(t, `{"v":3}`, string(latest.Data))

	none, err := repo.Latest(dbc, "incident", 9)
	require.NoError(t, err)
	assert.Nil(t, none)

	page, err := repo.ListAfter(dbc, revs[2].ID, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Greater(t, page[1].ID, page[0].ID)
}
