package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/data/repos/testutil"
	types "github.com/yungbote/casefile-backend/internal/domain"
)

func TestNotificationRepo(t *testing.T) {
	db := testutil.SQLite(t, &types.Notification{})
	dbc := testutil.Ctx(db)
	repo := NewNotificationRepo(db, testutil.Logger(t))

	require.NoError(t, repo.Create(dbc, []*types.Notification{
		{UserID: 1, Title: "a"},
		{UserID: 1, Title: "b"},
		{UserID: 2, Title: "c"},
	}))

	n, err := repo.CountUnread(dbc, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	rows, total, err := repo.ListForUser(dbc, 1, true, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "Update", rows[0].Category)

	// another user's ids are never touched
	other, _, err := repo.ListForUser(dbc, 2, false, 1, 10)
	require.NoError(t, err)
	changed, err := repo.MarkRead(dbc, 1, []uint{other[0].ID})
	require.NoError(t, err)
	assert.Zero(t, changed)

	changed, err = repo.MarkRead(dbc, 1, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	n, err = repo.CountUnread(dbc, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}
