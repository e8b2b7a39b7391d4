package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/data/repos/testutil"
	types "github.com/yungbote/casefile-backend/internal/domain"
	domuser "github.com/yungbote/casefile-backend/internal/domain/user"
)

func TestUserRepo(t *testing.T) {
	db := testutil.SQLite(t, &types.Role{}, &types.User{})
	dbc := testutil.Ctx(db)
	users := NewUserRepo(db, testutil.Logger(t))
	roles := NewRoleRepo(db, testutil.Logger(t))

	created, err := roles.Create(dbc, []*types.Role{{Name: domuser.RoleAdmin}, {Name: domuser.RoleDA}, {Name: "Team A"}})
	require.NoError(t, err)
	require.Len(t, created, 3)

	u := &types.User{Username: "amal", Name: "Amal", PasswordHash: "x", Active: true}
	_, err = users.Create(dbc, []*types.User{u})
	require.NoError(t, err)
	require.NotZero(t, u.ID)

	require.NoError(t, users.SetRoles(dbc, u, []uint{created[1].ID, created[2].ID}))

	got, err := users.GetByUsername(dbc, "amal")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.HasRole(domuser.RoleDA))
	assert.False(t, got.IsAdmin())
	assert.ElementsMatch(t, []uint{created[1].ID, created[2].ID}, got.RoleIDs())

	missing, err := users.GetByID(dbc, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err := users.UsernameExists(dbc, "amal")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, users.UpdateFields(dbc, u.ID, map[string]any{"active": false}))
	active, err := users.List(dbc, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	inUse, err := roles.InUse(dbc, created[2].ID)
	require.NoError(t, err)
	assert.True(t, inUse)

	admin, err := roles.GetByName(dbc, domuser.RoleAdmin)
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsSystem())
}
