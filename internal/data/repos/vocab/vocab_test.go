package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/data/repos/testutil"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

func TestTreeRepoWalks(t *testing.T) {
	db := testutil.SQLite(t, &vocab.Label{})
	dbc := testutil.Ctx(db)
	labels := NewTreeRepo[vocab.Label](db, testutil.Logger(t), "label", "parent_label_id")

	root := &vocab.Label{Title: "Violence"}
	require.NoError(t, labels.Create(dbc, []*vocab.Label{root}))
	mid := &vocab.Label{Title: "Shelling", ParentID: testutil.PtrUint(root.ID)}
	require.NoError(t, labels.Create(dbc, []*vocab.Label{mid}))
	leaf := &vocab.Label{Title: "Barrel bomb", ParentID: testutil.PtrUint(mid.ID)}
	other := &vocab.Label{Title: "Detention"}
	require.NoError(t, labels.Create(dbc, []*vocab.Label{leaf, other}))

	chain, err := labels.Ancestors(dbc, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{root.ID, mid.ID, leaf.ID}, chain)

	desc, err := labels.Descendants(dbc, []uint{root.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{root.ID, mid.ID, leaf.ID}, desc)

	kids, err := labels.Children(dbc, root.ID)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, mid.ID, kids[0].ID)

	// a corrupted cycle must still terminate
	require.NoError(t, db.Model(&vocab.Label{}).Where("id = ?", root.ID).Update("parent_label_id", leaf.ID).Error)
	chain, err = labels.Ancestors(dbc, leaf.ID)
	require.NoError(t, err)
	assert.Len(t, chain, maxDepth+1)
}

func TestRepoListAndMissing(t *testing.T) {
	db := testutil.SQLite(t, &vocab.Country{})
	dbc := testutil.Ctx(db)
	countries := NewRepo[vocab.Country](db, testutil.Logger(t), "countries")

	require.NoError(t, countries.Create(dbc, []*vocab.Country{{Title: "Syria", TitleAr: "سوريا"}, {Title: "Lebanon"}, {Title: "Iraq"}}))

	rows, total, err := countries.List(dbc, ListOptions{Title: "syr"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Syria", rows[0].Title)

	rows, total, err = countries.List(dbc, ListOptions{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Iraq", rows[0].Title)

	missing, err := countries.Missing(dbc, []uint{1, 42, 3, 42})
	require.NoError(t, err)
	assert.Equal(t, []uint{42}, missing)

	got, err := countries.GetByID(dbc, 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, countries.Delete(dbc, 1))
	left, err := countries.GetByIDs(dbc, []uint{1, 2})
	require.NoError(t, err)
	require.Len(t, left, 1)
}

func TestLocationChainAndSubtree(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	locs := NewLocationRepo(db, testutil.Logger(t))

	country := &vocab.Location{Title: "Syria"}
	require.NoError(t, locs.Create(dbc, []*vocab.Location{country}))
	city := &vocab.Location{Title: "Aleppo", ParentID: testutil.PtrUint(country.ID)}
	require.NoError(t, locs.Create(dbc, []*vocab.Location{city}))
	require.NoError(t, locs.UpdateDerived(dbc, country.ID, vocab.BuildIDTree([]uint{country.ID}), "Syria"))
	require.NoError(t, locs.UpdateDerived(dbc, city.ID, vocab.BuildIDTree([]uint{country.ID, city.ID}), "Aleppo, Syria"))

	chain, err := locs.Chain(dbc, city.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "Syria", chain[0].Title)

	sub, err := locs.Subtree(dbc, country.ID)
	require.NoError(t, err)
	assert.Len(t, sub, 2)

	batch, err := locs.Batch(dbc, country.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, batch)
	assert.Equal(t, city.ID, batch[0].ID)
}
