package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/search"
)

func strp(s string) *string { return &s }

func TestBulkSpecMutates(t *testing.T) {
	assert.False(t, BulkSpec{}.mutates())
	assert.False(t, BulkSpec{Comments: "  "}.mutates())
	assert.True(t, BulkSpec{ClearAssignee: true}.mutates())
	assert.True(t, BulkSpec{Tags: []string{}}.mutates(), "empty tag list with replace clears tags")
	assert.True(t, BulkSpec{Status: strp("Peer Reviewed")}.mutates())
}

func TestBulkSpecRelated(t *testing.T) {
	ref := Ref(4)
	roles := search.IDList{2}
	sp := BulkSpec{
		AssignedTo:    &ref,
		Status:        strp("Assigned"),
		Roles:         &roles,
		Tags:          []string{"x"},
		AssignRelated: true,
	}

	rel, ok := sp.related()
	require.True(t, ok)
	assert.Nil(t, rel.Status, "status never propagates")
	assert.True(t, rel.KeepStatus)
	assert.Equal(t, &ref, rel.AssignedTo)
	assert.Nil(t, rel.Roles, "roles only propagate with restrictRelated")
	assert.False(t, rel.AssignRelated)

	sp.AssignRelated, sp.RestrictRelated = false, true
	rel, ok = sp.related()
	require.True(t, ok)
	assert.Nil(t, rel.AssignedTo)
	assert.Equal(t, &roles, rel.Roles)

	sp.RestrictRelated = false
	_, ok = sp.related()
	assert.False(t, ok)

	_, ok = BulkSpec{Status: strp("x"), AssignRelated: true}.related()
	assert.False(t, ok, "nothing left to apply")
}

func TestBulkSpecNormalize(t *testing.T) {
	sp := BulkSpec{Status: strp("  "), Tags: []string{" a ", "a", "", "b"}, Comments: " c "}.normalize()
	assert.Nil(t, sp.Status)
	assert.Equal(t, []string{"a", "b"}, sp.Tags)
	assert.Equal(t, "c", sp.Comments)
}

func TestBulkRequestDecode(t *testing.T) {
	var req BulkRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"items": [1, "2", {"id": 3}],
		"bulk": {"assigned_to_id": {"id": 5}, "tags": ["t"], "tagsReplace": true, "assignRelated": true}
	}`), &req))
	assert.Equal(t, search.IDList{1, 2, 3}, req.Items)
	assert.Equal(t, uint(5), *req.Bulk.AssignedTo.Ptr())
	assert.True(t, req.Bulk.TagsReplace)
	assert.True(t, req.Bulk.AssignRelated)
}

func TestDedupIDsAndSummary(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, dedupIDs([]uint{3, 0, 1, 3, 2, 1}))

	r := newBulkResult()
	r.Updated[entities.KindActor] = []uint{1, 2}
	r.Updated[entities.KindBulletin] = []uint{5}
	r.Failed[entities.KindActor] = []uint{9}
	assert.Equal(t, "3 updated, 0 skipped, 1 failed", r.Summary())
}

func TestTagsOf(t *testing.T) {
	b := &entities.Bulletin{}
	require.NotNil(t, tagsOf(b))
	*tagsOf(b) = append(*tagsOf(b), "x")
	assert.Equal(t, []string{"x"}, []string(b.Tags))
	assert.Nil(t, tagsOf(&entities.Incident{}))
}
