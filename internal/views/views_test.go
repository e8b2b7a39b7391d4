package views

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/history"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
	"github.com/yungbote/casefile-backend/internal/domain/user"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

func ptr[T any](v T) *T { return &v }

func sampleBulletin() *entities.Bulletin {
	reviewer := &user.User{ID: 2, Username: "rev", Name: "Reviewer"}
	return &entities.Bulletin{
		ID: 17, Title: "A", Description: "d", Status: entities.StatusHumanCreated,
		FirstPeerReviewerID: ptr(uint(2)), FirstPeerReviewer: reviewer,
		Roles:     []user.Role{{ID: 5, Name: "secret"}},
		Sources:   []vocab.Source{{ID: 1, Title: "src"}},
		Tags:      []string{"war"},
		UpdatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Events: []entities.Event{
			{ID: 2, Title: "late", FromDate: ptr(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC))},
			{ID: 3, Title: "undated"},
			{ID: 1, Title: "early", FromDate: ptr(time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC))},
		},
		Medias: []entities.Media{{ID: 1, Filename: "a.jpg"}, {ID: 2, Filename: "b.jpg", Deleted: true}},
	}
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeMinimal, ParseMode("1"))
	assert.Equal(t, ModeCompact, ParseMode("2"))
	assert.Equal(t, ModeEntity, ParseMode(" 3 "))
	assert.Equal(t, ModeFull, ParseMode(""))
	assert.Equal(t, ModeFull, ParseMode("9"))
}

func TestBulletinModesNest(t *testing.T) {
	b := sampleBulletin()
	m1 := Bulletin(b, ModeMinimal, Options{})
	m2 := Bulletin(b, ModeCompact, Options{})
	m3 := Bulletin(b, ModeEntity, Options{ViewUsernames: true})

	assert.NotContains(t, m1, "description")
	assert.Contains(t, m2, "description")
	assert.NotContains(t, m2, "events")
	for k := range m2 {
		assert.Contains(t, m3, k)
	}
	assert.Equal(t, M{"id": uint(2)}, m1["first_peer_reviewer"], "usernames hidden")
	assert.Equal(t, "rev", m3["first_peer_reviewer"].(M)["username"])

	evs := m3["events"].([]M)
	require.Len(t, evs, 3)
	assert.Equal(t, "early", evs[0]["title"])
	assert.Equal(t, "late", evs[1]["title"])
	assert.Equal(t, "undated", evs[2]["title"])

	assert.Len(t, m3["medias"], 1)
}

func TestModifiedShadowsUpdatedAt(t *testing.T) {
	b := sampleBulletin()
	later := b.UpdatedAt.Add(time.Hour)
	m := Bulletin(b, ModeCompact, Options{Modified: &later})
	assert.Equal(t, "2024-01-02T01:00:00Z", m["updated_at"])
}

func TestSnapshotIsStable(t *testing.T) {
	b := sampleBulletin()
	a, err := Snapshot(b)
	require.NoError(t, err)
	c, err := Snapshot(b)
	require.NoError(t, err)
	assert.Equal(t, a, c)

	var back M
	require.NoError(t, json.Unmarshal(a, &back))
	assert.EqualValues(t, 2, back["first_peer_reviewer"].(map[string]any)["id"])
}

func TestActorProjectionUnionsProfiles(t *testing.T) {
	a := &entities.Actor{
		ID: 5, Name: ptr("someone"), Type: entities.ActorTypePerson,
		Profiles: []entities.ActorProfile{
			{ID: 2, Mode: entities.ProfileModeMissingPerson, Sources: []vocab.Source{{ID: 1}, {ID: 2}}},
			{ID: 1, Mode: entities.ProfileModeNormal, Description: "main", Sources: []vocab.Source{{ID: 1}}},
		},
	}
	m := Actor(a, ModeEntity, Options{})
	assert.Len(t, m["sources"], 2)
	assert.Equal(t, "main", m["description"])
	ps := m["actor_profiles"].([]M)
	require.Len(t, ps, 2)
	assert.Contains(t, ps[0], "missing_person")
	assert.NotContains(t, ps[1], "missing_person")
}

func TestRelationBlockRestrictedCounterpart(t *testing.T) {
	e := &relations.Edge{Kind: relations.KindAtob, LeftID: 9, RightID: 44,
		Fields: relations.Fields{RelatedAs: []int64{1}, Comment: "c"}}

	block := RelationBlock(e, entities.KindActor, 9, Counterpart{Entity: &entities.Bulletin{ID: 44}, Allowed: false}, nil, Options{})
	assert.Equal(t, true, block["restricted"])
	assert.Equal(t, Restricted(44), block["bulletin"])
	assert.Equal(t, "c", block["comment"])
	assert.Equal(t, []int64{1}, block["related_as"])

	open := RelationBlock(e, entities.KindBulletin, 44, Counterpart{Entity: &entities.Actor{ID: 9}, Allowed: true}, nil, Options{})
	assert.NotContains(t, open, "restricted")
	assert.EqualValues(t, 9, open["actor"].(M)["id"])

	sym := &relations.Edge{Kind: relations.KindAtoa, LeftID: 5, RightID: 9, Fields: relations.Fields{RelatedAs: []int64{3}}}
	assert.Equal(t, int64(3), RelationBlock(sym, entities.KindActor, 9, Counterpart{}, nil, Options{})["related_as"])
	assert.Equal(t, "actor_relations", RelationKey(relations.KindAtoa, entities.KindActor))
}

func TestRelationBlockSymmetricOrientation(t *testing.T) {
	e := &relations.Edge{Kind: relations.KindAtoa, LeftID: 5, RightID: 9,
		Fields: relations.Fields{RelatedAs: []int64{2}}}
	infos := RelationInfos{2: {ID: 2, Title: "Parent", TitleTr: "p", ReverseTitle: "Child", ReverseTitleTr: "c"}}

	left := RelationBlock(e, entities.KindActor, 5, Counterpart{Entity: &entities.Actor{ID: 9}, Allowed: true}, infos, Options{})
	assert.Equal(t, false, left["reverse"])
	assert.Equal(t, M{"id": int64(2), "title": "Parent", "title_tr": "p"}, left["relation"])
	assert.EqualValues(t, 9, left["actor"].(M)["id"])

	right := RelationBlock(e, entities.KindActor, 9, Counterpart{Entity: &entities.Actor{ID: 5}, Allowed: true}, infos, Options{})
	assert.Equal(t, true, right["reverse"])
	assert.Equal(t, M{"id": int64(2), "title": "Child", "title_tr": "c"}, right["relation"])
	assert.EqualValues(t, 5, right["actor"].(M)["id"])

	// No reverse title: both endpoints share the forward label.
	plain := RelationInfos{2: {ID: 2, Title: "Sibling"}}
	assert.Equal(t, "Sibling", RelationBlock(e, entities.KindActor, 9, Counterpart{}, plain, Options{})["relation"].(M)["title"])

	// Directed kinds carry no orientation flag.
	ab := &relations.Edge{Kind: relations.KindAtob, LeftID: 9, RightID: 44, Fields: relations.Fields{RelatedAs: []int64{2}}}
	assert.NotContains(t, RelationBlock(ab, entities.KindBulletin, 44, Counterpart{}, nil, Options{}), "reverse")

	// Vector kinds list every resolved title in stored order.
	bb := &relations.Edge{Kind: relations.KindBtob, LeftID: 1, RightID: 3, Fields: relations.Fields{RelatedAs: []int64{2, 7}}}
	vec := RelationBlock(bb, entities.KindBulletin, 3, Counterpart{}, RelationInfos{
		2: {ID: 2, Title: "Duplicate", ReverseTitle: "Duplicated by"},
		7: {ID: 7, Title: "Same event"},
	}, Options{})
	assert.Equal(t, []M{
		{"id": int64(2), "title": "Duplicated by", "title_tr": ""},
		{"id": int64(7), "title": "Same event", "title_tr": ""},
	}, vec["relation"])
}

func TestHistoryRowReduction(t *testing.T) {
	rev := &history.Revision{ID: 1, Data: []byte(`{"comments":"c","status":"Assigned","title":"secret"}`)}
	full := HistoryRow(rev, nil, true, Options{})
	assert.Equal(t, json.RawMessage(rev.Data), full["data"])

	reduced := HistoryRow(rev, nil, false, Options{})
	assert.Equal(t, M{"comments": "c", "status": "Assigned"}, reduced["data"])
}
