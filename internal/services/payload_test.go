package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
)

func TestRefAcceptsClientShapes(t *testing.T) {
	var in struct {
		A *Ref `json:"a"`
		B *Ref `json:"b"`
		C *Ref `json:"c"`
		D *Ref `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 4, "b": "9", "c": {"id": 12}, "d": 0}`), &in))
	assert.Equal(t, uint(4), *in.A.Ptr())
	assert.Equal(t, uint(9), *in.B.Ptr())
	assert.Equal(t, uint(12), *in.C.Ptr())
	assert.Nil(t, in.D.Ptr(), "zero clears")

	var nilRef *Ref
	assert.Nil(t, nilRef.Ptr())
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2023-04-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC), *got)

	got, err = ParseDate("2023-04-05T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Hour(), "normalized to UTC")

	got, err = ParseDate("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDate("05/04/2023")
	assert.Error(t, err)
}

func TestDateUnmarshal(t *testing.T) {
	var in struct {
		From *Date `json:"from"`
		To   *Date `json:"to"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"from": "2020-01-02 03:04", "to": ""}`), &in))
	require.NotNil(t, in.From.Time())
	assert.Equal(t, 3, in.From.Time().Hour())
	assert.Nil(t, in.To.Time())

	assert.Error(t, json.Unmarshal([]byte(`{"from": 20200102}`), &in))
}

func TestRelationInputPicksCounterpart(t *testing.T) {
	var rels []RelationInput
	require.NoError(t, json.Unmarshal([]byte(`[
		{"actor": {"id": 7}, "related_as": [1, "2"], "probability": 1, "comment": "seen"},
		{"id": 3}
	]`), &rels))
	require.Len(t, rels, 2)
	assert.Equal(t, uint(7), rels[0].ID)
	assert.Equal(t, []int64{1, 2}, rels[0].RelatedAs)
	require.NotNil(t, rels[0].Probability)
	assert.Equal(t, 1, *rels[0].Probability)
	assert.Equal(t, "seen", rels[0].Comment)
	assert.Equal(t, uint(3), rels[1].ID)
	assert.Empty(t, rels[1].RelatedAs)
}

func TestRelationsInputPresent(t *testing.T) {
	var in RelationsInput
	require.NoError(t, json.Unmarshal([]byte(`{"actor_relations": [], "incident_relations": [{"id": 1}]}`), &in))
	p := in.Present()
	assert.Len(t, p, 2)
	assert.Empty(t, p[entities.KindActor], "present but empty replaces with nothing")
	assert.Len(t, p[entities.KindIncident], 1)
	_, ok := p[entities.KindBulletin]
	assert.False(t, ok, "absent list is left untouched")
}

func TestDecodePayload(t *testing.T) {
	var r ReviewInput
	err := decodePayload(nil, &r)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	err = decodePayload([]byte(`{"review": 1}`), &r)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	require.NoError(t, decodePayload([]byte(`{"review": "ok", "review_action": "No Review Needed"}`), &r))
	assert.Equal(t, "ok", r.Review)
}

func TestDecodeEntityInput(t *testing.T) {
	in, err := decodeEntityInput(entities.KindBulletin, []byte(`{"title": " t ", "tags": ["a"]}`))
	require.NoError(t, err)
	b, ok := in.(*BulletinInput)
	require.True(t, ok)
	assert.Equal(t, " t ", *b.Title)
	assert.Nil(t, b.Description)

	_, err = decodeEntityInput(entities.KindLocation, []byte(`{}`))
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))
}
