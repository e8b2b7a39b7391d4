package relations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
)

func TestSymmetricKeyIsCanonical(t *testing.T) {
	l, r, err := KindAtoa.Key(entities.KindActor, 9, 5)
	require.NoError(t, err)
	assert.Equal(t, uint(5), l)
	assert.Equal(t, uint(9), r)

	l2, r2, err := KindAtoa.Key(entities.KindActor, 5, 9)
	require.NoError(t, err)
	assert.Equal(t, l, l2)
	assert.Equal(t, r, r2)

	_, _, err = KindBtob.Key(entities.KindBulletin, 3, 3)
	assert.ErrorIs(t, err, ErrSelfRelation)
}

func TestDirectedKeyFollowsSides(t *testing.T) {
	k, ok := Between(entities.KindBulletin, entities.KindIncident)
	require.True(t, ok)
	assert.Equal(t, "itob", k.Name)

	l, r, err := k.Key(entities.KindBulletin, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(2), l, "incident is always the left side")
	assert.Equal(t, uint(4), r)

	e := Edge{Kind: k, LeftID: l, RightID: r}
	assert.Equal(t, uint(2), e.OtherID(entities.KindBulletin, 4))
	assert.Equal(t, uint(4), e.OtherID(entities.KindIncident, 2))
	assert.Equal(t, entities.KindIncident, k.OtherSide(entities.KindBulletin))
}

func TestFieldsNormalizeAndEqual(t *testing.T) {
	p := 1
	f := Fields{RelatedAs: []int64{3, 0, 3, 2}, Probability: &p, Comment: "c"}.Normalize(KindAtoa)
	assert.Equal(t, []int64{3}, f.RelatedAs)

	v := Fields{RelatedAs: []int64{3, 2, 3}}.Normalize(KindBtob)
	assert.Equal(t, []int64{3, 2}, v.RelatedAs)

	q := 1
	assert.True(t, Fields{RelatedAs: []int64{2, 3}, Probability: &p}.Equal(Fields{RelatedAs: []int64{3, 2}, Probability: &q}))
	assert.False(t, Fields{Comment: "a"}.Equal(Fields{Comment: "b"}))
	assert.Len(t, Touching(entities.KindActor), 3)
}
