package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

func TestNewMirrorWithoutClientIsNop(t *testing.T) {
	m := NewMirror(nil, logger.Nop())
	_, ok := m.(nopMirror)
	require.True(t, ok)
	assert.NoError(t, m.EnsureSchema(context.Background()))
	m.Apply(context.Background(), []EdgeChange{{LeftID: 1, RightID: 2}})
}

func TestNodeLabel(t *testing.T) {
	assert.Equal(t, "Bulletin", nodeLabel("bulletin"))
	assert.Equal(t, "Actor", nodeLabel("actor"))
	assert.Equal(t, "Incident", nodeLabel("incident"))
	assert.Empty(t, nodeLabel("location"))
}
