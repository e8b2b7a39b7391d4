package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/domain/jobs"
)

type stubHandler string

func (s stubHandler) Type() string           { return string(s) }
func (s stubHandler) Run(ctx *Context) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubHandler(jobs.TypeBulkUpdate)))
	assert.Error(t, r.Register(stubHandler(jobs.TypeBulkUpdate)), "duplicate")
	assert.Error(t, r.Register(stubHandler("learning_build")), "unknown type")
	assert.Error(t, r.Register(nil))

	h, ok := r.Get(jobs.TypeBulkUpdate)
	require.True(t, ok)
	assert.Equal(t, jobs.TypeBulkUpdate, h.Type())

	require.NoError(t, r.Register(stubHandler(jobs.TypeRebuildIDTrees)))
	assert.Equal(t, []string{jobs.TypeBulkUpdate, jobs.TypeRebuildIDTrees}, r.Types())
	assert.ElementsMatch(t, []string{jobs.TypeActivityRetention, jobs.TypeBackupSnapshot}, r.Missing())
}
