package rebuild_id_trees

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/casefile-backend/internal/jobs/runtime"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

type fakeVocab struct {
	services.VocabService
	n   int
	err error
}

func (f fakeVocab) RebuildIDTrees(_ context.Context, progress func(int)) (int, error) {
	for i := 1; i <= f.n; i++ {
		progress(i)
	}
	return f.n, f.err
}

func TestRebuildReportsCount(t *testing.T) {
	jc := jobrt.NewContext(context.Background(), nil, &types.JobRun{}, nil, nil)
	require.NoError(t, New(logger.Nop(), fakeVocab{n: 4}).Run(jc))
	assert.Equal(t, jobs.StatusSucceeded, jc.Job.Status)
	assert.JSONEq(t, `{"locations": 4}`, string(jc.Job.Result))
}

func TestRebuildFailure(t *testing.T) {
	jc := jobrt.NewContext(context.Background(), nil, &types.JobRun{}, nil, nil)
	require.NoError(t, New(logger.Nop(), fakeVocab{n: 2, err: errors.New("cycle at 9")}).Run(jc))
	assert.Equal(t, jobs.StatusFailed, jc.Job.Status)
	assert.Equal(t, "cycle at 9", jc.Job.Error)
}
