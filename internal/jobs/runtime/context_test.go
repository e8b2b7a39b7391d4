package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/services"
)

type cancelableRepo struct {
	repos.JobRunRepo
	canceled bool
	writes   int
}

func (r *cancelableRepo) UpdateFieldsUnlessStatus(_ dbctx.Context, _ uuid.UUID, disallowed []string, _ map[string]interface{}) (bool, error) {
	if r.canceled {
		return false, nil
	}
	r.writes++
	return true, nil
}

type recordingNotifier struct {
	services.JobNotifier
	events []string
}

func (n *recordingNotifier) JobProgress(uint, *types.JobRun, string, int, string) {
	n.events = append(n.events, "progress")
}
func (n *recordingNotifier) JobFailed(_ uint, _ *types.JobRun, stage, _ string) {
	n.events = append(n.events, "failed:"+stage)
}
func (n *recordingNotifier) JobDone(uint, *types.JobRun) { n.events = append(n.events, "done") }

func TestContextLifecycle(t *testing.T) {
	repo := &cancelableRepo{}
	note := &recordingNotifier{}
	job := &types.JobRun{ID: uuid.New(), OwnerUserID: 4, Status: jobs.StatusRunning}
	jc := NewContext(context.Background(), nil, job, repo, note)

	assert.True(t, jc.Progress("apply", 40, "4 of 10"))
	assert.Equal(t, 40, job.Progress)

	jc.Succeed("done", map[string]int{"updated": 10})
	assert.Equal(t, jobs.StatusSucceeded, job.Status)
	assert.JSONEq(t, `{"updated":10}`, string(job.Result))
	assert.Equal(t, []string{"progress", "done"}, note.events)
	assert.Equal(t, 2, repo.writes)
}

func TestContextCanceledRunIsFrozen(t *testing.T) {
	repo := &cancelableRepo{canceled: true}
	note := &recordingNotifier{}
	job := &types.JobRun{ID: uuid.New(), Status: jobs.StatusCanceled, Stage: jobs.StatusCanceled}
	jc := NewContext(context.Background(), nil, job, repo, note)

	assert.False(t, jc.Progress("apply", 10, ""))
	jc.Fail("apply", errors.New("late failure"))
	jc.Succeed("done", nil)

	assert.Equal(t, jobs.StatusCanceled, job.Status)
	assert.Equal(t, jobs.StatusCanceled, job.Stage)
	assert.Empty(t, note.events)
}

func TestContextPayloadAndTrace(t *testing.T) {
	job := &types.JobRun{Payload: []byte(`{"kind":"actor","trace_id":"abc123"}`)}
	jc := NewContext(context.Background(), nil, job, nil, nil)

	assert.Equal(t, "actor", jc.Payload()["kind"])
	td := ctxutil.GetTraceData(jc.Ctx)
	require.NotNil(t, td)
	assert.Equal(t, "abc123", td.TraceID)

	var in struct{ Kind string }
	require.NoError(t, jc.DecodePayload(&in))
	assert.Equal(t, "actor", in.Kind)

	empty := NewContext(context.Background(), nil, &types.JobRun{}, nil, nil)
	assert.NotNil(t, empty.Payload())
	assert.Error(t, empty.DecodePayload(&in))
}
