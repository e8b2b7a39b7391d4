package activity_retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/casefile-backend/internal/jobs/runtime"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

type fakeActivity struct {
	services.ActivityService
	purgedAt time.Time
	err      error
}

func (f *fakeActivity) Purge(_ dbctx.Context, now time.Time) (int64, error) {
	f.purgedAt = now
	return 12, f.err
}

type fakeJobRuns struct {
	repos.JobRunRepo
	cutoff time.Time
}

func (f *fakeJobRuns) DeleteFinishedBefore(_ dbctx.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

func TestRetentionPurgesActivityAndJobs(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	act, runs := &fakeActivity{}, &fakeJobRuns{}
	p := New(logger.Nop(), act, runs)
	p.now = func() time.Time { return now }

	jc := jobrt.NewContext(context.Background(), nil, &types.JobRun{}, nil, nil)
	require.NoError(t, p.Run(jc))

	assert.Equal(t, now, act.purgedAt)
	assert.Equal(t, now.Add(-JobRetention), runs.cutoff)
	assert.Equal(t, jobs.StatusSucceeded, jc.Job.Status)
	assert.JSONEq(t, `{"activities_deleted": 12, "jobs_deleted": 3}`, string(jc.Job.Result))
}

func TestRetentionStopsOnPurgeError(t *testing.T) {
	act, runs := &fakeActivity{err: errors.New("db down")}, &fakeJobRuns{}
	p := New(logger.Nop(), act, runs)

	jc := jobrt.NewContext(context.Background(), nil, &types.JobRun{}, nil, nil)
	require.NoError(t, p.Run(jc))
	assert.Equal(t, jobs.StatusFailed, jc.Job.Status)
	assert.Equal(t, "activities", jc.Job.Stage)
	assert.True(t, runs.cutoff.IsZero())
}
