package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/data/repos/testutil"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
)

func TestJobRunRepoClaimOrder(t *testing.T) {
	db := testutil.SQLite(t, &types.JobRun{})
	dbc := testutil.Ctx(db)
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	queued := &types.JobRun{OwnerUserID: 1, JobType: "bulk_update", Status: jobs.StatusQueued, CreatedAt: now.Add(-3 * time.Hour)}
	failed := &types.JobRun{OwnerUserID: 1, JobType: "bulk_update", Status: jobs.StatusFailed, MaxAttempts: 3,
		LastErrorAt: testutil.PtrTime(now.Add(-2 * time.Hour)), CreatedAt: now.Add(-2 * time.Hour)}
	exhausted := &types.JobRun{OwnerUserID: 1, JobType: "bulk_update", Status: jobs.StatusFailed, Attempts: 1,
		CreatedAt: now.Add(-90 * time.Minute)}
	stale := &types.JobRun{OwnerUserID: 1, JobType: "bulk_update", Status: jobs.StatusRunning,
		HeartbeatAt: testutil.PtrTime(now.Add(-10 * time.Hour)), CreatedAt: now.Add(-1 * time.Hour)}

	created, err := repo.Create(dbc, []*types.JobRun{queued, failed, exhausted, stale})
	require.NoError(t, err)
	require.Len(t, created, 4)
	assert.NotEqual(t, queued.ID, failed.ID)

	for _, want := range []*types.JobRun{queued, failed, stale} {
		got, err := repo.ClaimNextRunnable(dbc, time.Hour, time.Hour)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, jobs.StatusRunning, got.Status)
	}
	got, err := repo.ClaimNextRunnable(dbc, time.Hour, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, got, "exhausted job must not be claimed")

	reloaded, err := repo.GetByID(dbc, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Attempts)
}

func TestJobRunRepoDedupAndGuards(t *testing.T) {
	db := testutil.SQLite(t, &types.JobRun{})
	dbc := testutil.Ctx(db)
	repo := NewJobRunRepo(db, testutil.Logger(t))

	job := &types.JobRun{OwnerUserID: 7, JobType: "bulk_update", DedupKey: "k1"}
	_, err := repo.Create(dbc, []*types.JobRun{job})
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusQueued, job.Status)
	assert.Equal(t, 1, job.MaxAttempts)

	active, err := repo.GetActiveByDedupKey(dbc, "bulk_update", "k1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, job.ID, active.ID)

	exists, err := repo.ExistsRunnable(dbc, "bulk_update")
	require.NoError(t, err)
	assert.True(t, exists)

	ok, err := repo.Cancel(dbc, job.ID, 99)
	require.NoError(t, err)
	assert.False(t, ok, "only the owner may cancel")
	ok, err = repo.Cancel(dbc, job.ID, 7)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.UpdateFieldsUnlessStatus(dbc, job.ID, []string{jobs.StatusCanceled}, map[string]interface{}{"progress": 50})
	require.NoError(t, err)
	assert.False(t, ok, "canceled job must not be overwritten")

	active, err = repo.GetActiveByDedupKey(dbc, "bulk_update", "k1")
	require.NoError(t, err)
	assert.Nil(t, active)

	mine, err := repo.ListByOwner(dbc, 7, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	n, err := repo.DeleteFinishedBefore(dbc, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestJobRunRepoRetention(t *testing.T) {
	db := testutil.SQLite(t, &types.JobRun{})
	dbc := testutil.Ctx(db)
	repo := NewJobRunRepo(db, testutil.Logger(t))

	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	rows := []*types.JobRun{
		{OwnerUserID: 1, JobType: jobs.TypeBulkUpdate, Status: jobs.StatusSucceeded, CreatedAt: old},
		{OwnerUserID: 1, JobType: jobs.TypeBulkUpdate, Status: jobs.StatusFailed, Attempts: 1, CreatedAt: old},
		{OwnerUserID: 1, JobType: jobs.TypeBulkUpdate, Status: jobs.StatusFailed, MaxAttempts: 3, Attempts: 1, CreatedAt: old},
		{OwnerUserID: 1, JobType: jobs.TypeBulkUpdate, Status: jobs.StatusQueued, CreatedAt: old},
		{OwnerUserID: 1, JobType: jobs.TypeBulkUpdate, Status: jobs.StatusSucceeded},
	}
	_, err := repo.Create(dbc, rows)
	require.NoError(t, err)

	n, err := repo.DeleteFinishedBefore(dbc, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "succeeded and exhausted rows past the cutoff")

	for _, kept := range rows[2:] {
		got, err := repo.GetByID(dbc, kept.ID)
		require.NoError(t, err)
		assert.NotNil(t, got)
	}
}
