package bulk_update

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/casefile-backend/internal/jobs/runtime"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

type fakeBulk struct {
	services.BulkService
	gotUser   uint
	gotKind   entities.Kind
	gotIDs    []uint
	gotSpec   services.BulkSpec
	err       error
	reported  error
	keptGoing bool
}

func (f *fakeBulk) Run(_ context.Context, userID uint, kind entities.Kind, ids []uint, spec services.BulkSpec, progress services.BulkProgress) (*services.BulkResult, error) {
	f.gotUser, f.gotKind, f.gotIDs, f.gotSpec = userID, kind, ids, spec
	f.keptGoing = progress(len(ids), len(ids))
	return &services.BulkResult{Updated: map[entities.Kind][]uint{kind: ids}}, f.err
}

func (f *fakeBulk) ReportFailure(_ context.Context, _ uint, _ entities.Kind, cause error) {
	f.reported = cause
}

func job(payload string) *types.JobRun {
	return &types.JobRun{OwnerUserID: 7, JobType: jobs.TypeBulkUpdate, Payload: datatypes.JSON(payload)}
}

func TestBulkUpdateRunsSpec(t *testing.T) {
	fb := &fakeBulk{}
	jc := jobrt.NewContext(context.Background(), nil, job(`{"kind": "actor", "items": [4, 5], "bulk": {"status": "Assigned"}}`), nil, nil)
	require.NoError(t, New(logger.Nop(), fb).Run(jc))

	assert.Equal(t, uint(7), fb.gotUser)
	assert.Equal(t, entities.KindActor, fb.gotKind)
	assert.Equal(t, []uint{4, 5}, fb.gotIDs)
	require.NotNil(t, fb.gotSpec.Status)
	assert.Equal(t, "Assigned", *fb.gotSpec.Status)
	assert.Equal(t, jobs.StatusSucceeded, jc.Job.Status)
}

func TestBulkUpdateRejectsBadPayload(t *testing.T) {
	for _, p := range []string{`{"kind": "location", "items": [1]}`, `{"kind": "actor", "items": []}`, `not json`} {
		fb := &fakeBulk{}
		jc := jobrt.NewContext(context.Background(), nil, job(p), nil, nil)
		require.NoError(t, New(logger.Nop(), fb).Run(jc))
		assert.Equal(t, jobs.StatusFailed, jc.Job.Status, p)
		assert.Equal(t, "decode", jc.Job.Stage, p)
		assert.Nil(t, fb.gotIDs, p)
	}
}

func TestBulkUpdateReportsFailure(t *testing.T) {
	fb := &fakeBulk{err: errors.New("boom")}
	jc := jobrt.NewContext(context.Background(), nil, job(`{"kind": "bulletin", "items": [1]}`), nil, nil)
	require.NoError(t, New(logger.Nop(), fb).Run(jc))
	assert.Equal(t, jobs.StatusFailed, jc.Job.Status)
	assert.EqualError(t, fb.reported, "boom")
}

func TestBulkUpdateCanceledByOwner(t *testing.T) {
	fb := &fakeBulk{err: services.ErrBulkCanceled}
	jc := jobrt.NewContext(context.Background(), nil, job(`{"kind": "bulletin", "items": [1, 2, 3]}`), nil, nil)
	require.NoError(t, New(logger.Nop(), fb).Run(jc))

	assert.True(t, fb.keptGoing)
	assert.Nil(t, fb.reported, "a canceled run is not a crash")
	assert.NotEqual(t, jobs.StatusFailed, jc.Job.Status)
	assert.NotEqual(t, jobs.StatusSucceeded, jc.Job.Status)
}
