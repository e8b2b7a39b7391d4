package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/jobs/runtime"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type fakeQueue struct {
	repos.JobRunRepo

	mu       sync.Mutex
	pending  []*types.JobRun
	claimErr error
	updates  []map[string]interface{}
}

func (f *fakeQueue) ClaimNextRunnable(dbc dbctx.Context, retryDelay, staleRunning time.Duration) (*types.JobRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.pending) == 0 {
		return nil, nil
	}
	j := f.pending[0]
	f.pending = f.pending[1:]
	return j, nil
}

func (f *fakeQueue) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updates)
	return true, nil
}

func (f *fakeQueue) Heartbeat(dbc dbctx.Context, id uuid.UUID) error { return nil }

type stubHandler struct {
	jobType string
	run     func(*runtime.Context) error
}

func (h stubHandler) Type() string                  { return h.jobType }
func (h stubHandler) Run(jc *runtime.Context) error { return h.run(jc) }

func newTestWorker(t *testing.T, q *fakeQueue, handlers ...runtime.Handler) *Worker {
	t.Helper()
	reg := runtime.NewRegistry()
	for _, h := range handlers {
		require.NoError(t, reg.Register(h))
	}
	return NewWorker(nil, logger.Nop(), q, reg, nil, Options{Heartbeat: time.Hour})
}

func queued(jobType string) *types.JobRun {
	return &types.JobRun{ID: uuid.New(), JobType: jobType, Status: jobs.StatusRunning}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, 4, o.Concurrency)
	assert.Equal(t, time.Second, o.PollInterval)
	assert.Equal(t, 30*time.Second, o.RetryDelay)
	assert.Equal(t, 30*time.Minute, o.StaleRunning)
	assert.Equal(t, 30*time.Second, o.Heartbeat)

	o = Options{Concurrency: 2, PollInterval: 5 * time.Second}.withDefaults()
	assert.Equal(t, 2, o.Concurrency)
	assert.Equal(t, 5*time.Second, o.PollInterval)
}

func TestRunOne(t *testing.T) {
	cases := []struct {
		name      string
		job       *types.JobRun
		handler   func(*runtime.Context) error
		wantFound bool
		wantStage string
		wantErr   string
	}{
		{
			name: "succeeds",
			job:  queued(jobs.TypeBulkUpdate),
			handler: func(jc *runtime.Context) error {
				jc.Succeed("done", map[string]int{"updated": 1})
				return nil
			},
			wantFound: true,
			wantStage: "done",
		},
		{
			name:      "missing handler",
			job:       queued(jobs.TypeBackupSnapshot),
			handler:   func(*runtime.Context) error { return nil },
			wantFound: true,
			wantStage: "dispatch",
			wantErr:   "no handler registered for job_type=" + jobs.TypeBackupSnapshot,
		},
		{
			name:      "returned error",
			job:       queued(jobs.TypeBulkUpdate),
			handler:   func(*runtime.Context) error { return errors.New("boom") },
			wantFound: true,
			wantStage: "run",
			wantErr:   "boom",
		},
		{
			name:      "panic",
			job:       queued(jobs.TypeBulkUpdate),
			handler:   func(*runtime.Context) error { panic("nil map") },
			wantFound: true,
			wantStage: "panic",
			wantErr:   "panic: nil map",
		},
		{
			name:    "empty queue",
			handler: func(*runtime.Context) error { return nil },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &fakeQueue{}
			if tc.job != nil {
				q.pending = []*types.JobRun{tc.job}
			}
			w := newTestWorker(t, q, stubHandler{jobType: jobs.TypeBulkUpdate, run: tc.handler})

			found := w.runOne(context.Background(), 1)
			assert.Equal(t, tc.wantFound, found)
			if !tc.wantFound {
				assert.Empty(t, q.updates)
				return
			}
			require.NotEmpty(t, q.updates)
			last := q.updates[len(q.updates)-1]
			assert.Equal(t, tc.wantStage, last["stage"])
			assert.Equal(t, tc.wantStage, tc.job.Stage)
			if tc.wantErr != "" {
				assert.Equal(t, jobs.StatusFailed, tc.job.Status)
				assert.Equal(t, tc.wantErr, tc.job.Error)
			} else {
				assert.Equal(t, jobs.StatusSucceeded, tc.job.Status)
			}
		})
	}
}

func TestRunOneClaimError(t *testing.T) {
	q := &fakeQueue{claimErr: errors.New("connection reset")}
	w := newTestWorker(t, q)
	assert.False(t, w.runOne(context.Background(), 1))
}

func TestRunDrainsAndStops(t *testing.T) {
	q := &fakeQueue{pending: []*types.JobRun{queued(jobs.TypeBulkUpdate), queued(jobs.TypeBulkUpdate)}}
	var mu sync.Mutex
	ran := 0
	reg := runtime.NewRegistry()
	require.NoError(t, reg.Register(stubHandler{jobType: jobs.TypeBulkUpdate, run: func(jc *runtime.Context) error {
		mu.Lock()
		ran++
		mu.Unlock()
		jc.Succeed("done", nil)
		return nil
	}}))
	w := NewWorker(nil, logger.Nop(), q, reg, nil, Options{Concurrency: 1, PollInterval: 10 * time.Millisecond, Heartbeat: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
