package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	types "github.com/yungbote/casefile-backend/internal/domain"
	userdom "github.com/yungbote/casefile-backend/internal/domain/user"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/platform/observability"
	"github.com/yungbote/casefile-backend/internal/services"
)

type fakeUsers struct {
	services.UserService
	me *types.User
}

func (f fakeUsers) GetMe(dbctx.Context) (*types.User, error) { return f.me, nil }

type fakeActivities struct {
	services.ActivityService
	got *repos.ActivityFilter
}

func (f *fakeActivities) Search(_ dbctx.Context, flt repos.ActivityFilter) ([]*types.Activity, int64, error) {
	f.got = &flt
	return []*types.Activity{}, 0, nil
}

func admin() *types.User {
	return &types.User{Active: true, Roles: []types.Role{{Name: userdom.RoleAdmin}}}
}

func TestActivityFilterDates(t *testing.T) {
	f, err := activitySearchRequest{User: 3, From: "2024-01-10", To: "2024-01-12", Page: 2}.filter()
	require.NoError(t, err)
	assert.Equal(t, uint(3), f.UserID)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), *f.To, "to is inclusive")
	assert.Equal(t, 2, f.Page)

	_, err = activitySearchRequest{From: "10/01/2024"}.filter()
	assert.Error(t, err)
}

func activityRouter(me *types.User, act *fakeActivities) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewActivityHandler(logger.Nop(), act, fakeUsers{me: me})
	r := gin.New()
	r.POST("/activities/search", h.Search)
	return r
}

func TestActivitySearchAdminOnly(t *testing.T) {
	act := &fakeActivities{}
	r := activityRouter(&types.User{Active: true}, act)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/activities/search", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, act.got)
}

func TestActivitySearch(t *testing.T) {
	act := &fakeActivities{}
	r := activityRouter(admin(), act)
	w := httptest.NewRecorder()
	body := `{"actions": ["UPDATE"], "model": "Bulletin", "to": "2024-02-29"}`
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/activities/search", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items": [], "total": 0}`, w.Body.String())
	require.NotNil(t, act.got)
	assert.Equal(t, []string{"UPDATE"}, act.got.Actions)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *act.got.To)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/activities/search", strings.NewReader(`{"from": "yesterday"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPathIDAndReadItem(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PUT("/x/:id", func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		item, ok := readItem(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "item": string(item)})
	})

	do := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, path, strings.NewReader(body)))
		return w
	}
	assert.Equal(t, http.StatusBadRequest, do("/x/abc", `{"item": {}}`).Code)
	assert.Equal(t, http.StatusBadRequest, do("/x/0", `{"item": {}}`).Code)
	w := do("/x/5", `{"nope": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing_item")
	w = do("/x/5", `{"item": {"title": "t"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id": 5, "item": "{\"title\": \"t\"}"}`, w.Body.String())
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("refused") })

	run := func(deps map[string]observability.Pinger) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/healthcheck", NewHealthHandler(deps).HealthCheck)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
		return w
	}
	assert.Equal(t, http.StatusOK, run(map[string]observability.Pinger{"postgres": ok}).Code)
	w := run(map[string]observability.Pinger{"postgres": ok, "cache": down})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status": "degraded", "failed": {"cache": "refused"}}`, w.Body.String())
}

type fakeJobs struct {
	services.JobService
	err error
}

func (f fakeJobs) CancelForRequestUser(_ dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.JobRun{ID: id, Status: "canceled"}, nil
}

func TestCancelJob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	run := func(jobs fakeJobs, id string) *httptest.ResponseRecorder {
		r := gin.New()
		r.POST("/jobs/:id/cancel", NewJobHandler(jobs).CancelJob)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs/"+id+"/cancel", nil))
		return w
	}

	id := uuid.New()
	w := run(fakeJobs{}, id.String())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"canceled"`)

	assert.Equal(t, http.StatusBadRequest, run(fakeJobs{}, "not-a-uuid").Code)

	w = run(fakeJobs{err: apierr.Conflict("job_not_active", errors.New("job is already succeeded"))}, id.String())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "job_not_active")
}
