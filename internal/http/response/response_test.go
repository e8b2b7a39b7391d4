package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/casefile-backend/internal/platform/apierr"
)

func run(fn func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRespondErrUsesKindStatus(t *testing.T) {
	w := run(func(c *gin.Context) { RespondErr(c, apierr.Validation("bad_date", "invalid date %q", "x")) })
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "bad_date", body["error"].(map[string]any)["code"])

	w = run(func(c *gin.Context) { RespondErr(c, apierr.NotFound("bulletin_not_found", "bulletin %d not found", 3)) })
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = run(func(c *gin.Context) { RespondErr(c, apierr.Denied("restricted")) })
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRespondErrHidesInternalMessages(t *testing.T) {
	w := run(func(c *gin.Context) { RespondErr(c, errors.New("pq: password leaked")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "leaked")
}

func TestRespondReadRestricted(t *testing.T) {
	w := run(func(c *gin.Context) { RespondRead(c, 42, apierr.Denied("restricted")) })
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["restricted"])
	assert.EqualValues(t, 42, body["id"])

	w = run(func(c *gin.Context) { RespondRead(c, 42, apierr.NotFound("x", "missing")) })
	assert.Equal(t, http.StatusNotFound, w.Code)
}
