package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/casefile-backend/internal/http/response"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/services"
)

// maxBody caps JSON request bodies.
const maxBody = 8 << 20

func dbcOf(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// pathID parses :id. It writes a 400 and returns false when it is not a
// positive integer.
func pathID(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || n == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", apierr.Validation("invalid_id", "invalid id %q", c.Param("id")))
		return 0, false
	}
	return uint(n), true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return nil, false
	}
	return raw, true
}

// readItem unwraps the {"item": {...}} envelope used by entity and
// vocabulary writes.
func readItem(c *gin.Context) ([]byte, bool) {
	raw, ok := readBody(c)
	if !ok {
		return nil, false
	}
	var env struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		response.RespondErr(c, apierr.Validation("invalid_payload", "%s", err.Error()))
		return nil, false
	}
	if len(env.Item) == 0 || string(env.Item) == "null" {
		response.RespondErr(c, apierr.Validation("missing_item", "request body must contain item"))
		return nil, false
	}
	return env.Item, true
}

// requireAdmin answers 403 unless the caller holds the Admin role.
func requireAdmin(c *gin.Context, users services.UserService) bool {
	me, err := users.GetMe(dbcOf(c))
	if err != nil {
		response.RespondErr(c, err)
		return false
	}
	if !me.IsAdmin() {
		response.RespondErr(c, apierr.Denied("admin_only"))
		return false
	}
	return true
}
