package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/casefile-backend/internal/http/response"
	"github.com/yungbote/casefile-backend/internal/platform/cache"
	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

// RealtimeHandler relays a user's pub/sub channel as server-sent events.
type RealtimeHandler struct {
	log       *logger.Logger
	store     cache.Store
	keepAlive time.Duration
}

func NewRealtimeHandler(log *logger.Logger, store cache.Store) *RealtimeHandler {
	return &RealtimeHandler{
		log:       log.With("handler", "RealtimeHandler"),
		store:     store,
		keepAlive: 25 * time.Second,
	}
}

// GET /api/sse/stream
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == 0 {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	msgs := make(chan []byte, 64)
	err := h.store.Subscribe(ctx, services.UserChannel(userID), func(b []byte) {
		select {
		case msgs <- b:
		default:
			h.log.Warn("sse buffer full, dropping event", "user_id", userID)
		}
	})
	if err != nil {
		h.log.Error("sse subscribe failed", "user_id", userID, "error", err)
		response.RespondError(c, http.StatusServiceUnavailable, "realtime_unavailable", err)
		return
	}
	h.log.Debug("sse stream open", "user_id", userID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ping := time.NewTicker(h.keepAlive)
	defer ping.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case b := <-msgs:
			var env struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(b, &env); err != nil || env.Event == "" {
				return true
			}
			c.SSEvent(env.Event, string(env.Data))
		case <-ping.C:
			c.SSEvent("ping", "{}")
		}
		return true
	})
	h.log.Debug("sse stream closed", "user_id", userID)
}
