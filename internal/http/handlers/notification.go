package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/casefile-backend/internal/http/response"
	"github.com/yungbote/casefile-backend/internal/services"
)

type NotificationHandler struct {
	notifications services.NotificationService
}

func NewNotificationHandler(notifications services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GET /api/notifications?unread=1&page=&per_page=
func (h *NotificationHandler) List(c *gin.Context) {
	unread := c.Query("unread") == "1" || c.Query("unread") == "true"
	page, err := h.notifications.List(dbcOf(c), unread, queryInt(c, "page", 1), queryInt(c, "per_page", 20))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, page)
}

// PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(dbcOf(c), []uint{id})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"updated": n})
}
