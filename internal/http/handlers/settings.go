package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/casefile-backend/internal/http/response"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

type SettingsHandler struct {
	log   *logger.Logger
	cfg   *config.Manager
	users services.UserService
}

func NewSettingsHandler(log *logger.Logger, cfg *config.Manager, users services.UserService) *SettingsHandler {
	return &SettingsHandler{log: log.With("handler", "SettingsHandler"), cfg: cfg, users: users}
}

// GET /api/admin/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	if !requireAdmin(c, h.users) {
		return
	}
	response.RespondOK(c, gin.H{"settings": h.cfg.Get()})
}

// PUT /api/admin/settings with body {"conf": {KEY: value}}. STATIC keys are
// written but only take effect after a restart.
func (h *SettingsHandler) Put(c *gin.Context) {
	if !requireAdmin(c, h.users) {
		return
	}
	var req struct {
		Conf map[string]any `json:"conf"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Conf) == 0 {
		response.RespondErr(c, apierr.Validation("invalid_request", "body must contain conf"))
		return
	}
	next, err := h.cfg.Update(req.Conf)
	if err != nil {
		response.RespondErr(c, apierr.Validation("invalid_settings", "%s", err.Error()))
		return
	}
	keys := make([]string, 0, len(req.Conf))
	for k := range req.Conf {
		keys = append(keys, k)
	}
	h.log.Info("settings updated", "keys", keys)
	response.RespondOK(c, gin.H{"settings": next})
}
