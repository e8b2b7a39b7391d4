package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/casefile-backend/internal/http/response"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /api/login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.Validation("invalid_request", "%s", err.Error()))
		return
	}
	token, err := ah.authService.Login(dbcOf(c), req.Username, req.Password)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"access_token": token, "token_type": "Bearer"})
}

// POST /api/logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.Logout(dbcOf(c)); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
