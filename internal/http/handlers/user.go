package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/casefile-backend/internal/http/response"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/search"
	"github.com/yungbote/casefile-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/me
func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.GetMe(dbcOf(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}

// GET /api/users
func (uh *UserHandler) List(c *gin.Context) {
	users, err := uh.userService.List(dbcOf(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": users})
}

// POST /api/users
func (uh *UserHandler) Create(c *gin.Context) {
	if !requireAdmin(c, uh.userService) {
		return
	}
	var in services.CreateUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondErr(c, apierr.Validation("invalid_request", "%s", err.Error()))
		return
	}
	u, err := uh.userService.Create(dbcOf(c), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"user": u})
}

// PUT /api/users/:id/roles with body {"roles": [ids]}
func (uh *UserHandler) SetRoles(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Roles search.IDList `json:"roles"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.Validation("invalid_request", "%s", err.Error()))
		return
	}
	u, err := uh.userService.SetRoles(dbcOf(c), id, []uint(req.Roles))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}
