package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	"github.com/yungbote/casefile-backend/internal/http/response"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/search"
	"github.com/yungbote/casefile-backend/internal/services"
)

type ActivityHandler struct {
	log        *logger.Logger
	activities services.ActivityService
	users      services.UserService
}

func NewActivityHandler(log *logger.Logger, activities services.ActivityService, users services.UserService) *ActivityHandler {
	return &ActivityHandler{
		log:        log.With("handler", "ActivityHandler"),
		activities: activities,
		users:      users,
	}
}

type activitySearchRequest struct {
	User    uint     `json:"user"`
	Actions []string `json:"actions"`
	Model   string   `json:"model"`
	Status  string   `json:"status"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}

func (r activitySearchRequest) filter() (repos.ActivityFilter, error) {
	f := repos.ActivityFilter{
		UserID:  r.User,
		Actions: r.Actions,
		Model:   r.Model,
		Status:  r.Status,
		Page:    r.Page,
		PerPage: r.PerPage,
	}
	if r.From != "" {
		t, err := search.ParseDay(r.From)
		if err != nil {
			return f, apierr.Validation("invalid_date", "%s", err.Error())
		}
		f.From = &t
	}
	if r.To != "" {
		t, err := search.ParseDay(r.To)
		if err != nil {
			return f, apierr.Validation("invalid_date", "%s", err.Error())
		}
		// inclusive of the whole day
		end := t.AddDate(0, 0, 1)
		f.To = &end
	}
	return f, nil
}

// POST /api/activities/search is admin only.
func (h *ActivityHandler) Search(c *gin.Context) {
	if !requireAdmin(c, h.users) {
		return
	}
	var req activitySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.Validation("invalid_request", "%s", err.Error()))
		return
	}
	f, err := req.filter()
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	rows, total, err := h.activities.Search(dbcOf(c), f)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": rows, "total": total})
}
