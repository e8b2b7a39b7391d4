package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/http/response"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/search"
	"github.com/yungbote/casefile-backend/internal/services"
	"github.com/yungbote/casefile-backend/internal/views"
)

// EntityHandler serves bulletins, actors and incidents. Each method takes the
// kind and returns the gin handler bound to it.
type EntityHandler struct {
	log       *logger.Logger
	entities  services.EntityService
	search    services.SearchService
	bulk      services.BulkService
	relations services.RelationService
	history   services.HistoryService
}

func NewEntityHandler(
	log *logger.Logger,
	entitySvc services.EntityService,
	searchSvc services.SearchService,
	bulkSvc services.BulkService,
	relationSvc services.RelationService,
	historySvc services.HistoryService,
) *EntityHandler {
	return &EntityHandler{
		log:       log.With("handler", "EntityHandler"),
		entities:  entitySvc,
		search:    searchSvc,
		bulk:      bulkSvc,
		relations: relationSvc,
		history:   historySvc,
	}
}

// POST /api/{kind}
func (h *EntityHandler) Create(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, ok := readItem(c)
		if !ok {
			return
		}
		m, err := h.entities.Create(dbcOf(c), kind, item)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondCreated(c, gin.H{"id": m["id"], "item": m})
	}
}

// GET /api/{kind}/:id?mode=
func (h *EntityHandler) Get(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		m, err := h.entities.Get(dbcOf(c), kind, id, views.ParseMode(c.Query("mode")))
		if err != nil {
			response.RespondRead(c, id, err)
			return
		}
		response.RespondOK(c, m)
	}
}

// PUT /api/{kind}/:id
func (h *EntityHandler) Update(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		item, ok := readItem(c)
		if !ok {
			return
		}
		m, err := h.entities.Update(dbcOf(c), kind, id, item)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"item": m})
	}
}

// DELETE /api/{kind}/:id
func (h *EntityHandler) Delete(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := h.entities.Delete(dbcOf(c), kind, id); err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"ok": true})
	}
}

// PUT /api/{kind}/assign/:id
func (h *EntityHandler) Assign(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		raw, ok := readBody(c)
		if !ok {
			return
		}
		m, err := h.entities.Assign(dbcOf(c), kind, id, raw)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"item": m})
	}
}

// PUT /api/{kind}/review/:id
func (h *EntityHandler) Review(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		item, ok := readItem(c)
		if !ok {
			return
		}
		m, err := h.entities.Review(dbcOf(c), kind, id, item)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"item": m})
	}
}

// POST /api/{kind}s/search
func (h *EntityHandler) Search(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := readBody(c)
		if !ok {
			return
		}
		var req search.Request
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &req); err != nil {
				response.RespondErr(c, apierr.Validation("invalid_query", "%s", err.Error()))
				return
			}
		}
		res, err := h.search.Search(dbcOf(c), kind, req)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, res)
	}
}

// PUT /api/{kind}/bulk answers once the job is queued.
func (h *EntityHandler) Bulk(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := readBody(c)
		if !ok {
			return
		}
		job, err := h.bulk.Enqueue(dbcOf(c), kind, raw)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"message": "Bulk update queued successfully.", "job": job})
	}
}

// GET /api/{kind}/relations/:id?class=&page=&per_page=
func (h *EntityHandler) Relations(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		other, ok := entities.ParseKind(c.Query("class"))
		if !ok {
			response.RespondErr(c, apierr.Validation("invalid_class", "class must be bulletin, actor or incident"))
			return
		}
		page, err := h.relations.List(dbcOf(c), kind, id, other, queryInt(c, "page", 1), queryInt(c, "per_page", 10))
		if err != nil {
			response.RespondRead(c, id, err)
			return
		}
		response.RespondOK(c, page)
	}
}

// POST /api/{kind}/:id/relate with body {"class": ..., "item": {...}}
func (h *EntityHandler) Relate(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req struct {
			Class string                  `json:"class"`
			Item  *services.RelationInput `json:"item"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondErr(c, apierr.Validation("invalid_payload", "%s", err.Error()))
			return
		}
		other, ok := entities.ParseKind(req.Class)
		if !ok || req.Item == nil {
			response.RespondErr(c, apierr.Validation("invalid_payload", "class and item are required"))
			return
		}
		changed, err := h.relations.Relate(dbcOf(c), kind, id, other, *req.Item)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"changed": changed})
	}
}

// GET /api/{kind}history/:id
func (h *EntityHandler) History(kind entities.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		rows, err := h.history.List(dbcOf(c), kind, id)
		if err != nil {
			if apierr.IsKind(err, apierr.KindAccessDenied) {
				c.JSON(http.StatusOK, gin.H{"items": []any{}, "restricted": true})
				return
			}
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"items": rows})
	}
}
