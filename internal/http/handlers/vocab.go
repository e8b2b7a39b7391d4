package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/http/response"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

type VocabHandler struct {
	log     *logger.Logger
	vocab   services.VocabService
	history services.HistoryService
	jobs    services.JobService
	users   services.UserService
}

func NewVocabHandler(
	log *logger.Logger,
	vocabSvc services.VocabService,
	historySvc services.HistoryService,
	jobSvc services.JobService,
	userSvc services.UserService,
) *VocabHandler {
	return &VocabHandler{
		log:     log.With("handler", "VocabHandler"),
		vocab:   vocabSvc,
		history: historySvc,
		jobs:    jobSvc,
		users:   userSvc,
	}
}

func (h *VocabHandler) Names() []string { return h.vocab.Names() }

// GET /api/{vocab}?q=&fltr=&typ=&page=&per_page=
func (h *VocabHandler) List(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := h.vocab.List(dbcOf(c), name, services.VocabQuery{
			Q:       c.Query("q"),
			Filter:  c.Query("fltr"),
			Type:    c.Query("typ"),
			Page:    queryInt(c, "page", 1),
			PerPage: queryInt(c, "per_page", 0),
		})
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, page)
	}
}

// GET /api/{vocab}/:id
func (h *VocabHandler) Get(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		row, err := h.vocab.Get(dbcOf(c), name, id)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, row)
	}
}

// POST /api/{vocab}
func (h *VocabHandler) Create(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, ok := readItem(c)
		if !ok {
			return
		}
		row, err := h.vocab.Create(dbcOf(c), name, item)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondCreated(c, gin.H{"item": row})
	}
}

// PUT /api/{vocab}/:id
func (h *VocabHandler) Update(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		item, ok := readItem(c)
		if !ok {
			return
		}
		row, err := h.vocab.Update(dbcOf(c), name, id, item)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"item": row})
	}
}

// DELETE /api/{vocab}/:id
func (h *VocabHandler) Delete(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := h.vocab.Delete(dbcOf(c), name, id); err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"ok": true})
	}
}

// POST /api/{vocab}/import takes a multipart "csv" file or a raw text/csv body.
func (h *VocabHandler) Import(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var src io.Reader = io.LimitReader(c.Request.Body, maxBody)
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			fh, err := c.FormFile("csv")
			if err != nil {
				response.RespondErr(c, apierr.Validation("missing_file", "multipart field csv is required"))
				return
			}
			f, err := fh.Open()
			if err != nil {
				response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
				return
			}
			defer f.Close()
			src = f
		}
		n, err := h.vocab.Import(dbcOf(c), name, src)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		h.log.Info("vocabulary imported", "name", name, "rows", n, "user_id", ctxutil.UserID(c.Request.Context()))
		response.RespondOK(c, gin.H{"imported": n})
	}
}

// GET /api/relation-info
func (h *VocabHandler) RelationInfos(c *gin.Context) {
	infos, err := h.vocab.RelationInfos(dbcOf(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, infos)
}

// POST /api/locations/rebuild-id-trees queues the rebuild job.
func (h *VocabHandler) RebuildIDTrees(c *gin.Context) {
	me, err := h.users.GetMe(dbcOf(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if !me.IsAdmin() && !me.CanEditLocations {
		response.RespondErr(c, apierr.Denied("locations_not_editable"))
		return
	}
	job, _, err := h.jobs.Enqueue(dbcOf(c), me.ID, jobs.TypeRebuildIDTrees, nil, services.EnqueueOptions{DedupKey: jobs.TypeRebuildIDTrees})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/locationhistory/:id
func (h *VocabHandler) LocationHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rows, err := h.history.List(dbcOf(c), entities.KindLocation, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": rows})
}
