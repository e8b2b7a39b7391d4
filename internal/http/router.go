package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	httpH "github.com/yungbote/casefile-backend/internal/http/handlers"
	httpMW "github.com/yungbote/casefile-backend/internal/http/middleware"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/platform/observability"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	UserHandler    *httpH.UserHandler

	EntityHandler       *httpH.EntityHandler
	VocabHandler        *httpH.VocabHandler
	JobHandler          *httpH.JobHandler
	NotificationHandler *httpH.NotificationHandler
	ActivityHandler     *httpH.ActivityHandler
	SettingsHandler     *httpH.SettingsHandler
	RealtimeHandler     *httpH.RealtimeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		// Users
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.GET("/users", cfg.UserHandler.List)
			protected.POST("/users", cfg.UserHandler.Create)
			protected.PUT("/users/:id/roles", cfg.UserHandler.SetRoles)
		}

		// Bulletins, actors, incidents
		if h := cfg.EntityHandler; h != nil {
			for _, kind := range entities.Kinds {
				k := string(kind)
				protected.POST("/"+k, h.Create(kind))
				protected.GET("/"+k+"/:id", h.Get(kind))
				protected.PUT("/"+k+"/:id", h.Update(kind))
				protected.DELETE("/"+k+"/:id", h.Delete(kind))
				protected.POST("/"+k+"/:id/relate", h.Relate(kind))
				protected.PUT("/"+k+"/assign/:id", h.Assign(kind))
				protected.PUT("/"+k+"/review/:id", h.Review(kind))
				protected.PUT("/"+k+"/bulk", h.Bulk(kind))
				protected.GET("/"+k+"/relations/:id", h.Relations(kind))
				protected.POST("/"+k+"s/search", h.Search(kind))
				protected.GET("/"+k+"history/:id", h.History(kind))
			}
		}

		// Vocabularies
		if h := cfg.VocabHandler; h != nil {
			protected.GET("/relation-info", h.RelationInfos)
			protected.POST("/locations/rebuild-id-trees", h.RebuildIDTrees)
			protected.GET("/locationhistory/:id", h.LocationHistory)
			for _, name := range h.Names() {
				protected.GET("/"+name, h.List(name))
				protected.POST("/"+name, h.Create(name))
				protected.POST("/"+name+"/import", h.Import(name))
				protected.GET("/"+name+"/:id", h.Get(name))
				protected.PUT("/"+name+"/:id", h.Update(name))
				protected.DELETE("/"+name+"/:id", h.Delete(name))
			}
		}

		// Jobs
		if cfg.JobHandler != nil {
			protected.GET("/jobs", cfg.JobHandler.ListJobs)
			protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
			protected.POST("/jobs/:id/cancel", cfg.JobHandler.CancelJob)
		}

		// Notifications
		if cfg.NotificationHandler != nil {
			protected.GET("/notifications", cfg.NotificationHandler.List)
			protected.PUT("/notifications/:id/read", cfg.NotificationHandler.MarkRead)
		}

		// Admin
		if cfg.ActivityHandler != nil {
			protected.POST("/activities/search", cfg.ActivityHandler.Search)
		}
		if cfg.SettingsHandler != nil {
			protected.GET("/admin/settings", cfg.SettingsHandler.Get)
			protected.PUT("/admin/settings", cfg.SettingsHandler.Put)
		}
	}

	return r
}
