package app

import (
	"github.com/yungbote/casefile-backend/internal/http/handlers"
	"github.com/yungbote/casefile-backend/internal/http/middleware"
	"github.com/yungbote/casefile-backend/internal/platform/cache"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/platform/observability"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Entity       *handlers.EntityHandler
	Vocab        *handlers.VocabHandler
	Jobs         *handlers.JobHandler
	Notification *handlers.NotificationHandler
	Activity     *handlers.ActivityHandler
	Settings     *handlers.SettingsHandler
	Realtime     *handlers.RealtimeHandler
	Health       *handlers.HealthHandler

	AuthMiddleware *middleware.AuthMiddleware
}

func wireHandlers(log *logger.Logger, s Services, settings *config.Manager, store cache.Store, deps map[string]observability.Pinger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:         handlers.NewAuthHandler(s.Auth),
		User:         handlers.NewUserHandler(s.User),
		Entity:       handlers.NewEntityHandler(log, s.Entity, s.Search, s.Bulk, s.Relation, s.History),
		Vocab:        handlers.NewVocabHandler(log, s.Vocab, s.History, s.Jobs, s.User),
		Jobs:         handlers.NewJobHandler(s.Jobs),
		Notification: handlers.NewNotificationHandler(s.Notification),
		Activity:     handlers.NewActivityHandler(log, s.Activity, s.User),
		Settings:     handlers.NewSettingsHandler(log, settings, s.User),
		Realtime:     handlers.NewRealtimeHandler(log, store),
		Health:       handlers.NewHealthHandler(deps),

		AuthMiddleware: middleware.NewAuthMiddleware(log, s.Auth),
	}
}
