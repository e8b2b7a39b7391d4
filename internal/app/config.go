package app

import (
	"time"

	"github.com/yungbote/casefile-backend/internal/platform/envutil"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type Config struct {
	JWTSecretKey      string
	Port              string
	ServiceName       string
	Environment       string
	Version           string
	SettingsPath      string
	SettingsPoll      time.Duration
	WorkerConcurrency int
	WorkerPoll        time.Duration
	SchedulerEnabled  bool
	CORSOrigins       []string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		JWTSecretKey:      envutil.String("JWT_SECRET_KEY", "defaultsecret", log),
		Port:              envutil.String("PORT", "8080", log),
		ServiceName:       envutil.String("SERVICE_NAME", "casefile-backend", log),
		Environment:       envutil.String("APP_ENV", "development", log),
		Version:           envutil.String("APP_VERSION", "dev", log),
		SettingsPath:      envutil.String("SETTINGS_PATH", "config/settings.json", log),
		SettingsPoll:      envutil.Duration("SETTINGS_POLL_INTERVAL", 5*time.Second),
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),
		WorkerPoll:        envutil.Duration("WORKER_POLL_INTERVAL", time.Second),
		SchedulerEnabled:  envutil.Bool("SCHEDULER_ENABLED", true),
		CORSOrigins:       envutil.List("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}
}
