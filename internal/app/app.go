package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/db"
	"github.com/yungbote/casefile-backend/internal/data/graph"
	apphttp "github.com/yungbote/casefile-backend/internal/http"
	"github.com/yungbote/casefile-backend/internal/jobs/runtime"
	"github.com/yungbote/casefile-backend/internal/jobs/scheduler"
	"github.com/yungbote/casefile-backend/internal/jobs/worker"
	"github.com/yungbote/casefile-backend/internal/platform/cache"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/envutil"
	"github.com/yungbote/casefile-backend/internal/platform/gcs"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/platform/neo4jdb"
	"github.com/yungbote/casefile-backend/internal/platform/observability"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Cache    cache.Store
	Settings *config.Manager
	Metrics  *observability.Metrics
	Neo4j    *neo4jdb.Client
	Bucket   gcs.Bucket

	Repos     Repos
	Services  Services
	Registry  *runtime.Registry
	Worker    *worker.Worker
	Scheduler *scheduler.Scheduler
	Server    *apphttp.Server

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(ctx context.Context) (*App, error) {
	log, err := NewLogger()
	if err != nil {
		return nil, err
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	a := &App{Log: log, Cfg: cfg}

	a.Metrics = observability.Init(log)
	a.otelShutdown = observability.InitOTel(ctx, log,
		observability.TracingFromEnv(cfg.ServiceName, cfg.Environment, cfg.Version))

	a.pg, err = db.NewPostgresService(log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.DB = a.pg.DB()
	if envutil.Bool("AUTO_MIGRATE", true) {
		if err := db.Migrate(a.DB, log); err != nil {
			a.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
	}

	if a.Cache, err = cache.NewFromEnv(log); err != nil {
		a.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}
	if a.Settings, err = config.NewManager(cfg.SettingsPath, log); err != nil {
		a.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if a.Neo4j, err = neo4jdb.NewFromEnv(ctx, log); err != nil {
		a.Close()
		return nil, fmt.Errorf("init neo4j: %w", err)
	}
	mirror := graph.NewMirror(a.Neo4j, log)
	if err := mirror.EnsureSchema(ctx); err != nil {
		log.Warn("graph mirror schema setup failed", "error", err)
	}

	if a.Bucket, err = gcs.NewFromEnv(ctx, log); err != nil {
		a.Close()
		return nil, fmt.Errorf("init backup bucket: %w", err)
	}

	a.Repos = wireRepos(a.DB, log)
	a.Services = wireServices(a.DB, log, cfg, a.Settings, a.Cache, mirror, a.Repos)
	if a.Registry, err = wireJobs(log, a.Services, a.Repos, a.Bucket); err != nil {
		a.Close()
		return nil, err
	}
	if missing := a.Registry.Missing(); len(missing) > 0 {
		log.Warn("job types without a handler", "types", missing)
	}
	a.Worker = worker.NewWorker(a.DB, log, a.Repos.JobRun, a.Registry, a.Services.JobNotifier, worker.Options{
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: cfg.WorkerPoll,
	})
	a.Scheduler = scheduler.New(log, a.Services.Jobs, a.Repos.User, scheduler.Defaults(a.Bucket != nil))

	deps := map[string]observability.Pinger{"postgres": a.pg, "cache": a.Cache}
	if a.Neo4j != nil {
		deps["neo4j"] = a.Neo4j
	}
	h := wireHandlers(log, a.Services, a.Settings, a.Cache, deps)
	a.Server = apphttp.NewServer(apphttp.RouterConfig{
		Log:                 log,
		Metrics:             a.Metrics,
		ServiceName:         cfg.ServiceName,
		CORSOrigins:         cfg.CORSOrigins,
		AuthHandler:         h.Auth,
		AuthMiddleware:      h.AuthMiddleware,
		UserHandler:         h.User,
		EntityHandler:       h.Entity,
		VocabHandler:        h.Vocab,
		JobHandler:          h.Jobs,
		NotificationHandler: h.Notification,
		ActivityHandler:     h.Activity,
		SettingsHandler:     h.Settings,
		RealtimeHandler:     h.Realtime,
		HealthHandler:       h.Health,
	})
	return a, nil
}

// RunServe serves HTTP until ctx ends. With withWorker set the job worker and
// scheduler run in the same process.
func (a *App) RunServe(ctx context.Context, withWorker bool) error {
	g, ctx := errgroup.WithContext(ctx)
	a.startBackground(ctx, g)
	g.Go(func() error {
		return a.Server.Run(ctx, ":"+a.Cfg.Port)
	})
	if withWorker {
		a.startJobs(ctx, g)
	}
	return ignoreCanceled(g.Wait())
}

// RunWorker runs only the job worker and scheduler.
func (a *App) RunWorker(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	a.startBackground(ctx, g)
	a.startJobs(ctx, g)
	return ignoreCanceled(g.Wait())
}

func (a *App) startBackground(ctx context.Context, g *errgroup.Group) {
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	a.Metrics.StartCacheCollector(ctx, a.Log, a.Cache)
	a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB)
	g.Go(func() error {
		a.Settings.Watch(ctx, a.Cfg.SettingsPoll)
		return nil
	})
}

func (a *App) startJobs(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error { return a.Worker.Run(ctx) })
	if a.Cfg.SchedulerEnabled {
		g.Go(func() error { return a.Scheduler.Run(ctx) })
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.Bucket != nil {
		_ = a.Bucket.Close()
	}
	if a.Neo4j != nil {
		_ = a.Neo4j.Close(ctx)
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
