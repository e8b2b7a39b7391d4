package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/graph"
	"github.com/yungbote/casefile-backend/internal/jobs/pipeline/activity_retention"
	"github.com/yungbote/casefile-backend/internal/jobs/pipeline/backup_snapshot"
	"github.com/yungbote/casefile-backend/internal/jobs/pipeline/bulk_update"
	"github.com/yungbote/casefile-backend/internal/jobs/pipeline/rebuild_id_trees"
	"github.com/yungbote/casefile-backend/internal/jobs/runtime"
	"github.com/yungbote/casefile-backend/internal/platform/cache"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/gcs"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

type Services struct {
	Publisher    services.Publisher
	JobNotifier  services.JobNotifier
	Activity     services.ActivityService
	Auth         services.AuthService
	User         services.UserService
	Notification services.NotificationService
	Jobs         services.JobService
	History      services.HistoryService
	Relation     services.RelationService
	Entity       services.EntityService
	Search       services.SearchService
	Bulk         services.BulkService
	Vocab        services.VocabService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, settings *config.Manager, store cache.Store, mirror graph.Mirror, r Repos) Services {
	log.Info("Wiring services...")
	stores := services.NewEntityStores(r.Bulletin, r.Actor, r.Incident)

	pub := services.NewPublisher(store, log)
	jobNotifier := services.NewJobNotifier(pub, store)
	activity := services.NewActivityService(db, log, r.Activity, settings)
	notifications := services.NewNotificationService(db, log, r.Notification, pub)
	jobs := services.NewJobService(db, log, r.JobRun, jobNotifier)
	history := services.NewHistoryService(db, log, r.Revision, r.User, stores, settings, activity)
	relation := services.NewRelationService(db, log, r.Edge, stores, r.Vocab, r.User, history, activity, mirror, settings)

	return Services{
		Publisher:    pub,
		JobNotifier:  jobNotifier,
		Activity:     activity,
		Auth:         services.NewAuthService(db, log, r.User, activity, store, settings, cfg.JWTSecretKey),
		User:         services.NewUserService(db, log, r.User, r.Role, settings),
		Notification: notifications,
		Jobs:         jobs,
		History:      history,
		Relation:     relation,
		Entity:       services.NewEntityService(db, log, stores, r.Child, r.Vocab, r.User, r.Role, relation, history, activity, notifications, settings),
		Search:       services.NewSearchService(db, log, stores, r.User, activity, store, settings),
		Bulk:         services.NewBulkService(db, log, stores, r.Edge, r.User, r.Role, history, activity, notifications, jobs, settings),
		Vocab:        services.NewVocabService(db, log, r.Vocab, r.User, r.Role, history, settings),
	}
}

// wireJobs registers every background pipeline. The backup pipeline is
// registered even without a bucket so a manual run fails with a clear error.
func wireJobs(log *logger.Logger, s Services, r Repos, bucket gcs.Bucket) (*runtime.Registry, error) {
	reg := runtime.NewRegistry()
	handlers := []runtime.Handler{
		bulk_update.New(log, s.Bulk),
		activity_retention.New(log, s.Activity, r.JobRun),
		rebuild_id_trees.New(log, s.Vocab),
		backup_snapshot.New(log, r.Revision, bucket),
	}
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			return nil, fmt.Errorf("register %s: %w", h.Type(), err)
		}
	}
	return reg, nil
}
