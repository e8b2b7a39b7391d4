package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos/activity"
	"github.com/yungbote/casefile-backend/internal/data/repos/entities"
	"github.com/yungbote/casefile-backend/internal/data/repos/history"
	"github.com/yungbote/casefile-backend/internal/data/repos/jobs"
	"github.com/yungbote/casefile-backend/internal/data/repos/notification"
	"github.com/yungbote/casefile-backend/internal/data/repos/relations"
	"github.com/yungbote/casefile-backend/internal/data/repos/user"
	"github.com/yungbote/casefile-backend/internal/data/repos/vocab"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type RoleRepo = user.RoleRepo

type BulletinRepo = entities.BulletinRepo
type ActorRepo = entities.ActorRepo
type IncidentRepo = entities.IncidentRepo
type ChildRepo = entities.ChildRepo

type EdgeRepo = relations.EdgeRepo
type RevisionRepo = history.RevisionRepo
type ActivityRepo = activity.ActivityRepo
type ActivityFilter = activity.Filter
type NotificationRepo = notification.NotificationRepo
type JobRunRepo = jobs.JobRunRepo

type VocabRegistry = vocab.Registry
type LocationRepo = vocab.LocationRepo

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo { return user.NewUserRepo(db, log) }
func NewRoleRepo(db *gorm.DB, log *logger.Logger) RoleRepo { return user.NewRoleRepo(db, log) }

func NewBulletinRepo(db *gorm.DB, log *logger.Logger) BulletinRepo {
	return entities.NewBulletinRepo(db, log)
}
func NewActorRepo(db *gorm.DB, log *logger.Logger) ActorRepo { return entities.NewActorRepo(db, log) }
func NewIncidentRepo(db *gorm.DB, log *logger.Logger) IncidentRepo {
	return entities.NewIncidentRepo(db, log)
}
func NewChildRepo(db *gorm.DB, log *logger.Logger) ChildRepo { return entities.NewChildRepo(db, log) }

func NewEdgeRepo(db *gorm.DB, log *logger.Logger) EdgeRepo { return relations.NewEdgeRepo(db, log) }
func NewRevisionRepo(db *gorm.DB, log *logger.Logger) RevisionRepo {
	return history.NewRevisionRepo(db, log)
}
func NewActivityRepo(db *gorm.DB, log *logger.Logger) ActivityRepo {
	return activity.NewActivityRepo(db, log)
}
func NewNotificationRepo(db *gorm.DB, log *logger.Logger) NotificationRepo {
	return notification.NewNotificationRepo(db, log)
}
func NewJobRunRepo(db *gorm.DB, log *logger.Logger) JobRunRepo { return jobs.NewJobRunRepo(db, log) }

func NewVocabRegistry(db *gorm.DB, log *logger.Logger) *VocabRegistry {
	return vocab.NewRegistry(db, log)
}
