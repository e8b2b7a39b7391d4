package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	Role         repos.RoleRepo
	Bulletin     repos.BulletinRepo
	Actor        repos.ActorRepo
	Incident     repos.IncidentRepo
	Child        repos.ChildRepo
	Edge         repos.EdgeRepo
	Revision     repos.RevisionRepo
	Activity     repos.ActivityRepo
	Notification repos.NotificationRepo
	JobRun       repos.JobRunRepo
	Vocab        *repos.VocabRegistry
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Role:         repos.NewRoleRepo(db, log),
		Bulletin:     repos.NewBulletinRepo(db, log),
		Actor:        repos.NewActorRepo(db, log),
		Incident:     repos.NewIncidentRepo(db, log),
		Child:        repos.NewChildRepo(db, log),
		Edge:         repos.NewEdgeRepo(db, log),
		Revision:     repos.NewRevisionRepo(db, log),
		Activity:     repos.NewActivityRepo(db, log),
		Notification: repos.NewNotificationRepo(db, log),
		JobRun:       repos.NewJobRunRepo(db, log),
		Vocab:        repos.NewVocabRegistry(db, log),
	}
}
