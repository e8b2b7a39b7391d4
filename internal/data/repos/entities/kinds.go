package entities

import (
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

var workflowPeople = []string{"User", "AssignedTo", "FirstPeerReviewer", "SecondPeerReviewer"}

type BulletinRepo = Store[entities.Bulletin]

func NewBulletinRepo(db *gorm.DB, baseLog *logger.Logger) BulletinRepo {
	return newStore[entities.Bulletin](db, baseLog, entities.KindBulletin, append([]string{
		"Roles", "Sources", "Labels", "VerLabels",
		"Locations", "Locations.AdminLevel", "Locations.LocationType",
		"Events", "Events.Location", "Events.EventType",
		"GeoLocations", "Medias",
	}, workflowPeople...))
}

type ActorRepo = Store[entities.Actor]

func NewActorRepo(db *gorm.DB, baseLog *logger.Logger) ActorRepo {
	return newStore[entities.Actor](db, baseLog, entities.KindActor, append([]string{
		"Roles", "Ethnographies", "Nationalities", "Dialects", "OriginPlace",
		"Events", "Events.Location", "Events.EventType",
		"Profiles", "Profiles.Sources", "Profiles.Labels", "Profiles.VerLabels",
	}, workflowPeople...))
}

type IncidentRepo = Store[entities.Incident]

func NewIncidentRepo(db *gorm.DB, baseLog *logger.Logger) IncidentRepo {
	return newStore[entities.Incident](db, baseLog, entities.KindIncident, append([]string{
		"Roles", "Labels", "Locations", "PotentialViolations", "ClaimedViolations",
		"Events", "Events.Location", "Events.EventType",
	}, workflowPeople...))
}
