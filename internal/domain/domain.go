package domain

import (
	"github.com/yungbote/casefile-backend/internal/domain/activity"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/history"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/domain/notification"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
	"github.com/yungbote/casefile-backend/internal/domain/user"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

type User = user.User
type Role = user.Role

type Label = vocab.Label
type Source = vocab.Source
type Location = vocab.Location
type LocationAdminLevel = vocab.LocationAdminLevel
type LocationType = vocab.LocationType
type EventType = vocab.EventType
type Country = vocab.Country
type Ethnography = vocab.Ethnography
type Dialect = vocab.Dialect
type PotentialViolation = vocab.PotentialViolation
type ClaimedViolation = vocab.ClaimedViolation
type AtoaInfo = vocab.AtoaInfo
type AtobInfo = vocab.AtobInfo
type BtobInfo = vocab.BtobInfo
type ItoaInfo = vocab.ItoaInfo
type ItobInfo = vocab.ItobInfo
type ItoiInfo = vocab.ItoiInfo

type Bulletin = entities.Bulletin
type Actor = entities.Actor
type ActorProfile = entities.ActorProfile
type Incident = entities.Incident
type Event = entities.Event
type GeoLocation = entities.GeoLocation
type Media = entities.Media

type Atoa = relations.Atoa
type Btob = relations.Btob
type Itoi = relations.Itoi
type Atob = relations.Atob
type Itob = relations.Itob
type Itoa = relations.Itoa

type Revision = history.Revision
type Activity = activity.Activity
type Notification = notification.Notification
type JobRun = jobs.JobRun

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&Role{}, &User{},
		&Country{}, &LocationAdminLevel{}, &LocationType{}, &Location{},
		&Label{}, &Source{}, &EventType{}, &Ethnography{}, &Dialect{},
		&PotentialViolation{}, &ClaimedViolation{},
		&AtoaInfo{}, &AtobInfo{}, &BtobInfo{}, &ItoaInfo{}, &ItobInfo{}, &ItoiInfo{},
		&Event{}, &Bulletin{}, &GeoLocation{}, &Media{},
		&Actor{}, &ActorProfile{}, &Incident{},
		&Atoa{}, &Btob{}, &Itoi{}, &Atob{}, &Itob{}, &Itoa{},
		&Revision{}, &Activity{}, &Notification{}, &JobRun{},
	}
}
