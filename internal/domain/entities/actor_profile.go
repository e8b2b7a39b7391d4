package entities

import (
	"time"

	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

// ProfileMode selects which shape an ActorProfile carries.
type ProfileMode int

const (
	ProfileModeNormal        ProfileMode = 1
	ProfileModeMain          ProfileMode = 2
	ProfileModeMissingPerson ProfileMode = 3
)

func (m ProfileMode) Valid() bool {
	return m == ProfileModeNormal || m == ProfileModeMain || m == ProfileModeMissingPerson
}

type ActorProfile struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	ActorID           uint        `gorm:"column:actor_id;not null;index" json:"actor_id"`
	Mode              ProfileMode `gorm:"column:mode;not null;default:1;check:actor_profile_mode,mode IN (1,2,3)" json:"mode"`
	Description       string      `gorm:"column:description" json:"description"`
	SourceLink        string      `gorm:"column:source_link" json:"source_link"`
	PublishDate       *time.Time  `gorm:"column:publish_date" json:"publish_date,omitempty"`
	DocumentationDate *time.Time  `gorm:"column:documentation_date" json:"documentation_date,omitempty"`

	Sources   []vocab.Source `gorm:"many2many:actor_profile_sources;joinForeignKey:ActorProfileID;joinReferences:SourceID" json:"sources"`
	Labels    []vocab.Label  `gorm:"many2many:actor_profile_labels;joinForeignKey:ActorProfileID;joinReferences:LabelID" json:"labels"`
	VerLabels []vocab.Label  `gorm:"many2many:actor_profile_verlabels;joinForeignKey:ActorProfileID;joinReferences:LabelID" json:"ver_labels"`

	MissingPerson MissingPersonDetails `gorm:"embedded;embeddedPrefix:mp_" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ActorProfile) TableName() string { return "actor_profile" }
