package relations

import (
	"time"

	"github.com/lib/pq"
)

// Symmetric edges store the unordered pair with the lower id first. The check
// constraint plus the composite primary key leave at most one row per pair
// and no self-edges.

type Atoa struct {
	ActorID        uint      `gorm:"column:actor_id;primaryKey;autoIncrement:false;check:atoa_canonical,actor_id < related_actor_id" json:"actor_id"`
	RelatedActorID uint      `gorm:"column:related_actor_id;primaryKey;autoIncrement:false;index" json:"related_actor_id"`
	RelatedAs      *int64    `gorm:"column:related_as" json:"related_as,omitempty"`
	Probability    *int      `gorm:"column:probability" json:"probability,omitempty"`
	Comment        string    `gorm:"column:comment" json:"comment"`
	UserID         *uint     `gorm:"column:user_id" json:"user_id,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Atoa) TableName() string { return "atoa" }

type Btob struct {
	BulletinID        uint          `gorm:"column:bulletin_id;primaryKey;autoIncrement:false;check:btob_canonical,bulletin_id < related_bulletin_id" json:"bulletin_id"`
	RelatedBulletinID uint          `gorm:"column:related_bulletin_id;primaryKey;autoIncrement:false;index" json:"related_bulletin_id"`
	RelatedAs         pq.Int64Array `gorm:"column:related_as;type:integer[]" json:"related_as"`
	Probability       *int          `gorm:"column:probability" json:"probability,omitempty"`
	Comment           string        `gorm:"column:comment" json:"comment"`
	UserID            *uint         `gorm:"column:user_id" json:"user_id,omitempty"`
	CreatedAt         time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null" json:"updated_at"`
}

func (Btob) TableName() string { return "btob" }

type Itoi struct {
	IncidentID        uint      `gorm:"column:incident_id;primaryKey;autoIncrement:false;check:itoi_canonical,incident_id < related_incident_id" json:"incident_id"`
	RelatedIncidentID uint      `gorm:"column:related_incident_id;primaryKey;autoIncrement:false;index" json:"related_incident_id"`
	RelatedAs         *int64    `gorm:"column:related_as" json:"related_as,omitempty"`
	Probability       *int      `gorm:"column:probability" json:"probability,omitempty"`
	Comment           string    `gorm:"column:comment" json:"comment"`
	UserID            *uint     `gorm:"column:user_id" json:"user_id,omitempty"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}

func (Itoi) TableName() string { return "itoi" }

// Directed edges key on the literal (source, target) pair.

type Atob struct {
	ActorID     uint          `gorm:"column:actor_id;primaryKey;autoIncrement:false" json:"actor_id"`
	BulletinID  uint          `gorm:"column:bulletin_id;primaryKey;autoIncrement:false;index" json:"bulletin_id"`
	RelatedAs   pq.Int64Array `gorm:"column:related_as;type:integer[]" json:"related_as"`
	Probability *int          `gorm:"column:probability" json:"probability,omitempty"`
	Comment     string        `gorm:"column:comment" json:"comment"`
	UserID      *uint         `gorm:"column:user_id" json:"user_id,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (Atob) TableName() string { return "atob" }

type Itob struct {
	IncidentID  uint          `gorm:"column:incident_id;primaryKey;autoIncrement:false" json:"incident_id"`
	BulletinID  uint          `gorm:"column:bulletin_id;primaryKey;autoIncrement:false;index" json:"bulletin_id"`
	RelatedAs   pq.Int64Array `gorm:"column:related_as;type:integer[]" json:"related_as"`
	Probability *int          `gorm:"column:probability" json:"probability,omitempty"`
	Comment     string        `gorm:"column:comment" json:"comment"`
	UserID      *uint         `gorm:"column:user_id" json:"user_id,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (Itob) TableName() string { return "itob" }

type Itoa struct {
	IncidentID  uint          `gorm:"column:incident_id;primaryKey;autoIncrement:false" json:"incident_id"`
	ActorID     uint          `gorm:"column:actor_id;primaryKey;autoIncrement:false;index" json:"actor_id"`
	RelatedAs   pq.Int64Array `gorm:"column:related_as;type:integer[]" json:"related_as"`
	Probability *int          `gorm:"column:probability" json:"probability,omitempty"`
	Comment     string        `gorm:"column:comment" json:"comment"`
	UserID      *uint         `gorm:"column:user_id" json:"user_id,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (Itoa) TableName() string { return "itoa" }
