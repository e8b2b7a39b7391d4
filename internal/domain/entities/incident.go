package entities

import (
	"time"

	"github.com/yungbote/casefile-backend/internal/domain/user"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

type Incident struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"column:title;not null" json:"title"`
	TitleAr     string `gorm:"column:title_ar" json:"title_ar"`
	Description string `gorm:"column:description" json:"description"`
	Comments    string `gorm:"column:comments" json:"comments"`

	Status               string     `gorm:"column:status;index" json:"status"`
	UserID               *uint      `gorm:"column:user_id;index" json:"-"`
	User                 *user.User `gorm:"foreignKey:UserID" json:"-"`
	AssignedToID         *uint      `gorm:"column:assigned_to_id;index" json:"-"`
	AssignedTo           *user.User `gorm:"foreignKey:AssignedToID" json:"-"`
	FirstPeerReviewerID  *uint      `gorm:"column:first_peer_reviewer_id;index" json:"-"`
	FirstPeerReviewer    *user.User `gorm:"foreignKey:FirstPeerReviewerID" json:"-"`
	SecondPeerReviewerID *uint      `gorm:"column:second_peer_reviewer_id;index" json:"-"`
	SecondPeerReviewer   *user.User `gorm:"foreignKey:SecondPeerReviewerID" json:"-"`
	Review               string     `gorm:"column:review" json:"review"`
	ReviewAction         string     `gorm:"column:review_action" json:"review_action"`

	Labels              []vocab.Label              `gorm:"many2many:incident_labels;joinForeignKey:IncidentID;joinReferences:LabelID" json:"labels"`
	Locations           []vocab.Location           `gorm:"many2many:incident_locations;joinForeignKey:IncidentID;joinReferences:LocationID" json:"locations"`
	Events              []Event                    `gorm:"many2many:incident_events;joinForeignKey:IncidentID;joinReferences:EventID" json:"events"`
	PotentialViolations []vocab.PotentialViolation `gorm:"many2many:incident_potential_violations;joinForeignKey:IncidentID;joinReferences:PotentialViolationID" json:"potential_violations"`
	ClaimedViolations   []vocab.ClaimedViolation   `gorm:"many2many:incident_claimed_violations;joinForeignKey:IncidentID;joinReferences:ClaimedViolationID" json:"claimed_violations"`
	Roles               []user.Role                `gorm:"many2many:incident_roles;joinForeignKey:IncidentID;joinReferences:RoleID" json:"roles"`

	Search string `gorm:"column:search;->" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Incident) TableName() string { return "incident" }

func (i *Incident) EntityKind() Kind { return KindIncident }
func (i *Incident) GetID() uint      { return i.ID }

func (i *Incident) AccessControl() Control {
	return Control{
		ID:                   i.ID,
		RoleIDs:              roleIDs(i.Roles),
		OwnerID:              i.UserID,
		AssignedToID:         i.AssignedToID,
		FirstPeerReviewerID:  i.FirstPeerReviewerID,
		SecondPeerReviewerID: i.SecondPeerReviewerID,
	}
}

func (i *Incident) Subject() map[string]any {
	return map[string]any{"class": string(KindIncident), "id": i.ID, "title": i.Title}
}
