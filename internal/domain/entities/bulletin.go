package entities

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/yungbote/casefile-backend/internal/domain/user"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

type Bulletin struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Title             string         `gorm:"column:title;not null" json:"title"`
	TitleAr           string         `gorm:"column:title_ar" json:"title_ar"`
	SjacTitle         string         `gorm:"column:sjac_title" json:"sjac_title"`
	SjacTitleAr       string         `gorm:"column:sjac_title_ar" json:"sjac_title_ar"`
	Description       string         `gorm:"column:description" json:"description"`
	SourceLink        string         `gorm:"column:source_link" json:"source_link"`
	PublishDate       *time.Time     `gorm:"column:publish_date;index" json:"publish_date,omitempty"`
	DocumentationDate *time.Time     `gorm:"column:documentation_date;index" json:"documentation_date,omitempty"`
	Tags              pq.StringArray `gorm:"column:tags;type:text[]" json:"tags"`
	Meta              datatypes.JSON `gorm:"column:meta;type:jsonb" json:"meta,omitempty"`
	Comments          string         `gorm:"column:comments" json:"comments"`

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

	Sources   []vocab.Source   `gorm:"many2many:bulletin_sources;joinForeignKey:BulletinID;joinReferences:SourceID" json:"sources"`
	Locations []vocab.Location `gorm:"many2many:bulletin_locations;joinForeignKey:BulletinID;joinReferences:LocationID" json:"locations"`
	Labels    []vocab.Label    `gorm:"many2many:bulletin_labels;joinForeignKey:BulletinID;joinReferences:LabelID" json:"labels"`
	VerLabels []vocab.Label    `gorm:"many2many:bulletin_verlabels;joinForeignKey:BulletinID;joinReferences:LabelID" json:"verLabels"`
	Events    []Event          `gorm:"many2many:bulletin_events;joinForeignKey:BulletinID;joinReferences:EventID" json:"events"`
	Roles     []user.Role      `gorm:"many2many:bulletin_roles;joinForeignKey:BulletinID;joinReferences:RoleID" json:"roles"`

	GeoLocations []GeoLocation `gorm:"foreignKey:BulletinID" json:"geoLocations"`
	Medias       []Media       `gorm:"foreignKey:BulletinID" json:"medias"`

	// Search is maintained by a database trigger.
	Search string `gorm:"column:search;->" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Bulletin) TableName() string { return "bulletin" }

func (b *Bulletin) EntityKind() Kind { return KindBulletin }
func (b *Bulletin) GetID() uint      { return b.ID }

func (b *Bulletin) AccessControl() Control {
	return Control{
		ID:                   b.ID,
		RoleIDs:              roleIDs(b.Roles),
		OwnerID:              b.UserID,
		AssignedToID:         b.AssignedToID,
		FirstPeerReviewerID:  b.FirstPeerReviewerID,
		SecondPeerReviewerID: b.SecondPeerReviewerID,
	}
}

func (b *Bulletin) Subject() map[string]any {
	return map[string]any{"class": string(KindBulletin), "id": b.ID, "title": b.Title}
}

func roleIDs(roles []user.Role) []uint {
	out := make([]uint, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.ID)
	}
	return out
}
