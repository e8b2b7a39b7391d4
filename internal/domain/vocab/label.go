package vocab

import "time"

type Label struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	TitleAr     string    `gorm:"column:title_ar" json:"title_ar"`
	Comments    string    `gorm:"column:comments" json:"comments"`
	CommentsAr  string    `gorm:"column:comments_ar" json:"comments_ar"`
	Order       int       `gorm:"column:order;not null;default:0" json:"order"`
	Verified    bool      `gorm:"column:verified;not null;default:false;index" json:"verified"`
	ForActor    bool      `gorm:"column:for_actor;not null;default:false" json:"for_actor"`
	ForBulletin bool      `gorm:"column:for_bulletin;not null;default:false" json:"for_bulletin"`
	ForIncident bool      `gorm:"column:for_incident;not null;default:false" json:"for_incident"`
	ForOffline  bool      `gorm:"column:for_offline;not null;default:false" json:"for_offline"`
	ParentID    *uint     `gorm:"column:parent_label_id;index" json:"parent_id,omitempty"`
	Parent      *Label    `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Label) TableName() string { return "label" }

func (l *Label) GetID() uint        { return l.ID }
func (l *Label) GetParentID() *uint { return l.ParentID }
