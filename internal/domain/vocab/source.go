package vocab

import "time"

type Source struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"column:title;not null" json:"title"`
	TitleAr    string    `gorm:"column:title_ar" json:"title_ar"`
	Comments   string    `gorm:"column:comments" json:"comments"`
	CommentsAr string    `gorm:"column:comments_ar" json:"comments_ar"`
	ParentID   *uint     `gorm:"column:parent_id;index" json:"parent_id,omitempty"`
	Parent     *Source   `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Source) TableName() string { return "source" }

func (s *Source) GetID() uint        { return s.ID }
func (s *Source) GetParentID() *uint { return s.ParentID }
