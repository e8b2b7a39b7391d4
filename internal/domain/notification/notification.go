package notification

import "time"

// Categories.
const (
	CategoryUpdate       = "Update"
	CategoryAnnouncement = "Announcement"
	CategorySecurity     = "Security"
)

type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"column:user_id;not null;index" json:"user_id"`
	Title     string     `gorm:"column:title;not null" json:"title"`
	Message   string     `gorm:"column:message" json:"message"`
	Category  string     `gorm:"column:category;not null;default:'Update'" json:"category"`
	Read      bool       `gorm:"column:read_status;not null;default:false;index" json:"read"`
	ReadAt    *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;index" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
