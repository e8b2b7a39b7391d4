package user

import "time"

// System role names. Every other role is an access group.
const (
	RoleAdmin     = "Admin"
	RoleModerator = "Moderator"
	RoleDA        = "DA"
)

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Color       string    `gorm:"column:color" json:"color,omitempty"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Role) TableName() string { return "role" }

// IsSystem reports whether r is one of the built-in permission roles.
func (r Role) IsSystem() bool {
	switch r.Name {
	case RoleAdmin, RoleModerator, RoleDA:
		return true
	}
	return false
}
