package user

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Name         string `gorm:"column:name" json:"name"`
	Email        string `gorm:"column:email;index" json:"email,omitempty"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	Active       bool   `gorm:"column:active;not null;default:true" json:"active"`

	Roles []Role `gorm:"many2many:user_roles;joinForeignKey:UserID;joinReferences:RoleID" json:"roles"`

	ViewUsernames     bool `gorm:"column:view_usernames;not null;default:true" json:"view_usernames"`
	ViewSimpleHistory bool `gorm:"column:view_simple_history;not null;default:true" json:"view_simple_history"`
	ViewFullHistory   bool `gorm:"column:view_full_history;not null;default:true" json:"view_full_history"`
	CanSelfAssign     bool `gorm:"column:can_self_assign;not null;default:false" json:"can_self_assign"`
	CanEditLocations  bool `gorm:"column:can_edit_locations;not null;default:false" json:"can_edit_locations"`
	CanExport         bool `gorm:"column:can_export;not null;default:false" json:"can_export"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

func (u *User) HasRole(name string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

func (u *User) RoleIDs() []uint {
	if u == nil {
		return nil
	}
	out := make([]uint, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.ID)
	}
	return out
}

// Compact is the user block embedded in entity payloads.
type Compact struct {
	ID       uint   `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

func (u *User) Compact() *Compact {
	if u == nil {
		return nil
	}
	return &Compact{ID: u.ID, Username: u.Username, Name: u.Name}
}
