package vocab

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Location types.
const (
	LocationTypeAdministrative = "Administrative Location"
	LocationTypePOI            = "Point of Interest"
)

type LocationAdminLevel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      int       `gorm:"column:code;not null;uniqueIndex" json:"code"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LocationAdminLevel) TableName() string { return "location_admin_level" }

type LocationType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null;uniqueIndex" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (LocationType) TableName() string { return "location_type" }

type Location struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	Title          string              `gorm:"column:title;not null" json:"title"`
	TitleAr        string              `gorm:"column:title_ar" json:"title_ar"`
	Description    string              `gorm:"column:description" json:"description"`
	ParentID       *uint               `gorm:"column:parent_id;index" json:"parent_id,omitempty"`
	Parent         *Location           `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	CountryID      *uint               `gorm:"column:country_id;index" json:"country_id,omitempty"`
	Country        *Country            `gorm:"foreignKey:CountryID" json:"country,omitempty"`
	AdminLevelID   *uint               `gorm:"column:admin_level_id;index" json:"admin_level_id,omitempty"`
	AdminLevel     *LocationAdminLevel `gorm:"foreignKey:AdminLevelID" json:"admin_level,omitempty"`
	LocationTypeID *uint               `gorm:"column:location_type_id;index" json:"location_type_id,omitempty"`
	LocationType   *LocationType       `gorm:"foreignKey:LocationTypeID" json:"location_type,omitempty"`
	Latitude       *float64            `gorm:"column:latitude" json:"lat,omitempty"`
	Longitude      *float64            `gorm:"column:longitude" json:"lng,omitempty"`
	PostalCode     string              `gorm:"column:postal_code" json:"postal_code"`
	Tags           pq.StringArray      `gorm:"column:tags;type:text[]" json:"tags"`
	FullLocation   string              `gorm:"column:full_location" json:"full_location"`
	IDTree         string              `gorm:"column:id_tree;index" json:"id_tree"`
	CreatedAt      time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"not null" json:"updated_at"`
}

func (Location) TableName() string { return "location" }

func (l *Location) GetID() uint        { return l.ID }
func (l *Location) GetParentID() *uint { return l.ParentID }

// IsAdministrative reports whether the admin level is meaningful for l.
func (l *Location) IsAdministrative() bool {
	return l.LocationType != nil && l.LocationType.Title == LocationTypeAdministrative
}

// IDTreeToken is the fragment of id_tree that identifies id.
func IDTreeToken(id uint) string { return fmt.Sprintf("[%d]", id) }

// BuildIDTree renders ancestors (root first) followed by self.
func BuildIDTree(chain []uint) string {
	parts := make([]string, 0, len(chain))
	for _, id := range chain {
		parts = append(parts, IDTreeToken(id))
	}
	return strings.Join(parts, ".")
}

// FullString renders chain (root first, self last) for display.
// Only administrative levels whose code is at most the leaf's code are kept,
// which truncates the walk at the leaf's depth. With descending the leaf comes
// first.
func FullString(chain []*Location, descending, includePostal bool) string {
	if len(chain) == 0 {
		return ""
	}
	leaf := chain[len(chain)-1]
	maxCode := -1
	if leaf.AdminLevel != nil && leaf.IsAdministrative() {
		maxCode = leaf.AdminLevel.Code
	}

	var parts []string
	for _, loc := range chain {
		if loc != leaf && maxCode >= 0 && loc.AdminLevel != nil && loc.AdminLevel.Code > maxCode {
			continue
		}
		title := loc.Title
		if loc == leaf && includePostal && strings.TrimSpace(loc.PostalCode) != "" {
			title = title + " " + strings.TrimSpace(loc.PostalCode)
		}
		parts = append(parts, title)
	}
	if descending {
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
	}
	return strings.Join(parts, ", ")
}
