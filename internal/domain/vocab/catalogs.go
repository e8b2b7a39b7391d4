package vocab

import "time"

type EventType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	TitleAr     string    `gorm:"column:title_ar" json:"title_ar"`
	ForActor    bool      `gorm:"column:for_actor;not null;default:false" json:"for_actor"`
	ForBulletin bool      `gorm:"column:for_bulletin;not null;default:false" json:"for_bulletin"`
	Comments    string    `gorm:"column:comments" json:"comments"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (EventType) TableName() string { return "eventtype" }

type Country struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"column:title;not null;uniqueIndex" json:"title"`
	TitleAr   string    `gorm:"column:title_ar" json:"title_ar"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Country) TableName() string { return "countries" }

type Ethnography struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"column:title;not null;uniqueIndex" json:"title"`
	TitleAr   string    `gorm:"column:title_ar" json:"title_ar"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Ethnography) TableName() string { return "ethnographies" }

type Dialect struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"column:title;not null;uniqueIndex" json:"title"`
	TitleAr   string    `gorm:"column:title_ar" json:"title_ar"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Dialect) TableName() string { return "dialects" }

type PotentialViolation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	TitleAr   string    `gorm:"column:title_ar" json:"title_ar"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PotentialViolation) TableName() string { return "potential_violation" }

type ClaimedViolation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	TitleAr   string    `gorm:"column:title_ar" json:"title_ar"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ClaimedViolation) TableName() string { return "claimed_violation" }
