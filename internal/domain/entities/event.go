package entities

import (
	"time"

	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

type Event struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Title       string           `gorm:"column:title" json:"title"`
	TitleAr     string           `gorm:"column:title_ar" json:"title_ar"`
	Comments    string           `gorm:"column:comments" json:"comments"`
	CommentsAr  string           `gorm:"column:comments_ar" json:"comments_ar"`
	LocationID  *uint            `gorm:"column:location_id;index" json:"location_id,omitempty"`
	Location    *vocab.Location  `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	EventTypeID *uint            `gorm:"column:eventtype_id;index" json:"eventtype_id,omitempty"`
	EventType   *vocab.EventType `gorm:"foreignKey:EventTypeID" json:"eventtype,omitempty"`
	FromDate    *time.Time       `gorm:"column:from_date;index" json:"from_date,omitempty"`
	ToDate      *time.Time       `gorm:"column:to_date;index" json:"to_date,omitempty"`
	Estimated   bool             `gorm:"column:estimated;not null;default:false" json:"estimated"`
	CreatedAt   time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null" json:"updated_at"`
}

func (Event) TableName() string { return "event" }

type GeoLocation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BulletinID uint      `gorm:"column:bulletin_id;not null;index" json:"bulletin_id"`
	Title      string    `gorm:"column:title" json:"title"`
	TypeID     *uint     `gorm:"column:type_id" json:"type_id,omitempty"`
	Main       bool      `gorm:"column:main;not null;default:false" json:"main"`
	Latitude   float64   `gorm:"column:latitude;not null" json:"lat"`
	Longitude  float64   `gorm:"column:longitude;not null" json:"lng"`
	Comment    string    `gorm:"column:comment" json:"comment"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (GeoLocation) TableName() string { return "geo_location" }

// MediaRemovedComment is written on non-main media dropped by an update.
const MediaRemovedComment = "Removed by system on update"

type Media struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BulletinID *uint     `gorm:"column:bulletin_id;index" json:"bulletin_id,omitempty"`
	Title      string    `gorm:"column:title" json:"title"`
	TitleAr    string    `gorm:"column:title_ar" json:"title_ar"`
	Filename   string    `gorm:"column:media_file;not null" json:"filename"`
	FileType   string    `gorm:"column:media_file_type" json:"filetype"`
	Etag       string    `gorm:"column:etag;index" json:"etag"`
	Main       bool      `gorm:"column:main;not null;default:false" json:"main"`
	Deleted    bool      `gorm:"column:deleted;not null;default:false;index" json:"deleted"`
	Comments   string    `gorm:"column:comments" json:"comments"`
	UserID     *uint     `gorm:"column:user_id" json:"user_id,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Media) TableName() string { return "media" }
