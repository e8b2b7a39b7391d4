package vocab

import "time"

// RelationInfo rows name the kinds an edge can carry. ReverseTitle is only
// used by symmetric edges, where the label depends on which endpoint renders it.
type RelationInfo struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Title          string    `gorm:"column:title;not null" json:"title"`
	TitleTr        string    `gorm:"column:title_tr" json:"title_tr"`
	ReverseTitle   string    `gorm:"column:reverse_title" json:"reverse_title,omitempty"`
	ReverseTitleTr string    `gorm:"column:reverse_title_tr" json:"reverse_title_tr,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

type AtoaInfo struct{ RelationInfo }

func (AtoaInfo) TableName() string { return "atoa_info" }

type AtobInfo struct{ RelationInfo }

func (AtobInfo) TableName() string { return "atob_info" }

type BtobInfo struct{ RelationInfo }

func (BtobInfo) TableName() string { return "btob_info" }

type ItoaInfo struct{ RelationInfo }

func (ItoaInfo) TableName() string { return "itoa_info" }

type ItobInfo struct{ RelationInfo }

func (ItobInfo) TableName() string { return "itob_info" }

type ItoiInfo struct{ RelationInfo }

func (ItoiInfo) TableName() string { return "itoi_info" }

// Compact is the {id,title} reference embedded in entity payloads.
type Compact struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	TitleAr string `json:"title_ar,omitempty"`
}
