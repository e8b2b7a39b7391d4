package activity

import (
	"time"

	"gorm.io/datatypes"
)

type Action string

const (
	ActionView       Action = "VIEW"
	ActionUpdate     Action = "UPDATE"
	ActionDelete     Action = "DELETE"
	ActionCreate     Action = "CREATE"
	ActionReview     Action = "REVIEW"
	ActionUpload     Action = "UPLOAD"
	ActionBulk       Action = "BULK"
	ActionRequest    Action = "REQUEST"
	ActionApprove    Action = "APPROVE"
	ActionReject     Action = "REJECT"
	ActionDownload   Action = "DOWNLOAD"
	ActionSearch     Action = "SEARCH"
	ActionSelfAssign Action = "SELF-ASSIGN"
	ActionLogin      Action = "LOGIN"
	ActionLogout     Action = "LOGOUT"
)

var Actions = []Action{
	ActionView, ActionUpdate, ActionDelete, ActionCreate, ActionReview, ActionUpload, ActionBulk,
	ActionRequest, ActionApprove, ActionReject, ActionDownload, ActionSearch, ActionSelfAssign,
	ActionLogin, ActionLogout,
}

func (a Action) Valid() bool {
	for _, v := range Actions {
		if v == a {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusDenied  Status = "DENIED"
)

type Activity struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"column:user_id;not null;index" json:"user_id"`
	Action    Action         `gorm:"column:action;not null;index" json:"action"`
	Status    Status         `gorm:"column:status;not null;index" json:"status"`
	Model     string         `gorm:"column:model;index" json:"model"`
	Subject   datatypes.JSON `gorm:"column:subject" json:"subject"`
	Details   string         `gorm:"column:details" json:"details,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (Activity) TableName() string { return "activity" }
