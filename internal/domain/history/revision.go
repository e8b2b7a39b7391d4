package history

import (
	"time"

	"gorm.io/datatypes"
)

// Revision is an immutable snapshot of an entity at a save boundary. One table
// serves every versioned kind.
type Revision struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	EntityKind string         `gorm:"column:entity_kind;not null;index:idx_revision_entity,priority:1" json:"entity_kind"`
	EntityID   uint           `gorm:"column:entity_id;not null;index:idx_revision_entity,priority:2" json:"entity_id"`
	Data       datatypes.JSON `gorm:"column:data;type:jsonb;not null" json:"data"`
	UserID     *uint          `gorm:"column:user_id;index" json:"user_id,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;index:idx_revision_entity,priority:3" json:"created_at"`
}

func (Revision) TableName() string { return "revision" }
