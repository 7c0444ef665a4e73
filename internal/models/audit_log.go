// internal/models/audit_log.go
package models

import (
	"github.com/google/uuid"
)

// AuditLog is append-only: rows are written once per successful workflow
// transition and never updated afterwards.
type AuditLog struct {
	BaseModel
	AssetID   uuid.UUID  `json:"asset_id" gorm:"type:uuid;not null;index"`
	Action    string     `json:"action" gorm:"size:50;not null;index"`
	ActorID   uuid.UUID  `json:"actor_id" gorm:"type:uuid;not null;index"`
	ActorRole SystemRole `json:"actor_role" gorm:"type:varchar(20);not null"`
	OldValue  string     `json:"old_value" gorm:"size:50"`
	NewValue  string     `json:"new_value" gorm:"size:50"`
	Reason    string     `json:"reason,omitempty" gorm:"type:text"`

	// Relationships
	Asset IPAsset `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
	Actor User    `json:"actor,omitempty" gorm:"foreignKey:ActorID"`
}

const ActionStatusTransition = "STATUS_TRANSITION"
