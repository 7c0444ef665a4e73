// internal/models/ip_asset.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type IPAsset struct {
	BaseModel
	Title          string              `json:"title" gorm:"size:255;not null"`
	Description    string              `json:"description" gorm:"type:text"`
	Type           AssetType           `json:"type" gorm:"type:varchar(20);not null;default:'image';index"`
	Status         AssetWorkflowStatus `json:"status" gorm:"type:varchar(20);not null;default:'RAW';index"`
	CreatorID      uuid.UUID           `json:"creator_id" gorm:"type:uuid;not null;index"`
	LegalAuditorID *uuid.UUID          `json:"legal_auditor_id" gorm:"type:uuid"`
	OriginalURL    string              `json:"original_url" gorm:"size:500"`
	EnhancedURL    string              `json:"enhanced_url,omitempty" gorm:"size:500"`
	ThreeDModelURL string              `json:"three_d_model_url,omitempty" gorm:"size:500"`
	EmotionTags    pq.StringArray      `json:"emotion_tags,omitempty" gorm:"type:text[]"`
	ArtStory       string              `json:"art_story,omitempty" gorm:"type:text"`
	DCICode        string              `json:"dci_code,omitempty" gorm:"size:100"`
	CopyrightOwner CopyrightOwner      `json:"copyright_owner" gorm:"type:varchar(20);default:'CREATOR'"`
	Metadata       JSONB               `json:"metadata,omitempty" gorm:"type:jsonb"`
	LegalLockedAt  *time.Time          `json:"legal_locked_at"`

	// Relationships
	Creator      User      `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	LegalAuditor *User     `json:"legal_auditor,omitempty" gorm:"foreignKey:LegalAuditorID"`
	Licenses     []License `json:"licenses,omitempty" gorm:"foreignKey:AssetID"`
}
