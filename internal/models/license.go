// internal/models/license.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type License struct {
	BaseModel
	LicenseCode       string        `json:"license_code" gorm:"size:20;uniqueIndex;not null"`
	AssetID           uuid.UUID     `json:"asset_id" gorm:"type:uuid;not null;index"`
	LicensorID        uuid.UUID     `json:"licensor_id" gorm:"type:uuid;not null;index"`
	LicenseeName      string        `json:"licensee_name" gorm:"size:255;not null"`
	LicenseeContact   string        `json:"licensee_contact,omitempty" gorm:"size:100"`
	LicenseeEmail     string        `json:"licensee_email,omitempty" gorm:"size:255"`
	LicenseType       LicenseType   `json:"license_type" gorm:"type:varchar(20);not null"`
	EntryFee          float64       `json:"entry_fee" gorm:"type:decimal(12,2);default:0"`
	RoyaltyRate       float64       `json:"royalty_rate" gorm:"type:decimal(5,2);default:0"`
	MinGuarantee      float64       `json:"min_guarantee" gorm:"type:decimal(12,2);default:0"`
	Territory         string        `json:"territory,omitempty" gorm:"size:100"`
	UsageField        string        `json:"usage_field,omitempty" gorm:"size:255"`
	UsageLimit        int           `json:"usage_limit" gorm:"default:0"`
	EffectiveDate     *time.Time    `json:"effective_date"`
	ExpiryDate        *time.Time    `json:"expiry_date"`
	Status            LicenseStatus `json:"status" gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ContractURL       string        `json:"contract_url,omitempty" gorm:"size:500"`
	IsFrozen          bool          `json:"is_frozen" gorm:"default:false"`
	FrozenAt          *time.Time    `json:"frozen_at"`
	FrozenReason      string        `json:"frozen_reason,omitempty" gorm:"type:text"`
	TerminationReason string        `json:"termination_reason,omitempty" gorm:"type:text"`
	SignedAt          *time.Time    `json:"signed_at"`

	// Relationships
	Asset        IPAsset       `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
	Licensor     User          `json:"licensor,omitempty" gorm:"foreignKey:LicensorID"`
	Transactions []Transaction `json:"transactions,omitempty" gorm:"foreignKey:LicenseID"`
}
