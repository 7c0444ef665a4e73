// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type SystemRole string

const (
	RoleVolunteer SystemRole = "VOLUNTEER"
	RoleLawyer    SystemRole = "LAWYER"
	RoleMerchant  SystemRole = "MERCHANT"
	RoleAdmin     SystemRole = "ADMIN"
)

type AssetType string

const (
	AssetTypeImage AssetType = "image"
	AssetTypeText  AssetType = "text"
	AssetTypePDF   AssetType = "pdf"
	AssetType3D    AssetType = "3d_model"
)

type AssetWorkflowStatus string

const (
	StatusRaw          AssetWorkflowStatus = "RAW"
	StatusEnhanced     AssetWorkflowStatus = "ENHANCED"
	StatusThreeDGen    AssetWorkflowStatus = "THREE_D_GEN"
	StatusThreeDDone   AssetWorkflowStatus = "THREE_D_DONE"
	StatusAlgorithmic  AssetWorkflowStatus = "ALGORITHMIC"
	StatusLegalLocked  AssetWorkflowStatus = "LEGAL_LOCKED"
	StatusContracted   AssetWorkflowStatus = "CONTRACTED"
	StatusDistributing AssetWorkflowStatus = "DISTRIBUTING"
	StatusFrozen       AssetWorkflowStatus = "FROZEN"
	StatusArchived     AssetWorkflowStatus = "ARCHIVED"
)

type CopyrightOwner string

const (
	CopyrightOwnerCreator CopyrightOwner = "CREATOR"
	CopyrightOwnerWelfare CopyrightOwner = "WELFARE_ACCOUNT"
)

type LicenseType string

const (
	LicenseTypeStandard  LicenseType = "STANDARD"
	LicenseTypeExclusive LicenseType = "EXCLUSIVE"
	LicenseTypeCoBrand   LicenseType = "CO_BRAND"
)

type LicenseStatus string

const (
	LicenseStatusDraft      LicenseStatus = "DRAFT"
	LicenseStatusPending    LicenseStatus = "PENDING"
	LicenseStatusActive     LicenseStatus = "ACTIVE"
	LicenseStatusFrozen     LicenseStatus = "FROZEN"
	LicenseStatusExpired    LicenseStatus = "EXPIRED"
	LicenseStatusTerminated LicenseStatus = "TERMINATED"
)

type TransactionType string

const (
	TransactionTypeLicenseFee TransactionType = "LICENSE_FEE"
	TransactionTypeRoyalty    TransactionType = "ROYALTY"
	TransactionTypeOther      TransactionType = "OTHER"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
)

type NotificationType string

const (
	NotificationTypeSystem      NotificationType = "SYSTEM"
	NotificationTypeWorkflow    NotificationType = "WORKFLOW"
	NotificationTypeLicense     NotificationType = "LICENSE"
	NotificationTypeTransaction NotificationType = "TRANSACTION"
)

type NotificationStatus string

const (
	NotificationStatusUnread   NotificationStatus = "UNREAD"
	NotificationStatusRead     NotificationStatus = "READ"
	NotificationStatusArchived NotificationStatus = "ARCHIVED"
)
