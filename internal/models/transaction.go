// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Transaction struct {
	BaseModel
	TxnCode       string            `json:"txn_code" gorm:"size:20;uniqueIndex;not null"`
	Type          TransactionType   `json:"type" gorm:"type:varchar(20);not null;index"`
	Amount        float64           `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency      string            `json:"currency" gorm:"size:10;default:'CNY'"`
	PayerID       *uuid.UUID        `json:"payer_id" gorm:"type:uuid;index"`
	LicenseID     *uuid.UUID        `json:"license_id" gorm:"type:uuid;index"`
	Status        TransactionStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaymentMethod string            `json:"payment_method,omitempty" gorm:"size:50"`
	PaymentRef    string            `json:"payment_ref,omitempty" gorm:"size:255"`
	PaidAt        *time.Time        `json:"paid_at"`
	RefundedAt    *time.Time        `json:"refunded_at"`
	RefundReason  string            `json:"refund_reason,omitempty" gorm:"type:text"`
	Description   string            `json:"description,omitempty" gorm:"type:text"`

	// Relationships
	Payer   *User    `json:"payer,omitempty" gorm:"foreignKey:PayerID"`
	License *License `json:"license,omitempty" gorm:"foreignKey:LicenseID"`
}
