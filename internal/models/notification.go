// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	BaseModel
	UserID      uuid.UUID          `json:"user_id" gorm:"type:uuid;not null;index"`
	Type        NotificationType   `json:"type" gorm:"type:varchar(20);not null;index"`
	Title       string             `json:"title" gorm:"size:255;not null"`
	Content     string             `json:"content" gorm:"type:text;not null"`
	Status      NotificationStatus `json:"status" gorm:"type:varchar(20);not null;default:'UNREAD';index"`
	RelatedID   *uuid.UUID         `json:"related_id" gorm:"type:uuid"`
	RelatedType string             `json:"related_type,omitempty" gorm:"size:50"`
	ReadAt      *time.Time         `json:"read_at"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
