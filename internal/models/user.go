// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Nickname     string     `json:"nickname" gorm:"size:50;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Avatar       string     `json:"avatar,omitempty" gorm:"size:500"`
	Role         SystemRole `json:"role" gorm:"type:varchar(20);not null;default:'VOLUNTEER'"`
	IsVerified   bool       `json:"is_verified" gorm:"default:false"`
	LastLoginAt  *time.Time `json:"last_login_at"`

	// Relationships
	CreatedAssets []IPAsset `json:"created_assets,omitempty" gorm:"foreignKey:CreatorID"`
	Licenses      []License `json:"licenses,omitempty" gorm:"foreignKey:LicensorID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
