package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an application account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	UserName       string         `gorm:"size:256;uniqueIndex;not null" json:"user_name"`
	Email          string         `gorm:"size:256;uniqueIndex;not null" json:"email"`
	DisplayName    string         `gorm:"size:256;not null" json:"display_name"`
	PasswordHash   string         `gorm:"size:255;not null" json:"-"`
	Image          *string        `gorm:"size:512" json:"image"`
	Bio            string         `gorm:"type:text" json:"bio"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	UserActivities []UserActivity `gorm:"foreignKey:AppUserID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a random identifier to new users.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
