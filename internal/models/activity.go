package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity is an event that users can host and attend.
type Activity struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	Title          string         `gorm:"size:255;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Category       string         `gorm:"size:64;index" json:"category"`
	Date           time.Time      `gorm:"index" json:"date"`
	City           string         `gorm:"size:128" json:"city"`
	Venue          string         `gorm:"size:255" json:"venue"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	UserActivities []UserActivity `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a random identifier to new activities.
func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Host returns the attendee flagged as host, if any.
func (a Activity) Host() *UserActivity {
	for i := range a.UserActivities {
		if a.UserActivities[i].IsHost {
			return &a.UserActivities[i]
		}
	}
	return nil
}

// UserActivity records that a user attends an activity. The pair is unique.
type UserActivity struct {
	AppUserID  string    `gorm:"primaryKey;size:36;column:app_user_id" json:"app_user_id"`
	ActivityID string    `gorm:"primaryKey;size:36" json:"activity_id"`
	DateJoined time.Time `json:"date_joined"`
	IsHost     bool      `gorm:"not null;default:false" json:"is_host"`
	AppUser    *User     `gorm:"foreignKey:AppUserID" json:"-"`
	Activity   *Activity `gorm:"foreignKey:ActivityID" json:"-"`
}
