package dto

import (
	"time"

	"github.com/noah-isme/activities-api/internal/models"
)

// ActivityCreateRequest defines the payload for creating an activity.
type ActivityCreateRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description" validate:"required,max=4000"`
	Category    string     `json:"category" validate:"required,max=64"`
	Date        *time.Time `json:"date" validate:"required"`
	City        string     `json:"city" validate:"required,max=128"`
	Venue       string     `json:"venue" validate:"required,max=255"`
}

// ActivityUpdateRequest captures a partial activity update.
type ActivityUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description" validate:"omitempty,min=1,max=4000"`
	Category    *string    `json:"category" validate:"omitempty,min=1,max=64"`
	Date        *time.Time `json:"date"`
	City        *string    `json:"city" validate:"omitempty,min=1,max=128"`
	Venue       *string    `json:"venue" validate:"omitempty,min=1,max=255"`
}

// ActivityListRequest describes list filters.
type ActivityListRequest struct {
	Page     int
	PageSize int
	Category string
}

// AttendeeResponse describes a user attending an activity.
type AttendeeResponse struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	Image       *string `json:"image"`
	IsHost      bool    `json:"isHost"`
}

// ActivityResponse is the activity view model.
type ActivityResponse struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	Date         time.Time          `json:"date"`
	City         string             `json:"city"`
	Venue        string             `json:"venue"`
	HostUsername string             `json:"hostUsername"`
	Attendees    []AttendeeResponse `json:"attendees"`
}

// ActivityListResponse wraps a page of activities.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
	CacheHit   bool               `json:"cacheHit"`
}

// NewActivityResponse maps an activity with its preloaded attendees.
func NewActivityResponse(activity models.Activity) ActivityResponse {
	response := ActivityResponse{
		ID:          activity.ID,
		Title:       activity.Title,
		Description: activity.Description,
		Category:    activity.Category,
		Date:        activity.Date,
		City:        activity.City,
		Venue:       activity.Venue,
		Attendees:   make([]AttendeeResponse, 0, len(activity.UserActivities)),
	}

	for _, attendance := range activity.UserActivities {
		attendee := AttendeeResponse{IsHost: attendance.IsHost}
		if attendance.AppUser != nil {
			attendee.Username = attendance.AppUser.UserName
			attendee.DisplayName = attendance.AppUser.DisplayName
			attendee.Image = attendance.AppUser.Image
		}
		if attendance.IsHost {
			response.HostUsername = attendee.Username
		}
		response.Attendees = append(response.Attendees, attendee)
	}

	return response
}
