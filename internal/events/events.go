package events

import (
	"context"
	"time"
)

// Activity event types.
const (
	ActivityCreated    = "activity.created"
	ActivityUpdated    = "activity.updated"
	ActivityDeleted    = "activity.deleted"
	ActivityAttended   = "activity.attended"
	ActivityUnattended = "activity.unattended"
)

// ActivityEvent describes a change to an activity or its attendance.
type ActivityEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ActivityID string    `json:"activityId"`
	UserName   string    `json:"username"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers activity events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event ActivityEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ActivityEvent) error {
	return nil
}
