package dto

import "github.com/noah-isme/activities-api/internal/models"

// ValueResponse exposes a reference value.
type ValueResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NewValueResponse maps a value model.
func NewValueResponse(value models.Value) ValueResponse {
	return ValueResponse{ID: value.ID, Name: value.Name}
}
