package dto

import "github.com/noah-isme/activities-api/internal/models"

// RegisterRequest is the payload accepted by the registration endpoint.
type RegisterRequest struct {
	DisplayName string `json:"displayName" validate:"required"`
	UserName    string `json:"userName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"password"`
}

// LoginRequest is the payload accepted by the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the view model returned for an authenticated user.
type UserResponse struct {
	DisplayName string  `json:"displayName"`
	Username    string  `json:"username"`
	Token       string  `json:"token"`
	Image       *string `json:"image"`
}

// NewUserResponse builds the view model for user carrying token.
func NewUserResponse(user models.User, token string) UserResponse {
	return UserResponse{
		DisplayName: user.DisplayName,
		Username:    user.UserName,
		Token:       token,
		Image:       user.Image,
	}
}

// PhotoResponse reports a stored profile photo.
type PhotoResponse struct {
	URL       string `json:"url"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}
