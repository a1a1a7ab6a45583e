package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activities-api/internal/dto"
	"github.com/noah-isme/activities-api/internal/handler"
	"github.com/noah-isme/activities-api/internal/middleware"
	"github.com/noah-isme/activities-api/internal/service"
)

type mockUserService struct {
	lastRegister    dto.RegisterRequest
	lastLogin       dto.LoginRequest
	lastCurrentUser string
	response        dto.UserResponse
	err             error
}

func (m *mockUserService) Register(_ context.Context, payload dto.RegisterRequest) (dto.UserResponse, error) {
	m.lastRegister = payload
	return m.response, m.err
}

func (m *mockUserService) Login(_ context.Context, payload dto.LoginRequest) (dto.UserResponse, error) {
	m.lastLogin = payload
	return m.response, m.err
}

func (m *mockUserService) CurrentUser(_ context.Context, userName string) (dto.UserResponse, error) {
	m.lastCurrentUser = userName
	return m.response, m.err
}

type mockPhotoService struct {
	lastUserName string
	lastFileName string
	response     dto.PhotoResponse
	err          error
}

func (m *mockPhotoService) UpdatePhoto(_ context.Context, userName string, file *multipart.FileHeader) (dto.PhotoResponse, error) {
	m.lastUserName = userName
	if file != nil {
		m.lastFileName = file.Filename
	}
	return m.response, m.err
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details struct {
		Errors map[string][]string `json:"errors"`
	} `json:"details"`
}

func newUserApp(users service.UserService, photos service.PhotoService) *fiber.App {
	app := fiber.New()
	authenticated := func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		c.Locals(middleware.LocalUserID, "user-1")
		c.Locals(middleware.LocalUserName, "bob")
		return c.Next()
	}
	handler.NewUserHandler(users, photos, zerolog.New(io.Discard)).Register(app.Group("/api/v1/user"), authenticated, nil)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestUserHandler_RegisterSuccess(t *testing.T) {
	svc := &mockUserService{response: dto.UserResponse{DisplayName: "Bob", Username: "bob", Token: "token"}}
	app := newUserApp(svc, nil)

	resp := postJSON(t, app, "/api/v1/user/register", map[string]string{
		"displayName": "Bob",
		"userName":    "bob",
		"email":       "bob@test.com",
		"password":    "Pa$$w0rd",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)

	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(body.Data, &user))
	require.Equal(t, "bob", user.Username)
	require.Equal(t, "token", user.Token)
	require.Nil(t, user.Image)
	require.Equal(t, "bob@test.com", svc.lastRegister.Email)
	require.Equal(t, "Pa$$w0rd", svc.lastRegister.Password)
}

func TestUserHandler_RegisterFieldErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		field   string
		message string
	}{
		{
			name:    "duplicate email",
			err:     &service.FieldError{Field: "Email", Message: "Email already exist"},
			field:   "Email",
			message: "Email already exist",
		},
		{
			name:    "duplicate username",
			err:     &service.FieldError{Field: "UserName", Message: "User Name already exist"},
			field:   "UserName",
			message: "User Name already exist",
		},
		{
			name:    "weak password",
			err:     &service.ValidationError{Fields: map[string][]string{"Password": {"Password must contain a number"}}},
			field:   "Password",
			message: "Password must contain a number",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newUserApp(&mockUserService{err: tc.err}, nil)

			resp := postJSON(t, app, "/api/v1/user/register", map[string]string{"userName": "bob"})
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			var body envelope
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
			require.Contains(t, body.Details.Errors[tc.field], tc.message)
		})
	}
}

func TestUserHandler_RegisterCreationFailure(t *testing.T) {
	app := newUserApp(&mockUserService{err: service.ErrUserCreation}, nil)

	resp := postJSON(t, app, "/api/v1/user/register", map[string]string{"userName": "bob"})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.Equal(t, "Problem creating user", body.Message)
	require.Empty(t, body.Details.Errors)
}

func TestUserHandler_Login(t *testing.T) {
	svc := &mockUserService{response: dto.UserResponse{Username: "bob", Token: "token"}}
	app := newUserApp(svc, nil)

	resp := postJSON(t, app, "/api/v1/user/login", map[string]string{"email": "bob@test.com", "password": "Pa$$w0rd"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "bob@test.com", svc.lastLogin.Email)

	app = newUserApp(&mockUserService{err: service.ErrInvalidCredentials}, nil)
	resp = postJSON(t, app, "/api/v1/user/login", map[string]string{"email": "bob@test.com", "password": "nope"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUserHandler_CurrentUser(t *testing.T) {
	svc := &mockUserService{response: dto.UserResponse{DisplayName: "Bob", Username: "bob", Token: "fresh"}}
	app := newUserApp(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.Header.Set("Authorization", "Bearer token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "bob", svc.lastCurrentUser)

	var body envelope
	decodeResponse(t, resp, &body)
	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(body.Data, &user))
	require.Equal(t, "Bob", user.DisplayName)
	require.NotEmpty(t, user.Token)
}

func TestUserHandler_CurrentUserErrors(t *testing.T) {
	unauthenticated := newUserApp(&mockUserService{}, nil)
	resp, err := unauthenticated.Test(httptest.NewRequest(http.MethodGet, "/api/v1/user", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "missing user", err: service.ErrUserNotFound, statusCode: fiber.StatusUnauthorized},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newUserApp(&mockUserService{err: tc.err}, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
			req.Header.Set("Authorization", "Bearer token")

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestUserHandler_UpdatePhoto(t *testing.T) {
	photos := &mockPhotoService{response: dto.PhotoResponse{URL: "https://cdn.example.com/bob.png", MimeType: "image/png", SizeBytes: 3}}
	app := newUserApp(&mockUserService{}, photos)

	resp := uploadPhoto(t, app, "photo.png")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "bob", photos.lastUserName)
	require.Equal(t, "photo.png", photos.lastFileName)

	var body envelope
	decodeResponse(t, resp, &body)
	var photo dto.PhotoResponse
	require.NoError(t, json.Unmarshal(body.Data, &photo))
	require.Equal(t, photos.response.URL, photo.URL)
}

func TestUserHandler_UpdatePhotoErrors(t *testing.T) {
	cases := []struct {
		name       string
		photos     service.PhotoService
		statusCode int
	}{
		{name: "disabled", photos: nil, statusCode: fiber.StatusServiceUnavailable},
		{name: "too large", photos: &mockPhotoService{err: service.ErrPhotoTooLarge}, statusCode: fiber.StatusRequestEntityTooLarge},
		{name: "type", photos: &mockPhotoService{err: service.ErrPhotoTypeNotAllowed}, statusCode: fiber.StatusBadRequest},
		{name: "generic", photos: &mockPhotoService{err: errors.New("boom")}, statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newUserApp(&mockUserService{}, tc.photos)
			resp := uploadPhoto(t, app, "photo.png")
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func uploadPhoto(t *testing.T, app *fiber.App, name string) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/photo", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
