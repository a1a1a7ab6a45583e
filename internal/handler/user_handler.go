package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activities-api/internal/dto"
	"github.com/noah-isme/activities-api/internal/middleware"
	"github.com/noah-isme/activities-api/internal/service"
	"github.com/noah-isme/activities-api/internal/utils"
)

// UserHandler exposes registration, login and current-user endpoints.
type UserHandler struct {
	users  service.UserService
	photos service.PhotoService
	logger zerolog.Logger
}

// NewUserHandler constructs a user handler. photos may be nil when uploads are disabled.
func NewUserHandler(users service.UserService, photos service.PhotoService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		photos: photos,
		logger: logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires user routes. authenticated guards identity-bound routes and throttle limits
// the anonymous credential endpoints.
func (h *UserHandler) Register(router fiber.Router, authenticated, throttle fiber.Handler) {
	if authenticated == nil {
		authenticated = passThrough
	}
	if throttle == nil {
		throttle = passThrough
	}

	router.Post("/register", throttle, h.register)
	router.Post("/login", throttle, h.login)
	requireUser := middleware.AuthOptions{RequireUser: true}
	router.Get("", authenticated, middleware.WithAuth(h.current, requireUser))
	router.Post("/photo", authenticated, middleware.WithAuth(h.updatePhoto, requireUser))
}

func (h *UserHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.users.Register(c.UserContext(), payload)
	if err != nil {
		if handled, sendErr := sendFieldErrors(c, err); handled {
			return sendErr
		}
		if errors.Is(err, service.ErrUserCreation) {
			requestLogger(h.logger, c).Error().Err(err).Str("username", payload.UserName).Msg("failed to create user")
			return utils.SendError(c, fiber.StatusInternalServerError, "Problem creating user")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("registration failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "registration failed")
	}

	return utils.SendSuccess(c, "user registered", response)
}

func (h *UserHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.users.Login(c.UserContext(), payload)
	if err != nil {
		if handled, sendErr := sendFieldErrors(c, err); handled {
			return sendErr
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid email or password")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "login failed")
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *UserHandler) current(c *fiber.Ctx) error {
	userName := userNameFromContext(c)
	response, err := h.users.CurrentUser(c.UserContext(), userName)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusUnauthorized, "user no longer exists")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("username", userName).Msg("failed to load current user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load user")
	}

	return utils.SendSuccess(c, "current user", response)
}

func (h *UserHandler) updatePhoto(c *fiber.Ctx) error {
	if h.photos == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "photo uploads are disabled")
	}

	userName := userNameFromContext(c)
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.photos.UpdatePhoto(c.UserContext(), userName, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPhotoTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrPhotoTypeNotAllowed), errors.Is(err, service.ErrPhotoRequired):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusUnauthorized, "user no longer exists")
		case errors.Is(err, service.ErrPhotoStorageUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, "photo uploads are disabled")
		default:
			requestLogger(h.logger, c).Error().Err(err).Str("username", userName).Msg("photo upload failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "upload failed")
		}
	}

	return utils.SendSuccess(c, "photo updated", result)
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}
