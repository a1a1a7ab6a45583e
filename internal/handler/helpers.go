package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activities-api/internal/middleware"
	"github.com/noah-isme/activities-api/internal/service"
	"github.com/noah-isme/activities-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func userIDFromContext(c *fiber.Ctx) string {
	if v, ok := c.Locals(middleware.LocalUserID).(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func userNameFromContext(c *fiber.Ctx) string {
	if v, ok := c.Locals(middleware.LocalUserName).(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	return service.ActivityActor{
		UserID:   userIDFromContext(c),
		UserName: userNameFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// sendFieldErrors renders validation and field conflicts as a 400 with messages keyed by field.
// It reports false when err carries no field information.
func sendFieldErrors(c *fiber.Ctx, err error) (bool, error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return true, utils.Fail(c, fiber.StatusBadRequest, "validation failed", fiber.Map{"errors": validationErr.Fields})
	}

	var fieldErr *service.FieldError
	if errors.As(err, &fieldErr) {
		return true, utils.Fail(c, fiber.StatusBadRequest, fieldErr.Message, fiber.Map{
			"errors": map[string][]string{fieldErr.Field: {fieldErr.Message}},
		})
	}

	return false, nil
}
