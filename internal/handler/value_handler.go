package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/activities-api/internal/service"
	"github.com/noah-isme/activities-api/internal/utils"
)

// ValueHandler serves the seeded reference values.
type ValueHandler struct {
	service service.ValueService
	logger  zerolog.Logger
}

// NewValueHandler constructs a value handler.
func NewValueHandler(service service.ValueService, logger zerolog.Logger) *ValueHandler {
	return &ValueHandler{
		service: service,
		logger:  logger.With().Str("component", "value_handler").Logger(),
	}
}

// Register wires value routes.
func (h *ValueHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *ValueHandler) list(c *fiber.Ctx) error {
	values, err := h.service.List(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list values")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch values")
	}

	return utils.SendSuccess(c, "values retrieved", values)
}

func (h *ValueHandler) get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid value id")
	}

	value, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrValueNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Int("value_id", id).Msg("failed to fetch value")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch value")
	}

	return utils.SendSuccess(c, "value retrieved", value)
}
