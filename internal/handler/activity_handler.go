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

// ActivityHandler manages activity CRUD and attendance endpoints.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs an activity handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register wires activity routes. The router is expected to carry the JWT middleware.
func (h *ActivityHandler) Register(router fiber.Router) {
	requireUser := middleware.AuthOptions{RequireUser: true}

	router.Get("", h.list)
	router.Post("", middleware.WithAuth(h.create, requireUser))
	router.Get("/:id", h.get)
	router.Put("/:id", middleware.WithAuth(h.update, requireUser))
	router.Delete("/:id", middleware.WithAuth(h.delete, requireUser))
	router.Post("/:id/attend", middleware.WithAuth(h.attend, requireUser))
	router.Delete("/:id/attend", middleware.WithAuth(h.unattend, requireUser))
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page parameter")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size parameter")
	}

	result, err := h.service.List(c.UserContext(), dto.ActivityListRequest{
		Page:     page,
		PageSize: pageSize,
		Category: c.Query("category"),
	})
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activities")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch activities")
	}

	return utils.OK(c, result.Items, "activities retrieved", fiber.Map{
		"pagination": result.Pagination,
		"cacheHit":   result.CacheHit,
	})
}

func (h *ActivityHandler) get(c *fiber.Ctx) error {
	activity, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err, "failed to fetch activity")
	}

	return utils.SendSuccess(c, "activity retrieved", activity)
}

func (h *ActivityHandler) create(c *fiber.Ctx) error {
	var payload dto.ActivityCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	activity, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err, "failed to create activity")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity created", activity)
}

func (h *ActivityHandler) update(c *fiber.Ctx) error {
	var payload dto.ActivityUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	activity, err := h.service.Update(c.UserContext(), activityActorFromContext(c), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err, "failed to update activity")
	}

	return utils.SendSuccess(c, "activity updated", activity)
}

func (h *ActivityHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), activityActorFromContext(c), c.Params("id")); err != nil {
		return h.handleError(c, err, "failed to delete activity")
	}

	return utils.SendSuccess(c, "activity deleted", nil)
}

func (h *ActivityHandler) attend(c *fiber.Ctx) error {
	activity, err := h.service.Attend(c.UserContext(), activityActorFromContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err, "failed to attend activity")
	}

	return utils.SendSuccess(c, "attendance recorded", activity)
}

func (h *ActivityHandler) unattend(c *fiber.Ctx) error {
	activity, err := h.service.Unattend(c.UserContext(), activityActorFromContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err, "failed to leave activity")
	}

	return utils.SendSuccess(c, "attendance removed", activity)
}

func (h *ActivityHandler) handleError(c *fiber.Ctx, err error, fallback string) error {
	if handled, sendErr := sendFieldErrors(c, err); handled {
		return sendErr
	}

	switch {
	case errors.Is(err, service.ErrActivityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotHost):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadyAttending),
		errors.Is(err, service.ErrNotAttending),
		errors.Is(err, service.ErrHostCannotLeave):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("activity_id", c.Params("id")).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
