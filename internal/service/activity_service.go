package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/activities-api/internal/dto"
	"github.com/noah-isme/activities-api/internal/events"
	"github.com/noah-isme/activities-api/internal/models"
	"github.com/noah-isme/activities-api/internal/observability"
	"github.com/noah-isme/activities-api/internal/repository"
)

var (
	// ErrActivityNotFound indicates the activity does not exist.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrNotHost indicates the actor is not the activity host.
	ErrNotHost = errors.New("only the host can modify this activity")
	// ErrAlreadyAttending indicates the actor already attends the activity.
	ErrAlreadyAttending = errors.New("already attending this activity")
	// ErrNotAttending indicates the actor does not attend the activity.
	ErrNotAttending = errors.New("not attending this activity")
	// ErrHostCannotLeave indicates the host tried to cancel their own attendance.
	ErrHostCannotLeave = errors.New("host cannot remove themselves from the activity")
)

const activityCacheVersionKey = "activities:list:version"

// ActivityActor identifies the authenticated user acting on activities.
type ActivityActor struct {
	UserID   string
	UserName string
}

// ActivityService exposes activity CRUD and attendance operations.
type ActivityService interface {
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
	Get(ctx context.Context, id string) (dto.ActivityResponse, error)
	Create(ctx context.Context, actor ActivityActor, payload dto.ActivityCreateRequest) (dto.ActivityResponse, error)
	Update(ctx context.Context, actor ActivityActor, id string, payload dto.ActivityUpdateRequest) (dto.ActivityResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id string) error
	Attend(ctx context.Context, actor ActivityActor, id string) (dto.ActivityResponse, error)
	Unattend(ctx context.Context, actor ActivityActor, id string) (dto.ActivityResponse, error)
}

type activityService struct {
	repo      repository.ActivityRepository
	cache     *redis.Client
	ttl       time.Duration
	events    events.Publisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	plain     *bluemonday.Policy
	rich      *bluemonday.Policy
}

// NewActivityService constructs the activity service. cache and publisher are optional.
func NewActivityService(repo repository.ActivityRepository, cache *redis.Client, ttl time.Duration, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) ActivityService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	rich := bluemonday.NewPolicy()
	rich.AllowElements("p", "strong", "em", "ul", "ol", "li", "br")

	return &activityService{
		repo:      repo,
		cache:     cache,
		ttl:       ttl,
		events:    publisher,
		validator: validate,
		logger:    logger.With().Str("component", "activity_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/activities-api/internal/service/activity"),
		plain:     bluemonday.StrictPolicy(),
		rich:      rich,
	}
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.list")
	defer span.End()

	page := maxInt(req.Page, 1)
	pageSize := clampPageSize(req.PageSize)
	category := strings.ToLower(strings.TrimSpace(req.Category))

	cacheKey := s.listCacheKey(ctx, category, page, pageSize)
	if cacheKey != "" {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.ActivityListResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				observability.ActivityCacheRequests().WithLabelValues("hit").Inc()
				return response, nil
			}
		}
	}

	items, total, err := s.repo.List(ctx, repository.ActivityFilter{Page: page, PageSize: pageSize, Category: category})
	if err != nil {
		observability.ActivityCacheRequests().WithLabelValues("error").Inc()
		span.RecordError(err)
		return dto.ActivityListResponse{}, err
	}

	responses := make([]dto.ActivityResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewActivityResponse(item))
	}

	pagination := dto.PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}

	response := dto.ActivityListResponse{Items: responses, Pagination: pagination}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache activities")
			}
		}
	}

	observability.ActivityCacheRequests().WithLabelValues("miss").Inc()
	return response, nil
}

func (s *activityService) Get(ctx context.Context, id string) (dto.ActivityResponse, error) {
	activity, err := s.load(ctx, id)
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	return dto.NewActivityResponse(activity), nil
}

func (s *activityService) Create(ctx context.Context, actor ActivityActor, payload dto.ActivityCreateRequest) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.create", trace.WithAttributes(attribute.String("actor.user_name", actor.UserName)))
	defer span.End()

	payload.Title = s.plain.Sanitize(strings.TrimSpace(payload.Title))
	payload.Description = s.rich.Sanitize(strings.TrimSpace(payload.Description))
	payload.Category = s.plain.Sanitize(strings.TrimSpace(payload.Category))
	payload.City = s.plain.Sanitize(strings.TrimSpace(payload.City))
	payload.Venue = s.plain.Sanitize(strings.TrimSpace(payload.Venue))

	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, validationError(err)
	}

	now := time.Now().UTC()
	activity := models.Activity{
		Title:       payload.Title,
		Description: payload.Description,
		Category:    strings.ToLower(payload.Category),
		Date:        payload.Date.UTC(),
		City:        payload.City,
		Venue:       payload.Venue,
		UserActivities: []models.UserActivity{{
			AppUserID:  actor.UserID,
			IsHost:     true,
			DateJoined: now,
		}},
	}

	if err := s.repo.Create(ctx, &activity); err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Msg("failed to create activity")
		return dto.ActivityResponse{}, err
	}

	s.afterWrite(ctx, events.ActivityCreated, activity.ID, actor)
	return s.Get(ctx, activity.ID)
}

func (s *activityService) Update(ctx context.Context, actor ActivityActor, id string, payload dto.ActivityUpdateRequest) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.update", trace.WithAttributes(attribute.String("activity.id", id)))
	defer span.End()

	sanitize := func(value *string, policy *bluemonday.Policy) *string {
		if value == nil {
			return nil
		}
		cleaned := policy.Sanitize(strings.TrimSpace(*value))
		return &cleaned
	}
	payload.Title = sanitize(payload.Title, s.plain)
	payload.Description = sanitize(payload.Description, s.rich)
	payload.Category = sanitize(payload.Category, s.plain)
	payload.City = sanitize(payload.City, s.plain)
	payload.Venue = sanitize(payload.Venue, s.plain)

	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, validationError(err)
	}

	changes := map[string]interface{}{}
	setText := func(column string, value *string) {
		if value != nil {
			changes[column] = *value
		}
	}
	setText("title", payload.Title)
	setText("description", payload.Description)
	setText("city", payload.City)
	setText("venue", payload.Venue)
	if payload.Category != nil {
		changes["category"] = strings.ToLower(*payload.Category)
	}
	if payload.Date != nil {
		changes["date"] = payload.Date.UTC()
	}

	for column, value := range changes {
		if text, ok := value.(string); ok && text == "" {
			return dto.ActivityResponse{}, &ValidationError{Fields: map[string][]string{
				fieldName(column): {fmt.Sprintf("'%s' must not be empty.", fieldName(column))},
			}}
		}
	}

	activity, err := s.load(ctx, id)
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	if !isHost(activity, actor) {
		return dto.ActivityResponse{}, ErrNotHost
	}

	if err := s.repo.Update(ctx, id, changes); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrActivityNotFound
		}
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	s.afterWrite(ctx, events.ActivityUpdated, id, actor)
	return s.Get(ctx, id)
}

func (s *activityService) Delete(ctx context.Context, actor ActivityActor, id string) error {
	ctx, span := s.tracer.Start(ctx, "activity.delete", trace.WithAttributes(attribute.String("activity.id", id)))
	defer span.End()

	activity, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !isHost(activity, actor) {
		return ErrNotHost
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrActivityNotFound
		}
		span.RecordError(err)
		return err
	}

	s.afterWrite(ctx, events.ActivityDeleted, id, actor)
	return nil
}

func (s *activityService) Attend(ctx context.Context, actor ActivityActor, id string) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.attend", trace.WithAttributes(attribute.String("activity.id", id)))
	defer span.End()

	if _, err := s.load(ctx, id); err != nil {
		return dto.ActivityResponse{}, err
	}

	if _, err := s.repo.FindAttendance(ctx, id, actor.UserID); err == nil {
		return dto.ActivityResponse{}, ErrAlreadyAttending
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	attendance := models.UserActivity{
		AppUserID:  actor.UserID,
		ActivityID: id,
		DateJoined: time.Now().UTC(),
	}
	if err := s.repo.AddAttendee(ctx, &attendance); err != nil {
		if errors.Is(err, repository.ErrDuplicateAttendance) {
			return dto.ActivityResponse{}, ErrAlreadyAttending
		}
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	observability.AttendanceChanges().WithLabelValues("attend").Inc()
	s.afterWrite(ctx, events.ActivityAttended, id, actor)
	return s.Get(ctx, id)
}

func (s *activityService) Unattend(ctx context.Context, actor ActivityActor, id string) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.unattend", trace.WithAttributes(attribute.String("activity.id", id)))
	defer span.End()

	if _, err := s.load(ctx, id); err != nil {
		return dto.ActivityResponse{}, err
	}

	attendance, err := s.repo.FindAttendance(ctx, id, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrNotAttending
		}
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}
	if attendance.IsHost {
		return dto.ActivityResponse{}, ErrHostCannotLeave
	}

	if err := s.repo.RemoveAttendee(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrNotAttending
		}
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	observability.AttendanceChanges().WithLabelValues("unattend").Inc()
	s.afterWrite(ctx, events.ActivityUnattended, id, actor)
	return s.Get(ctx, id)
}

func (s *activityService) load(ctx context.Context, id string) (models.Activity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Activity{}, ErrActivityNotFound
	}
	activity, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, ErrActivityNotFound
		}
		return models.Activity{}, err
	}
	return activity, nil
}

// afterWrite invalidates cached lists and announces the change. Neither step fails the request.
func (s *activityService) afterWrite(ctx context.Context, eventType, activityID string, actor ActivityActor) {
	if s.cache != nil {
		if err := s.cache.Incr(ctx, activityCacheVersionKey).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate activity cache")
		}
	}

	event := events.ActivityEvent{
		Type:       eventType,
		ActivityID: activityID,
		UserName:   actor.UserName,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Msg("failed to publish activity event")
	}
}

// listCacheKey returns "" when caching is unavailable.
func (s *activityService) listCacheKey(ctx context.Context, category string, page, pageSize int) string {
	if s.cache == nil {
		return ""
	}
	version, err := s.cache.Get(ctx, activityCacheVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("activity cache unavailable")
		return ""
	}
	return fmt.Sprintf("activities:list:v%d:%s:%d:%d", version, category, page, pageSize)
}

func isHost(activity models.Activity, actor ActivityActor) bool {
	host := activity.Host()
	return host != nil && host.AppUserID == actor.UserID
}

func fieldName(column string) string {
	if column == "" {
		return column
	}
	return strings.ToUpper(column[:1]) + column[1:]
}
