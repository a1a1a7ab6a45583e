package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/activities-api/internal/auth"
	"github.com/noah-isme/activities-api/internal/dto"
	"github.com/noah-isme/activities-api/internal/models"
	"github.com/noah-isme/activities-api/internal/repository"
)

var (
	// ErrUserCreation indicates the account could not be stored for an unclassified reason.
	ErrUserCreation = errors.New("problem creating user")
	// ErrInvalidCredentials indicates the email or password did not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound indicates the authenticated identity has no stored account.
	ErrUserNotFound = errors.New("user not found")
)

const (
	emailTakenMessage    = "Email already exist"
	userNameTakenMessage = "User Name already exist"
)

// TokenIssuer mints bearer tokens for users.
type TokenIssuer interface {
	CreateToken(user models.User) (string, error)
}

// UserService implements registration, login and current-user lookups.
type UserService interface {
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.UserResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.UserResponse, error)
	CurrentUser(ctx context.Context, userName string) (dto.UserResponse, error)
}

type userService struct {
	repo      repository.UserRepository
	tokens    TokenIssuer
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewUserService constructs the user service.
func NewUserService(repo repository.UserRepository, tokens TokenIssuer, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		repo:      repo,
		tokens:    tokens,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/activities-api/internal/service/user"),
	}
}

func (s *userService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.UserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "user.register")
	defer span.End()

	payload.DisplayName = strings.TrimSpace(payload.DisplayName)
	payload.UserName = strings.TrimSpace(payload.UserName)
	payload.Email = strings.TrimSpace(payload.Email)

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.UserResponse{}, validationError(err)
	}
	span.SetAttributes(attribute.String("user.name", payload.UserName))

	if err := s.ensureUnique(ctx, payload.Email, payload.UserName); err != nil {
		span.SetStatus(codes.Error, "conflict")
		return dto.UserResponse{}, err
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		span.RecordError(err)
		return dto.UserResponse{}, ErrUserCreation
	}

	user := models.User{
		DisplayName:  payload.DisplayName,
		UserName:     payload.UserName,
		Email:        payload.Email,
		PasswordHash: hash,
	}

	if err := s.repo.Create(ctx, &user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with a concurrent registration; report the field that collided.
			if conflict := s.ensureUnique(ctx, payload.Email, payload.UserName); conflict != nil {
				return dto.UserResponse{}, conflict
			}
		}
		s.logger.Error().Err(err).Str("user_name", payload.UserName).Msg("failed to create user")
		return dto.UserResponse{}, ErrUserCreation
	}

	token, err := s.tokens.CreateToken(user)
	if err != nil {
		span.RecordError(err)
		return dto.UserResponse{}, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user registered")

	response := dto.NewUserResponse(user, token)
	response.Image = nil
	return response, nil
}

// ensureUnique checks email before username so a taken email is always reported first.
func (s *userService) ensureUnique(ctx context.Context, email, userName string) error {
	emailTaken, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if emailTaken {
		return &FieldError{Field: "Email", Message: emailTakenMessage}
	}

	userNameTaken, err := s.repo.ExistsByUserName(ctx, userName)
	if err != nil {
		return err
	}
	if userNameTaken {
		return &FieldError{Field: "UserName", Message: userNameTakenMessage}
	}

	return nil
}

func (s *userService) Login(ctx context.Context, payload dto.LoginRequest) (dto.UserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "user.login")
	defer span.End()

	payload.Email = strings.TrimSpace(payload.Email)
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, validationError(err)
	}

	user, err := s.repo.FindByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrInvalidCredentials
		}
		span.RecordError(err)
		return dto.UserResponse{}, err
	}

	if !auth.ComparePassword(user.PasswordHash, payload.Password) {
		s.logger.Warn().Str("user_id", user.ID).Msg("login rejected")
		return dto.UserResponse{}, ErrInvalidCredentials
	}

	token, err := s.tokens.CreateToken(user)
	if err != nil {
		span.RecordError(err)
		return dto.UserResponse{}, fmt.Errorf("issue token: %w", err)
	}

	return dto.NewUserResponse(user, token), nil
}

func (s *userService) CurrentUser(ctx context.Context, userName string) (dto.UserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "user.current")
	defer span.End()

	userName = strings.TrimSpace(userName)
	if userName == "" {
		return dto.UserResponse{}, ErrUserNotFound
	}

	user, err := s.repo.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Str("user_name", userName).Msg("token refers to unknown user")
			return dto.UserResponse{}, ErrUserNotFound
		}
		span.RecordError(err)
		return dto.UserResponse{}, err
	}

	token, err := s.tokens.CreateToken(user)
	if err != nil {
		span.RecordError(err)
		return dto.UserResponse{}, fmt.Errorf("issue token: %w", err)
	}

	return dto.NewUserResponse(user, token), nil
}
