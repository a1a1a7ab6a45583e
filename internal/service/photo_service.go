package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/activities-api/internal/dto"
	"github.com/noah-isme/activities-api/internal/observability"
	"github.com/noah-isme/activities-api/internal/repository"
)

var (
	// ErrPhotoRequired indicates no file was attached.
	ErrPhotoRequired = errors.New("photo file is required")
	// ErrPhotoTooLarge indicates the payload exceeded the configured limit.
	ErrPhotoTooLarge = errors.New("photo exceeds maximum allowed size")
	// ErrPhotoTypeNotAllowed indicates the detected MIME type is not an accepted image.
	ErrPhotoTypeNotAllowed = errors.New("photo type not allowed")
	// ErrPhotoStorageUnavailable indicates no storage backend is configured.
	ErrPhotoStorageUnavailable = errors.New("photo storage is not configured")
)

var allowedPhotoTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// PhotoService stores profile photos and links them to users.
type PhotoService interface {
	UpdatePhoto(ctx context.Context, userName string, file *multipart.FileHeader) (dto.PhotoResponse, error)
}

type photoService struct {
	storage FileStorage
	users   repository.UserRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewPhotoService constructs a photo service. storage may be nil when uploads are disabled.
func NewPhotoService(storage FileStorage, users repository.UserRepository, maxSizeMB int, logger zerolog.Logger) PhotoService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &photoService{
		storage: storage,
		users:   users,
		logger:  logger.With().Str("component", "photo_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/activities-api/internal/service/photo"),
	}
}

func (s *photoService) UpdatePhoto(ctx context.Context, userName string, file *multipart.FileHeader) (dto.PhotoResponse, error) {
	ctx, span := s.tracer.Start(ctx, "photo.update")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.PhotoUploadLatency().Observe(time.Since(start).Seconds())
	}()

	if s.storage == nil {
		span.SetStatus(codes.Error, "storage disabled")
		return dto.PhotoResponse{}, ErrPhotoStorageUnavailable
	}
	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.PhotoResponse{}, ErrPhotoRequired
	}

	span.SetAttributes(
		attribute.String("photo.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("photo.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		observability.PhotoRejected().WithLabelValues("size").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return dto.PhotoResponse{}, ErrPhotoTooLarge
	}

	user, err := s.users.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PhotoResponse{}, ErrUserNotFound
		}
		span.RecordError(err)
		return dto.PhotoResponse{}, err
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.PhotoResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.PhotoResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.PhotoRejected().WithLabelValues("size").Inc()
		return dto.PhotoResponse{}, ErrPhotoTooLarge
	}

	detected := mimetype.Detect(buf.Bytes()).String()
	if _, ok := allowedPhotoTypes[detected]; !ok {
		observability.PhotoRejected().WithLabelValues("type").Inc()
		span.SetStatus(codes.Error, "type not allowed")
		return dto.PhotoResponse{}, ErrPhotoTypeNotAllowed
	}
	span.SetAttributes(attribute.String("photo.detected_mime", detected))

	name := photoFileName(user.ID, file.Filename)
	url, err := s.storage.Upload(ctx, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.PhotoRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.PhotoResponse{}, fmt.Errorf("store photo: %w", err)
	}

	if err := s.users.UpdateImage(ctx, user.ID, url); err != nil {
		span.RecordError(err)
		return dto.PhotoResponse{}, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("mime", detected).Msg("profile photo updated")
	span.SetStatus(codes.Ok, "stored")

	return dto.PhotoResponse{
		URL:       url,
		MimeType:  detected,
		SizeBytes: int64(buf.Len()),
	}, nil
}

// photoFileName names the stored object after the immutable user id so distinct users never collide.
func photoFileName(userID, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".img"
	}
	return userID + ext
}
