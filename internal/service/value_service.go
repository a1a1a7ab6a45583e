package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/activities-api/internal/dto"
	"github.com/noah-isme/activities-api/internal/repository"
)

// ErrValueNotFound indicates the requested value does not exist.
var ErrValueNotFound = errors.New("value not found")

// ValueService reads seeded reference values.
type ValueService interface {
	List(ctx context.Context) ([]dto.ValueResponse, error)
	Get(ctx context.Context, id int) (dto.ValueResponse, error)
}

type valueService struct {
	repo repository.ValueRepository
}

// NewValueService constructs the value service.
func NewValueService(repo repository.ValueRepository) ValueService {
	return &valueService{repo: repo}
}

func (s *valueService) List(ctx context.Context) ([]dto.ValueResponse, error) {
	values, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.ValueResponse, 0, len(values))
	for _, value := range values {
		responses = append(responses, dto.NewValueResponse(value))
	}
	return responses, nil
}

func (s *valueService) Get(ctx context.Context, id int) (dto.ValueResponse, error) {
	value, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ValueResponse{}, ErrValueNotFound
		}
		return dto.ValueResponse{}, err
	}
	return dto.NewValueResponse(value), nil
}
