package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/activities-api/internal/models"
)

// ValueRepository reads the seeded reference values.
type ValueRepository interface {
	List(ctx context.Context) ([]models.Value, error)
	Get(ctx context.Context, id int) (models.Value, error)
}

type valueRepository struct {
	db *gorm.DB
}

// NewValueRepository constructs a value repository.
func NewValueRepository(db *gorm.DB) ValueRepository {
	return &valueRepository{db: db}
}

func (r *valueRepository) List(ctx context.Context) ([]models.Value, error) {
	var values []models.Value
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (r *valueRepository) Get(ctx context.Context, id int) (models.Value, error) {
	var value models.Value
	if err := r.db.WithContext(ctx).First(&value, id).Error; err != nil {
		return models.Value{}, err
	}
	return value, nil
}
