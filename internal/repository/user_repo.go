package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/activities-api/internal/models"
)

// UserRepository provides access to user accounts.
type UserRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUserName(ctx context.Context, userName string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	FindByUserName(ctx context.Context, userName string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateImage(ctx context.Context, userID string, image string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *userRepository) ExistsByUserName(ctx context.Context, userName string) (bool, error) {
	return r.exists(ctx, "LOWER(user_name) = LOWER(?)", userName)
}

func (r *userRepository) exists(ctx context.Context, condition string, value string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where(condition, value).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByUserName(ctx context.Context, userName string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(user_name) = LOWER(?)", userName).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) UpdateImage(ctx context.Context, userID string, image string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("image", image)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
