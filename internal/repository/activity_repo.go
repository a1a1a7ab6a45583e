package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/activities-api/internal/models"
)

// ActivityFilter narrows activity list queries.
type ActivityFilter struct {
	Page     int
	PageSize int
	Category string
}

// ActivityRepository persists activities and their attendees.
type ActivityRepository interface {
	List(ctx context.Context, filter ActivityFilter) ([]models.Activity, int64, error)
	Get(ctx context.Context, id string) (models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, id string, changes map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	FindAttendance(ctx context.Context, activityID, userID string) (models.UserActivity, error)
	AddAttendee(ctx context.Context, attendance *models.UserActivity) error
	RemoveAttendee(ctx context.Context, activityID, userID string) error
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository constructs the activity repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) List(ctx context.Context, filter ActivityFilter) ([]models.Activity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Activity{})

	if filter.Category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", filter.Category)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var activities []models.Activity
	// id breaks ties between activities on the same date so pages never overlap.
	query = query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	if err := query.Preload("UserActivities.AppUser").Find(&activities).Error; err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}

func (r *activityRepository) Get(ctx context.Context, id string) (models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).Preload("UserActivities.AppUser").First(&activity, "id = ?", id).Error; err != nil {
		return models.Activity{}, err
	}
	return activity, nil
}

// Create inserts the activity together with any attendees attached to it in one transaction.
func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attendees := activity.UserActivities
		activity.UserActivities = nil
		if err := tx.Create(activity).Error; err != nil {
			return err
		}
		for i := range attendees {
			attendees[i].ActivityID = activity.ID
			if err := tx.Omit("AppUser", "Activity").Create(&attendees[i]).Error; err != nil {
				return err
			}
		}
		activity.UserActivities = attendees
		return nil
	})
}

func (r *activityRepository) Update(ctx context.Context, id string, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Activity{}).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the activity and its attendance rows.
func (r *activityRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("activity_id = ?", id).Delete(&models.UserActivity{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Activity{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *activityRepository) FindAttendance(ctx context.Context, activityID, userID string) (models.UserActivity, error) {
	var attendance models.UserActivity
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND app_user_id = ?", activityID, userID).
		First(&attendance).Error
	if err != nil {
		return models.UserActivity{}, err
	}
	return attendance, nil
}

func (r *activityRepository) AddAttendee(ctx context.Context, attendance *models.UserActivity) error {
	err := r.db.WithContext(ctx).Omit("AppUser", "Activity").Create(attendance).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateAttendance
	}
	return err
}

func (r *activityRepository) RemoveAttendee(ctx context.Context, activityID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("activity_id = ? AND app_user_id = ?", activityID, userID).
		Delete(&models.UserActivity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
