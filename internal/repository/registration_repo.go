package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"gorm.io/gorm"
)

type RegistrationRepository interface {
	Create(ctx context.Context, registration *models.Registration) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindByShortCode(ctx context.Context, code string) (*models.Registration, error)
	FindByEventID(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error)
	MarkOnline(ctx context.Context, tx *gorm.DB, id string, method models.ValidationMethod, operatorID string, at time.Time) (bool, error)
	Cancel(ctx context.Context, id string) (bool, error)
}

type registrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	return r.db.WithContext(ctx).Create(registration).Error
}

func (r *registrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	var registration models.Registration
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&registration).Error; err != nil {
		return nil, err
	}
	return &registration, nil
}

func (r *registrationRepository) FindByShortCode(ctx context.Context, code string) (*models.Registration, error) {
	var registration models.Registration
	if err := r.db.WithContext(ctx).Where("short_code = ?", code).First(&registration).Error; err != nil {
		return nil, err
	}
	return &registration, nil
}

func (r *registrationRepository) FindByEventID(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error) {
	var registrations []models.Registration
	q := r.db.WithContext(ctx).Where("event_id = ?", eventID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("created_at ASC").Find(&registrations).Error; err != nil {
		return nil, err
	}
	return registrations, nil
}

// MarkOnline moves a registration from registered to online. It reports false
// when another request got there first or the registration is cancelled.
func (r *registrationRepository) MarkOnline(ctx context.Context, tx *gorm.DB, id string, method models.ValidationMethod, operatorID string, at time.Time) (bool, error) {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, models.StatusRegistered).
		Updates(map[string]interface{}{
			"status":            models.StatusOnline,
			"validation_method": method,
			"validated_at":      at,
			"validated_by":      operatorID,
		})
	return res.RowsAffected == 1, res.Error
}

// Cancel is a soft delete; rows are never removed.
func (r *registrationRepository) Cancel(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ? AND status <> ?", id, models.StatusCancelled).
		Update("status", models.StatusCancelled)
	return res.RowsAffected == 1, res.Error
}
