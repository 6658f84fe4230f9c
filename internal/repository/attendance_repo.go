package repository

import (
	"context"

	"github.com/Eursukkul/attendance-service/internal/models"
	"gorm.io/gorm"
)

type AttendanceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attendance *models.Attendance) error
	FindByEventID(ctx context.Context, eventID uint) ([]models.Attendance, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) Create(ctx context.Context, tx *gorm.DB, attendance *models.Attendance) error {
	return pick(r.db, tx).WithContext(ctx).Create(attendance).Error
}

func (r *attendanceRepository) FindByEventID(ctx context.Context, eventID uint) ([]models.Attendance, error) {
	var records []models.Attendance
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
