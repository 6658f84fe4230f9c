package repository

import (
	"context"

	"github.com/Eursukkul/attendance-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	FindCategoryForUpdate(ctx context.Context, tx *gorm.DB, eventID, categoryID uint) (*models.TicketCategory, error)
	ReserveSeat(ctx context.Context, tx *gorm.DB, categoryID uint) (bool, error)
	ReleaseSeat(ctx context.Context, tx *gorm.DB, categoryID uint) error
	Upsert(ctx context.Context, event *models.Event) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// FindCategoryForUpdate acquires a row-level lock on the category within the given transaction.
func (r *eventRepository) FindCategoryForUpdate(ctx context.Context, tx *gorm.DB, eventID, categoryID uint) (*models.TicketCategory, error) {
	var category models.TicketCategory
	if err := pick(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND event_id = ?", categoryID, eventID).
		First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ReserveSeat bumps the sold counter unless the quota is exhausted.
func (r *eventRepository) ReserveSeat(ctx context.Context, tx *gorm.DB, categoryID uint) (bool, error) {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&models.TicketCategory{}).
		Where("id = ? AND (quota = 0 OR sold < quota)", categoryID).
		Update("sold", gorm.Expr("sold + 1"))
	return res.RowsAffected == 1, res.Error
}

func (r *eventRepository) ReleaseSeat(ctx context.Context, tx *gorm.DB, categoryID uint) error {
	return pick(r.db, tx).WithContext(ctx).
		Model(&models.TicketCategory{}).
		Where("id = ? AND sold > 0", categoryID).
		Update("sold", gorm.Expr("sold - 1")).Error
}

// Upsert stores an event pushed by the event service together with its
// ticket categories. The local sold counters are never overwritten.
func (r *eventRepository) Upsert(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := event.TicketCategories
		event.TicketCategories = nil

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "type", "start_at", "end_at", "registration_start_at",
				"registration_end_at", "eligible_groups", "currency", "updated_at",
			}),
		}).Create(event).Error
		event.TicketCategories = categories
		if err != nil {
			return err
		}

		for i := range categories {
			categories[i].EventID = event.ID
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "price", "currency", "quota", "sales_start_at",
					"sales_end_at", "is_active", "updated_at",
				}),
			}).Omit("sold").Create(&categories[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
