package repository

import (
	"context"

	"github.com/Eursukkul/attendance-service/internal/models"
	"gorm.io/gorm"
)

type RosterRepository interface {
	Create(ctx context.Context, upload *models.RosterUpload) error
	// FindByEventID returns every upload for the event with its entries loaded.
	FindByEventID(ctx context.Context, eventID uint) ([]models.RosterUpload, error)
	ListByEventID(ctx context.Context, eventID uint) ([]models.RosterUpload, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

type rosterRepository struct {
	db *gorm.DB
}

func NewRosterRepository(db *gorm.DB) RosterRepository {
	return &rosterRepository{db: db}
}

// Create inserts the upload and its entries in one transaction.
func (r *rosterRepository) Create(ctx context.Context, upload *models.RosterUpload) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries := upload.Entries
		upload.Entries = nil
		err := tx.Create(upload).Error
		upload.Entries = entries
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for i := range upload.Entries {
			upload.Entries[i].UploadID = upload.ID
		}
		return tx.CreateInBatches(upload.Entries, 500).Error
	})
}

func (r *rosterRepository) FindByEventID(ctx context.Context, eventID uint) ([]models.RosterUpload, error) {
	var uploads []models.RosterUpload
	if err := r.db.WithContext(ctx).
		Preload("Entries").
		Where("event_id = ?", eventID).
		Order("id ASC").
		Find(&uploads).Error; err != nil {
		return nil, err
	}
	return uploads, nil
}

func (r *rosterRepository) ListByEventID(ctx context.Context, eventID uint) ([]models.RosterUpload, error) {
	var uploads []models.RosterUpload
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("id ASC").
		Find(&uploads).Error; err != nil {
		return nil, err
	}
	return uploads, nil
}

func (r *rosterRepository) Delete(ctx context.Context, id uint) (bool, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("upload_id = ?", id).Delete(&models.RosterEntry{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.RosterUpload{}, id)
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted == 1, err
}
