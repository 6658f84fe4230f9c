package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TicketRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	FindByID(ctx context.Context, id string) (*models.Ticket, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Ticket, error)
	FindByNumber(ctx context.Context, number string) (*models.Ticket, error)
	FindByReference(ctx context.Context, reference string) (*models.Ticket, error)
	FindPendingGateway(ctx context.Context, createdBefore time.Time, limit int) ([]models.Ticket, error)
	SetPaymentReference(ctx context.Context, id, reference string) error
	SettlePayment(ctx context.Context, reference string, status models.PaymentStatus, at time.Time) (bool, error)
	MarkUsed(ctx context.Context, tx *gorm.DB, id, operatorID string, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, id string) (bool, error)
	ApplyTransfer(ctx context.Context, tx *gorm.DB, id string, owner models.TicketOwner) (bool, error)
	CreateTransfer(ctx context.Context, tx *gorm.DB, transfer *models.TicketTransfer) error
	FindTransfers(ctx context.Context, ticketID string) ([]models.TicketTransfer, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error {
	return pick(r.db, tx).WithContext(ctx).Create(ticket).Error
}

func (r *ticketRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return pick(r.db, tx).WithContext(ctx).Where("id = ?", id).Delete(&models.Ticket{}).Error
}

func (r *ticketRepository) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByIDForUpdate locks the ticket row until tx ends.
func (r *ticketRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := pick(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	return r.findOne(ctx, "ticket_number = ?", number)
}

func (r *ticketRepository) FindByReference(ctx context.Context, reference string) (*models.Ticket, error) {
	return r.findOne(ctx, "payment_reference = ?", reference)
}

func (r *ticketRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where(query, arg).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FindPendingGateway lists gateway tickets still awaiting payment, oldest first.
func (r *ticketRepository) FindPendingGateway(ctx context.Context, createdBefore time.Time, limit int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("payment_method = ? AND payment_status = ? AND payment_reference IS NOT NULL AND created_at < ?",
			models.PaymentGateway, models.PaymentPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) SetPaymentReference(ctx context.Context, id, reference string) error {
	return r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ?", id).
		Update("payment_reference", reference).Error
}

// SettlePayment moves a pending payment to paid or failed. Already settled
// tickets are left untouched and reported as false.
func (r *ticketRepository) SettlePayment(ctx context.Context, reference string, status models.PaymentStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"payment_status": status}
	if status == models.PaymentPaid {
		updates["paid_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("payment_reference = ? AND payment_status = ?", reference, models.PaymentPending).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// MarkUsed is the single-use barrier: only an active, paid ticket flips to used.
func (r *ticketRepository) MarkUsed(ctx context.Context, tx *gorm.DB, id, operatorID string, at time.Time) (bool, error) {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ? AND payment_status = ?", id, models.TicketActive, models.PaymentPaid).
		Updates(map[string]interface{}{
			"status":     models.TicketUsed,
			"used_at":    at,
			"scanned_by": operatorID,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *ticketRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ?", id, models.TicketActive).
		Update("status", models.TicketExpired)
	return res.RowsAffected == 1, res.Error
}

// ApplyTransfer overwrites the owner and bumps transfer_count, guarded so the
// count can never pass max_transfers.
func (r *ticketRepository) ApplyTransfer(ctx context.Context, tx *gorm.DB, id string, owner models.TicketOwner) (bool, error) {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND is_transferable = ? AND status = ? AND payment_status = ? AND transfer_count < max_transfers",
			id, true, models.TicketActive, models.PaymentPaid).
		Updates(map[string]interface{}{
			"owner_name":     owner.Name,
			"owner_email":    owner.Email,
			"owner_phone":    owner.Phone,
			"transfer_count": gorm.Expr("transfer_count + 1"),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *ticketRepository) CreateTransfer(ctx context.Context, tx *gorm.DB, transfer *models.TicketTransfer) error {
	return pick(r.db, tx).WithContext(ctx).Create(transfer).Error
}

func (r *ticketRepository) FindTransfers(ctx context.Context, ticketID string) ([]models.TicketTransfer, error) {
	var transfers []models.TicketTransfer
	if err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("id ASC").
		Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}
