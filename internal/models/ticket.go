package models

import (
	"strings"
	"time"
)

type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketUsed      TicketStatus = "used"
	TicketExpired   TicketStatus = "expired"
	TicketCancelled TicketStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentGateway      PaymentMethod = "gateway"
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentFree         PaymentMethod = "free"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentGateway, PaymentCash, PaymentBankTransfer, PaymentFree:
		return true
	}
	return false
}

const DefaultMaxTransfers = 5

type Ticket struct {
	ID               string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TicketNumber     string        `gorm:"type:varchar(12);uniqueIndex;not null" json:"ticket_number"`
	Token            string        `gorm:"type:text;uniqueIndex;not null" json:"-"`
	EventID          uint          `gorm:"not null;index" json:"event_id"`
	CategoryID       uint          `gorm:"not null;index" json:"category_id"`
	CategoryName     string        `json:"category_name"`
	Price            float64       `gorm:"not null;default:0" json:"price"`
	Currency         string        `gorm:"type:varchar(8)" json:"currency"`
	PaymentMethod    PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus    PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	PaymentReference *string       `gorm:"type:varchar(64);uniqueIndex" json:"payment_reference,omitempty"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	OwnerName        string        `gorm:"not null" json:"owner_name"`
	OwnerEmail       string        `gorm:"not null" json:"owner_email"`
	OwnerPhone       string        `json:"owner_phone,omitempty"`
	TransferCount    int           `gorm:"not null;default:0" json:"transfer_count"`
	MaxTransfers     int           `gorm:"not null;default:5" json:"max_transfers"`
	IsTransferable   bool          `gorm:"not null" json:"is_transferable"`
	Status           TicketStatus  `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	ExpiresAt        *time.Time    `json:"expires_at,omitempty"`
	UsedAt           *time.Time    `json:"used_at,omitempty"`
	ScannedBy        string        `json:"scanned_by,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// TicketOwner is the set of fields a transfer overwrites.
type TicketOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Trimmed strips surrounding whitespace and lowercases the email.
func (o TicketOwner) Trimmed() TicketOwner {
	return TicketOwner{
		Name:  strings.TrimSpace(o.Name),
		Email: strings.ToLower(strings.TrimSpace(o.Email)),
		Phone: strings.TrimSpace(o.Phone),
	}
}

func (t *Ticket) Owner() TicketOwner {
	return TicketOwner{Name: t.OwnerName, Email: t.OwnerEmail, Phone: t.OwnerPhone}
}

// TicketTransfer records one ownership change. Ownership history can only be
// rebuilt from these rows.
type TicketTransfer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TicketID  string    `gorm:"type:varchar(36);not null;index" json:"ticket_id"`
	FromName  string    `json:"from_name"`
	FromEmail string    `json:"from_email"`
	FromPhone string    `json:"from_phone,omitempty"`
	ToName    string    `json:"to_name"`
	ToEmail   string    `json:"to_email"`
	ToPhone   string    `json:"to_phone,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
