package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Routing keys for domain notifications.
const (
	KeyRegistrationCreated = "registration.created"
	KeyAttendanceRecorded  = "attendance.recorded"
	KeyTicketPurchased     = "ticket.purchased"
	KeyTicketPaid          = "ticket.paid"
	KeyTicketTransferred   = "ticket.transferred"
	KeyTicketUsed          = "ticket.used"
)

// maxMintAttempts bounds retries when a freshly minted short code or ticket
// number collides with an existing row.
const maxMintAttempts = 5

// Publisher sends domain notifications. A nil Publisher disables them.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// PresenceTracker records which operators are actively scanning an event.
type PresenceTracker interface {
	Touch(ctx context.Context, eventID uint, operatorID string) error
}

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrEventClosed          = errors.New("event is closed for registration")
	ErrMemberNotFound       = errors.New("member not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAlreadyCancelled     = errors.New("registration is already cancelled")
	ErrInvalidRegistration  = errors.New("invalid registration")
	ErrNotRegistrationEvent = errors.New("event sells tickets; buy a ticket instead of registering")
	ErrCodesExhausted       = errors.New("could not mint a unique code")
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

type clock func() time.Time
