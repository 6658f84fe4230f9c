package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/repository"
	"github.com/Eursukkul/attendance-service/internal/token"
	"github.com/Eursukkul/attendance-service/pkg/payment"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidPurchase       = errors.New("invalid purchase request")
	ErrNotTicketEvent        = errors.New("event does not sell tickets")
	ErrCategoryNotFound      = errors.New("ticket category not found")
	ErrCategoryUnavailable   = errors.New("ticket category is not on sale")
	ErrCategorySoldOut       = errors.New("ticket category is sold out")
	ErrPaymentUnavailable    = errors.New("payment gateway is not configured")
	ErrPaymentSession        = errors.New("could not start payment")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrInvalidOwner          = errors.New("new owner needs a name and an email")
	ErrTicketNotTransferable = errors.New("ticket is not transferable")
	ErrTicketNotActive       = errors.New("ticket is not active")
	ErrTicketUnpaid          = errors.New("ticket has not been paid for")
	ErrTransferLimitReached  = errors.New("ticket has reached its transfer limit")
	ErrSameOwner             = errors.New("ticket already belongs to this owner")
)

// PaymentGateway opens checkout sessions and reports payment state.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
	Verify(ctx context.Context, reference string) (*payment.Verification, error)
}

type PurchaseInput struct {
	EventID       uint
	CategoryID    uint
	Buyer         models.TicketOwner
	PaymentMethod models.PaymentMethod
}

type PurchaseResult struct {
	Ticket     *models.Ticket
	PaymentURL string
}

type TransferInput struct {
	TicketID string
	NewOwner models.TicketOwner
	Reason   string
}

// TicketValidationResult mirrors ValidationResult for entry scans.
type TicketValidationResult struct {
	HTTPStatus      int
	Success         bool
	Status          ValidationStatus
	Message         string
	RequiresPayment bool
	PaymentMethod   models.PaymentMethod
	UsedAt          *time.Time
	Ticket          *models.Ticket
}

type TicketService interface {
	Purchase(ctx context.Context, in PurchaseInput) (*PurchaseResult, error)
	Transfer(ctx context.Context, in TransferInput) (*models.Ticket, error)
	ValidateAtEntry(ctx context.Context, ref, operatorID string) (*TicketValidationResult, error)
	GetTicket(ctx context.Context, ref string) (*models.Ticket, error)
	ListTransfers(ctx context.Context, ticketID string) ([]models.TicketTransfer, error)
}

type TicketDeps struct {
	Tx         repository.Transactor
	Tickets    repository.TicketRepository
	Events     repository.EventRepository
	Attendance repository.AttendanceRepository
	Codec      *token.Codec
	Gateway    PaymentGateway
	Presence   PresenceTracker
	Publisher  Publisher
	Now        func() time.Time
}

type ticketService struct {
	TicketDeps
	now clock
	log *logrus.Entry
}

func NewTicketService(deps TicketDeps) TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ticketService{
		TicketDeps: deps,
		now:        now,
		log:        logrus.WithField("component", "tickets"),
	}
}

func (s *ticketService) Purchase(ctx context.Context, in PurchaseInput) (*PurchaseResult, error) {
	buyer := in.Buyer.Trimmed()
	if buyer.Name == "" || buyer.Email == "" {
		return nil, fmt.Errorf("%w: buyer name and email are required", ErrInvalidPurchase)
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentGateway
	}
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidPurchase, in.PaymentMethod)
	}

	event, err := s.Events.FindByID(ctx, in.EventID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.Type != models.EventTypeTicket {
		return nil, ErrNotTicketEvent
	}
	if !event.RegistrationOpen(s.now()) {
		return nil, ErrEventClosed
	}

	var ticket *models.Ticket
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		ticket, err = s.reserve(ctx, event, in.CategoryID, buyer, in.PaymentMethod)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrCodesExhausted
	}
	if err != nil {
		return nil, err
	}

	logger := s.log.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"event_id":  event.ID,
		"category":  ticket.CategoryName,
	})

	result := &PurchaseResult{Ticket: ticket}
	if ticket.PaymentMethod == models.PaymentGateway && ticket.PaymentStatus == models.PaymentPending {
		session, err := s.openSession(ctx, ticket)
		if err != nil {
			logger.WithError(err).Warn("payment session failed, rolling back purchase")
			if rbErr := s.rollback(ctx, ticket); rbErr != nil {
				logger.WithError(rbErr).Error("purchase rollback failed")
			}
			return nil, err
		}
		result.PaymentURL = session.AuthorizationURL
	}

	logger.Info("ticket purchased")
	s.publish(logger, KeyTicketPurchased, ticket)
	return result, nil
}

// reserve takes a seat and inserts the ticket in one transaction.
func (s *ticketService) reserve(ctx context.Context, event *models.Event, categoryID uint, buyer models.TicketOwner, method models.PaymentMethod) (*models.Ticket, error) {
	now := s.now()
	var ticket *models.Ticket

	err := s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		category, err := s.Events.FindCategoryForUpdate(ctx, tx, event.ID, categoryID)
		if err != nil {
			if isNotFound(err) {
				return ErrCategoryNotFound
			}
			return err
		}
		if !category.OnSale(now) {
			return ErrCategoryUnavailable
		}
		if category.SoldOut() {
			return ErrCategorySoldOut
		}
		ok, err := s.Events.ReserveSeat(ctx, tx, category.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCategorySoldOut
		}

		id := uuid.NewString()
		tok, err := s.Codec.MintTicket(id, event.ID)
		if err != nil {
			return err
		}
		currency := category.Currency
		if currency == "" {
			currency = event.Currency
		}

		ticket = &models.Ticket{
			ID:             id,
			TicketNumber:   token.MintTicketNumber(),
			Token:          tok,
			EventID:        event.ID,
			CategoryID:     category.ID,
			CategoryName:   category.Name,
			Price:          category.Price,
			Currency:       currency,
			PaymentMethod:  method,
			PaymentStatus:  models.PaymentPending,
			OwnerName:      buyer.Name,
			OwnerEmail:     buyer.Email,
			OwnerPhone:     buyer.Phone,
			MaxTransfers:   models.DefaultMaxTransfers,
			IsTransferable: true,
			Status:         models.TicketActive,
		}
		if category.Price <= 0 {
			ticket.PaymentMethod = models.PaymentFree
			ticket.PaymentStatus = models.PaymentPaid
			ticket.PaidAt = &now
		} else if method == models.PaymentGateway {
			ref := "TKT-" + uuid.NewString()
			ticket.PaymentReference = &ref
		}
		if event.EndAt != nil && !event.EndAt.IsZero() {
			expires := event.EndAt.Add(token.EventGrace)
			ticket.ExpiresAt = &expires
		}

		return s.Tickets.Create(ctx, tx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *ticketService) openSession(ctx context.Context, ticket *models.Ticket) (*payment.Session, error) {
	if s.Gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	session, err := s.Gateway.CreateSession(ctx, payment.SessionRequest{
		Reference: *ticket.PaymentReference,
		Amount:    ticket.Price,
		Currency:  ticket.Currency,
		Email:     ticket.OwnerEmail,
		Metadata: map[string]string{
			"ticket_id":     ticket.ID,
			"ticket_number": ticket.TicketNumber,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentSession, err)
	}
	return session, nil
}

// rollback undoes a purchase whose payment session could not be opened.
func (s *ticketService) rollback(ctx context.Context, ticket *models.Ticket) error {
	return s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.Tickets.Delete(ctx, tx, ticket.ID); err != nil {
			return err
		}
		return s.Events.ReleaseSeat(ctx, tx, ticket.CategoryID)
	})
}

func (s *ticketService) Transfer(ctx context.Context, in TransferInput) (*models.Ticket, error) {
	owner := in.NewOwner.Trimmed()
	if owner.Name == "" || owner.Email == "" {
		return nil, ErrInvalidOwner
	}

	var updated *models.Ticket
	err := s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		ticket, err := s.Tickets.FindByIDForUpdate(ctx, tx, in.TicketID)
		if err != nil {
			if isNotFound(err) {
				return ErrTicketNotFound
			}
			return err
		}
		if err := transferable(ticket); err != nil {
			return err
		}
		if strings.EqualFold(ticket.OwnerEmail, owner.Email) {
			return ErrSameOwner
		}

		ok, err := s.Tickets.ApplyTransfer(ctx, tx, ticket.ID, owner)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTransferLimitReached
		}

		record := &models.TicketTransfer{
			TicketID:  ticket.ID,
			FromName:  ticket.OwnerName,
			FromEmail: ticket.OwnerEmail,
			FromPhone: ticket.OwnerPhone,
			ToName:    owner.Name,
			ToEmail:   owner.Email,
			ToPhone:   owner.Phone,
			Reason:    strings.TrimSpace(in.Reason),
		}
		if err := s.Tickets.CreateTransfer(ctx, tx, record); err != nil {
			return err
		}

		ticket.OwnerName, ticket.OwnerEmail, ticket.OwnerPhone = owner.Name, owner.Email, owner.Phone
		ticket.TransferCount++
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger := s.log.WithFields(logrus.Fields{
		"ticket_id":      updated.ID,
		"transfer_count": updated.TransferCount,
	})
	logger.Info("ticket transferred")
	s.publish(logger, KeyTicketTransferred, updated)
	return updated, nil
}

// transferable checks the transfer preconditions in a fixed order so the
// caller gets the most specific reason.
func transferable(t *models.Ticket) error {
	switch {
	case !t.IsTransferable:
		return ErrTicketNotTransferable
	case t.Status != models.TicketActive:
		return ErrTicketNotActive
	case t.PaymentStatus != models.PaymentPaid:
		return ErrTicketUnpaid
	case t.TransferCount >= t.MaxTransfers:
		return ErrTransferLimitReached
	}
	return nil
}

func (s *ticketService) ValidateAtEntry(ctx context.Context, ref, operatorID string) (*TicketValidationResult, error) {
	ticket, err := s.GetTicket(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return ticketReject(http.StatusNotFound, StatusInvalid, "Ticket not found", nil), nil
		}
		if errors.Is(err, token.ErrDecode) || errors.Is(err, token.ErrSignature) {
			return ticketReject(http.StatusBadRequest, StatusInvalid, "Invalid ticket code", nil), nil
		}
		return nil, err
	}

	logger := s.log.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"operator_id": operatorID,
	})

	now := s.now()
	if res := s.entryGate(ctx, logger, ticket, now); res != nil {
		return res, nil
	}

	attendance := &models.Attendance{
		EventID:    ticket.EventID,
		TicketID:   &ticket.ID,
		OperatorID: operatorID,
		Outcome:    models.OutcomeValid,
		Method:     models.MethodTicket,
	}
	var lost bool
	err = s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		ok, err := s.Tickets.MarkUsed(ctx, tx, ticket.ID, operatorID, now)
		if err != nil {
			return err
		}
		if !ok {
			lost = true
			return nil
		}
		return s.Attendance.Create(ctx, tx, attendance)
	})
	if err != nil {
		return nil, fmt.Errorf("commit ticket use: %w", err)
	}
	if lost {
		// Someone else changed the ticket between our read and write.
		fresh, err := s.Tickets.FindByID(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		if res := s.entryGate(ctx, logger, fresh, now); res != nil {
			return res, nil
		}
		return nil, fmt.Errorf("ticket %s could not be marked used", ticket.ID)
	}

	ticket.Status = models.TicketUsed
	ticket.UsedAt = &now
	ticket.ScannedBy = operatorID

	if s.Presence != nil && operatorID != "" {
		if err := s.Presence.Touch(ctx, ticket.EventID, operatorID); err != nil {
			logger.WithError(err).Warn("presence update failed")
		}
	}
	logger.Info("ticket admitted")
	s.publish(logger, KeyTicketUsed, ticket)

	return &TicketValidationResult{
		HTTPStatus: http.StatusOK,
		Success:    true,
		Status:     StatusValid,
		Message:    "Ticket admitted",
		UsedAt:     &now,
		Ticket:     ticket,
	}, nil
}

// entryGate returns a rejection for a ticket that may not enter, or nil.
func (s *ticketService) entryGate(ctx context.Context, logger *logrus.Entry, t *models.Ticket, now time.Time) *TicketValidationResult {
	switch {
	case t.Status == models.TicketUsed:
		res := ticketReject(http.StatusConflict, StatusDuplicate, "Ticket has already been used", t)
		res.UsedAt = t.UsedAt
		if t.UsedAt != nil {
			res.Message = fmt.Sprintf("Ticket was already used at %s", t.UsedAt.Format(time.RFC3339))
		}
		return res
	case t.PaymentStatus != models.PaymentPaid:
		res := ticketReject(http.StatusPaymentRequired, StatusRequiresPayment, "Ticket has not been paid for", t)
		res.RequiresPayment = true
		res.PaymentMethod = t.PaymentMethod
		return res
	case t.Status != models.TicketActive:
		return ticketReject(http.StatusBadRequest, StatusInvalid, fmt.Sprintf("Ticket is %s", t.Status), t)
	case t.ExpiresAt != nil && now.After(*t.ExpiresAt):
		if _, err := s.Tickets.MarkExpired(ctx, t.ID); err != nil {
			logger.WithError(err).Warn("could not mark ticket expired")
		} else {
			t.Status = models.TicketExpired
		}
		return ticketReject(http.StatusBadRequest, StatusInvalid, "Ticket has expired", t)
	}
	return nil
}

func ticketReject(code int, status ValidationStatus, msg string, t *models.Ticket) *TicketValidationResult {
	return &TicketValidationResult{HTTPStatus: code, Status: status, Message: msg, Ticket: t}
}

// GetTicket accepts a ticket id, a ticket number or the QR token itself.
func (s *ticketService) GetTicket(ctx context.Context, ref string) (*models.Ticket, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrTicketNotFound
	}

	var (
		ticket *models.Ticket
		err    error
	)
	switch {
	case strings.Contains(ref, "."):
		p, derr := s.Codec.Decode(ref)
		if derr != nil {
			return nil, derr
		}
		if p.Kind != token.KindTicket || p.TicketID == "" {
			return nil, fmt.Errorf("%w: not a ticket code", token.ErrDecode)
		}
		ticket, err = s.Tickets.FindByID(ctx, p.TicketID)
		if err == nil && ticket.Token != ref {
			return nil, ErrTicketNotFound
		}
	case isTicketNumber(ref):
		ticket, err = s.Tickets.FindByNumber(ctx, strings.ToUpper(ref))
	default:
		ticket, err = s.Tickets.FindByID(ctx, ref)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func isTicketNumber(ref string) bool {
	if len(ref) != 9 || !strings.EqualFold(ref[:3], "TKT") {
		return false
	}
	_, err := strconv.ParseUint(ref[3:], 36, 64)
	return err == nil
}

func (s *ticketService) ListTransfers(ctx context.Context, ticketID string) ([]models.TicketTransfer, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.Tickets.FindTransfers(ctx, ticket.ID)
}

func (s *ticketService) publish(logger *logrus.Entry, key string, payload any) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(key, payload); err != nil {
		logger.WithError(err).Warn("publish failed")
	}
}
