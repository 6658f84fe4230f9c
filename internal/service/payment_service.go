package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/repository"
	"github.com/Eursukkul/attendance-service/pkg/payment"
	"github.com/sirupsen/logrus"
)

var ErrPaymentMismatch = errors.New("paid amount or currency does not match the ticket")

// PaymentService settles gateway payments, either from the gateway callback
// or from the periodic reconciliation sweep.
type PaymentService interface {
	Confirm(ctx context.Context, reference string) (*models.Ticket, error)
	ReconcilePending(ctx context.Context) (int, error)
}

type paymentService struct {
	tickets   repository.TicketRepository
	gateway   PaymentGateway
	publisher Publisher
	minAge    time.Duration
	batch     int
	now       clock
	log       *logrus.Entry
}

// NewPaymentService builds the settlement service. Pending tickets younger
// than minAge are left for the buyer to finish checkout.
func NewPaymentService(tickets repository.TicketRepository, gateway PaymentGateway, publisher Publisher, minAge time.Duration) PaymentService {
	return &paymentService{
		tickets:   tickets,
		gateway:   gateway,
		publisher: publisher,
		minAge:    minAge,
		batch:     100,
		now:       time.Now,
		log:       logrus.WithField("component", "payments"),
	}
}

func (s *paymentService) Confirm(ctx context.Context, reference string) (*models.Ticket, error) {
	reference = strings.TrimSpace(reference)
	ticket, err := s.tickets.FindByReference(ctx, reference)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if ticket.PaymentStatus != models.PaymentPending {
		return ticket, nil
	}
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}

	v, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	logger := s.log.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"reference": reference,
		"gateway":   v.Status,
	})

	var status models.PaymentStatus
	switch v.Status {
	case payment.StatusSuccess:
		if !amountCovers(v, ticket) {
			logger.WithField("amount", v.Amount).Warn("payment does not match ticket price")
			return nil, ErrPaymentMismatch
		}
		status = models.PaymentPaid
	case payment.StatusFailed, payment.StatusAbandoned:
		status = models.PaymentFailed
	default:
		return ticket, nil
	}

	at := s.now()
	if v.PaidAt != nil {
		at = *v.PaidAt
	}
	settled, err := s.tickets.SettlePayment(ctx, reference, status, at)
	if err != nil {
		return nil, fmt.Errorf("settle payment: %w", err)
	}

	fresh, err := s.tickets.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if settled {
		logger.WithField("payment_status", status).Info("payment settled")
		if status == models.PaymentPaid && s.publisher != nil {
			if err := s.publisher.Publish(KeyTicketPaid, fresh); err != nil {
				logger.WithError(err).Warn("publish failed")
			}
		}
	}
	return fresh, nil
}

func amountCovers(v *payment.Verification, t *models.Ticket) bool {
	if v.Currency != "" && t.Currency != "" && !strings.EqualFold(v.Currency, t.Currency) {
		return false
	}
	return math.Round(v.Amount*100) >= math.Round(t.Price*100)
}

// ReconcilePending verifies stale pending gateway tickets and returns how
// many were settled. One failing reference does not stop the sweep.
func (s *paymentService) ReconcilePending(ctx context.Context) (int, error) {
	pending, err := s.tickets.FindPendingGateway(ctx, s.now().Add(-s.minAge), s.batch)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, t := range pending {
		if t.PaymentReference == nil {
			continue
		}
		fresh, err := s.Confirm(ctx, *t.PaymentReference)
		if err != nil {
			s.log.WithError(err).WithField("ticket_id", t.ID).Warn("reconcile failed")
			continue
		}
		if fresh.PaymentStatus != models.PaymentPending {
			settled++
		}
	}
	if len(pending) > 0 {
		s.log.WithFields(logrus.Fields{"checked": len(pending), "settled": settled}).Info("payment reconciliation finished")
	}
	return settled, nil
}
