package dto

import (
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/service"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type EventSummary struct {
	ID   uint             `json:"id"`
	Name string           `json:"name"`
	Type models.EventType `json:"type"`
}

type ValidationResponse struct {
	Status       service.ValidationStatus `json:"status"`
	Message      string                   `json:"message"`
	Registration *RegistrationResponse    `json:"registration,omitempty"`
	Member       *models.Member           `json:"member,omitempty"`
	Event        *EventSummary            `json:"event,omitempty"`
	Attendance   *models.Attendance       `json:"attendance,omitempty"`
}

func ToValidationResponse(r *service.ValidationResult) ValidationResponse {
	resp := ValidationResponse{
		Status:     r.Status,
		Message:    r.Message,
		Member:     r.Member,
		Attendance: r.Attendance,
	}
	if r.Registration != nil {
		reg := ToRegistrationResponse(r.Registration, false)
		resp.Registration = &reg
	}
	if r.Event != nil {
		resp.Event = &EventSummary{ID: r.Event.ID, Name: r.Event.Name, Type: r.Event.Type}
	}
	return resp
}

type RegistrationResponse struct {
	ID               string                    `json:"id"`
	EventID          uint                      `json:"event_id"`
	MemberID         *uint                     `json:"member_id,omitempty"`
	Type             models.RegistrationKind   `json:"type"`
	Name             string                    `json:"name"`
	Email            string                    `json:"email,omitempty"`
	Body             string                    `json:"body,omitempty"`
	ChandaNumber     string                    `json:"chanda_number,omitempty"`
	Circuit          string                    `json:"circuit,omitempty"`
	Status           models.RegistrationStatus `json:"status"`
	ValidationMethod models.ValidationMethod   `json:"validation_method,omitempty"`
	ValidatedAt      *time.Time                `json:"validated_at,omitempty"`
	ShortCode        string                    `json:"short_code,omitempty"`
	QRToken          string                    `json:"qr_token,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// ToRegistrationResponse only exposes the QR token and short code to the
// registrant, never in scan results.
func ToRegistrationResponse(r *models.Registration, withCodes bool) RegistrationResponse {
	resp := RegistrationResponse{
		ID:               r.ID,
		EventID:          r.EventID,
		MemberID:         r.MemberID,
		Type:             r.Kind,
		Name:             r.Name,
		Email:            r.Email,
		Body:             r.Body,
		ChandaNumber:     r.ChandaNumber,
		Circuit:          r.Circuit,
		Status:           r.Status,
		ValidationMethod: r.ValidationMethod,
		ValidatedAt:      r.ValidatedAt,
		CreatedAt:        r.CreatedAt,
	}
	if withCodes {
		resp.ShortCode = r.ShortCode
		resp.QRToken = r.Token
	}
	return resp
}

type PurchaseResponse struct {
	TicketID      string               `json:"ticket_id"`
	TicketNumber  string               `json:"ticket_number"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	PaymentURL    string               `json:"payment_url,omitempty"`
	QRToken       string               `json:"qr_token"`
}

func ToPurchaseResponse(r *service.PurchaseResult) PurchaseResponse {
	return PurchaseResponse{
		TicketID:      r.Ticket.ID,
		TicketNumber:  r.Ticket.TicketNumber,
		PaymentStatus: r.Ticket.PaymentStatus,
		PaymentURL:    r.PaymentURL,
		QRToken:       r.Ticket.Token,
	}
}

type TicketResponse struct {
	ID             string               `json:"id"`
	TicketNumber   string               `json:"ticket_number"`
	EventID        uint                 `json:"event_id"`
	Category       string               `json:"category"`
	Price          float64              `json:"price"`
	Currency       string               `json:"currency"`
	PaymentMethod  models.PaymentMethod `json:"payment_method"`
	PaymentStatus  models.PaymentStatus `json:"payment_status"`
	Owner          models.TicketOwner   `json:"owner"`
	Status         models.TicketStatus  `json:"status"`
	TransferCount  int                  `json:"transfer_count"`
	MaxTransfers   int                  `json:"max_transfers"`
	IsTransferable bool                 `json:"is_transferable"`
	ExpiresAt      *time.Time           `json:"expires_at,omitempty"`
	UsedAt         *time.Time           `json:"used_at,omitempty"`
}

func ToTicketResponse(t *models.Ticket) TicketResponse {
	return TicketResponse{
		ID:             t.ID,
		TicketNumber:   t.TicketNumber,
		EventID:        t.EventID,
		Category:       t.CategoryName,
		Price:          t.Price,
		Currency:       t.Currency,
		PaymentMethod:  t.PaymentMethod,
		PaymentStatus:  t.PaymentStatus,
		Owner:          t.Owner(),
		Status:         t.Status,
		TransferCount:  t.TransferCount,
		MaxTransfers:   t.MaxTransfers,
		IsTransferable: t.IsTransferable,
		ExpiresAt:      t.ExpiresAt,
		UsedAt:         t.UsedAt,
	}
}

type TransferResponse struct {
	Status        string `json:"status"`
	TicketID      string `json:"ticket_id"`
	TransferCount int    `json:"transfer_count"`
}

type TicketValidationResponse struct {
	Success         bool                     `json:"success"`
	Status          service.ValidationStatus `json:"status"`
	Message         string                   `json:"message"`
	RequiresPayment bool                     `json:"requires_payment,omitempty"`
	PaymentMethod   models.PaymentMethod     `json:"payment_method,omitempty"`
	UsedAt          *time.Time               `json:"used_at,omitempty"`
	Ticket          *TicketResponse          `json:"ticket,omitempty"`
}

func ToTicketValidationResponse(r *service.TicketValidationResult) TicketValidationResponse {
	resp := TicketValidationResponse{
		Success:         r.Success,
		Status:          r.Status,
		Message:         r.Message,
		RequiresPayment: r.RequiresPayment,
		PaymentMethod:   r.PaymentMethod,
		UsedAt:          r.UsedAt,
	}
	if r.Ticket != nil {
		t := ToTicketResponse(r.Ticket)
		resp.Ticket = &t
	}
	return resp
}

type AttendanceSummaryResponse struct {
	EventID uint                `json:"event_id"`
	Total   int                 `json:"total"`
	Records []models.Attendance `json:"records"`
}
