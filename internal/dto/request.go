package dto

import "github.com/Eursukkul/attendance-service/internal/models"

type ScanRequest struct {
	Token      string `json:"token"`
	OperatorID string `json:"operator_id"`
	EventID    uint   `json:"event_id,omitempty"`
}

type ValidateCodeRequest struct {
	Code       string `json:"code"`
	OperatorID string `json:"operator_id"`
	EventID    uint   `json:"event_id,omitempty"`
}

type CreateRegistrationRequest struct {
	MemberID     *uint                   `json:"member_id,omitempty"`
	Type         models.RegistrationKind `json:"type"`
	Name         string                  `json:"name"`
	Email        string                  `json:"email"`
	Phone        string                  `json:"phone"`
	Body         string                  `json:"body"`
	ChandaNumber string                  `json:"chanda_number"`
	Circuit      string                  `json:"circuit"`
}

type PurchaseTicketRequest struct {
	CategoryID    uint                 `json:"category_id"`
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	Phone         string               `json:"phone"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
}

type TransferTicketRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
}

type ValidateTicketRequest struct {
	Ticket     string `json:"ticket"`
	OperatorID string `json:"operator_id"`
}

type PaymentCallbackRequest struct {
	Reference string `json:"reference"`
}
