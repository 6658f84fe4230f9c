package models

import "time"

type RegistrationKind string

const (
	KindMember  RegistrationKind = "member"
	KindGuest   RegistrationKind = "guest"
	KindInvitee RegistrationKind = "invitee"
)

func (k RegistrationKind) Valid() bool {
	switch k {
	case KindMember, KindGuest, KindInvitee:
		return true
	}
	return false
}

type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusOnline     RegistrationStatus = "online"
	// StatusAttended is written by older clients and means the same as online.
	StatusAttended  RegistrationStatus = "attended"
	StatusCancelled RegistrationStatus = "cancelled"
)

type ValidationMethod string

const (
	MethodQRScan           ValidationMethod = "qr_scan"
	MethodManualValidation ValidationMethod = "manual_validation"
	MethodCSVGated         ValidationMethod = "csv-gated"
	MethodTicket           ValidationMethod = "ticket"
)

// Registration is one person's claim to attend one event. The name, email,
// body, chanda number and circuit are a snapshot taken at submission time and
// are not refreshed when the linked member changes.
type Registration struct {
	ID               string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EventID          uint               `gorm:"not null;index" json:"event_id"`
	MemberID         *uint              `gorm:"index" json:"member_id,omitempty"`
	Kind             RegistrationKind   `gorm:"type:varchar(20);not null" json:"type"`
	Token            string             `gorm:"type:text;uniqueIndex;not null" json:"-"`
	ShortCode        string             `gorm:"type:varchar(6);uniqueIndex;not null" json:"short_code"`
	Name             string             `gorm:"not null" json:"name"`
	Email            string             `json:"email"`
	Phone            string             `json:"phone,omitempty"`
	Body             string             `json:"body"`
	ChandaNumber     string             `json:"chanda_number"`
	Circuit          string             `json:"circuit"`
	Status           RegistrationStatus `gorm:"type:varchar(20);not null;default:'registered'" json:"status"`
	ValidationMethod ValidationMethod   `gorm:"type:varchar(30)" json:"validation_method,omitempty"`
	ValidatedAt      *time.Time         `json:"validated_at,omitempty"`
	ValidatedBy      string             `json:"validated_by,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (r *Registration) IsValidated() bool {
	return r.Status == StatusOnline || r.Status == StatusAttended
}
