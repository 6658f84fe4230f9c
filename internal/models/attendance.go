package models

import "time"

type AttendanceOutcome string

const OutcomeValid AttendanceOutcome = "valid"

// Attendance is the append-only audit row written by a successful validation.
type Attendance struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	EventID        uint              `gorm:"not null;index" json:"event_id"`
	RegistrationID *string           `gorm:"type:varchar(36)" json:"registration_id,omitempty"`
	TicketID       *string           `gorm:"type:varchar(36)" json:"ticket_id,omitempty"`
	OperatorID     string            `gorm:"not null" json:"operator_id"`
	Outcome        AttendanceOutcome `gorm:"type:varchar(20);not null" json:"outcome"`
	Method         ValidationMethod  `gorm:"type:varchar(30);not null" json:"method"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (Attendance) TableName() string { return "attendance" }
