package models

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventTypeRegistration EventType = "registration"
	EventTypeTicket       EventType = "ticket"
)

// Event is the local copy of an event owned by the event service. Rows are
// upserted by the RabbitMQ consumer and only read here.
type Event struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Name                string     `gorm:"not null" json:"name"`
	Type                EventType  `gorm:"type:varchar(20);not null;default:'registration'" json:"type"`
	StartAt             time.Time  `json:"start_at"`
	EndAt               *time.Time `json:"end_at,omitempty"`
	RegistrationStartAt *time.Time `json:"registration_start_at,omitempty"`
	RegistrationEndAt   *time.Time `json:"registration_end_at,omitempty"`
	EligibleGroups      []string   `gorm:"serializer:json" json:"eligible_groups"`
	Currency            string     `gorm:"type:varchar(8);default:'NGN'" json:"currency"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	TicketCategories []TicketCategory `gorm:"foreignKey:EventID" json:"ticket_categories,omitempty"`
}

// RegistrationOpen reports whether t falls inside the registration window.
// Missing bounds are treated as open-ended.
func (e *Event) RegistrationOpen(t time.Time) bool {
	if e.RegistrationStartAt != nil && t.Before(*e.RegistrationStartAt) {
		return false
	}
	if e.RegistrationEndAt != nil && t.After(*e.RegistrationEndAt) {
		return false
	}
	return true
}

type TicketCategory struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	EventID      uint       `gorm:"not null;index" json:"event_id"`
	Name         string     `gorm:"not null" json:"name"`
	Price        float64    `gorm:"not null;default:0" json:"price"`
	Currency     string     `gorm:"type:varchar(8)" json:"currency"`
	Quota        int        `gorm:"not null;default:0" json:"quota"`
	Sold         int        `gorm:"not null;default:0" json:"sold"`
	SalesStartAt *time.Time `json:"sales_start_at,omitempty"`
	SalesEndAt   *time.Time `json:"sales_end_at,omitempty"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UnmarshalJSON treats a missing is_active as true. The column carries no
// database default, so an explicit false survives Create and upsert.
func (c *TicketCategory) UnmarshalJSON(data []byte) error {
	type plain TicketCategory
	aux := plain{IsActive: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = TicketCategory(aux)
	return nil
}

// OnSale reports whether the category can be bought at t, ignoring quota.
func (c *TicketCategory) OnSale(t time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.SalesStartAt != nil && t.Before(*c.SalesStartAt) {
		return false
	}
	if c.SalesEndAt != nil && t.After(*c.SalesEndAt) {
		return false
	}
	return true
}

// SoldOut is false for categories without a quota.
func (c *TicketCategory) SoldOut() bool {
	return c.Quota > 0 && c.Sold >= c.Quota
}
