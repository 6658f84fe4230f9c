package models

import "time"

type MemberStatus string

const (
	MemberOffline MemberStatus = "offline"
	MemberOnline  MemberStatus = "online"
)

type Member struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"not null" json:"name"`
	Email        string       `gorm:"index" json:"email"`
	Phone        string       `json:"phone,omitempty"`
	Body         string       `json:"body"`
	ChandaNumber string       `json:"chanda_number"`
	Circuit      string       `json:"circuit"`
	Status       MemberStatus `gorm:"type:varchar(20);not null;default:'offline'" json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
