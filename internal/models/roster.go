package models

import "time"

// RosterUpload is one organizer-supplied member list for an event.
type RosterUpload struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	EventID    uint          `gorm:"not null;index" json:"event_id"`
	FileName   string        `gorm:"not null" json:"file_name"`
	ObjectKey  string        `json:"object_key,omitempty"`
	RowCount   int           `gorm:"not null;default:0" json:"row_count"`
	UploadedBy string        `json:"uploaded_by"`
	CreatedAt  time.Time     `json:"created_at"`
	Entries    []RosterEntry `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"entries,omitempty"`
}

// RosterEntry keeps a CSV row verbatim, keyed by the header as uploaded.
type RosterEntry struct {
	ID       uint              `gorm:"primaryKey" json:"id"`
	UploadID uint              `gorm:"not null;index" json:"upload_id"`
	Fields   map[string]string `gorm:"serializer:json;type:jsonb" json:"fields"`
}
