package models

import "time"

// ListingEvent is one analytics event recorded against a listing.
// Rows are written by the analytics collaborator; this module only aggregates them.
type ListingEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID string    `gorm:"type:varchar(64);not null;index:idx_listing_event" json:"listing_id"`
	EventType EventType `gorm:"type:varchar(10);not null;index:idx_event_window,priority:1" json:"event_type"`
	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime;index:idx_event_window,priority:2" json:"created_at"`
}

// TableName specifies the table name
func (ListingEvent) TableName() string {
	return "listing_events"
}

type EventType string

const (
	EventTypeView EventType = "view"
	EventTypeSave EventType = "save"
)
