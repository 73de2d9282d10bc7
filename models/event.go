package models

import (
	"time"
)

// Event statuses as stored in the events collection.
const (
	EventStatusDraft     = "draft"
	EventStatusPublish   = "publish"
	EventStatusCancelled = "cancelled"
)

type Event struct {
	ID          string       `json:"id" bson:"_id"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description" bson:"description"`
	Location    string       `json:"location" bson:"location"`
	StartDate   time.Time    `json:"start_date" bson:"start_date"`
	EndDate     time.Time    `json:"end_date" bson:"end_date"`
	Capacity    int          `json:"capacity" bson:"capacity"`
	Status      string       `json:"status" bson:"status"` // draft, publish, cancelled
	TicketTypes []TicketType `json:"ticket_types" bson:"ticket_types"`
	SeatingMap  *SeatingMap  `json:"seating_map,omitempty" bson:"seating_map,omitempty"`
}

// HasSeating reports whether the event carries a seating map with at least one section.
func (e *Event) HasSeating() bool {
	return e.SeatingMap != nil && len(e.SeatingMap.Sections) > 0
}

// TicketType returns the ticket type with the given id.
func (e *Event) TicketType(id string) (TicketType, bool) {
	for _, tt := range e.TicketTypes {
		if tt.ID == id {
			return tt, true
		}
	}
	return TicketType{}, false
}

// IsValidEventID rejects the empty string and the literal placeholders a client
// produces when serializing a missing id.
func IsValidEventID(id string) bool {
	switch id {
	case "", "null", "undefined":
		return false
	}
	return true
}
