package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type TicketType struct {
	ID       string          `json:"id" bson:"id"`
	Name     string          `json:"name" bson:"name"`
	Price    decimal.Decimal `json:"price" bson:"price"`
	Color    string          `json:"color,omitempty" bson:"color,omitempty"`
	Quantity int             `json:"quantity" bson:"quantity"`
	Sold     int             `json:"sold" bson:"sold"`
}

// Available is the number of tickets left for sale, never negative.
func (t TicketType) Available() int {
	if n := t.Quantity - t.Sold; n > 0 {
		return n
	}
	return 0
}

// FindTicketType resolves a section's ticket tier reference. The reference is
// matched against the ticket type id first and then, case-insensitively, its name.
func FindTicketType(types []TicketType, ref string) (TicketType, bool) {
	if ref == "" {
		return TicketType{}, false
	}
	for _, tt := range types {
		if tt.ID == ref {
			return tt, true
		}
	}
	for _, tt := range types {
		if strings.EqualFold(tt.Name, ref) {
			return tt, true
		}
	}
	return TicketType{}, false
}

// SelectedSeat is one line of a seat selection.
type SelectedSeat struct {
	Key            string          `json:"key"`
	SeatID         string          `json:"seat_id,omitempty"`
	SectionName    string          `json:"section_name"`
	RowName        string          `json:"row_name"`
	SeatNumber     string          `json:"seat_number"`
	TicketTypeID   string          `json:"ticket_type_id"`
	TicketTypeName string          `json:"ticket_type_name"`
	Price          decimal.Decimal `json:"price"`
}

// TicketSelection is one line of a quantity based (seat-less) selection.
type TicketSelection struct {
	TicketTypeID   string          `json:"ticket_type_id"`
	TicketTypeName string          `json:"ticket_type_name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// UnmarshalJSON also accepts the "_id" spelling used by document stores.
func (t *TicketType) UnmarshalJSON(data []byte) error {
	type alias TicketType
	var raw struct {
		alias
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = TicketType(raw.alias)
	if t.ID == "" {
		t.ID = raw.MongoID
	}
	return nil
}
