package models

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type SeatStatus string

const (
	SeatAvailable   SeatStatus = "available"
	SeatReserved    SeatStatus = "reserved"
	SeatSold        SeatStatus = "sold"
	SeatLocked      SeatStatus = "locked"
	SeatMaintenance SeatStatus = "maintenance"
)

// IsAvailable treats an unset status as available.
func (s SeatStatus) IsAvailable() bool {
	return s == "" || s == SeatAvailable
}

// Layout types. Only LayoutCustom trusts stored seat coordinates.
const (
	LayoutTheater = "theater"
	LayoutArena   = "arena"
	LayoutCustom  = "custom"
)

type SeatingMap struct {
	LayoutType   string        `json:"layout_type" bson:"layout_type" yaml:"layout_type"`
	Stage        Stage         `json:"stage" bson:"stage" yaml:"stage"`
	Sections     []Section     `json:"sections" bson:"sections" yaml:"sections"`
	VenueObjects []VenueObject `json:"venue_objects,omitempty" bson:"venue_objects,omitempty" yaml:"venue_objects"`
}

type Stage struct {
	X      float64 `json:"x" bson:"x" yaml:"x"`
	Y      float64 `json:"y" bson:"y" yaml:"y"`
	Width  float64 `json:"width" bson:"width" yaml:"width"`
	Height float64 `json:"height" bson:"height" yaml:"height"`
	Label  string  `json:"label" bson:"label" yaml:"label"`
}

type Section struct {
	ID         string   `json:"id" bson:"id" yaml:"id"`
	Name       string   `json:"name" bson:"name" yaml:"name"`
	X          *float64 `json:"x,omitempty" bson:"x,omitempty" yaml:"x"`
	Y          *float64 `json:"y,omitempty" bson:"y,omitempty" yaml:"y"`
	Width      *float64 `json:"width,omitempty" bson:"width,omitempty" yaml:"width"`
	Height     *float64 `json:"height,omitempty" bson:"height,omitempty" yaml:"height"`
	TicketTier string   `json:"ticket_tier" bson:"ticket_tier" yaml:"ticket_tier"`
	Rows       []Row    `json:"rows" bson:"rows" yaml:"rows"`
}

// MaxSeatsInRow is the seat count of the longest row.
func (s *Section) MaxSeatsInRow() int {
	max := 0
	for _, r := range s.Rows {
		if len(r.Seats) > max {
			max = len(r.Seats)
		}
	}
	return max
}

type Row struct {
	Name  string `json:"name" bson:"name" yaml:"name"`
	Seats []Seat `json:"seats" bson:"seats" yaml:"seats"`
}

type Seat struct {
	ID            string           `json:"id,omitempty" bson:"id,omitempty" yaml:"id"`
	Number        string           `json:"number" bson:"number" yaml:"number"`
	Status        SeatStatus       `json:"status,omitempty" bson:"status,omitempty" yaml:"status"`
	X             *float64         `json:"x,omitempty" bson:"x,omitempty" yaml:"x"`
	Y             *float64         `json:"y,omitempty" bson:"y,omitempty" yaml:"y"`
	OverridePrice *decimal.Decimal `json:"override_price,omitempty" bson:"override_price,omitempty" yaml:"override_price"`
}

// EffectivePrice is the seat override price when present, otherwise the tier price.
func (s *Seat) EffectivePrice(tier TicketType) decimal.Decimal {
	if s.OverridePrice != nil {
		return *s.OverridePrice
	}
	return tier.Price
}

// Venue object types.
const (
	VenueEntrance = "entrance"
	VenueExit     = "exit"
	VenueWC       = "wc"
	VenueFood     = "food"
	VenueDrinks   = "drinks"
	VenueOther    = "other"
)

type VenueObject struct {
	Type   string  `json:"type" bson:"type" yaml:"type"`
	Label  string  `json:"label" bson:"label" yaml:"label"`
	X      float64 `json:"x" bson:"x" yaml:"x"`
	Y      float64 `json:"y" bson:"y" yaml:"y"`
	Width  float64 `json:"width" bson:"width" yaml:"width"`
	Height float64 `json:"height" bson:"height" yaml:"height"`
}

const seatKeySep = "|"

// SeatKey is the canonical identity of a seat: its id when the seat has one,
// otherwise the (section, row, number) composite. It returns "" when neither
// form can be built.
func SeatKey(section, row string, seat Seat) string {
	if seat.ID != "" {
		return seat.ID
	}
	if section == "" || row == "" || seat.Number == "" {
		return ""
	}
	return strings.Join([]string{section, row, seat.Number}, seatKeySep)
}

// IsFinite reports whether p points at a finite number.
func IsFinite(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0)
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// SeatRef points at a seat inside a seating map.
type SeatRef struct {
	Section *Section
	Row     *Row
	Seat    *Seat
}

// Index maps every identifiable seat to its location. Seats without an id or a
// complete composite key are left out.
func (m *SeatingMap) Index() map[string]SeatRef {
	index := make(map[string]SeatRef)
	if m == nil {
		return index
	}
	for si := range m.Sections {
		section := &m.Sections[si]
		for ri := range section.Rows {
			row := &section.Rows[ri]
			for ci := range row.Seats {
				seat := &row.Seats[ci]
				if key := SeatKey(section.Name, row.Name, *seat); key != "" {
					index[key] = SeatRef{Section: section, Row: row, Seat: seat}
				}
			}
		}
	}
	return index
}
