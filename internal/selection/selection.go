package selection

import (
	"encoding/json"
	"errors"
	"slices"

	"ticket-seating/models"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingTicketType   = errors.New("selection: missing ticket type")
	ErrSeatUnavailable     = errors.New("selection: seat is not available")
	ErrMissingSeatIdentity = errors.New("selection: seat has no identity")
)

// Selection is the set of seats a user picked, keyed by canonical seat key.
// The zero value is not usable; call New.
type Selection struct {
	items map[string]models.SelectedSeat
	order []string
}

func New() *Selection {
	return &Selection{items: make(map[string]models.SelectedSeat)}
}

// Toggle selects an available seat or deselects a selected one. It reports
// whether the seat ended up selected. On error the selection is unchanged.
//
// Deselecting is allowed whatever the current seat status, so a user can drop
// a seat whose status changed after it was picked.
func (s *Selection) Toggle(section *models.Section, row *models.Row, seat *models.Seat, ticketTypes []models.TicketType) (bool, error) {
	key := models.SeatKey(section.Name, row.Name, *seat)
	if key == "" {
		return false, ErrMissingSeatIdentity
	}

	if _, ok := s.items[key]; ok {
		s.remove(key)
		return false, nil
	}

	if !seat.Status.IsAvailable() {
		return false, ErrSeatUnavailable
	}

	tt, ok := models.FindTicketType(ticketTypes, section.TicketTier)
	if !ok {
		return false, ErrMissingTicketType
	}

	s.items[key] = models.SelectedSeat{
		Key:            key,
		SeatID:         seat.ID,
		SectionName:    section.Name,
		RowName:        row.Name,
		SeatNumber:     seat.Number,
		TicketTypeID:   tt.ID,
		TicketTypeName: tt.Name,
		Price:          seat.EffectivePrice(tt),
	}
	s.order = append(s.order, key)
	return true, nil
}

// Remove drops the seat with the given key if present.
func (s *Selection) Remove(key string) bool {
	if _, ok := s.items[key]; !ok {
		return false
	}
	s.remove(key)
	return true
}

func (s *Selection) remove(key string) {
	delete(s.items, key)
	if i := slices.Index(s.order, key); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

func (s *Selection) Contains(key string) bool {
	_, ok := s.items[key]
	return ok
}

func (s *Selection) Len() int {
	return len(s.items)
}

// Keys returns the selected seat keys in selection order.
func (s *Selection) Keys() []string {
	return slices.Clone(s.order)
}

// Items returns the selected seats in selection order.
func (s *Selection) Items() []models.SelectedSeat {
	items := make([]models.SelectedSeat, 0, len(s.order))
	for _, key := range s.order {
		items = append(items, s.items[key])
	}
	return items
}

// Total is the sum of the prices of all selected seats.
func (s *Selection) Total() decimal.Decimal {
	return SumSeats(s.Items())
}

func (s *Selection) Clear() {
	clear(s.items)
	s.order = s.order[:0]
}

func (s *Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON restores a selection. Entries without a key are dropped and
// duplicate keys keep their first occurrence.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var items []models.SelectedSeat
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = make(map[string]models.SelectedSeat, len(items))
	s.order = make([]string, 0, len(items))
	for _, item := range items {
		if item.Key == "" {
			continue
		}
		if _, dup := s.items[item.Key]; dup {
			continue
		}
		s.items[item.Key] = item
		s.order = append(s.order, item.Key)
	}
	return nil
}

// SumSeats adds up seat prices.
func SumSeats(seats []models.SelectedSeat) decimal.Decimal {
	total := decimal.Zero
	for _, seat := range seats {
		total = total.Add(seat.Price)
	}
	return total
}
