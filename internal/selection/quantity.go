package selection

import (
	"encoding/json"
	"errors"
	"slices"

	"ticket-seating/models"

	"github.com/shopspring/decimal"
)

// MaxTicketsPerType caps a single line of a quantity selection.
const MaxTicketsPerType = 10

var (
	ErrInvalidQuantity     = errors.New("selection: invalid ticket quantity")
	ErrInsufficientTickets = errors.New("selection: not enough tickets left")
)

// Quantities is the ticket-quantity selection of events without a seating map.
type Quantities struct {
	items map[string]models.TicketSelection
	order []string
}

func NewQuantities() *Quantities {
	return &Quantities{items: make(map[string]models.TicketSelection)}
}

// Set replaces the quantity of a ticket type. Zero removes the line.
func (q *Quantities) Set(tt models.TicketType, quantity int) error {
	if tt.ID == "" {
		return ErrMissingTicketType
	}
	if quantity < 0 || quantity > MaxTicketsPerType {
		return ErrInvalidQuantity
	}
	if quantity > tt.Available() {
		return ErrInsufficientTickets
	}

	if quantity == 0 {
		delete(q.items, tt.ID)
		if i := slices.Index(q.order, tt.ID); i >= 0 {
			q.order = slices.Delete(q.order, i, i+1)
		}
		return nil
	}

	if _, ok := q.items[tt.ID]; !ok {
		q.order = append(q.order, tt.ID)
	}
	q.items[tt.ID] = models.TicketSelection{
		TicketTypeID:   tt.ID,
		TicketTypeName: tt.Name,
		Quantity:       quantity,
		UnitPrice:      tt.Price,
		Subtotal:       tt.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
	return nil
}

func (q *Quantities) Quantity(ticketTypeID string) int {
	return q.items[ticketTypeID].Quantity
}

func (q *Quantities) Len() int {
	return len(q.items)
}

// Items returns the lines in the order they were first set.
func (q *Quantities) Items() []models.TicketSelection {
	items := make([]models.TicketSelection, 0, len(q.order))
	for _, id := range q.order {
		items = append(items, q.items[id])
	}
	return items
}

func (q *Quantities) Total() decimal.Decimal {
	return SumTickets(q.Items())
}

func (q *Quantities) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Items())
}

func (q *Quantities) UnmarshalJSON(data []byte) error {
	var items []models.TicketSelection
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	q.items = make(map[string]models.TicketSelection, len(items))
	q.order = make([]string, 0, len(items))
	for _, item := range items {
		if item.TicketTypeID == "" || item.Quantity <= 0 {
			continue
		}
		if _, dup := q.items[item.TicketTypeID]; dup {
			continue
		}
		q.items[item.TicketTypeID] = item
		q.order = append(q.order, item.TicketTypeID)
	}
	return nil
}

// SumTickets adds up line subtotals.
func SumTickets(lines []models.TicketSelection) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal)
	}
	return total
}
