package repository

import (
	"context"
	"time"

	"ticket-seating/models"
)

// EventRepository loads events with their ticket types and seating map.
// Implementations return status.ErrEventNotFound for unknown ids.
type EventRepository interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	ListPublished(ctx context.Context) ([]models.Event, error)
	SaveSeatingMap(ctx context.Context, id string, m *models.SeatingMap) error
	// AddSold adds confirmed sales, keyed by ticket type id, to the sold
	// counters of an event.
	AddSold(ctx context.Context, id string, tickets map[string]int) error
}

// BookingRepository records confirmed checkouts. Saving the same payment twice
// is not an error.
type BookingRepository interface {
	SaveBooking(ctx context.Context, p *models.Payment) error
}

const (
	eventsCollection   = "events"
	bookingsCollection = "bookings"
)

// bookingFields is the stored form of a booking. Amounts are kept as decimal
// strings.
func bookingFields(p *models.Payment) map[string]any {
	fields := map[string]any{
		"payment_id":     p.ID,
		"session_id":     p.SessionID,
		"event_id":       p.EventID,
		"seats":          p.Seats,
		"tickets":        p.Tickets,
		"amount":         p.Amount.String(),
		"status":         p.Status,
		"payment_method": p.PaymentMethod,
		"reference":      p.Reference,
		"completed_at":   p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.CompletedAt != nil {
		fields["completed_at"] = p.CompletedAt.UTC().Format(time.RFC3339)
	}
	return fields
}
