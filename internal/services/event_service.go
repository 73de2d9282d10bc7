package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"ticket-seating/internal/repository"
	"ticket-seating/internal/status"
	"ticket-seating/models"
)

// BookingFlow is the booking page an event is routed to.
type BookingFlow string

const (
	FlowSeating BookingFlow = "seating"
	FlowSimple  BookingFlow = "simple"
	FlowInvalid BookingFlow = "invalid"
)

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}

type EventService struct {
	repo   repository.EventRepository
	logger *slog.Logger
}

func NewEventService(repo repository.EventRepository, logger *slog.Logger) *EventService {
	return &EventService{repo: repo, logger: orDiscard(logger)}
}

// GetEvent loads an event. A result that arrives after ctx was cancelled is
// dropped and the context error returned instead, so a request that moved on
// never sees stale data.
func (s *EventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if !models.IsValidEventID(id) {
		return nil, status.ErrInvalidEventID
	}

	event, err := s.repo.FindByID(ctx, id)
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.logger.Debug("Discarding event fetched after cancellation", "event_id", id)
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) ListPublished(ctx context.Context) ([]models.Event, error) {
	return s.repo.ListPublished(ctx)
}

// UpdateSeatingMap validates m against the ticket types of the event and
// stores it.
func (s *EventService) UpdateSeatingMap(ctx context.Context, id string, m *models.SeatingMap) error {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := ValidateSeatingMap(m, event.TicketTypes); err != nil {
		return err
	}
	if err := s.repo.SaveSeatingMap(ctx, id, m); err != nil {
		return err
	}
	s.logger.Info("Seating map updated", "event_id", id, "sections", len(m.Sections))
	return nil
}

// RecordSales persists the ticket quantities of a confirmed checkout.
func (s *EventService) RecordSales(ctx context.Context, id string, tickets map[string]int) error {
	if len(tickets) == 0 {
		return nil
	}
	if err := s.repo.AddSold(ctx, id, tickets); err != nil {
		return err
	}
	s.logger.Info("Ticket sales recorded", "event_id", id, "ticket_types", len(tickets))
	return nil
}

// BookingFlowFor routes an event: seating when it has a seating map with
// sections, simple otherwise.
func BookingFlowFor(event *models.Event) BookingFlow {
	if event == nil || !models.IsValidEventID(event.ID) {
		return FlowInvalid
	}
	if event.HasSeating() {
		return FlowSeating
	}
	return FlowSimple
}

// ValidateSeatingMap checks that every section resolves to a ticket type and
// every seat has a unique identity.
func ValidateSeatingMap(m *models.SeatingMap, ticketTypes []models.TicketType) error {
	if m == nil || len(m.Sections) == 0 {
		return fmt.Errorf("%w: no sections", status.ErrInvalidLayout)
	}
	switch m.LayoutType {
	case "", models.LayoutTheater, models.LayoutArena, models.LayoutCustom:
	default:
		return fmt.Errorf("%w: unknown layout type %q", status.ErrInvalidLayout, m.LayoutType)
	}

	seen := make(map[string]struct{})
	for _, section := range m.Sections {
		if _, ok := models.FindTicketType(ticketTypes, section.TicketTier); !ok {
			return fmt.Errorf("%w: section %q references unknown ticket tier %q", status.ErrInvalidLayout, section.Name, section.TicketTier)
		}
		for _, row := range section.Rows {
			for _, seat := range row.Seats {
				key := models.SeatKey(section.Name, row.Name, seat)
				if key == "" {
					return fmt.Errorf("%w: seat without identity in section %q row %q", status.ErrInvalidLayout, section.Name, row.Name)
				}
				if _, dup := seen[key]; dup {
					return fmt.Errorf("%w: duplicate seat %q", status.ErrInvalidLayout, key)
				}
				seen[key] = struct{}{}
			}
		}
	}
	return nil
}
