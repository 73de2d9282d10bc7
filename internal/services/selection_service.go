package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ticket-seating/internal/kv"
	"ticket-seating/internal/seating"
	"ticket-seating/internal/selection"
	"ticket-seating/internal/status"
	"ticket-seating/models"
	"ticket-seating/monitoring"

	"github.com/shopspring/decimal"
)

// SelectionService keeps the in-progress selection of a booking session: the
// picked seats of seating events and the ticket quantities of simple events.
type SelectionService struct {
	store    kv.Store
	seats    *SeatService
	renderer *seating.Renderer
	monitor  *monitoring.Monitor
	ttl      time.Duration
	logger   *slog.Logger
}

func NewSelectionService(store kv.Store, seats *SeatService, renderer *seating.Renderer, monitor *monitoring.Monitor, ttl time.Duration, logger *slog.Logger) *SelectionService {
	return &SelectionService{
		store:    store,
		seats:    seats,
		renderer: renderer,
		monitor:  monitor,
		ttl:      ttl,
		logger:   orDiscard(logger),
	}
}

func selectionKey(eventID, sessionID string) string {
	return fmt.Sprintf("selection:%s:%s", eventID, sessionID)
}

func quantitiesKey(eventID, sessionID string) string {
	return fmt.Sprintf("tickets:%s:%s", eventID, sessionID)
}

// ToggleResult is the selection after a toggle.
type ToggleResult struct {
	Key      string                `json:"key"`
	Selected bool                  `json:"selected"`
	Seats    []models.SelectedSeat `json:"seats"`
	Total    decimal.Decimal       `json:"total"`
}

// Load returns the seat selection of a session. An unreadable stored selection
// starts over empty.
func (s *SelectionService) Load(ctx context.Context, eventID, sessionID string) (*selection.Selection, error) {
	sel := selection.New()
	raw, ok, err := s.store.Get(ctx, selectionKey(eventID, sessionID))
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}
	if !ok {
		return sel, nil
	}
	if err := json.Unmarshal([]byte(raw), sel); err != nil {
		s.logger.Warn("Dropping unreadable selection", "event_id", eventID, "session_id", sessionID, "error", err)
		return selection.New(), nil
	}
	return sel, nil
}

func (s *SelectionService) save(ctx context.Context, key string, v json.Marshaler) error {
	payload, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}
	if err := s.store.Set(ctx, key, string(payload), s.ttl); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// live applies the live seat statuses to the seating map of event.
func (s *SelectionService) live(ctx context.Context, event *models.Event, sessionID string) error {
	if !event.HasSeating() {
		return status.ErrNoSeatingMap
	}
	return s.seats.Overlay(ctx, event.ID, sessionID, event.SeatingMap)
}

// Current returns the seat selection of a session on event, without the seats
// that are no longer in its seating map.
func (s *SelectionService) Current(ctx context.Context, event *models.Event, sessionID string) (*selection.Selection, error) {
	sel, err := s.Load(ctx, event.ID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.prune(ctx, event, sessionID, sel); err != nil {
		return nil, err
	}
	return sel, nil
}

// prune drops selected seats that a layout change removed from the seating map.
func (s *SelectionService) prune(ctx context.Context, event *models.Event, sessionID string, sel *selection.Selection) error {
	if sel.Len() == 0 {
		return nil
	}
	index := event.SeatingMap.Index()
	var dropped []string
	for _, key := range sel.Keys() {
		if _, ok := index[key]; !ok && sel.Remove(key) {
			dropped = append(dropped, key)
		}
	}
	if len(dropped) == 0 {
		return nil
	}
	s.logger.Info("Dropped seats missing from the seating map", "event_id", event.ID, "session_id", sessionID, "seats", dropped)
	return s.save(ctx, selectionKey(event.ID, sessionID), sel)
}

// Toggle selects or deselects the seat with the given key for a session.
func (s *SelectionService) Toggle(ctx context.Context, event *models.Event, sessionID, seatKey string) (*ToggleResult, error) {
	if err := s.live(ctx, event, sessionID); err != nil {
		return nil, err
	}
	return s.toggle(ctx, event, sessionID, seatKey)
}

// ToggleAt toggles the seat under a point of the scene, the way a click on
// the chart does. A point off every seat is ErrSeatNotFound and a seat that
// can be neither picked nor dropped is ErrSeatUnavailable.
func (s *SelectionService) ToggleAt(ctx context.Context, event *models.Event, sessionID string, p seating.Point) (*ToggleResult, error) {
	scene, _, err := s.Scene(ctx, event, sessionID)
	if err != nil {
		return nil, err
	}
	seat, ok := scene.SeatAt(p)
	if !ok {
		s.monitor.TrackToggle("rejected")
		return nil, fmt.Errorf("%w: no seat at %g,%g", status.ErrSeatNotFound, p.X, p.Y)
	}
	if !scene.Clickable(seat.Key) {
		s.monitor.TrackToggle("rejected")
		return nil, fmt.Errorf("%w: %s", status.ErrSeatUnavailable, seat.Key)
	}
	return s.toggle(ctx, event, sessionID, seat.Key)
}

// toggle expects the live statuses to be applied to the seating map already.
func (s *SelectionService) toggle(ctx context.Context, event *models.Event, sessionID, seatKey string) (*ToggleResult, error) {
	ref, ok := event.SeatingMap.Index()[seatKey]
	if !ok {
		s.monitor.TrackToggle("rejected")
		return nil, fmt.Errorf("%w: %s", status.ErrSeatNotFound, seatKey)
	}

	sel, err := s.Current(ctx, event, sessionID)
	if err != nil {
		return nil, err
	}
	selected, err := sel.Toggle(ref.Section, ref.Row, ref.Seat, event.TicketTypes)
	if err != nil {
		s.monitor.TrackToggle("rejected")
		s.logger.Debug("Seat toggle rejected", "event_id", event.ID, "session_id", sessionID, "seat", seatKey, "error", err)
		return nil, err
	}
	if err := s.save(ctx, selectionKey(event.ID, sessionID), sel); err != nil {
		return nil, err
	}

	result := "deselected"
	if selected {
		result = "selected"
	}
	s.monitor.TrackToggle(result)

	return &ToggleResult{
		Key:      seatKey,
		Selected: selected,
		Seats:    sel.Items(),
		Total:    sel.Total(),
	}, nil
}

// Scene renders the seating chart of event as seen by a session.
func (s *SelectionService) Scene(ctx context.Context, event *models.Event, sessionID string) (*seating.Scene, *selection.Selection, error) {
	if err := s.live(ctx, event, sessionID); err != nil {
		return nil, nil, err
	}
	sel := selection.New()
	if sessionID != "" {
		var err error
		if sel, err = s.Current(ctx, event, sessionID); err != nil {
			return nil, nil, err
		}
	}

	start := time.Now()
	scene, err := s.renderer.Render(event.SeatingMap, event.TicketTypes, sel)
	if err != nil {
		return nil, nil, err
	}
	s.monitor.TrackRender(time.Since(start))
	return scene, sel, nil
}

// Quantities returns the ticket quantities of a session.
func (s *SelectionService) Quantities(ctx context.Context, eventID, sessionID string) (*selection.Quantities, error) {
	q := selection.NewQuantities()
	raw, ok, err := s.store.Get(ctx, quantitiesKey(eventID, sessionID))
	if err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}
	if !ok {
		return q, nil
	}
	if err := json.Unmarshal([]byte(raw), q); err != nil {
		s.logger.Warn("Dropping unreadable ticket quantities", "event_id", eventID, "session_id", sessionID, "error", err)
		return selection.NewQuantities(), nil
	}
	return q, nil
}

// SetQuantity sets how many tickets of a type a session wants.
func (s *SelectionService) SetQuantity(ctx context.Context, event *models.Event, sessionID, ticketTypeID string, quantity int) (*selection.Quantities, error) {
	tt, ok := event.TicketType(ticketTypeID)
	if !ok {
		return nil, selection.ErrMissingTicketType
	}
	q, err := s.Quantities(ctx, event.ID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := q.Set(tt, quantity); err != nil {
		return nil, err
	}
	if err := s.save(ctx, quantitiesKey(event.ID, sessionID), q); err != nil {
		return nil, err
	}
	return q, nil
}

// Clear forgets both selections of a session.
func (s *SelectionService) Clear(ctx context.Context, eventID, sessionID string) error {
	return errors.Join(
		s.store.Remove(ctx, selectionKey(eventID, sessionID)),
		s.store.Remove(ctx, quantitiesKey(eventID, sessionID)),
	)
}
