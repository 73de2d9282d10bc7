package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"ticket-seating/internal/checkout"
	"ticket-seating/internal/handoff"
	"ticket-seating/internal/repository"
	"ticket-seating/internal/status"
	"ticket-seating/models"
	"ticket-seating/monitoring"
	"ticket-seating/utils"

	"github.com/google/uuid"
)

// CheckoutService moves a booking session from its selection to a confirmed
// payment. Every step goes through the checkout state machine, so repeating a
// step that already happened has no further effect.
type CheckoutService struct {
	events     *EventService
	selections *SelectionService
	seats      *SeatService
	handoffs   *handoff.Service
	flows      *checkout.Manager
	bookings   repository.BookingRepository
	notifier   Notifier
	publisher  Publisher
	monitor    *monitoring.Monitor
	paymentTTL time.Duration
	code       checkout.CodeFunc
	logger     *slog.Logger
	now        func() time.Time
}

type CheckoutDeps struct {
	Events     *EventService
	Selections *SelectionService
	Seats      *SeatService
	Handoffs   *handoff.Service
	Flows      *checkout.Manager
	Bookings   repository.BookingRepository
	Notifier   Notifier
	Publisher  Publisher
	Monitor    *monitoring.Monitor
}

func NewCheckoutService(deps CheckoutDeps, paymentTTL time.Duration, logger *slog.Logger) *CheckoutService {
	s := &CheckoutService{
		events:     deps.Events,
		selections: deps.Selections,
		seats:      deps.Seats,
		handoffs:   deps.Handoffs,
		flows:      deps.Flows,
		bookings:   deps.Bookings,
		notifier:   deps.Notifier,
		publisher:  deps.Publisher,
		monitor:    deps.Monitor,
		paymentTTL: paymentTTL,
		code:       utils.GenerateCode,
		logger:     orDiscard(logger),
		now:        time.Now,
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	if s.publisher == nil {
		s.publisher = NopPublisher{}
	}
	return s
}

// Handoff turns the current selection of a session into a handoff record,
// locking the selected seats. A repeated handoff replaces the previous record
// and releases seats that are no longer selected.
func (s *CheckoutService) Handoff(ctx context.Context, eventID, sessionID string) (handoff.Record, error) {
	if !utils.IsValidSessionID(sessionID) {
		return handoff.Record{}, status.ErrInvalidSession
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return handoff.Record{}, err
	}

	var record handoff.Record
	switch BookingFlowFor(event) {
	case FlowSeating:
		sel, err := s.selections.Current(ctx, event, sessionID)
		if err != nil {
			return handoff.Record{}, err
		}
		record = handoff.NewSeatingRecord(eventID, sessionID, sel.Items())
	case FlowSimple:
		q, err := s.selections.Quantities(ctx, eventID, sessionID)
		if err != nil {
			return handoff.Record{}, err
		}
		record = handoff.NewSimpleRecord(eventID, sessionID, q.Items())
	default:
		return handoff.Record{}, status.ErrInvalidEventID
	}
	if err := record.Validate(); err != nil {
		s.monitor.TrackHandoff(record.BookingType, "invalid")
		return handoff.Record{}, err
	}

	var (
		saved    handoff.Record
		released []string
	)
	_, _, err = s.flows.Fire(ctx, sessionID, checkout.EventHandoff, func(f *checkout.Flow) error {
		keys := record.SeatKeys()
		ticketTypes := ticketTypeIDs(record.Tickets)
		if err := s.seats.LockSeats(ctx, eventID, sessionID, keys); err != nil {
			return err
		}
		if err := s.seats.HoldTickets(ctx, event, sessionID, record.Tickets); err != nil {
			return err
		}

		prev, hadPrev := s.handoffs.Recover(ctx, sessionID)
		var err error
		saved, err = s.handoffs.Save(ctx, sessionID, record)
		if err != nil {
			if _, unlockErr := s.seats.UnlockSeats(ctx, eventID, sessionID, keys); unlockErr != nil {
				s.logger.Error("Failed to release seats after handoff failure", "session_id", sessionID, "error", unlockErr)
			}
			if releaseErr := s.seats.ReleaseTickets(ctx, eventID, sessionID, ticketTypes); releaseErr != nil {
				s.logger.Error("Failed to release tickets after handoff failure", "session_id", sessionID, "error", releaseErr)
			}
			return err
		}

		if hadPrev {
			nextKeys, nextTypes := keys, ticketTypes
			if prev.EventID != eventID {
				nextKeys, nextTypes = nil, nil
			}
			if released, err = s.seats.UnlockSeats(ctx, prev.EventID, sessionID, staleKeys(prev.SeatKeys(), nextKeys)); err != nil {
				s.logger.Warn("Failed to release deselected seats", "session_id", sessionID, "error", err)
			}
			if err = s.seats.ReleaseTickets(ctx, prev.EventID, sessionID, staleKeys(ticketTypeIDs(prev.Tickets), nextTypes)); err != nil {
				s.logger.Warn("Failed to release deselected tickets", "session_id", sessionID, "error", err)
			}
		}

		f.EventID = eventID
		f.Options = nil
		return nil
	})
	s.monitor.TrackTransition(string(checkout.EventHandoff), result(err))
	if err != nil {
		s.monitor.TrackHandoff(record.BookingType, "failed")
		return handoff.Record{}, err
	}
	s.monitor.TrackHandoff(record.BookingType, "saved")

	s.notify(ctx, eventID, saved.SeatKeys(), models.SeatLocked)
	s.notify(ctx, eventID, released, models.SeatAvailable)
	s.publish(ctx, RoutingHandoffCreated, saved)
	return saved, nil
}

// staleKeys lists the keys of prev that are not in next.
func staleKeys(prev, next []string) []string {
	var stale []string
	for _, key := range prev {
		if !slices.Contains(next, key) {
			stale = append(stale, key)
		}
	}
	return stale
}

// GetHandoff recovers the handoff record of a session.
func (s *CheckoutService) GetHandoff(ctx context.Context, sessionID string) (handoff.Record, error) {
	record, ok := s.handoffs.Recover(ctx, sessionID)
	if !ok {
		return handoff.Record{}, status.ErrHandoffNotFound
	}
	return record, nil
}

// PaymentOptions returns the payment options of a handed off session. They are
// generated once; later and concurrent calls get the same options.
func (s *CheckoutService) PaymentOptions(ctx context.Context, sessionID string) ([]models.PaymentOption, error) {
	opts, shared, err := s.flows.RequestOptions(ctx, sessionID, func(f *checkout.Flow) ([]models.PaymentOption, error) {
		record, ok := s.handoffs.Recover(ctx, sessionID)
		if !ok {
			return nil, status.ErrHandoffNotFound
		}
		return checkout.BuildOptions(record.TotalAmount, models.PaymentMethods, s.now().UTC(), s.paymentTTL, s.code)
	})
	switch {
	case err != nil:
		s.monitor.TrackPaymentOptions("failed")
		return nil, err
	case shared:
		s.monitor.TrackPaymentOptions("shared")
	default:
		s.monitor.TrackPaymentOptions("generated")
	}
	return opts, nil
}

// Confirm completes the payment of a session with one of its options. The
// seats of the session are sold and the handoff record is cleared.
func (s *CheckoutService) Confirm(ctx context.Context, sessionID, method string) (*models.Payment, error) {
	var (
		payment *models.Payment
		held    []string
	)
	f, changed, err := s.flows.Fire(ctx, sessionID, checkout.EventConfirm, func(f *checkout.Flow) error {
		opt, ok := f.Option(method)
		if !ok {
			return fmt.Errorf("%w: %q", status.ErrUnknownMethod, method)
		}
		now := s.now().UTC()
		if now.After(opt.ExpiresAt) {
			return status.ErrPaymentExpired
		}
		record, ok := s.handoffs.Recover(ctx, sessionID)
		if !ok {
			return status.ErrHandoffNotFound
		}
		if err := s.seats.MarkSold(ctx, record.EventID, sessionID, record.SeatKeys()); err != nil {
			return err
		}

		payment = paymentFor(record, opt, now)
		if len(record.Tickets) > 0 {
			if err := s.sellTickets(ctx, record, payment.Tickets); err != nil {
				return err
			}
			held = ticketTypeIDs(record.Tickets)
		}
		f.PaymentID = payment.ID
		f.PaymentMethod = method
		return nil
	})
	s.monitor.TrackTransition(string(checkout.EventConfirm), result(err))
	if errors.Is(err, status.ErrPaymentExpired) {
		if _, expireErr := s.Expire(ctx, sessionID); expireErr != nil {
			s.logger.Warn("Failed to expire checkout", "session_id", sessionID, "error", expireErr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		return &models.Payment{
			ID:            f.PaymentID,
			SessionID:     sessionID,
			EventID:       f.EventID,
			Status:        "completed",
			PaymentMethod: f.PaymentMethod,
		}, nil
	}

	if s.bookings != nil {
		// seats are already sold, a failed write is only logged
		if err := s.bookings.SaveBooking(ctx, payment); err != nil {
			s.logger.Error("Failed to record booking", "session_id", sessionID, "payment_id", payment.ID, "error", err)
		}
	}
	if err := s.seats.ReleaseTickets(ctx, payment.EventID, sessionID, held); err != nil {
		s.logger.Warn("Failed to release sold ticket holds", "session_id", sessionID, "error", err)
	}
	if err := s.handoffs.Clear(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to clear handoff", "session_id", sessionID, "error", err)
	}
	if err := s.selections.Clear(ctx, payment.EventID, sessionID); err != nil {
		s.logger.Warn("Failed to clear selection", "session_id", sessionID, "error", err)
	}
	s.notify(ctx, payment.EventID, payment.Seats, models.SeatSold)
	s.publish(ctx, RoutingCheckoutConfirmed, payment)

	s.logger.Info("Checkout confirmed",
		"session_id", sessionID,
		"payment_id", payment.ID,
		"method", method,
		"amount", payment.Amount.String(),
	)
	return payment, nil
}

// sellTickets refreshes the ticket hold of the session against the current
// sold counts before recording the sale, so a hold that lapsed is only sold
// when the tickets are still free.
func (s *CheckoutService) sellTickets(ctx context.Context, record handoff.Record, tickets map[string]int) error {
	event, err := s.events.GetEvent(ctx, record.EventID)
	if err != nil {
		return err
	}
	if err := s.seats.HoldTickets(ctx, event, record.SessionID, record.Tickets); err != nil {
		return err
	}
	return s.events.RecordSales(ctx, record.EventID, tickets)
}

func paymentFor(record handoff.Record, opt models.PaymentOption, now time.Time) *models.Payment {
	p := &models.Payment{
		ID:            "pay_" + uuid.NewString(),
		SessionID:     record.SessionID,
		EventID:       record.EventID,
		Seats:         record.SeatKeys(),
		Amount:        record.TotalAmount,
		Status:        "completed",
		PaymentMethod: opt.Method,
		Reference:     opt.Reference,
		CreatedAt:     now,
		CompletedAt:   &now,
	}
	if len(record.Tickets) > 0 {
		p.Tickets = make(map[string]int, len(record.Tickets))
		for _, line := range record.Tickets {
			p.Tickets[line.TicketTypeID] = line.Quantity
		}
	}
	return p
}

// Cancel abandons the checkout of a session and releases its seats and
// ticket holds.
func (s *CheckoutService) Cancel(ctx context.Context, sessionID string) (*checkout.Flow, error) {
	return s.release(ctx, sessionID, checkout.EventCancel, RoutingCheckoutCancelled)
}

// Expire ends a checkout whose payment window passed and releases its seats.
func (s *CheckoutService) Expire(ctx context.Context, sessionID string) (*checkout.Flow, error) {
	return s.release(ctx, sessionID, checkout.EventExpire, RoutingCheckoutExpired)
}

func (s *CheckoutService) release(ctx context.Context, sessionID string, ev checkout.Event, routingKey string) (*checkout.Flow, error) {
	var released []string
	f, changed, err := s.flows.Fire(ctx, sessionID, ev, func(f *checkout.Flow) error {
		record, ok := s.handoffs.Recover(ctx, sessionID)
		if !ok {
			return nil
		}
		var err error
		if released, err = s.seats.UnlockSeats(ctx, record.EventID, sessionID, record.SeatKeys()); err != nil {
			return err
		}
		return s.seats.ReleaseTickets(ctx, record.EventID, sessionID, ticketTypeIDs(record.Tickets))
	})
	s.monitor.TrackTransition(string(ev), result(err))
	if err != nil || !changed {
		return f, err
	}

	if err := s.handoffs.Clear(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to clear handoff", "session_id", sessionID, "error", err)
	}
	s.notify(ctx, f.EventID, released, models.SeatAvailable)
	s.publish(ctx, routingKey, map[string]any{
		"session_id": sessionID,
		"event_id":   f.EventID,
		"state":      f.State,
		"seats":      released,
	})
	return f, nil
}

// Flow returns the checkout state of a session.
func (s *CheckoutService) Flow(ctx context.Context, sessionID string) (*checkout.Flow, error) {
	return s.flows.Load(ctx, sessionID)
}

func (s *CheckoutService) notify(ctx context.Context, eventID string, keys []string, st models.SeatStatus) {
	if len(keys) == 0 {
		return
	}
	if err := s.notifier.SeatsChanged(ctx, eventID, keys, st); err != nil {
		s.logger.Warn("Seat notification dropped", "event_id", eventID, "error", err)
	}
}

func (s *CheckoutService) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		s.logger.Warn("Checkout message dropped", "routing_key", routingKey, "error", err)
	}
}

func result(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
