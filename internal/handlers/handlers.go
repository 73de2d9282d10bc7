package handlers

import (
	"context"
	"errors"
	"net/http"

	"ticket-seating/internal/checkout"
	"ticket-seating/internal/handoff"
	"ticket-seating/internal/seating"
	"ticket-seating/internal/selection"
	"ticket-seating/internal/services"
	"ticket-seating/internal/status"
	"ticket-seating/models"

	"github.com/pocketbase/pocketbase/apis"
)

type EventService interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListPublished(ctx context.Context) ([]models.Event, error)
	UpdateSeatingMap(ctx context.Context, id string, m *models.SeatingMap) error
}

type SelectionService interface {
	Scene(ctx context.Context, event *models.Event, sessionID string) (*seating.Scene, *selection.Selection, error)
	Toggle(ctx context.Context, event *models.Event, sessionID, seatKey string) (*services.ToggleResult, error)
	ToggleAt(ctx context.Context, event *models.Event, sessionID string, p seating.Point) (*services.ToggleResult, error)
	Load(ctx context.Context, eventID, sessionID string) (*selection.Selection, error)
	SetQuantity(ctx context.Context, event *models.Event, sessionID, ticketTypeID string, quantity int) (*selection.Quantities, error)
}

type CheckoutService interface {
	Handoff(ctx context.Context, eventID, sessionID string) (handoff.Record, error)
	GetHandoff(ctx context.Context, sessionID string) (handoff.Record, error)
	PaymentOptions(ctx context.Context, sessionID string) ([]models.PaymentOption, error)
	Confirm(ctx context.Context, sessionID, method string) (*models.Payment, error)
	Cancel(ctx context.Context, sessionID string) (*checkout.Flow, error)
	Flow(ctx context.Context, sessionID string) (*checkout.Flow, error)
}

// apiError maps service errors to API errors. Errors the client can fix are
// 4xx; anything else failed in a store or broker and is reported as 502.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrHandoffNotFound),
		errors.Is(err, status.ErrSeatNotFound):
		return apis.NewNotFoundError(err.Error(), nil)

	case errors.Is(err, status.ErrSeatUnavailable),
		errors.Is(err, selection.ErrSeatUnavailable),
		errors.Is(err, selection.ErrInsufficientTickets),
		errors.Is(err, checkout.ErrInvalidTransition):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)

	case errors.Is(err, status.ErrPaymentExpired):
		return apis.NewApiError(http.StatusGone, err.Error(), nil)

	case errors.Is(err, status.ErrInvalidEventID),
		errors.Is(err, status.ErrInvalidSession),
		errors.Is(err, status.ErrNoSeatingMap),
		errors.Is(err, status.ErrUnknownMethod),
		errors.Is(err, status.ErrInvalidLayout),
		errors.Is(err, selection.ErrMissingTicketType),
		errors.Is(err, selection.ErrMissingSeatIdentity),
		errors.Is(err, selection.ErrInvalidQuantity),
		errors.Is(err, handoff.ErrInvalidEventID),
		errors.Is(err, handoff.ErrEmptySelection),
		errors.Is(err, handoff.ErrInvalidBookingType),
		errors.Is(err, handoff.ErrTotalMismatch):
		return apis.NewBadRequestError(err.Error(), nil)

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apis.NewApiError(http.StatusRequestTimeout, "Request cancelled", nil)
	}
	return apis.NewApiError(http.StatusBadGateway, "Upstream store unavailable", err)
}
