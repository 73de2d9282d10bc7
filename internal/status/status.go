package status

import "errors"

var (
	ErrEventNotFound    = errors.New("event: event not found")
	ErrInvalidEventID   = errors.New("event: invalid event id")
	ErrNoSeatingMap     = errors.New("event: event has no seating map")
	ErrInvalidSession   = errors.New("session: invalid session id")
	ErrHandoffNotFound  = errors.New("handoff: handoff not found")
	ErrSeatUnavailable  = errors.New("seat: seat is locked or sold")
	ErrSeatNotFound     = errors.New("seat: seat not found")
	ErrUnknownMethod    = errors.New("payment: unknown payment method")
	ErrPaymentExpired   = errors.New("payment: payment options expired")
	ErrInvalidLayout    = errors.New("layout: invalid seating layout")
	ErrUnsupportedInput = errors.New("layout: unsupported file format")
)
