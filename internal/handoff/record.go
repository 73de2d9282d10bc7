package handoff

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ticket-seating/internal/selection"
	"ticket-seating/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

// Booking types carried by a record.
const (
	BookingSeating = "seating"
	BookingSimple  = "simple"
)

var (
	ErrInvalidEventID     = errors.New("handoff: invalid event id")
	ErrEmptySelection     = errors.New("handoff: nothing selected")
	ErrInvalidBookingType = errors.New("handoff: invalid booking type")
	ErrTotalMismatch      = errors.New("handoff: total does not match selection")
)

// Record is the selection handed from the seating page to checkout.
type Record struct {
	EventID     string                   `json:"event_id"`
	SessionID   string                   `json:"session_id"`
	BookingType string                   `json:"booking_type"`
	Seats       []models.SelectedSeat    `json:"seats,omitempty"`
	Tickets     []models.TicketSelection `json:"tickets,omitempty"`
	TotalAmount decimal.Decimal          `json:"total_amount"`
	CreatedAt   time.Time                `json:"created_at"`
	Digest      string                   `json:"digest,omitempty"`
}

// NewSeatingRecord builds a seating record with its total.
func NewSeatingRecord(eventID, sessionID string, seats []models.SelectedSeat) Record {
	return Record{
		EventID:     eventID,
		SessionID:   sessionID,
		BookingType: BookingSeating,
		Seats:       seats,
		TotalAmount: selection.SumSeats(seats),
	}
}

// NewSimpleRecord builds a ticket-quantity record with its total.
func NewSimpleRecord(eventID, sessionID string, tickets []models.TicketSelection) Record {
	return Record{
		EventID:     eventID,
		SessionID:   sessionID,
		BookingType: BookingSimple,
		Tickets:     tickets,
		TotalAmount: selection.SumTickets(tickets),
	}
}

// Validate checks the record before it is written and after it is read back.
func (r *Record) Validate() error {
	if !models.IsValidEventID(r.EventID) {
		return ErrInvalidEventID
	}

	var sum decimal.Decimal
	switch r.BookingType {
	case BookingSeating:
		if len(r.Tickets) > 0 {
			return fmt.Errorf("%w: seating record with ticket lines", ErrInvalidBookingType)
		}
		if len(r.Seats) == 0 {
			return ErrEmptySelection
		}
		sum = selection.SumSeats(r.Seats)
	case BookingSimple:
		if len(r.Seats) > 0 {
			return fmt.Errorf("%w: simple record with seats", ErrInvalidBookingType)
		}
		if len(r.Tickets) == 0 {
			return ErrEmptySelection
		}
		sum = selection.SumTickets(r.Tickets)
	default:
		return ErrInvalidBookingType
	}

	if !sum.Equal(r.TotalAmount) {
		return fmt.Errorf("%w: total %s, lines sum to %s", ErrTotalMismatch, r.TotalAmount, sum)
	}
	return nil
}

// SeatKeys lists the keys of the seats in the record.
func (r *Record) SeatKeys() []string {
	keys := make([]string, 0, len(r.Seats))
	for _, s := range r.Seats {
		keys = append(keys, s.Key)
	}
	return keys
}

// Signer computes a keyed blake2b digest over a record, so a record edited
// outside the service is not recovered.
type Signer struct {
	key []byte
}

// NewSigner keys the digest with secret. Secrets longer than a blake2b key are
// hashed down first; an empty secret produces an unkeyed digest.
func NewSigner(secret string) *Signer {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Signer{key: key}
}

func (s *Signer) Sign(r Record) (string, error) {
	r.Digest = ""
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	h, err := blake2b.New256(s.key)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Signer) Verify(r Record) bool {
	want, err := s.Sign(r)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(r.Digest)) == 1
}
