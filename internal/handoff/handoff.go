package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ticket-seating/internal/kv"
)

const keyPrefix = "handoff:"

// Key is the store key of the record of a session.
func Key(sessionID string) string {
	return keyPrefix + sessionID
}

// Service persists handoff records as a recovery fallback for checkout.
type Service struct {
	store  kv.Store
	signer *Signer
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store kv.Store, signer *Signer, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if signer == nil {
		signer = NewSigner("")
	}
	return &Service{
		store:  store,
		signer: signer,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Save validates the record, drops any stale record of the session and writes
// the new one. Nothing is written when validation fails.
func (s *Service) Save(ctx context.Context, sessionID string, r Record) (Record, error) {
	if err := r.Validate(); err != nil {
		return Record{}, err
	}

	key := Key(sessionID)
	if err := s.store.Remove(ctx, key); err != nil {
		return Record{}, fmt.Errorf("clear stale handoff: %w", err)
	}

	r.SessionID = sessionID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	}
	digest, err := s.signer.Sign(r)
	if err != nil {
		return Record{}, err
	}
	r.Digest = digest

	payload, err := json.Marshal(r)
	if err != nil {
		return Record{}, fmt.Errorf("marshal handoff: %w", err)
	}
	if err := s.store.Set(ctx, key, string(payload), s.ttl); err != nil {
		return Record{}, fmt.Errorf("persist handoff: %w", err)
	}

	s.logger.Info("Handoff saved",
		"session_id", sessionID,
		"event_id", r.EventID,
		"booking_type", r.BookingType,
		"total", r.TotalAmount.String(),
	)
	return r, nil
}

// Recover reads the record of a session back. A missing, unreadable, tampered
// or invalid record is reported as not recovered; it is never an error.
func (s *Service) Recover(ctx context.Context, sessionID string) (Record, bool) {
	raw, ok, err := s.store.Get(ctx, Key(sessionID))
	if err != nil {
		s.logger.Warn("Failed to read handoff", "session_id", sessionID, "error", err)
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}

	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		s.logger.Warn("Discarding corrupt handoff", "session_id", sessionID, "error", err)
		return Record{}, false
	}
	if !s.signer.Verify(r) {
		s.logger.Warn("Discarding handoff with bad digest", "session_id", sessionID)
		return Record{}, false
	}
	if err := r.Validate(); err != nil {
		s.logger.Warn("Discarding invalid handoff", "session_id", sessionID, "error", err)
		return Record{}, false
	}
	return r, true
}

// Clear removes the record once checkout no longer needs it.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Remove(ctx, Key(sessionID)); err != nil {
		return fmt.Errorf("clear handoff: %w", err)
	}
	return nil
}
