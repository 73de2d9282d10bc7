package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"ticket-seating/internal/selection"
	"ticket-seating/models"

	"github.com/redis/go-redis/v9"
)

// Ticket holds live in one hash per ticket type:
// <prefix>tickets:<event>:<ticket type> with one "<quantity>:<expires unix>"
// field per session.

func (s *SeatService) ticketKey(eventID, ticketTypeID string) string {
	return fmt.Sprintf("%stickets:%s:%s", s.prefix, eventID, ticketTypeID)
}

type ticketHold struct {
	quantity int
	expires  time.Time
}

func formatTicketHold(quantity int, expires time.Time) string {
	return strconv.Itoa(quantity) + ":" + strconv.FormatInt(expires.Unix(), 10)
}

func parseTicketHold(raw string) (ticketHold, bool) {
	qty, exp, ok := strings.Cut(raw, ":")
	if !ok {
		return ticketHold{}, false
	}
	quantity, err := strconv.Atoi(qty)
	if err != nil {
		return ticketHold{}, false
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return ticketHold{}, false
	}
	return ticketHold{quantity: quantity, expires: time.Unix(unix, 0)}, true
}

// HoldTickets reserves the quantities of lines for sessionID, replacing the
// session's earlier hold on the same ticket types. Every line fits within the
// unsold quantity of its ticket type minus the live holds of other sessions,
// or nothing is held.
func (s *SeatService) HoldTickets(ctx context.Context, event *models.Event, sessionID string, lines []models.TicketSelection) error {
	if len(lines) == 0 {
		return nil
	}
	lines = slices.Clone(lines)
	slices.SortFunc(lines, func(a, b models.TicketSelection) int {
		return strings.Compare(a.TicketTypeID, b.TicketTypeID)
	})

	redisKeys := make([]string, len(lines))
	for i, line := range lines {
		redisKeys[i] = s.ticketKey(event.ID, line.TicketTypeID)
	}

	err := s.Redis.Watch(ctx, func(tx *redis.Tx) error {
		now := s.now()
		expired := make([][]string, len(lines))
		for i, line := range lines {
			tt, ok := event.TicketType(line.TicketTypeID)
			if !ok {
				return fmt.Errorf("%w: %s", selection.ErrMissingTicketType, line.TicketTypeID)
			}
			holds, err := tx.HGetAll(ctx, redisKeys[i]).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			held := 0
			for session, raw := range holds {
				if session == sessionID {
					continue
				}
				hold, ok := parseTicketHold(raw)
				if !ok || !hold.expires.After(now) {
					expired[i] = append(expired[i], session)
					continue
				}
				held += hold.quantity
			}
			if line.Quantity > tt.Available()-held {
				return fmt.Errorf("%w: %s has %d left", selection.ErrInsufficientTickets, tt.ID, max(tt.Available()-held, 0))
			}
			slices.Sort(expired[i])
		}

		expires := now.Add(s.lockTTL)
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, line := range lines {
				if len(expired[i]) > 0 {
					pipe.HDel(ctx, redisKeys[i], expired[i]...)
				}
				pipe.HSet(ctx, redisKeys[i], sessionID, formatTicketHold(line.Quantity, expires))
				pipe.Expire(ctx, redisKeys[i], s.lockTTL)
			}
			return nil
		})
		return err
	}, redisKeys...)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			err = fmt.Errorf("%w: tickets changed while holding", selection.ErrInsufficientTickets)
		}
		s.logger.Warn("Failed to hold tickets", "event_id", event.ID, "session_id", sessionID, "error", err)
		return err
	}

	s.logger.Info("Tickets held", "event_id", event.ID, "session_id", sessionID, "ticket_types", len(lines))
	return nil
}

// ReleaseTickets drops the holds sessionID has on the given ticket types.
func (s *SeatService) ReleaseTickets(ctx context.Context, eventID, sessionID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := s.Redis.Pipeline()
	for _, id := range ids {
		pipe.HDel(ctx, s.ticketKey(eventID, id), sessionID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("release tickets: %w", err)
	}
	return nil
}

// ticketTypeIDs lists the ticket types of a quantity selection.
func ticketTypeIDs(lines []models.TicketSelection) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.TicketTypeID)
	}
	slices.Sort(ids)
	return ids
}
