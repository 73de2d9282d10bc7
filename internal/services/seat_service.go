package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"ticket-seating/internal/status"
	"ticket-seating/models"
	"ticket-seating/monitoring"

	"github.com/redis/go-redis/v9"
)

// SeatService keeps the live status of seats in redis, one hash per seat:
// <prefix>seat:<event>:<seat key> with status, locked_by and locked_at.
// Seats without a hash keep the status stored in the seating map.
type SeatService struct {
	Redis   *redis.Client
	prefix  string
	lockTTL time.Duration
	monitor *monitoring.Monitor
	logger  *slog.Logger
	now     func() time.Time
}

func NewSeatService(redisClient *redis.Client, prefix string, lockTTL time.Duration, monitor *monitoring.Monitor, logger *slog.Logger) *SeatService {
	return &SeatService{
		Redis:   redisClient,
		prefix:  prefix,
		lockTTL: lockTTL,
		monitor: monitor,
		logger:  orDiscard(logger),
		now:     time.Now,
	}
}

func (s *SeatService) seatKey(eventID, key string) string {
	return fmt.Sprintf("%sseat:%s:%s", s.prefix, eventID, key)
}

type seatState struct {
	status   string
	lockedBy string
	lockedAt time.Time
}

// states reads the hashes of the given seats in one round trip.
func (s *SeatService) states(ctx context.Context, eventID string, keys []string) (map[string]seatState, error) {
	pipe := s.Redis.Pipeline()
	cmds := make([]*redis.SliceCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HMGet(ctx, s.seatKey(eventID, key), "status", "locked_by", "locked_at")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read seat states: %w", err)
	}

	states := make(map[string]seatState, len(keys))
	for i, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) < 3 {
			continue
		}
		st := parseSeatState(vals)
		if st.status == "" {
			continue
		}
		states[keys[i]] = st
	}
	return states, nil
}

func parseSeatState(vals []any) seatState {
	var st seatState
	st.status, _ = vals[0].(string)
	st.lockedBy, _ = vals[1].(string)
	if raw, ok := vals[2].(string); ok {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			st.lockedAt = time.Unix(unix, 0)
		}
	}
	return st
}

// Overlay replaces the stored statuses of m with the live ones. Seats locked by
// sessionID itself keep their stored status so the session can still see and
// drop them.
func (s *SeatService) Overlay(ctx context.Context, eventID, sessionID string, m *models.SeatingMap) error {
	if m == nil {
		return nil
	}
	index := m.Index()
	if len(index) == 0 {
		return nil
	}

	keys := make([]string, 0, len(index))
	for key := range index {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	states, err := s.states(ctx, eventID, keys)
	if err != nil {
		return err
	}

	for key, st := range states {
		if st.status == string(models.SeatLocked) && sessionID != "" && st.lockedBy == sessionID {
			continue
		}
		index[key].Seat.Status = models.SeatStatus(st.status)
	}
	return nil
}

// LockSeats locks every seat for sessionID or none of them. Seats already
// locked by the same session are refreshed.
func (s *SeatService) LockSeats(ctx context.Context, eventID, sessionID string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = s.seatKey(eventID, key)
	}

	err := s.Redis.Watch(ctx, func(tx *redis.Tx) error {
		for i, redisKey := range redisKeys {
			vals, err := tx.HMGet(ctx, redisKey, "status", "locked_by", "locked_at").Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if len(vals) < 3 {
				continue
			}
			st := parseSeatState(vals)
			switch {
			case st.status == string(models.SeatSold):
				return fmt.Errorf("%w: %s is sold", status.ErrSeatUnavailable, keys[i])
			case st.status == string(models.SeatLocked) && st.lockedBy != sessionID:
				return fmt.Errorf("%w: %s is locked", status.ErrSeatUnavailable, keys[i])
			}
		}

		lockedAt := s.now().Unix()
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, redisKey := range redisKeys {
				pipe.HSet(ctx, redisKey, map[string]any{
					"status":    string(models.SeatLocked),
					"locked_by": sessionID,
					"locked_at": lockedAt,
				})
				pipe.Expire(ctx, redisKey, s.lockTTL)
			}
			return nil
		})
		return err
	}, redisKeys...)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			err = fmt.Errorf("%w: seats changed while locking", status.ErrSeatUnavailable)
		}
		s.logger.Warn("Failed to lock seats", "event_id", eventID, "session_id", sessionID, "seats", len(keys), "error", err)
		return err
	}

	s.logger.Info("Seats locked", "event_id", eventID, "session_id", sessionID, "seats", len(keys))
	return nil
}

// UnlockSeats releases the locks sessionID holds on keys and returns the keys
// released. Sold seats and locks of other sessions are left alone.
func (s *SeatService) UnlockSeats(ctx context.Context, eventID, sessionID string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	states, err := s.states(ctx, eventID, keys)
	if err != nil {
		return nil, err
	}

	released := make([]string, 0, len(keys))
	pipe := s.Redis.Pipeline()
	for _, key := range keys {
		st, ok := states[key]
		if !ok || st.status != string(models.SeatLocked) || st.lockedBy != sessionID {
			continue
		}
		pipe.Del(ctx, s.seatKey(eventID, key))
		released = append(released, key)
		if !st.lockedAt.IsZero() {
			s.monitor.TrackSeatLock(eventID, "released", s.now().Sub(st.lockedAt))
		}
	}
	if len(released) == 0 {
		return released, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("unlock seats: %w", err)
	}
	return released, nil
}

// MarkSold turns the locks of sessionID into permanent sold entries. The
// seats are watched while they are checked, so a lock taken by another session
// in between fails the sale.
func (s *SeatService) MarkSold(ctx context.Context, eventID, sessionID string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = s.seatKey(eventID, key)
	}

	soldAt := s.now()
	lockedAt := make([]time.Time, len(keys))
	err := s.Redis.Watch(ctx, func(tx *redis.Tx) error {
		for i, redisKey := range redisKeys {
			vals, err := tx.HMGet(ctx, redisKey, "status", "locked_by", "locked_at").Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if len(vals) < 3 {
				continue
			}
			st := parseSeatState(vals)
			if st.status == string(models.SeatSold) || (st.status == string(models.SeatLocked) && st.lockedBy != sessionID) {
				return fmt.Errorf("%w: %s", status.ErrSeatUnavailable, keys[i])
			}
			lockedAt[i] = st.lockedAt
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, redisKey := range redisKeys {
				pipe.HSet(ctx, redisKey, map[string]any{
					"status":  string(models.SeatSold),
					"sold_to": sessionID,
					"sold_at": soldAt.Unix(),
				})
				pipe.Persist(ctx, redisKey)
			}
			return nil
		})
		return err
	}, redisKeys...)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			err = fmt.Errorf("%w: seats changed while selling", status.ErrSeatUnavailable)
		}
		s.logger.Warn("Failed to mark seats sold", "event_id", eventID, "session_id", sessionID, "seats", len(keys), "error", err)
		return err
	}

	for _, at := range lockedAt {
		if !at.IsZero() {
			s.monitor.TrackSeatLock(eventID, "sold", soldAt.Sub(at))
		}
	}
	s.logger.Info("Seats sold", "event_id", eventID, "session_id", sessionID, "seats", len(keys))
	return nil
}
