package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticket-seating/models"
	"ticket-seating/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(publish func(string, any) error) *PubNubNotifier {
	breaker := utils.NewCircuitBreaker("pubnub", utils.Settings{
		MaxRequests:  2,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
	})
	return &PubNubNotifier{publish: publish, breaker: breaker, logger: orDiscard(nil)}
}

func TestPubNubNotifier_SeatsChanged(t *testing.T) {
	var (
		channel string
		message any
	)
	n := newTestNotifier(func(ch string, msg any) error {
		channel, message = ch, msg
		return nil
	})

	err := n.SeatsChanged(context.Background(), "evt-1", []string{"A|1|1"}, models.SeatLocked)
	require.NoError(t, err)
	assert.Equal(t, "event-evt-1-seats", channel)
	assert.Equal(t, map[string]any{
		"type":     "seats_changed",
		"event_id": "evt-1",
		"seats":    []string{"A|1|1"},
		"status":   "locked",
	}, message)
}

func TestPubNubNotifier_SkipsEmptyChange(t *testing.T) {
	calls := 0
	n := newTestNotifier(func(string, any) error {
		calls++
		return nil
	})

	require.NoError(t, n.SeatsChanged(context.Background(), "evt-1", nil, models.SeatSold))
	assert.Zero(t, calls)
}

func TestPubNubNotifier_BreakerOpens(t *testing.T) {
	calls := 0
	n := newTestNotifier(func(string, any) error {
		calls++
		return errors.New("pubnub unreachable")
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.Error(t, n.SeatsChanged(ctx, "evt-1", []string{"A|1|1"}, models.SeatLocked))
	}
	assert.Equal(t, utils.StateOpen, n.breaker.State())

	err := n.SeatsChanged(ctx, "evt-1", []string{"A|1|1"}, models.SeatLocked)
	assert.ErrorIs(t, err, utils.ErrOpenState)
	assert.Equal(t, 2, calls)
}
