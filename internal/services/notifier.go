package services

import (
	"context"
	"fmt"
	"log/slog"

	"ticket-seating/models"
	"ticket-seating/utils"

	pubnub "github.com/pubnub/go/v7"
)

// Notifier tells connected seating pages that seats changed status.
type Notifier interface {
	SeatsChanged(ctx context.Context, eventID string, keys []string, st models.SeatStatus) error
}

// SeatsChannel is the pubnub channel seat updates of an event go to.
func SeatsChannel(eventID string) string {
	return fmt.Sprintf("event-%s-seats", eventID)
}

// PubNubNotifier publishes seat updates through pubnub behind a circuit
// breaker, so a pubnub outage does not slow down checkout.
type PubNubNotifier struct {
	publish func(channel string, message any) error
	breaker *utils.CircuitBreaker
	logger  *slog.Logger
}

func NewPubNubNotifier(pn *pubnub.PubNub, breaker *utils.CircuitBreaker, logger *slog.Logger) *PubNubNotifier {
	return &PubNubNotifier{
		publish: func(channel string, message any) error {
			_, _, err := pn.Publish().
				Channel(channel).
				Message(message).
				Execute()
			return err
		},
		breaker: breaker,
		logger:  orDiscard(logger),
	}
}

func (n *PubNubNotifier) SeatsChanged(ctx context.Context, eventID string, keys []string, st models.SeatStatus) error {
	if len(keys) == 0 {
		return nil
	}
	channel := SeatsChannel(eventID)
	message := map[string]any{
		"type":     "seats_changed",
		"event_id": eventID,
		"seats":    keys,
		"status":   string(st),
	}

	err := n.breaker.Execute(ctx, func(context.Context) error {
		return n.publish(channel, message)
	})
	if err != nil {
		n.logger.Warn("Failed to publish seat update", "channel", channel, "seats", len(keys), "error", err)
		return fmt.Errorf("notify seats: %w", err)
	}
	return nil
}

// NopNotifier is used when pubnub is not configured.
type NopNotifier struct{}

func (NopNotifier) SeatsChanged(context.Context, string, []string, models.SeatStatus) error {
	return nil
}
