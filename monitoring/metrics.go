package monitoring

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var (
	heldSeats = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "held_seats_total",
			Help: "Current number of seats per event by live status",
		},
		[]string{"event_id", "status"},
	)

	seatToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_toggles_total",
			Help: "Seat selection toggles by result",
		},
		[]string{"result"},
	)

	handoffs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_handoffs_total",
			Help: "Checkout handoffs by booking type and result",
		},
		[]string{"booking_type", "result"},
	)

	paymentOptionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_option_requests_total",
			Help: "Payment option requests, split into generated, shared and failed",
		},
		[]string{"result"},
	)

	checkoutTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_transitions_total",
			Help: "Checkout state machine events by result",
		},
		[]string{"event", "result"},
	)

	sceneRenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seating_scene_render_duration_seconds",
			Help:    "Time spent building seating chart scenes",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	seatLockDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seat_lock_duration_seconds",
			Help:    "Duration of seat locks until sold or released",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"event_id", "outcome"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

type Monitor struct {
	redis     *redis.Client
	keyPrefix string
	interval  time.Duration
}

// NewMonitor returns a monitor reading live seat state from redis keys under keyPrefix.
func NewMonitor(redisClient *redis.Client, keyPrefix string) *Monitor {
	return &Monitor{redis: redisClient, keyPrefix: keyPrefix, interval: 30 * time.Second}
}

// Handler serves the prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Run collects redis backed gauges until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.collectSeatMetrics(ctx); err != nil {
				slog.Warn("Failed to collect seat metrics", "error", err)
			}
		}
	}
}

func (m *Monitor) collectSeatMetrics(ctx context.Context) error {
	pattern := m.keyPrefix + "seat:*"
	counts := make(map[[2]string]int)

	iter := m.redis.Scan(ctx, 0, pattern, 500).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// <prefix>seat:<event>:<seat key>
		parts := strings.SplitN(strings.TrimPrefix(key, m.keyPrefix), ":", 3)
		if len(parts) != 3 {
			continue
		}
		status, err := m.redis.HGet(ctx, key, "status").Result()
		if err != nil {
			continue
		}
		counts[[2]string{parts[1], status}]++
	}
	if err := iter.Err(); err != nil {
		return err
	}

	heldSeats.Reset()
	for k, n := range counts {
		heldSeats.WithLabelValues(k[0], k[1]).Set(float64(n))
	}
	return nil
}

// Track seat toggles
func (m *Monitor) TrackToggle(result string) {
	seatToggles.WithLabelValues(result).Inc()
}

// Track checkout handoffs
func (m *Monitor) TrackHandoff(bookingType, result string) {
	handoffs.WithLabelValues(bookingType, result).Inc()
}

func (m *Monitor) TrackPaymentOptions(result string) {
	paymentOptionRequests.WithLabelValues(result).Inc()
}

func (m *Monitor) TrackTransition(event, result string) {
	checkoutTransitions.WithLabelValues(event, result).Inc()
}

func (m *Monitor) TrackRender(d time.Duration) {
	sceneRenderDuration.Observe(d.Seconds())
}

// Track seat lock duration
func (m *Monitor) TrackSeatLock(eventID, outcome string, duration time.Duration) {
	seatLockDuration.WithLabelValues(eventID, outcome).Observe(duration.Seconds())
}

func (m *Monitor) TrackBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}
