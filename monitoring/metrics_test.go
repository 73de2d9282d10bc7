package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectSeatMetrics(t *testing.T) {
	db, mock := redismock.NewClientMock()
	m := NewMonitor(db, "ts:")

	mock.ExpectScan(0, "ts:seat:*", 500).SetVal([]string{
		"ts:seat:evt-1:A|A|1",
		"ts:seat:evt-1:A|A|2",
		"ts:seat:evt-1:seat-9",
		"ts:seat:broken",
	}, 0)
	mock.ExpectHGet("ts:seat:evt-1:A|A|1", "status").SetVal("locked")
	mock.ExpectHGet("ts:seat:evt-1:A|A|2", "status").SetVal("locked")
	mock.ExpectHGet("ts:seat:evt-1:seat-9", "status").SetVal("sold")

	require.NoError(t, m.collectSeatMetrics(context.Background()))

	assert.Equal(t, 2.0, testutil.ToFloat64(heldSeats.WithLabelValues("evt-1", "locked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(heldSeats.WithLabelValues("evt-1", "sold")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackCounters(t *testing.T) {
	var m *Monitor

	before := testutil.ToFloat64(seatToggles.WithLabelValues("selected"))
	m.TrackToggle("selected")
	assert.Equal(t, before+1, testutil.ToFloat64(seatToggles.WithLabelValues("selected")))

	before = testutil.ToFloat64(paymentOptionRequests.WithLabelValues("shared"))
	m.TrackPaymentOptions("shared")
	assert.Equal(t, before+1, testutil.ToFloat64(paymentOptionRequests.WithLabelValues("shared")))

	m.TrackBreakerState("pubnub", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(breakerState.WithLabelValues("pubnub")))

	m.TrackRender(3 * time.Millisecond)
	m.TrackSeatLock("evt-1", "sold", time.Minute)
}
