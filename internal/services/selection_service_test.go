package services

import (
	"context"
	"testing"

	"ticket-seating/internal/seating"
	"ticket-seating/internal/selection"
	"ticket-seating/internal/status"
	"ticket-seating/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionService_Toggle(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	event, err := ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	expectFreeSeats(ts.redis, "A|A|1", "A|A|2")

	res, err := ts.selections.Toggle(ctx, event, testSession, "A|A|1")
	require.NoError(t, err)
	assert.True(t, res.Selected)
	assert.Len(t, res.Seats, 1)
	assert.True(t, decimal.RequireFromString("100").Equal(res.Total))

	event, err = ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	expectFreeSeats(ts.redis, "A|A|1", "A|A|2")

	res, err = ts.selections.Toggle(ctx, event, testSession, "A|A|1")
	require.NoError(t, err)
	assert.False(t, res.Selected)
	assert.Empty(t, res.Seats)
	assert.True(t, res.Total.IsZero())
	assert.NoError(t, ts.redis.ExpectationsWereMet())
}

func TestSelectionService_ToggleRejectsTakenSeat(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	event, err := ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	ts.redis.ExpectHMGet(seatRedisKey("A|A|1"), "status", "locked_by", "locked_at").SetVal([]interface{}{string(models.SeatSold), nil, nil})
	expectFreeSeats(ts.redis, "A|A|2")

	_, err = ts.selections.Toggle(ctx, event, testSession, "A|A|1")
	assert.ErrorIs(t, err, selection.ErrSeatUnavailable)

	sel, err := ts.selections.Load(ctx, seatingEventID, testSession)
	require.NoError(t, err)
	assert.Equal(t, 0, sel.Len())
}

func TestSelectionService_ToggleUnknownSeat(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	event, err := ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	expectFreeSeats(ts.redis, "A|A|1", "A|A|2")

	_, err = ts.selections.Toggle(ctx, event, testSession, "Z|Z|9")
	assert.ErrorIs(t, err, status.ErrSeatNotFound)
}

func TestSelectionService_ToggleWithoutSeatingMap(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	event, err := ts.events.GetEvent(ctx, simpleEventID)
	require.NoError(t, err)

	_, err = ts.selections.Toggle(ctx, event, testSession, "A|A|1")
	assert.ErrorIs(t, err, status.ErrNoSeatingMap)
}

func TestSelectionService_LoadDropsUnreadableData(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	require.NoError(t, ts.store.Set(ctx, selectionKey(seatingEventID, testSession), "{not json", 0))

	sel, err := ts.selections.Load(ctx, seatingEventID, testSession)
	require.NoError(t, err)
	assert.Equal(t, 0, sel.Len())
}

func TestSelectionService_Scene(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	event, err := ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	expectFreeSeats(ts.redis, "A|A|1", "A|A|2")
	_, err = ts.selections.Toggle(ctx, event, testSession, "A|A|2")
	require.NoError(t, err)

	event, err = ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	ts.redis.ExpectHMGet(seatRedisKey("A|A|1"), "status", "locked_by", "locked_at").SetVal(lockedBy("sess_other_user"))
	expectFreeSeats(ts.redis, "A|A|2")

	scene, sel, err := ts.selections.Scene(ctx, event, testSession)
	require.NoError(t, err)
	assert.Equal(t, 1, sel.Len())
	assert.Equal(t, 2, scene.SeatCount)
	assert.Equal(t, 1, scene.SelectedCount)
	assert.False(t, scene.Clickable("A|A|1"))
	assert.True(t, scene.Clickable("A|A|2"))
}

func TestSelectionService_ToggleAt(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	event, err := ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	expectFreeSeats(ts.redis, "A|A|1", "A|A|2")
	scene, _, err := ts.selections.Scene(ctx, event, testSession)
	require.NoError(t, err)
	first, ok := scene.Seat("A|A|1")
	require.True(t, ok)
	second, ok := scene.Seat("A|A|2")
	require.True(t, ok)

	event, err = ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	expectFreeSeats(ts.redis, "A|A|1", "A|A|2")
	res, err := ts.selections.ToggleAt(ctx, event, testSession, seating.Point{X: second.Center.X + 1, Y: second.Center.Y})
	require.NoError(t, err)
	assert.Equal(t, "A|A|2", res.Key)
	assert.True(t, res.Selected)

	event, err = ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	expectFreeSeats(ts.redis, "A|A|1", "A|A|2")
	_, err = ts.selections.ToggleAt(ctx, event, testSession, seating.Point{X: -1000, Y: -1000})
	assert.ErrorIs(t, err, status.ErrSeatNotFound)

	// a click on a seat locked elsewhere never reaches the selection
	event, err = ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	ts.redis.ExpectHMGet(seatRedisKey("A|A|1"), "status", "locked_by", "locked_at").SetVal(lockedBy("sess_other_user"))
	expectFreeSeats(ts.redis, "A|A|2")
	_, err = ts.selections.ToggleAt(ctx, event, testSession, first.Center)
	assert.ErrorIs(t, err, status.ErrSeatUnavailable)

	sel, err := ts.selections.Load(ctx, seatingEventID, testSession)
	require.NoError(t, err)
	assert.Equal(t, []string{"A|A|2"}, sel.Keys())
	assert.NoError(t, ts.redis.ExpectationsWereMet())
}

func TestSelectionService_PrunesRemovedSeats(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	stored := `[
		{"key": "A|A|1", "section_name": "A", "row_name": "A", "seat_number": "1", "ticket_type_id": "vip", "price": "100"},
		{"key": "B|C|9", "section_name": "B", "row_name": "C", "seat_number": "9", "ticket_type_id": "vip", "price": "100"}
	]`
	require.NoError(t, ts.store.Set(ctx, selectionKey(seatingEventID, testSession), stored, 0))

	event, err := ts.events.GetEvent(ctx, seatingEventID)
	require.NoError(t, err)
	expectFreeSeats(ts.redis, "A|A|1", "A|A|2")

	_, sel, err := ts.selections.Scene(ctx, event, testSession)
	require.NoError(t, err)
	assert.Equal(t, []string{"A|A|1"}, sel.Keys())

	sel, err = ts.selections.Load(ctx, seatingEventID, testSession)
	require.NoError(t, err)
	assert.Equal(t, []string{"A|A|1"}, sel.Keys())
	assert.True(t, decimal.RequireFromString("100").Equal(sel.Total()))
}

func TestSelectionService_SetQuantity(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	event, err := ts.events.GetEvent(ctx, simpleEventID)
	require.NoError(t, err)

	q, err := ts.selections.SetQuantity(ctx, event, testSession, "ga", 3)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("75").Equal(q.Total()))

	q, err = ts.selections.Quantities(ctx, simpleEventID, testSession)
	require.NoError(t, err)
	assert.Equal(t, 3, q.Quantity("ga"))

	_, err = ts.selections.SetQuantity(ctx, event, testSession, "ga", selection.MaxTicketsPerType+1)
	assert.ErrorIs(t, err, selection.ErrInvalidQuantity)

	_, err = ts.selections.SetQuantity(ctx, event, testSession, "vip", 1)
	assert.ErrorIs(t, err, selection.ErrMissingTicketType)

	require.NoError(t, ts.selections.Clear(ctx, simpleEventID, testSession))
	q, err = ts.selections.Quantities(ctx, simpleEventID, testSession)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Len())
}
