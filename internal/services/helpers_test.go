package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ticket-seating/internal/checkout"
	"ticket-seating/internal/handoff"
	"ticket-seating/internal/kv"
	"ticket-seating/internal/seating"
	"ticket-seating/internal/status"
	"ticket-seating/models"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

const (
	seatingEventID = "evt-seat"
	simpleEventID  = "evt-simple"
	testSession    = "sess_0123456789"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleEvents() map[string]models.Event {
	return map[string]models.Event{
		seatingEventID: {
			ID:     seatingEventID,
			Title:  "Orchestra Night",
			Status: models.EventStatusPublish,
			TicketTypes: []models.TicketType{
				{ID: "vip", Name: "VIP", Price: decimal.RequireFromString("100"), Quantity: 10},
			},
			SeatingMap: &models.SeatingMap{
				LayoutType: models.LayoutTheater,
				Sections: []models.Section{{
					Name:       "A",
					TicketTier: "vip",
					Rows: []models.Row{{
						Name:  "A",
						Seats: []models.Seat{{Number: "1"}, {Number: "2"}},
					}},
				}},
			},
		},
		simpleEventID: {
			ID:     simpleEventID,
			Title:  "Book Talk",
			Status: models.EventStatusPublish,
			TicketTypes: []models.TicketType{
				{ID: "ga", Name: "General", Price: decimal.RequireFromString("25"), Quantity: 100},
			},
		},
	}
}

type fakeRepo struct {
	mu     sync.Mutex
	events map[string]models.Event
	saved  map[string]*models.SeatingMap
	onFind func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{events: sampleEvents(), saved: make(map[string]*models.SeatingMap)}
}

// FindByID hands out deep copies, the way a real store does.
func (r *fakeRepo) FindByID(_ context.Context, id string) (*models.Event, error) {
	if r.onFind != nil {
		r.onFind()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return nil, status.ErrEventNotFound
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var clone models.Event
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}

func (r *fakeRepo) ListPublished(context.Context) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []models.Event
	for _, e := range r.events {
		if e.Status == models.EventStatusPublish {
			events = append(events, e)
		}
	}
	return events, nil
}

func (r *fakeRepo) SaveSeatingMap(_ context.Context, id string, m *models.SeatingMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return status.ErrEventNotFound
	}
	event.SeatingMap = m
	r.events[id] = event
	r.saved[id] = m
	return nil
}

func (r *fakeRepo) AddSold(_ context.Context, id string, tickets map[string]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return status.ErrEventNotFound
	}
	for i := range event.TicketTypes {
		event.TicketTypes[i].Sold += tickets[event.TicketTypes[i].ID]
	}
	r.events[id] = event
	return nil
}

type fakeBookings struct {
	mu       sync.Mutex
	payments []*models.Payment
}

func (b *fakeBookings) SaveBooking(_ context.Context, p *models.Payment) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payments = append(b.payments, p)
	return nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SeatsChanged(ctx context.Context, eventID string, keys []string, st models.SeatStatus) error {
	args := m.Called(ctx, eventID, keys, st)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

func (m *mockPublisher) Close() {}

type testServices struct {
	repo       *fakeRepo
	redis      redismock.ClientMock
	store      *kv.MemoryStore
	events     *EventService
	seats      *SeatService
	selections *SelectionService
	checkout   *CheckoutService
	bookings   *fakeBookings
	notifier   *mockNotifier
	publisher  *mockPublisher
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db, redisMock := redismock.NewClientMock()
	store := kv.NewMemoryStore()
	repo := newFakeRepo()

	events := NewEventService(repo, nil)
	seats := NewSeatService(db, "ts:", 5*time.Minute, nil, nil)
	seats.now = func() time.Time { return fixedNow }
	selections := NewSelectionService(store, seats, seating.NewRenderer(nil), nil, 30*time.Minute, nil)

	bookings := new(fakeBookings)
	notifier := new(mockNotifier)
	publisher := new(mockPublisher)
	svc := NewCheckoutService(CheckoutDeps{
		Events:     events,
		Selections: selections,
		Seats:      seats,
		Handoffs:   handoff.NewService(store, handoff.NewSigner("test-secret"), 30*time.Minute, nil),
		Flows:      checkout.NewManager(store, time.Hour, nil),
		Bookings:   bookings,
		Notifier:   notifier,
		Publisher:  publisher,
	}, 10*time.Minute, nil)
	svc.now = func() time.Time { return fixedNow }
	svc.code = func(int) (string, error) { return "C0FFEE01", nil }

	return &testServices{
		repo:       repo,
		redis:      redisMock,
		store:      store,
		events:     events,
		seats:      seats,
		selections: selections,
		checkout:   svc,
		bookings:   bookings,
		notifier:   notifier,
		publisher:  publisher,
	}
}

func seatRedisKey(key string) string {
	return "ts:seat:" + seatingEventID + ":" + key
}

func ticketRedisKey(ticketTypeID string) string {
	return "ts:tickets:" + simpleEventID + ":" + ticketTypeID
}

// expectFreeSeats expects one live state read per key, all without a hash.
func expectFreeSeats(m redismock.ClientMock, keys ...string) {
	for _, key := range keys {
		m.ExpectHMGet(seatRedisKey(key), "status", "locked_by", "locked_at").SetVal([]interface{}{nil, nil, nil})
	}
}
