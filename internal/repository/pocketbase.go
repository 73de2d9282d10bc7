package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ticket-seating/internal/status"
	"ticket-seating/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// PocketBaseEvents reads events from the pocketbase "events" collection. The
// ticket_types and seating_map fields are json fields.
type PocketBaseEvents struct {
	app core.App
}

func NewPocketBaseEvents(app core.App) *PocketBaseEvents {
	return &PocketBaseEvents{app: app}
}

func (r *PocketBaseEvents) findRecord(ctx context.Context, id string) (*core.Record, error) {
	record := &core.Record{}
	err := r.app.RecordQuery(eventsCollection).
		WithContext(ctx).
		AndWhere(dbx.HashExp{"id": id}).
		Limit(1).
		One(record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrEventNotFound
		}
		return nil, fmt.Errorf("find event %s: %w", id, err)
	}
	return record, nil
}

func (r *PocketBaseEvents) FindByID(ctx context.Context, id string) (*models.Event, error) {
	record, err := r.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return EventFromRecord(record)
}

func (r *PocketBaseEvents) ListPublished(ctx context.Context) ([]models.Event, error) {
	records := []*core.Record{}
	err := r.app.RecordQuery(eventsCollection).
		WithContext(ctx).
		AndWhere(dbx.HashExp{"status": models.EventStatusPublish}).
		OrderBy("start_date ASC").
		All(&records)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]models.Event, 0, len(records))
	for _, record := range records {
		event, err := EventFromRecord(record)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, nil
}

func (r *PocketBaseEvents) SaveSeatingMap(ctx context.Context, id string, m *models.SeatingMap) error {
	record, err := r.findRecord(ctx, id)
	if err != nil {
		return err
	}
	record.Set("seating_map", m)
	if err := r.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("save seating map of %s: %w", id, err)
	}
	return nil
}

// AddSold rewrites the ticket_types field inside a transaction so concurrent
// confirmations never lose an increment.
func (r *PocketBaseEvents) AddSold(ctx context.Context, id string, tickets map[string]int) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.app.RunInTransaction(func(txApp core.App) error {
		record := &core.Record{}
		err := txApp.RecordQuery(eventsCollection).
			WithContext(ctx).
			AndWhere(dbx.HashExp{"id": id}).
			Limit(1).
			One(record)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return status.ErrEventNotFound
			}
			return fmt.Errorf("find event %s: %w", id, err)
		}

		var ticketTypes []models.TicketType
		if _, err := unmarshalField(record, "ticket_types", &ticketTypes); err != nil {
			return err
		}
		addSold(ticketTypes, tickets)
		record.Set("ticket_types", ticketTypes)
		if err := txApp.SaveWithContext(ctx, record); err != nil {
			return fmt.Errorf("save sold tickets of %s: %w", id, err)
		}
		return nil
	})
}

func addSold(ticketTypes []models.TicketType, tickets map[string]int) {
	for i := range ticketTypes {
		ticketTypes[i].Sold += tickets[ticketTypes[i].ID]
	}
}

// EventFromRecord maps an events record to the domain type.
func EventFromRecord(record *core.Record) (*models.Event, error) {
	event := &models.Event{
		ID:          record.Id,
		Title:       record.GetString("title"),
		Description: record.GetString("description"),
		Location:    record.GetString("location"),
		StartDate:   record.GetDateTime("start_date").Time(),
		EndDate:     record.GetDateTime("end_date").Time(),
		Capacity:    record.GetInt("capacity"),
		Status:      record.GetString("status"),
	}

	if _, err := unmarshalField(record, "ticket_types", &event.TicketTypes); err != nil {
		return nil, err
	}

	var seatingMap models.SeatingMap
	ok, err := unmarshalField(record, "seating_map", &seatingMap)
	if err != nil {
		return nil, err
	}
	if ok {
		event.SeatingMap = &seatingMap
	}
	return event, nil
}

// unmarshalField decodes a json field, reporting false for empty and null values.
func unmarshalField(record *core.Record, field string, dst any) (bool, error) {
	raw := strings.TrimSpace(record.GetString(field))
	if raw == "" || raw == "null" {
		return false, nil
	}
	if err := record.UnmarshalJSONField(field, dst); err != nil {
		return false, fmt.Errorf("decode %s of event %s: %w", field, record.Id, err)
	}
	return true, nil
}

// PocketBaseBookings writes confirmed checkouts to the "bookings" collection.
type PocketBaseBookings struct {
	app core.App
}

func NewPocketBaseBookings(app core.App) *PocketBaseBookings {
	return &PocketBaseBookings{app: app}
}

func (r *PocketBaseBookings) SaveBooking(ctx context.Context, p *models.Payment) error {
	existing := &core.Record{}
	err := r.app.RecordQuery(bookingsCollection).
		WithContext(ctx).
		AndWhere(dbx.HashExp{"payment_id": p.ID}).
		Limit(1).
		One(existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("find booking %s: %w", p.ID, err)
	}

	collection, err := r.app.FindCachedCollectionByNameOrId(bookingsCollection)
	if err != nil {
		return fmt.Errorf("find bookings collection: %w", err)
	}
	record := core.NewRecord(collection)
	for field, value := range bookingFields(p) {
		record.Set(field, value)
	}
	if err := r.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("save booking %s: %w", p.ID, err)
	}
	return nil
}
