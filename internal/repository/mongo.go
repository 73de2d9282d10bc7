package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"ticket-seating/internal/status"
	"ticket-seating/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo opens a client with the decimal aware registry and pings the
// primary before returning it.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetRegistry(NewRegistry()))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// MongoEvents reads events from a mongo "events" collection. Documents use
// the bson tags of models.Event; ids may be strings or object ids.
type MongoEvents struct {
	coll *mongo.Collection
}

func NewMongoEvents(db *mongo.Database) *MongoEvents {
	return &MongoEvents{
		coll: db.Collection(eventsCollection, options.Collection().SetRegistry(NewRegistry())),
	}
}

func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func (r *MongoEvents) FindByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := r.coll.FindOne(ctx, idFilter(id)).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, status.ErrEventNotFound
		}
		return nil, fmt.Errorf("find event %s: %w", id, err)
	}
	return &event, nil
}

func (r *MongoEvents) ListPublished(ctx context.Context) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"status": models.EventStatusPublish}, opts)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

func (r *MongoEvents) SaveSeatingMap(ctx context.Context, id string, m *models.SeatingMap) error {
	res, err := r.coll.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{"seating_map": m}})
	if err != nil {
		return fmt.Errorf("save seating map of %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return status.ErrEventNotFound
	}
	return nil
}

// AddSold increments the sold counter of each ticket type in one update.
// Ticket types are matched on id or on their own _id.
func (r *MongoEvents) AddSold(ctx context.Context, id string, tickets map[string]int) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tickets))
	for ticketTypeID := range tickets {
		ids = append(ids, ticketTypeID)
	}
	slices.Sort(ids)

	inc := bson.D{}
	filters := make([]interface{}, 0, len(ids))
	for i, ticketTypeID := range ids {
		ident := fmt.Sprintf("t%d", i)
		inc = append(inc, bson.E{Key: "ticket_types.$[" + ident + "].sold", Value: tickets[ticketTypeID]})
		match := bson.A{
			bson.M{ident + ".id": ticketTypeID},
			bson.M{ident + "._id": ticketTypeID},
		}
		if oid, err := primitive.ObjectIDFromHex(ticketTypeID); err == nil {
			match = append(match, bson.M{ident + "._id": oid})
		}
		filters = append(filters, bson.M{"$or": match})
	}

	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: filters})
	res, err := r.coll.UpdateOne(ctx, idFilter(id), bson.M{"$inc": inc}, opts)
	if err != nil {
		return fmt.Errorf("save sold tickets of %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return status.ErrEventNotFound
	}
	return nil
}

// MongoBookings writes confirmed checkouts to a mongo "bookings" collection,
// keyed by payment id.
type MongoBookings struct {
	coll *mongo.Collection
}

func NewMongoBookings(db *mongo.Database) *MongoBookings {
	return &MongoBookings{coll: db.Collection(bookingsCollection)}
}

func (r *MongoBookings) SaveBooking(ctx context.Context, p *models.Payment) error {
	doc := bson.M{"_id": p.ID}
	for field, value := range bookingFields(p) {
		doc[field] = value
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("save booking %s: %w", p.ID, err)
	}
	return nil
}
