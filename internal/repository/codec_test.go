package repository

import (
	"testing"

	"ticket-seating/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecimalCodec_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	override := decimal.RequireFromString("99.95")
	seat := models.Seat{ID: "s-1", Number: "1", OverridePrice: &override}

	data, err := bson.MarshalWithRegistry(reg, seat)
	require.NoError(t, err)

	raw := bson.Raw(data)
	assert.Equal(t, "99.95", raw.Lookup("override_price").StringValue())

	var decoded models.Seat
	require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &decoded))
	require.NotNil(t, decoded.OverridePrice)
	assert.True(t, override.Equal(*decoded.OverridePrice))
}

func TestDecimalCodec_DecodesNumbers(t *testing.T) {
	reg := NewRegistry()
	d128, err := primitive.ParseDecimal128("12.75")
	require.NoError(t, err)

	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"double", 80.5, "80.5"},
		{"int32", int32(40), "40"},
		{"int64", int64(1200), "1200"},
		{"decimal128", d128, "12.75"},
		{"string", "150", "150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := bson.Marshal(bson.D{{Key: "id", Value: "vip"}, {Key: "price", Value: tt.value}})
			require.NoError(t, err)

			var ticketType models.TicketType
			require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &ticketType))
			assert.Equal(t, tt.expected, ticketType.Price.String())
		})
	}
}

func TestDecimalCodec_RejectsOtherTypes(t *testing.T) {
	data, err := bson.Marshal(bson.D{{Key: "price", Value: true}})
	require.NoError(t, err)

	var ticketType models.TicketType
	assert.Error(t, bson.UnmarshalWithRegistry(NewRegistry(), data, &ticketType))
}

func TestTicketTypeCodec_MongoID(t *testing.T) {
	oid := primitive.NewObjectID()

	tests := []struct {
		name     string
		doc      bson.D
		expected string
	}{
		{"string _id", bson.D{{Key: "_id", Value: "tt-1"}, {Key: "name", Value: "Zone A"}}, "tt-1"},
		{"object id", bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "Zone A"}}, oid.Hex()},
		{"id wins", bson.D{{Key: "id", Value: "vip"}, {Key: "_id", Value: "tt-1"}}, "vip"},
		{"no id", bson.D{{Key: "name", Value: "Zone A"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := bson.Marshal(tt.doc)
			require.NoError(t, err)

			var ticketType models.TicketType
			require.NoError(t, bson.UnmarshalWithRegistry(NewRegistry(), data, &ticketType))
			assert.Equal(t, tt.expected, ticketType.ID)
		})
	}
}

func TestTicketTypeCodec_EventDocument(t *testing.T) {
	data, err := bson.Marshal(bson.D{
		{Key: "_id", Value: "evt-1"},
		{Key: "ticket_types", Value: bson.A{
			bson.D{{Key: "_id", Value: "tt-1"}, {Key: "name", Value: "Zone A"}, {Key: "price", Value: 100000}, {Key: "quantity", Value: 50}},
		}},
	})
	require.NoError(t, err)

	var event models.Event
	require.NoError(t, bson.UnmarshalWithRegistry(NewRegistry(), data, &event))
	require.Len(t, event.TicketTypes, 1)

	tt := event.TicketTypes[0]
	assert.Equal(t, "tt-1", tt.ID)
	assert.Equal(t, "100000", tt.Price.String())
	assert.Equal(t, 50, tt.Available())

	resolved, ok := event.TicketType("tt-1")
	require.True(t, ok)
	assert.Equal(t, "Zone A", resolved.Name)
}
