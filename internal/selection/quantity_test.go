package selection

import (
	"encoding/json"
	"testing"

	"ticket-seating/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantities_Set(t *testing.T) {
	general := models.TicketType{ID: "ga", Name: "General", Price: decimal.NewFromInt(50000), Quantity: 100, Sold: 97}
	vip := models.TicketType{ID: "vip", Name: "VIP", Price: decimal.NewFromInt(150000), Quantity: 20}

	q := NewQuantities()
	require.NoError(t, q.Set(vip, 2))
	require.NoError(t, q.Set(general, 3))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, "450000", q.Total().String())
	assert.Equal(t, "vip", q.Items()[0].TicketTypeID)
	assert.Equal(t, "150000", q.Items()[1].Subtotal.String())

	require.NoError(t, q.Set(vip, 1))
	assert.Equal(t, 1, q.Quantity("vip"))
	assert.Equal(t, "vip", q.Items()[0].TicketTypeID, "update keeps position")

	require.NoError(t, q.Set(vip, 0))
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, "150000", q.Total().String())
}

func TestQuantities_SetErrors(t *testing.T) {
	tt := models.TicketType{ID: "ga", Name: "General", Price: decimal.NewFromInt(1), Quantity: 5, Sold: 3}

	tests := []struct {
		name     string
		tt       models.TicketType
		quantity int
		wantErr  error
	}{
		{"negative", tt, -1, ErrInvalidQuantity},
		{"over per type cap", models.TicketType{ID: "x", Quantity: 100}, MaxTicketsPerType + 1, ErrInvalidQuantity},
		{"over availability", tt, 3, ErrInsufficientTickets},
		{"no ticket type", models.TicketType{}, 1, ErrMissingTicketType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := NewQuantities()
			assert.ErrorIs(t, q.Set(tc.tt, tc.quantity), tc.wantErr)
			assert.Zero(t, q.Len())
		})
	}
}

func TestQuantities_JSONRestore(t *testing.T) {
	q := NewQuantities()
	require.NoError(t, q.Set(models.TicketType{ID: "ga", Name: "General", Price: decimal.NewFromInt(7), Quantity: 10}, 4))

	data, err := json.Marshal(q)
	require.NoError(t, err)

	restored := NewQuantities()
	require.NoError(t, json.Unmarshal(data, restored))
	assert.Equal(t, 4, restored.Quantity("ga"))
	assert.Equal(t, "28", restored.Total().String())
}
