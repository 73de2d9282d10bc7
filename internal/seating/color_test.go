package seating

import (
	"regexp"
	"testing"

	"ticket-seating/models"

	"github.com/stretchr/testify/assert"
)

var hexColor = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func TestPalette(t *testing.T) {
	assert.GreaterOrEqual(t, len(Palette), 10)

	seen := make(map[string]bool)
	for _, c := range Palette {
		assert.Regexp(t, hexColor, c)
		assert.False(t, seen[c], "duplicate palette color %s", c)
		seen[c] = true
	}
}

func TestColorForName_KnownTiers(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"VIP", Palette[paletteVIP]},
		{"Super vip lounge", Palette[paletteVIP]},
		{"Golden Circle", Palette[paletteGolden]},
		{"GOLD", Palette[paletteGolden]},
		{"A", Palette[paletteLetter]},
		{"Zone b", Palette[paletteLetter+1]},
		{"section-J", Palette[paletteLetter+9]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ColorForName(tt.name))
		})
	}
}

func TestColorForName_HashFallback(t *testing.T) {
	names := []string{"Balcony", "Standing", "Mezzanine", "K", "", "ລະດັບ 1"}

	for _, name := range names {
		first := ColorForName(name)
		assert.Contains(t, Palette, first)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, ColorForName(name))
		}
		assert.Equal(t, Palette[nameHash(name)%uint32(len(Palette))], first)
	}
}

func TestSectionColor(t *testing.T) {
	ticketTypes := []models.TicketType{
		{ID: "tt-vip", Name: "VIP", Color: "#123456"},
		{ID: "tt-gold", Name: "Golden"},
	}

	tests := []struct {
		name     string
		section  models.Section
		expected string
	}{
		{"explicit color", models.Section{Name: "Front", TicketTier: "tt-vip"}, "#123456"},
		{"ticket type name", models.Section{Name: "Front", TicketTier: "tt-gold"}, Palette[paletteGolden]},
		{"tier matched by name", models.Section{Name: "Front", TicketTier: "golden"}, Palette[paletteGolden]},
		{"unresolved tier", models.Section{Name: "Front", TicketTier: "vip-2"}, Palette[paletteVIP]},
		{"section name", models.Section{Name: "C"}, Palette[paletteLetter+2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SectionColor(&tt.section, ticketTypes))
		})
	}
}

func TestSeatFill(t *testing.T) {
	const sectionColor = "#ABCDEF"

	tests := []struct {
		name     string
		status   models.SeatStatus
		selected bool
		expected string
	}{
		{"selected wins over status", models.SeatSold, true, ColorSelected},
		{"selected available", models.SeatAvailable, true, ColorSelected},
		{"available", models.SeatAvailable, false, sectionColor},
		{"unset", "", false, sectionColor},
		{"reserved", models.SeatReserved, false, ColorReserved},
		{"sold", models.SeatSold, false, ColorSold},
		{"locked", models.SeatLocked, false, ColorLocked},
		{"maintenance", models.SeatMaintenance, false, ColorMaintenance},
		{"unknown", models.SeatStatus("blocked"), false, ColorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SeatFill(tt.status, tt.selected, sectionColor))
		})
	}
}
