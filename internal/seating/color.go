package seating

import (
	"strings"
	"unicode"

	"ticket-seating/models"
)

// Palette is the fixed section palette. The first two entries belong to the
// "vip" and "golden" tiers, the next ten to the single letter codes a..j.
var Palette = []string{
	"#8E24AA", // vip
	"#FFB300", // golden
	"#E53935", // a
	"#1E88E5", // b
	"#43A047", // c
	"#FB8C00", // d
	"#00ACC1", // e
	"#D81B60", // f
	"#5E35B1", // g
	"#7CB342", // h
	"#3949AB", // i
	"#F4511E", // j
}

const (
	paletteVIP    = 0
	paletteGolden = 1
	paletteLetter = 2
)

// Seat colors that do not depend on the section.
const (
	ColorSelected    = "#22C55E"
	ColorReserved    = "#F59E0B"
	ColorSold        = "#9CA3AF"
	ColorLocked      = "#EF4444"
	ColorMaintenance = "#6B7280"
	ColorUnknown     = "#D1D5DB"
)

// ColorForName maps a tier or section name to a palette color. Known tier names
// match case-insensitively; anything else hashes into the palette so the same
// name always gets the same color.
func ColorForName(name string) string {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "vip"):
		return Palette[paletteVIP]
	case strings.Contains(lower, "gold"):
		return Palette[paletteGolden]
	}

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if len(tok) == 1 && tok[0] >= 'a' && tok[0] <= 'j' {
			return Palette[paletteLetter+int(tok[0]-'a')]
		}
	}

	return Palette[nameHash(name)%uint32(len(Palette))]
}

// nameHash is a polynomial rolling hash over the runes of s.
func nameHash(s string) uint32 {
	var h uint32
	for _, r := range s {
		h = h*31 + uint32(r)
	}
	return h
}

// SectionColor prefers the explicit color of the section's ticket type, then
// derives one from the ticket type name, then from the section name.
func SectionColor(section *models.Section, ticketTypes []models.TicketType) string {
	if tt, ok := models.FindTicketType(ticketTypes, section.TicketTier); ok {
		if tt.Color != "" {
			return tt.Color
		}
		return ColorForName(tt.Name)
	}
	if section.TicketTier != "" {
		return ColorForName(section.TicketTier)
	}
	return ColorForName(section.Name)
}

// SeatFill picks the fill of a seat: selected first, then available seats take
// the section color, then a fixed color per status.
func SeatFill(status models.SeatStatus, selected bool, sectionColor string) string {
	if selected {
		return ColorSelected
	}
	if status.IsAvailable() {
		return sectionColor
	}
	switch status {
	case models.SeatReserved:
		return ColorReserved
	case models.SeatSold:
		return ColorSold
	case models.SeatLocked:
		return ColorLocked
	case models.SeatMaintenance:
		return ColorMaintenance
	default:
		return ColorUnknown
	}
}
