package seating

import (
	"math"

	"ticket-seating/models"
)

// Fallback geometry used when a section carries no usable coordinates.
const (
	gridOriginX   = 100.0
	gridOriginY   = 200.0
	gridStepX     = 400.0
	gridStepY     = 300.0
	gridColumns   = 3
	seatAnchorPad = 30.0
	seatPitch     = 30.0
	minSectionW   = 120.0
	minSectionH   = 90.0
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// union grows r to cover o. A zero r takes o as is.
func (r Rect) union(o Rect) Rect {
	if r.Width == 0 && r.Height == 0 && r.X == 0 && r.Y == 0 {
		return o
	}
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.Width, o.X+o.Width)
	maxY := math.Max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// SectionBounds resolves the bounding box of the section at position index.
//
// Stored x/y win when finite. Otherwise the box is anchored 30px up and left of
// the first seat of the first row when that seat has finite coordinates, and as
// a last resort placed on a three column grid. Missing or non-positive sizes are
// derived from the seat counts.
func SectionBounds(section *models.Section, index int) Rect {
	var r Rect

	switch {
	case models.IsFinite(section.X) && models.IsFinite(section.Y):
		r.X, r.Y = *section.X, *section.Y
	case firstSeatAnchored(section):
		seat := section.Rows[0].Seats[0]
		r.X, r.Y = *seat.X-seatAnchorPad, *seat.Y-seatAnchorPad
	default:
		r.X = gridOriginX + float64(index%gridColumns)*gridStepX
		r.Y = gridOriginY + float64(index/gridColumns)*gridStepY
	}

	if models.IsFinite(section.Width) && *section.Width > 0 {
		r.Width = *section.Width
	} else {
		r.Width = math.Max(minSectionW, float64(section.MaxSeatsInRow()+1)*seatPitch)
	}
	if models.IsFinite(section.Height) && *section.Height > 0 {
		r.Height = *section.Height
	} else {
		r.Height = math.Max(minSectionH, float64(len(section.Rows)+1)*seatPitch)
	}

	return r
}

func firstSeatAnchored(section *models.Section) bool {
	if len(section.Rows) == 0 || len(section.Rows[0].Seats) == 0 {
		return false
	}
	seat := section.Rows[0].Seats[0]
	return models.IsFinite(seat.X) && models.IsFinite(seat.Y)
}

// SeatPosition spreads seats uniformly inside bounds: row r of rowCount and
// column c of maxSeatsInRow land at
//
//	x = X + (c+1) * W/(maxSeatsInRow+1)
//	y = Y + (r+1) * H/(rowCount+1)
//
// Counts below one are treated as one so the result is always finite.
func SeatPosition(bounds Rect, rowIndex, colIndex, rowCount, maxSeatsInRow int) Point {
	if rowCount < 1 {
		rowCount = 1
	}
	if maxSeatsInRow < 1 {
		maxSeatsInRow = 1
	}
	spacingX := bounds.Width / float64(maxSeatsInRow+1)
	spacingY := bounds.Height / float64(rowCount+1)
	return Point{
		X: bounds.X + float64(colIndex+1)*spacingX,
		Y: bounds.Y + float64(rowIndex+1)*spacingY,
	}
}

// ResolveSeatPosition returns the drawing position of a seat. Custom layouts use
// stored coordinates when both are finite; every other layout is computed.
func ResolveSeatPosition(layoutType string, seat *models.Seat, bounds Rect, rowIndex, colIndex, rowCount, maxSeatsInRow int) Point {
	if layoutType == models.LayoutCustom && models.IsFinite(seat.X) && models.IsFinite(seat.Y) {
		return Point{X: *seat.X, Y: *seat.Y}
	}
	return SeatPosition(bounds, rowIndex, colIndex, rowCount, maxSeatsInRow)
}
