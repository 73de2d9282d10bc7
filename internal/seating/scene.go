package seating

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"

	"ticket-seating/models"
)

// ErrNoSeatingData is returned by Render for maps without sections. It is a
// routing signal for the caller, not a failure.
var ErrNoSeatingData = errors.New("seating: no seating data")

// SeatRadius is the drawing radius of every seat.
const SeatRadius = 8.0

const (
	viewPadding        = 50.0
	defaultStageWidth  = 300.0
	defaultStageHeight = 50.0
)

// SelectionView is the read side of a selection.
type SelectionView interface {
	Contains(key string) bool
}

type Scene struct {
	ViewBox       Rect           `json:"view_box"`
	Stage         StageShape     `json:"stage"`
	Objects       []ObjectShape  `json:"objects"`
	Sections      []SectionShape `json:"sections"`
	SeatCount     int            `json:"seat_count"`
	SelectedCount int            `json:"selected_count"`

	seats map[string]SeatShape
}

type StageShape struct {
	Bounds  Rect   `json:"bounds"`
	Label   string `json:"label"`
	LabelAt Point  `json:"label_at"`
}

type ObjectShape struct {
	Type    string `json:"type"`
	Label   string `json:"label"`
	Icon    string `json:"icon"`
	Color   string `json:"color"`
	Bounds  Rect   `json:"bounds"`
	LabelAt Point  `json:"label_at"`
}

type SectionShape struct {
	ID      string     `json:"id,omitempty"`
	Name    string     `json:"name"`
	Color   string     `json:"color"`
	Bounds  Rect       `json:"bounds"`
	LabelAt Point      `json:"label_at"`
	Rows    []RowShape `json:"rows"`
}

type RowShape struct {
	Name    string      `json:"name"`
	LabelAt Point       `json:"label_at"`
	Seats   []SeatShape `json:"seats"`
}

type SeatShape struct {
	Key        string            `json:"key"`
	SeatID     string            `json:"seat_id,omitempty"`
	Number     string            `json:"number"`
	Center     Point             `json:"center"`
	Radius     float64           `json:"radius"`
	Fill       string            `json:"fill"`
	Status     models.SeatStatus `json:"status"`
	Selected   bool              `json:"selected"`
	Selectable bool              `json:"selectable"`
}

// Seat looks up a rendered seat by its canonical key.
func (s *Scene) Seat(key string) (SeatShape, bool) {
	seat, ok := s.seats[key]
	return seat, ok
}

// Clickable reports whether a click on the seat should reach the selection.
// Clicks on seats that are neither available nor already selected are no-ops.
func (s *Scene) Clickable(key string) bool {
	seat, ok := s.seats[key]
	return ok && seat.Selectable
}

// SeatAt returns the seat under a scene point. Overlapping seats resolve to
// the nearest center, then the smaller key.
func (s *Scene) SeatAt(p Point) (SeatShape, bool) {
	var (
		best  SeatShape
		found bool
		dist  float64
	)
	for _, seat := range s.seats {
		dx, dy := p.X-seat.Center.X, p.Y-seat.Center.Y
		d := math.Hypot(dx, dy)
		if d > seat.Radius {
			continue
		}
		if found && (d > dist || (d == dist && seat.Key > best.Key)) {
			continue
		}
		best, found, dist = seat, true, d
	}
	return best, found
}

type objectStyle struct {
	icon  string
	color string
	label string
}

var objectStyles = map[string]objectStyle{
	models.VenueEntrance: {icon: "door-open", color: "#4CAF50", label: "Entrance"},
	models.VenueExit:     {icon: "door-exit", color: "#F44336", label: "Exit"},
	models.VenueWC:       {icon: "restroom", color: "#2196F3", label: "WC"},
	models.VenueFood:     {icon: "utensils", color: "#FF9800", label: "Food"},
	models.VenueDrinks:   {icon: "glass", color: "#9C27B0", label: "Drinks"},
}

var fallbackObjectStyle = objectStyle{icon: "marker", color: "#607D8B", label: "Venue"}

type Renderer struct {
	logger *slog.Logger
}

// NewRenderer returns a renderer logging through logger. A nil logger discards.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{logger: logger}
}

// Render builds the scene for a seating map. It never mutates its inputs and
// returns the same scene for the same arguments. A nil selection renders
// nothing as selected.
func (r *Renderer) Render(m *models.SeatingMap, ticketTypes []models.TicketType, selected SelectionView) (*Scene, error) {
	if m == nil || len(m.Sections) == 0 {
		return nil, ErrNoSeatingData
	}

	scene := &Scene{
		Stage:    stageShape(m.Stage),
		Objects:  make([]ObjectShape, 0, len(m.VenueObjects)),
		Sections: make([]SectionShape, 0, len(m.Sections)),
		seats:    make(map[string]SeatShape),
	}
	view := scene.Stage.Bounds

	for _, obj := range m.VenueObjects {
		shape := objectShape(obj)
		scene.Objects = append(scene.Objects, shape)
		view = view.union(shape.Bounds)
	}

	for i := range m.Sections {
		section := &m.Sections[i]
		shape := r.sectionShape(m.LayoutType, section, i, ticketTypes, selected, scene)
		scene.Sections = append(scene.Sections, shape)
		view = view.union(shape.Bounds)
	}

	scene.ViewBox = Rect{
		X:      view.X - viewPadding,
		Y:      view.Y - viewPadding,
		Width:  view.Width + 2*viewPadding,
		Height: view.Height + 2*viewPadding,
	}

	r.logger.Debug("seating scene rendered",
		"sections", len(scene.Sections),
		"seats", scene.SeatCount,
		"selected", scene.SelectedCount,
	)
	return scene, nil
}

func (r *Renderer) sectionShape(layoutType string, section *models.Section, index int, ticketTypes []models.TicketType, selected SelectionView, scene *Scene) SectionShape {
	bounds := SectionBounds(section, index)
	color := SectionColor(section, ticketTypes)
	rowCount := len(section.Rows)
	maxSeats := section.MaxSeatsInRow()

	shape := SectionShape{
		ID:      section.ID,
		Name:    section.Name,
		Color:   color,
		Bounds:  bounds,
		LabelAt: Point{X: bounds.X + bounds.Width/2, Y: bounds.Y - 10},
		Rows:    make([]RowShape, 0, rowCount),
	}

	for ri, row := range section.Rows {
		if len(row.Seats) == 0 {
			r.logger.Debug("skipping empty row", "section", section.Name, "row", row.Name)
			continue
		}

		rowShape := RowShape{
			Name:  row.Name,
			Seats: make([]SeatShape, 0, len(row.Seats)),
		}
		for ci := range row.Seats {
			seat := &row.Seats[ci]
			key := models.SeatKey(section.Name, row.Name, *seat)
			isSelected := key != "" && selected != nil && selected.Contains(key)

			seatShape := SeatShape{
				Key:        key,
				SeatID:     seat.ID,
				Number:     seat.Number,
				Center:     ResolveSeatPosition(layoutType, seat, bounds, ri, ci, rowCount, maxSeats),
				Radius:     SeatRadius,
				Fill:       SeatFill(seat.Status, isSelected, color),
				Status:     normalizeStatus(seat.Status),
				Selected:   isSelected,
				Selectable: key != "" && (isSelected || seat.Status.IsAvailable()),
			}
			if key == "" {
				r.logger.Debug("seat without identity", "section", section.Name, "row", row.Name, "index", ci)
			} else {
				scene.seats[key] = seatShape
			}
			if isSelected {
				scene.SelectedCount++
			}
			scene.SeatCount++
			rowShape.Seats = append(rowShape.Seats, seatShape)
		}
		first := rowShape.Seats[0].Center
		rowShape.LabelAt = Point{X: first.X - 2*SeatRadius - 4, Y: first.Y}
		shape.Rows = append(shape.Rows, rowShape)
	}

	return shape
}

func normalizeStatus(s models.SeatStatus) models.SeatStatus {
	if s == "" {
		return models.SeatAvailable
	}
	return s
}

func stageShape(stage models.Stage) StageShape {
	bounds := Rect{X: stage.X, Y: stage.Y, Width: stage.Width, Height: stage.Height}
	if bounds.Width <= 0 {
		bounds.Width = defaultStageWidth
	}
	if bounds.Height <= 0 {
		bounds.Height = defaultStageHeight
	}
	label := stage.Label
	if label == "" {
		label = "STAGE"
	}
	return StageShape{Bounds: bounds, Label: label, LabelAt: bounds.Center()}
}

func objectShape(obj models.VenueObject) ObjectShape {
	style, ok := objectStyles[strings.ToLower(obj.Type)]
	if !ok {
		style = fallbackObjectStyle
	}
	label := obj.Label
	if label == "" {
		label = style.label
	}
	bounds := Rect{X: obj.X, Y: obj.Y, Width: obj.Width, Height: obj.Height}
	return ObjectShape{
		Type:    obj.Type,
		Label:   label,
		Icon:    style.icon,
		Color:   style.color,
		Bounds:  bounds,
		LabelAt: bounds.Center(),
	}
}
