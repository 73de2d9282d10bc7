package seating

const (
	MinScale = 0.25
	MaxScale = 4.0
)

// ViewTransform is the pan/zoom state of a chart view. It only maps scene
// coordinates to screen coordinates; the scene itself never changes.
type ViewTransform struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

// IdentityView is the unzoomed, unpanned view.
func IdentityView() ViewTransform {
	return ViewTransform{Scale: 1}
}

// Apply maps a scene point to the screen.
func (v ViewTransform) Apply(p Point) Point {
	return Point{
		X: p.X*v.Scale + v.TranslateX,
		Y: p.Y*v.Scale + v.TranslateY,
	}
}

// Invert maps a screen point back to scene coordinates.
func (v ViewTransform) Invert(p Point) Point {
	scale := v.Scale
	if scale == 0 {
		scale = 1
	}
	return Point{
		X: (p.X - v.TranslateX) / scale,
		Y: (p.Y - v.TranslateY) / scale,
	}
}

// Pan shifts the view by a screen space delta.
func (v ViewTransform) Pan(dx, dy float64) ViewTransform {
	v.TranslateX += dx
	v.TranslateY += dy
	return v
}

// Zoom scales the view by factor around the screen point (cx, cy), keeping
// that point fixed. The resulting scale is clamped to [MinScale, MaxScale].
func (v ViewTransform) Zoom(factor, cx, cy float64) ViewTransform {
	if factor <= 0 {
		return v
	}
	if v.Scale == 0 {
		v.Scale = 1
	}
	next := clamp(v.Scale*factor, MinScale, MaxScale)
	anchor := v.Invert(Point{X: cx, Y: cy})
	return ViewTransform{
		Scale:      next,
		TranslateX: cx - anchor.X*next,
		TranslateY: cy - anchor.Y*next,
	}
}

// Fit returns the view that shows box inside a viewport of the given size.
func Fit(box Rect, width, height float64) ViewTransform {
	if box.Width <= 0 || box.Height <= 0 || width <= 0 || height <= 0 {
		return IdentityView()
	}
	scale := clamp(min(width/box.Width, height/box.Height), MinScale, MaxScale)
	return ViewTransform{
		Scale:      scale,
		TranslateX: (width-box.Width*scale)/2 - box.X*scale,
		TranslateY: (height-box.Height*scale)/2 - box.Y*scale,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
