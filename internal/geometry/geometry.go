// Package geometry holds the small amount of 2D math shared by the editor
// gestures, the layout engine and the image pipeline.
package geometry

import "math"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Rect is an axis-aligned box in either screen or logical coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// Intersects reports whether r and o overlap with at least gap units between them.
func (r Rect) Intersects(o Rect, gap float64) bool {
	return r.Left < o.Right()+gap && r.Right()+gap > o.Left &&
		r.Top < o.Bottom()+gap && r.Bottom()+gap > o.Top
}

// Clamp bounds v to [lo, hi]. A degenerate range (hi <= lo) yields lo.
func Clamp(v, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 || r == 0 {
		return 0
	}
	return r
}

func Degrees(rad float64) float64 { return rad * 180 / math.Pi }
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Angle returns the angle in radians of the vector from c to p.
func Angle(c, p Point) float64 {
	return math.Atan2(p.Y-c.Y, p.X-c.X)
}

// AspectRatio returns w/h, or 1 when the height is not positive.
func AspectRatio(w, h float64) float64 {
	if h <= 0 || w <= 0 {
		return 1
	}
	return w / h
}

// Scale returns the ratio of a rendered length to its logical length.
// Unrendered or zero-sized surfaces report 1.
func Scale(rendered, logical float64) float64 {
	if rendered <= 0 || logical <= 0 {
		return 1
	}
	return rendered / logical
}

// FitWithin scales (w, h) down so neither side exceeds limit, keeping the
// aspect ratio. Sizes already within bounds are returned unchanged.
func FitWithin(w, h, limit float64) (float64, float64) {
	if w <= 0 || h <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	ratio := w / h
	if w > h {
		return limit, limit / ratio
	}
	return limit * ratio, limit
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
