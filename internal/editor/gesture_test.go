package editor

import (
	"math"
	"testing"

	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
)

func pt(x, y float64) geometry.Point { return geometry.Point{X: x, Y: y} }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestDragClampsToPage(t *testing.T) {
	f := Frame{
		Container:     geometry.Rect{Left: 10, Top: 20, Width: 250, Height: 350},
		ContainerSize: geometry.Size{W: 500, H: 700},
		Block:         geometry.Rect{Left: 30, Top: 40, Width: 50, Height: 50},
	}
	b := domain.Block{X: 40, Y: 40, Width: 100, Height: 100}
	d := startDrag(f, b, pt(35, 45))

	tests := []struct {
		name string
		p    geometry.Point
		x, y float64
	}{
		{"scaled", pt(60, 80), 90, 110},
		{"far right", pt(1000, 1000), 400, 600},
		{"negative", pt(-100, -100), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.move(tt.p)
			if !near(d.x, tt.x) || !near(d.y, tt.y) {
				t.Errorf("drag to %v = (%v, %v), want (%v, %v)", tt.p, d.x, d.y, tt.x, tt.y)
			}
			if d.x < 0 || d.x > math.Max(0, 500-b.Width) {
				t.Errorf("x %v escaped the page", d.x)
			}
		})
	}

	d.apply(&b)
	if b.X != 0 || b.Y != 0 {
		t.Errorf("apply = (%v, %v), want last position", b.X, b.Y)
	}
}

func TestDragOversizedBlockPinsToOrigin(t *testing.T) {
	f := Frame{
		Container:     geometry.Rect{Width: 500, Height: 700},
		ContainerSize: geometry.Size{W: 500, H: 700},
	}
	d := startDrag(f, domain.Block{Width: 600, Height: 800}, pt(0, 0))
	d.move(pt(120, 80))
	if d.x != 0 || d.y != 0 {
		t.Errorf("oversized block moved to (%v, %v)", d.x, d.y)
	}
}

func TestResizeBoxKeepsAspect(t *testing.T) {
	f := Frame{
		Container:     geometry.Rect{Width: 500, Height: 700},
		ContainerSize: geometry.Size{W: 500, H: 700},
	}
	b := domain.Block{Type: domain.BlockTypePhoto, X: 40, Width: 320, Height: 240}

	tests := []struct {
		dx   float64
		w, h float64
	}{
		{200, 460, 345},
		{-300, 100, 75},
		{40, 360, 270},
	}
	for _, tt := range tests {
		r := startResize(f, b, pt(0, 0))
		r.move(pt(tt.dx, 999))
		if !near(r.w, tt.w) || !near(r.h, tt.h) {
			t.Errorf("dx %v: %vx%v, want %vx%v", tt.dx, r.w, r.h, tt.w, tt.h)
		}
		if !near(r.w/r.h, 320.0/240.0) {
			t.Errorf("dx %v: aspect drifted to %v", tt.dx, r.w/r.h)
		}
	}
}

func TestResizeGlyphSticker(t *testing.T) {
	f := Frame{
		Container:     geometry.Rect{Width: 500, Height: 700},
		ContainerSize: geometry.Size{W: 500, H: 700},
	}
	b := domain.Block{Type: domain.BlockTypeSticker, Value: domain.SourceValue("⭐"), Width: 80, Height: 80}
	r := startResize(f, b, pt(0, 0))
	r.move(pt(-70, 0))
	if r.w != 40 {
		t.Errorf("sticker min width = %v, want 40", r.w)
	}
	r.move(pt(20, 0))

	s := newFakeSurface()
	r.render(s, 1, "b")
	if got := s.glyph["b"]; !near(got, 80) {
		t.Errorf("glyph size = %v, want 80", got)
	}
}

func TestResizeTextScalesFont(t *testing.T) {
	f := Frame{
		Container:     geometry.Rect{Width: 500, Height: 700},
		ContainerSize: geometry.Size{W: 500, H: 700},
	}
	b := domain.Block{Type: domain.BlockTypeText, Width: 320, Height: 160}

	tests := []struct {
		name string
		dx   float64
		font float64
	}{
		{"double", 320, 40},
		{"floor", -1000, 12},
		{"ceiling", 10000, 200},
		{"none", 0, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := startResize(f, b, pt(0, 0))
			r.move(pt(tt.dx, 0))
			if !near(r.font, tt.font) {
				t.Errorf("font = %v, want %v", r.font, tt.font)
			}
			got := b
			r.apply(&got)
			if got.Width != 320 || got.FontSize != r.font {
				t.Errorf("apply changed box or lost font: %+v", got)
			}
		})
	}
}

func TestResizeTextUsesRenderedFont(t *testing.T) {
	f := Frame{
		Container:     geometry.Rect{Width: 500, Height: 700},
		ContainerSize: geometry.Size{W: 500, H: 700},
		FontSize:      30,
	}
	b := domain.Block{Type: domain.BlockTypeText, Width: 200, Height: 100, FontSize: 16}
	r := startResize(f, b, pt(0, 0))
	r.move(pt(100, 0))
	if !near(r.font, 45) {
		t.Errorf("font = %v, want 45", r.font)
	}
}

func TestRotateStaysInRange(t *testing.T) {
	f := Frame{Block: geometry.Rect{Width: 100, Height: 100}}

	tests := []struct {
		name  string
		start float64
		p     geometry.Point
		want  float64
	}{
		{"quarter", 0, pt(50, 100), 90},
		{"wraps negative", 0, pt(50, 0), 270},
		{"keeps offset", 30, pt(100, 50), 30},
		{"full turn", 0, pt(100, 50), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := startRotate(f, domain.Block{Rotation: tt.start}, pt(100, 50))
			r.move(tt.p)
			if !near(r.deg, tt.want) {
				t.Errorf("rotation = %v, want %v", r.deg, tt.want)
			}
			if r.deg < 0 || r.deg >= 360 {
				t.Errorf("rotation %v out of range", r.deg)
			}
		})
	}
}
