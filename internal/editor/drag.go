package editor

import (
	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
)

// drag moves a block with the pointer, keeping it inside the page.
type drag struct {
	origin         geometry.Point
	offset         geometry.Point
	scaleX, scaleY float64
	maxX, maxY     float64
	x, y           float64
}

func startDrag(f Frame, b domain.Block, p geometry.Point) *drag {
	return &drag{
		origin: geometry.Point{X: f.Container.Left, Y: f.Container.Top},
		offset: geometry.Point{X: p.X - f.Block.Left, Y: p.Y - f.Block.Top},
		scaleX: geometry.Scale(f.Container.Width, f.ContainerSize.W),
		scaleY: geometry.Scale(f.Container.Height, f.ContainerSize.H),
		maxX:   f.ContainerSize.W - b.Width,
		maxY:   f.ContainerSize.H - b.Height,
		x:      b.X,
		y:      b.Y,
	}
}

func (d *drag) move(p geometry.Point) {
	d.x = geometry.Clamp((p.X-d.origin.X-d.offset.X)/d.scaleX, 0, d.maxX)
	d.y = geometry.Clamp((p.Y-d.origin.Y-d.offset.Y)/d.scaleY, 0, d.maxY)
}

func (d *drag) render(s Surface, pageID int64, blockID string) {
	s.Move(pageID, blockID, d.x, d.y)
}

func (d *drag) apply(b *domain.Block) {
	b.X, b.Y = d.x, d.y
}
