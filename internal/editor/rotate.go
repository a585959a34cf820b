package editor

import (
	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
)

// rotate turns a block around its center, keeping the angle between the
// pointer and the block's current rotation.
type rotate struct {
	center geometry.Point
	offset float64
	deg    float64
}

func startRotate(f Frame, b domain.Block, p geometry.Point) *rotate {
	c := f.Block.Center()
	return &rotate{
		center: c,
		offset: geometry.Angle(c, p) - geometry.Radians(b.Rotation),
		deg:    b.Rotation,
	}
}

func (r *rotate) move(p geometry.Point) {
	r.deg = geometry.NormalizeDegrees(geometry.Degrees(geometry.Angle(r.center, p) - r.offset))
}

func (r *rotate) render(s Surface, pageID int64, blockID string) {
	s.Rotate(pageID, blockID, r.deg)
}

func (r *rotate) apply(b *domain.Block) {
	b.Rotation = r.deg
}
