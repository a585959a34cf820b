package mcpserver

import (
	"math"

	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
)

const (
	PageWidth  = 500.0 // logical page size the editor renders into
	PageHeight = 700.0
	GridSize   = 10.0
	Padding    = 10.0
)

// LayoutEngine places blocks that an agent adds without coordinates so
// they land inside the page and clear of what is already there.
type LayoutEngine struct {
	gridSize float64
	padding  float64
	page     geometry.Size
}

func NewLayoutEngine() *LayoutEngine {
	return &LayoutEngine{
		gridSize: GridSize,
		padding:  Padding,
		page:     geometry.Size{W: PageWidth, H: PageHeight},
	}
}

// snap rounds v to the nearest grid point.
func (le *LayoutEngine) snap(v float64) float64 {
	return math.Round(v/le.gridSize) * le.gridSize
}

func blockRect(b domain.Block) geometry.Rect {
	return geometry.Rect{Left: b.X, Top: b.Y, Width: b.Width, Height: b.Height}
}

// NextPosition finds the first free grid position for a block of size
// (newW, newH), scanning rows top to bottom. When the page is full it
// cascades from the top-left corner like the editor does.
func (le *LayoutEngine) NextPosition(existing []domain.Block, newW, newH float64) (float64, float64) {
	occupied := make([]geometry.Rect, len(existing))
	for i, b := range existing {
		occupied[i] = blockRect(b)
	}

	maxX := le.page.W - newW
	maxY := le.page.H - newH
	for y := 0.0; y <= maxY; y += le.gridSize {
		for x := 0.0; x <= maxX; x += le.gridSize {
			candidate := geometry.Rect{Left: x, Top: y, Width: newW, Height: newH}
			free := true
			for _, occ := range occupied {
				if candidate.Intersects(occ, le.padding) {
					free = false
					break
				}
			}
			if free {
				return x, y
			}
		}
	}

	offset := float64(len(existing) * 35)
	x := geometry.Clamp(40+math.Mod(offset, 200), 0, maxX)
	y := geometry.Clamp(40+math.Mod(offset/2, 180), 0, maxY)
	return x, y
}

// Clamp keeps a block of size (w, h) at (x, y) inside the page.
func (le *LayoutEngine) Clamp(x, y, w, h float64) (float64, float64) {
	return geometry.Clamp(x, 0, le.page.W-w), geometry.Clamp(y, 0, le.page.H-h)
}

// ArrangeGroup tiles blocks left to right from (startX, startY), wrapping
// at the page edge. It modifies block positions in place and returns them.
func (le *LayoutEngine) ArrangeGroup(blocks []domain.Block, startX, startY float64) []domain.Block {
	x := le.snap(startX)
	y := le.snap(startY)
	rowHeight := 0.0

	for i := range blocks {
		if x > le.snap(startX) && x+blocks[i].Width > le.page.W {
			x = le.snap(startX)
			y += le.snap(rowHeight + le.padding)
			rowHeight = 0
		}
		blocks[i].X, blocks[i].Y = le.Clamp(x, y, blocks[i].Width, blocks[i].Height)

		if blocks[i].Height > rowHeight {
			rowHeight = blocks[i].Height
		}
		x += le.snap(blocks[i].Width + le.padding)
	}

	return blocks
}
