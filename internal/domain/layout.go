package domain

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// ZFloor is the lowest value the z counter is ever reconciled to.
const ZFloor = 10

// DefaultSize returns the box a block of type t gets when it has none.
func DefaultSize(t BlockType) (w, h float64) {
	switch t {
	case BlockTypePhoto:
		return 320, 240
	case BlockTypeSticker:
		return 80, 80
	default:
		return 320, 160
	}
}

// ZCounter hands out stacking values. It never decreases.
type ZCounter struct {
	mu sync.Mutex
	n  float64
}

func NewZCounter() *ZCounter { return &ZCounter{n: ZFloor} }

// Next increments the counter and returns the new value.
func (c *ZCounter) Next() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

// Raise lifts the counter to at least z.
func (c *ZCounter) Raise(z float64) {
	if math.IsNaN(z) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if z > c.n {
		c.n = z
	}
}

func (c *ZCounter) Current() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// MaxZ returns the highest finite z across all pages, floored at ZFloor.
func MaxZ(pages []Page) float64 {
	maxZ := float64(ZFloor)
	for _, p := range pages {
		for _, b := range p.Content {
			if !math.IsNaN(b.Z) && !math.IsInf(b.Z, 0) && b.Z > maxZ {
				maxZ = b.Z
			}
		}
	}
	return maxZ
}

// EnsureLayout fills in any missing geometry on b and reports whether it
// changed anything. A nil rng uses the global source.
func EnsureLayout(b *Block, z *ZCounter, rng *rand.Rand) bool {
	changed := false
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	if !valid(b.X) {
		b.X = float64(40 + intN(141))
		changed = true
	}
	if !valid(b.Y) {
		b.Y = float64(40 + intN(121))
		changed = true
	}
	w, h := DefaultSize(b.Type)
	if !valid(b.Width) {
		b.Width = w
		changed = true
	}
	if !valid(b.Height) {
		b.Height = h
		changed = true
	}
	if !valid(b.Z) {
		b.Z = z.Next()
		changed = true
	} else {
		z.Raise(b.Z)
	}
	if !valid(b.Rotation) {
		b.Rotation = 0
		changed = true
	}
	return changed
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Placement overrides the cascade position or default size of a new block.
type Placement struct {
	X, Y          float64
	Width, Height float64
	HasPosition   bool
	HasSize       bool
}

// NewBlock builds a block for a page that already holds existing blocks.
// Without an explicit position new blocks cascade down and right from
// (40, 40) so they do not stack exactly on top of each other.
func NewBlock(t BlockType, value BlockValue, existing int, at Placement, z *ZCounter) Block {
	offset := existing * 35
	b := Block{
		ID:    uuid.NewString(),
		Type:  t,
		Value: value,
		X:     float64(40 + offset%200),
		Y:     float64(40 + (offset/2)%180),
		Z:     z.Next(),
	}
	b.Width, b.Height = DefaultSize(t)
	if at.HasPosition {
		b.X, b.Y = at.X, at.Y
	}
	if at.HasSize {
		b.Width, b.Height = at.Width, at.Height
	}
	if t == BlockTypeText && b.Value.Text == nil {
		b.Value = TextContent(value.Source, DefaultFontFamily)
	}
	return b
}
