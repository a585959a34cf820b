package editor

import (
	"math"

	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
)

// Resize limits, in logical pixels.
const (
	minTextFont  = 12
	maxTextFont  = 200
	minTextBase  = 50
	glyphScale   = 0.8
	minStickerW  = 40
	minBoxW      = 100
	defaultFontH = 8
)

// resize scales photos and stickers with their aspect ratio locked, and
// text blocks by font size.
type resize struct {
	text   bool
	glyph  bool
	startP geometry.Point
	scale  float64

	startW, startH float64
	aspect         float64
	minW, maxW     float64
	startFont      float64

	w, h, font float64
}

// TextFontSize is the font size a text block renders at when none is stored.
func TextFontSize(b domain.Block) float64 {
	if b.FontSize > 0 {
		return b.FontSize
	}
	return geometry.Clamp(b.Height/defaultFontH, minTextFont, 72)
}

func startResize(f Frame, b domain.Block, p geometry.Point) *resize {
	r := &resize{
		text:   b.Type == domain.BlockTypeText,
		glyph:  b.IsGlyph(),
		startP: p,
		scale:  geometry.Scale(f.Container.Width, f.ContainerSize.W),
		startW: b.Width,
		startH: b.Height,
		aspect: geometry.AspectRatio(b.Width, b.Height),
		minW:   minBoxW,
		w:      b.Width,
		h:      b.Height,
	}
	if b.Type == domain.BlockTypeSticker {
		r.minW = minStickerW
	}
	r.maxW = math.Max(r.minW, f.ContainerSize.W-b.X)
	r.startFont = f.FontSize
	if r.startFont <= 0 {
		r.startFont = TextFontSize(b)
	}
	r.font = r.startFont
	return r
}

func (r *resize) move(p geometry.Point) {
	dx := (p.X - r.startP.X) / r.scale
	if r.text {
		base := r.startW
		if base <= 0 {
			base = minTextBase
		}
		factor := math.Max(minTextBase, r.startW+dx) / base
		r.font = geometry.Clamp(r.startFont*factor, minTextFont, maxTextFont)
		return
	}
	r.w = geometry.Clamp(r.startW+dx, r.minW, r.maxW)
	r.h = r.w / r.aspect
}

func (r *resize) render(s Surface, pageID int64, blockID string) {
	if r.text {
		s.SetFontSize(pageID, blockID, r.font)
		return
	}
	s.Resize(pageID, blockID, r.w, r.h)
	if r.glyph {
		s.SetGlyphSize(pageID, blockID, r.h*glyphScale)
	}
}

func (r *resize) apply(b *domain.Block) {
	if r.text {
		b.FontSize = r.font
		return
	}
	b.Width, b.Height = r.w, r.h
}
