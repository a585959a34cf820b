package editor

import (
	"errors"

	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
)

// fakeSurface renders nothing. Frames are derived from the store at the
// configured container placement.
type fakeSurface struct {
	store      *Store
	container  geometry.Rect
	logical    geometry.Size
	captureErr error

	captured map[int]bool
	pos      map[string]geometry.Point
	size     map[string]geometry.Size
	rotation map[string]float64
	z        map[string]float64
	font     map[string]float64
	glyph    map[string]float64
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		container: geometry.Rect{Width: 500, Height: 700},
		logical:   geometry.Size{W: 500, H: 700},
		captured:  make(map[int]bool),
		pos:       make(map[string]geometry.Point),
		size:      make(map[string]geometry.Size),
		rotation:  make(map[string]float64),
		z:         make(map[string]float64),
		font:      make(map[string]float64),
		glyph:     make(map[string]float64),
	}
}

func (s *fakeSurface) PageFrame(int64) (Frame, error) {
	return Frame{Container: s.container, ContainerSize: s.logical}, nil
}

func (s *fakeSurface) Frame(pageID int64, blockID string) (Frame, error) {
	if s.store == nil {
		return Frame{}, errors.New("no store")
	}
	b, ok := s.store.Block(pageID, blockID)
	if !ok {
		return Frame{}, errors.New("block not rendered")
	}
	scale := geometry.Scale(s.container.Width, s.logical.W)
	return Frame{
		Container:     s.container,
		ContainerSize: s.logical,
		Block: geometry.Rect{
			Left:   s.container.Left + b.X*scale,
			Top:    s.container.Top + b.Y*scale,
			Width:  b.Width * scale,
			Height: b.Height * scale,
		},
	}, nil
}

func (s *fakeSurface) Capture(id int) error {
	if s.captureErr != nil {
		return s.captureErr
	}
	s.captured[id] = true
	return nil
}

func (s *fakeSurface) Release(id int) { delete(s.captured, id) }

func (s *fakeSurface) Move(_ int64, id string, x, y float64) {
	s.pos[id] = geometry.Point{X: x, Y: y}
}

func (s *fakeSurface) Resize(_ int64, id string, w, h float64) {
	s.size[id] = geometry.Size{W: w, H: h}
}

func (s *fakeSurface) Rotate(_ int64, id string, deg float64)     { s.rotation[id] = deg }
func (s *fakeSurface) Raise(_ int64, id string, z float64)        { s.z[id] = z }
func (s *fakeSurface) SetFontSize(_ int64, id string, v float64)  { s.font[id] = v }
func (s *fakeSurface) SetGlyphSize(_ int64, id string, v float64) { s.glyph[id] = v }

type fakeBook struct {
	pages    []domain.Page
	current  int
	loads    int
	updates  int
	destroys int
}

func (b *fakeBook) Load(pages []domain.Page) {
	b.loads++
	b.pages = pages
	b.current = 0
}

func (b *fakeBook) Update(i int, p domain.Page) {
	b.updates++
	b.pages[i] = p
}

func (b *fakeBook) Flip(i int)        { b.current = i }
func (b *fakeBook) CurrentIndex() int { return b.current }
func (b *fakeBook) PageCount() int    { return len(b.pages) }

func (b *fakeBook) Destroy() {
	b.destroys++
	b.pages = nil
}

type alerts []string

func (a *alerts) Alert(msg string) { *a = append(*a, msg) }
