package editor

import (
	"context"

	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
)

// Target is the part of a rendered block a pointer landed on.
type Target int

const (
	TargetBody Target = iota
	TargetEditable
	TargetDelete
	TargetResizeHandle
	TargetRotateHandle
)

const PrimaryButton = 0

type PointerEvent struct {
	PointerID int
	Button    int
	X, Y      float64
	Target    Target
}

func (e PointerEvent) Point() geometry.Point { return geometry.Point{X: e.X, Y: e.Y} }

// Frame describes where a block and its page container sit on screen.
// Container and Block are screen rectangles; ContainerSize is the page's
// logical size, which differs from the screen size when the book is scaled.
type Frame struct {
	Container     geometry.Rect
	ContainerSize geometry.Size
	Block         geometry.Rect
	FontSize      float64
}

// Surface is the rendered page canvas.
type Surface interface {
	// PageFrame reports the page container only; Block is zero.
	PageFrame(pageID int64) (Frame, error)
	Frame(pageID int64, blockID string) (Frame, error)
	Capture(pointerID int) error
	Release(pointerID int)

	Move(pageID int64, blockID string, x, y float64)
	Resize(pageID int64, blockID string, w, h float64)
	Rotate(pageID int64, blockID string, deg float64)
	Raise(pageID int64, blockID string, z float64)
	SetFontSize(pageID int64, blockID string, size float64)
	SetGlyphSize(pageID int64, blockID string, size float64)
}

// FlipBook is the page-flip widget. Indexes are positions within the
// active album.
type FlipBook interface {
	Load(pages []domain.Page)
	Update(index int, page domain.Page)
	Flip(index int)
	CurrentIndex() int
	PageCount() int
	Destroy()
}

type Alerter interface {
	Alert(msg string)
}

// API is the subset of the REST client the editor needs.
type API interface {
	ListAlbums(ctx context.Context) ([]domain.Album, error)
	CreateAlbum(ctx context.Context, title string) (*domain.Album, error)
	UpdateAlbum(ctx context.Context, id int64, title string) (*domain.Album, error)
	DeleteAlbum(ctx context.Context, id int64) error
	ReorderPages(ctx context.Context, albumID int64, pageIDs []int64) error
	CreatePage(ctx context.Context, title string, albumID int64) (*domain.Page, error)
	UpdatePage(ctx context.Context, id int64, u domain.PageUpdate) (*domain.Page, error)
	DeletePage(ctx context.Context, id int64) error
}

// Probe reads the natural pixel size of an image data URL.
type Probe func(dataURL string) (w, h int, err error)

type nopSurface struct{}

func (nopSurface) PageFrame(int64) (Frame, error)         { return Frame{}, errNoSurface }
func (nopSurface) Frame(int64, string) (Frame, error)     { return Frame{}, errNoSurface }
func (nopSurface) Capture(int) error                      { return nil }
func (nopSurface) Release(int)                            {}
func (nopSurface) Move(int64, string, float64, float64)   {}
func (nopSurface) Resize(int64, string, float64, float64) {}
func (nopSurface) Rotate(int64, string, float64)          {}
func (nopSurface) Raise(int64, string, float64)           {}
func (nopSurface) SetFontSize(int64, string, float64)     {}
func (nopSurface) SetGlyphSize(int64, string, float64)    {}

type nopBook struct{}

func (nopBook) Load([]domain.Page)      {}
func (nopBook) Update(int, domain.Page) {}
func (nopBook) Flip(int)                {}
func (nopBook) CurrentIndex() int       { return 0 }
func (nopBook) PageCount() int          { return 0 }
func (nopBook) Destroy()                {}
