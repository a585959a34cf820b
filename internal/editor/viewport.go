package editor

import (
	"fmt"
	"slices"

	"scrapbook/internal/domain"
)

// Spread is what the open book shows at once. The cover has no left page.
type Spread struct {
	Cover       bool
	Left, Right *domain.Page
}

// Primary returns the page navigation lands on, preferring the given side.
func (s Spread) Primary(preferRight bool) *domain.Page {
	if preferRight {
		if s.Right != nil {
			return s.Right
		}
		return s.Left
	}
	if s.Left != nil {
		return s.Left
	}
	return s.Right
}

func (s Spread) Contains(pageID int64) bool {
	return (s.Left != nil && s.Left.ID == pageID) || (s.Right != nil && s.Right.ID == pageID)
}

// Spreads lays pages out as a book: the first page is the cover on the
// right, the rest pair into left/right spreads.
func Spreads(pages []domain.Page) []Spread {
	if len(pages) == 0 {
		return nil
	}
	out := []Spread{{Cover: true, Right: &pages[0]}}
	rest := pages[1:]
	for i := 0; i < len(rest); i += 2 {
		sp := Spread{Left: &rest[i]}
		if i+1 < len(rest) {
			sp.Right = &rest[i+1]
		}
		out = append(out, sp)
	}
	return out
}

// Viewport keeps a FlipBook in step with the pages of one album.
type Viewport struct {
	book    FlipBook
	albumID int64
	pageIDs []int64
	loaded  bool
}

func NewViewport(book FlipBook) *Viewport {
	if book == nil {
		book = nopBook{}
	}
	return &Viewport{book: book}
}

// Render shows pages. When the album and page ids are unchanged the pages
// are updated in place; otherwise the book is destroyed and reloaded. It
// reports whether a rebuild happened.
func (v *Viewport) Render(albumID int64, pages []domain.Page) bool {
	ids := make([]int64, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	if v.loaded && albumID == v.albumID && slices.Equal(ids, v.pageIDs) {
		for i, p := range pages {
			v.book.Update(i, p)
		}
		return false
	}
	if v.loaded {
		v.book.Destroy()
	}
	v.book.Load(pages)
	v.albumID, v.pageIDs, v.loaded = albumID, ids, true
	return true
}

func (v *Viewport) AlbumID() int64 { return v.albumID }

// IndexOf returns the book index of pageID, or -1.
func (v *Viewport) IndexOf(pageID int64) int { return slices.Index(v.pageIDs, pageID) }

// Flip turns to index, clamped to the loaded pages.
func (v *Viewport) Flip(index int) {
	if len(v.pageIDs) == 0 {
		return
	}
	v.book.Flip(max(0, min(index, len(v.pageIDs)-1)))
}

// PageAt returns the page id shown at index.
func (v *Viewport) PageAt(index int) (int64, bool) {
	if index < 0 || index >= len(v.pageIDs) {
		return 0, false
	}
	return v.pageIDs[index], true
}

// PageInfo is the "Page n of m" label for the current position.
func (v *Viewport) PageInfo() string {
	if !v.loaded {
		return ""
	}
	return fmt.Sprintf("Page %d of %d", v.book.CurrentIndex()+1, v.book.PageCount())
}

func (v *Viewport) Destroy() {
	if v.loaded {
		v.book.Destroy()
	}
	v.loaded, v.albumID, v.pageIDs = false, 0, nil
}
