package domain

import (
	"context"
	"encoding/json"
	"errors"
	"math"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

const (
	DefaultAlbumTitle = "New Album"
	DefaultPageTitle  = "Untitled Page"
)

type Album struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Pages    []Page `json:"pages"`
}

type Page struct {
	ID       int64   `json:"id"`
	AlbumID  int64   `json:"albumId"`
	Title    string  `json:"title"`
	Position int     `json:"position"`
	Content  []Block `json:"content"`
}

// UnmarshalJSON accepts both albumId and album_id, a non-numeric position as
// 0, and content given as an array or a JSON-encoded string.
func (p *Page) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           int64           `json:"id"`
		AlbumID      *int64          `json:"albumId"`
		AlbumIDSnake *int64          `json:"album_id"`
		Title        string          `json:"title"`
		Position     json.RawMessage `json:"position"`
		Content      json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Page{ID: raw.ID, Title: raw.Title}
	switch {
	case raw.AlbumID != nil:
		p.AlbumID = *raw.AlbumID
	case raw.AlbumIDSnake != nil:
		p.AlbumID = *raw.AlbumIDSnake
	}
	if pos := number(raw.Position); !math.IsNaN(pos) {
		p.Position = int(pos)
	}
	p.Content = ParseContent(raw.Content)
	return nil
}

// Clone returns a deep copy of the page, blocks included.
func (p Page) Clone() Page {
	out := p
	out.Content = make([]Block, len(p.Content))
	for i, b := range p.Content {
		out.Content[i] = b.Clone()
	}
	return out
}

// BlockIndex returns the index of the block with id, or -1.
func (p *Page) BlockIndex(id string) int {
	for i := range p.Content {
		if p.Content[i].ID == id {
			return i
		}
	}
	return -1
}

// PageUpdate is a partial page update. Nil fields are left untouched.
type PageUpdate struct {
	Title    *string  `json:"title,omitempty"`
	Content  *[]Block `json:"content,omitempty"`
	Position *int     `json:"position,omitempty"`
	AlbumID  *int64   `json:"albumId,omitempty"`
}

func (u PageUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Position == nil && u.AlbumID == nil
}

type AlbumStore interface {
	ListAlbums(ctx context.Context) ([]Album, error)
	GetAlbum(ctx context.Context, id int64) (*Album, error)
	FirstAlbum(ctx context.Context) (*Album, error)
	CreateAlbum(ctx context.Context, a *Album) error
	UpdateAlbum(ctx context.Context, a *Album) error
	DeleteAlbum(ctx context.Context, id int64) error
}

type PageStore interface {
	ListPages(ctx context.Context) ([]Page, error)
	ListAlbumPages(ctx context.Context, albumID int64) ([]Page, error)
	GetPage(ctx context.Context, id int64) (*Page, error)
	CreatePage(ctx context.Context, p *Page) error
	UpdatePage(ctx context.Context, id int64, u PageUpdate) (*Page, error)
	DeletePage(ctx context.Context, id int64) error
	ReorderPages(ctx context.Context, albumID int64, pageIDs []int64) error
}
