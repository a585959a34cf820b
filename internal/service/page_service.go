package service

import (
	"context"
	"errors"
	"fmt"

	"scrapbook/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Page Service: page CRUD and block content
// ─────────────────────────────────────────────────────────────

type PageService struct {
	albums  domain.AlbumStore
	pages   domain.PageStore
	emitter EventEmitter
}

func NewPageService(albums domain.AlbumStore, pages domain.PageStore, emitter EventEmitter) *PageService {
	return &PageService{albums: albums, pages: pages, emitter: emitter}
}

// NewPage is the input of CreatePage. AlbumID 0 means "any album".
type NewPage struct {
	Title   string
	AlbumID int64
	Content []domain.Block
}

func (s *PageService) ListPages(ctx context.Context) ([]domain.Page, error) {
	return s.pages.ListPages(ctx)
}

func (s *PageService) GetPage(ctx context.Context, id int64) (*domain.Page, error) {
	return s.pages.GetPage(ctx, id)
}

// CountPages returns the number of pages across all albums.
func (s *PageService) CountPages(ctx context.Context) (int, error) {
	pages, err := s.pages.ListPages(ctx)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// resolveAlbumID returns requested if it exists, else the first album, else
// a freshly created default album.
func (s *PageService) resolveAlbumID(ctx context.Context, requested int64) (int64, error) {
	if requested > 0 {
		a, err := s.albums.GetAlbum(ctx, requested)
		if err == nil {
			return a.ID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return 0, err
		}
	}
	first, err := s.albums.FirstAlbum(ctx)
	if err == nil {
		return first.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	a := &domain.Album{Title: domain.DefaultAlbumTitle}
	if err := s.albums.CreateAlbum(ctx, a); err != nil {
		return 0, fmt.Errorf("create fallback album: %w", err)
	}
	emit(ctx, s.emitter, EventAlbumCreated, a.ID)
	return a.ID, nil
}

func (s *PageService) CreatePage(ctx context.Context, in NewPage) (*domain.Page, error) {
	albumID, err := s.resolveAlbumID(ctx, in.AlbumID)
	if err != nil {
		return nil, err
	}
	title := in.Title
	if title == "" {
		title = domain.DefaultPageTitle
	}
	content := in.Content
	if content == nil {
		content = []domain.Block{}
	}
	p := &domain.Page{AlbumID: albumID, Title: title, Content: content}
	if err := s.pages.CreatePage(ctx, p); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	emit(ctx, s.emitter, EventPageCreated, p.ID)
	return p, nil
}

// UpdatePage applies a partial update. A target album that no longer exists
// is resolved the same way as on create.
func (s *PageService) UpdatePage(ctx context.Context, id int64, u domain.PageUpdate) (*domain.Page, error) {
	if u.Empty() {
		return nil, invalid("No valid fields to update")
	}
	if u.AlbumID != nil {
		albumID, err := s.resolveAlbumID(ctx, *u.AlbumID)
		if err != nil {
			return nil, err
		}
		u.AlbumID = &albumID
	}
	p, err := s.pages.UpdatePage(ctx, id, u)
	if err != nil {
		return nil, err
	}
	emit(ctx, s.emitter, EventPageUpdated, id)
	return p, nil
}

// UpdateContent loads the page's blocks, lets fn rewrite them and stores
// the result.
func (s *PageService) UpdateContent(ctx context.Context, id int64, fn func([]domain.Block) ([]domain.Block, error)) (*domain.Page, error) {
	p, err := s.pages.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := fn(p.Content)
	if err != nil {
		return nil, err
	}
	return s.UpdatePage(ctx, id, domain.PageUpdate{Content: &content})
}

func (s *PageService) DeletePage(ctx context.Context, id int64) error {
	if err := s.pages.DeletePage(ctx, id); err != nil {
		return err
	}
	emit(ctx, s.emitter, EventPageDeleted, id)
	return nil
}
