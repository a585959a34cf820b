package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scrapbook/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Album Service: albums and page ordering
// ─────────────────────────────────────────────────────────────

type AlbumService struct {
	albums  domain.AlbumStore
	pages   domain.PageStore
	emitter EventEmitter
}

func NewAlbumService(albums domain.AlbumStore, pages domain.PageStore, emitter EventEmitter) *AlbumService {
	return &AlbumService{albums: albums, pages: pages, emitter: emitter}
}

// ListAlbums returns every album ordered by position with its pages attached.
func (s *AlbumService) ListAlbums(ctx context.Context) ([]domain.Album, error) {
	albums, err := s.albums.ListAlbums(ctx)
	if err != nil {
		return nil, err
	}
	pages, err := s.pages.ListPages(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[int64]int, len(albums))
	for i := range albums {
		albums[i].Pages = []domain.Page{}
		index[albums[i].ID] = i
	}
	for _, p := range pages {
		if i, ok := index[p.AlbumID]; ok {
			albums[i].Pages = append(albums[i].Pages, p)
		}
	}
	return albums, nil
}

// Snapshot is the full album tree, used by backups.
func (s *AlbumService) Snapshot(ctx context.Context) ([]domain.Album, error) {
	return s.ListAlbums(ctx)
}

func (s *AlbumService) GetAlbum(ctx context.Context, id int64) (*domain.Album, error) {
	a, err := s.albums.GetAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	pages, err := s.pages.ListAlbumPages(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Pages = pages
	return a, nil
}

// CreateAlbum appends a new album. A blank title becomes the default.
func (s *AlbumService) CreateAlbum(ctx context.Context, title string) (*domain.Album, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultAlbumTitle
	}
	a := &domain.Album{Title: title}
	if err := s.albums.CreateAlbum(ctx, a); err != nil {
		return nil, fmt.Errorf("create album: %w", err)
	}
	emit(ctx, s.emitter, EventAlbumCreated, a.ID)
	return a, nil
}

func (s *AlbumService) RenameAlbum(ctx context.Context, id int64, title string) (*domain.Album, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("Album title is required")
	}
	if err := s.albums.UpdateAlbum(ctx, &domain.Album{ID: id, Title: title}); err != nil {
		return nil, err
	}
	a, err := s.albums.GetAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	emit(ctx, s.emitter, EventAlbumUpdated, id)
	return a, nil
}

// DeleteAlbum removes the album with its pages; the remaining albums are
// renumbered.
func (s *AlbumService) DeleteAlbum(ctx context.Context, id int64) error {
	if err := s.albums.DeleteAlbum(ctx, id); err != nil {
		return err
	}
	emit(ctx, s.emitter, EventAlbumDeleted, id)
	return nil
}

func (s *AlbumService) ReorderPages(ctx context.Context, albumID int64, pageIDs []int64) error {
	if len(pageIDs) == 0 {
		return invalid("pageIds array is required")
	}
	if _, err := s.albums.GetAlbum(ctx, albumID); err != nil {
		return err
	}
	if err := s.pages.ReorderPages(ctx, albumID, pageIDs); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return invalid("Some pages do not belong to this album")
		}
		return err
	}
	emit(ctx, s.emitter, EventPagesReordered, albumID)
	return nil
}
