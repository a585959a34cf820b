package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"scrapbook/internal/domain"
)

// AlbumStore implements domain.AlbumStore.
type AlbumStore struct {
	db *DB
}

func NewAlbumStore(db *DB) *AlbumStore {
	return &AlbumStore{db: db}
}

type albumRow struct {
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	Position int    `db:"position"`
}

func (r albumRow) album() domain.Album {
	return domain.Album{ID: r.ID, Title: r.Title, Position: r.Position, Pages: []domain.Page{}}
}

func (s *AlbumStore) ListAlbums(ctx context.Context) ([]domain.Album, error) {
	var rows []albumRow
	if err := s.db.conn.SelectContext(ctx, &rows, `SELECT id, title, position FROM albums ORDER BY position, id`); err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	albums := make([]domain.Album, 0, len(rows))
	for _, r := range rows {
		albums = append(albums, r.album())
	}
	return albums, nil
}

func (s *AlbumStore) GetAlbum(ctx context.Context, id int64) (*domain.Album, error) {
	var r albumRow
	err := s.db.conn.GetContext(ctx, &r, s.db.conn.Rebind(`SELECT id, title, position FROM albums WHERE id = ?`), id)
	if isNoRows(err) {
		return nil, fmt.Errorf("get album %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}
	a := r.album()
	return &a, nil
}

// FirstAlbum returns the album with the lowest position.
func (s *AlbumStore) FirstAlbum(ctx context.Context) (*domain.Album, error) {
	var rows []albumRow
	if err := s.db.conn.SelectContext(ctx, &rows, `SELECT id, title, position FROM albums ORDER BY position, id LIMIT 1`); err != nil {
		return nil, fmt.Errorf("first album: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("first album: %w", domain.ErrNotFound)
	}
	a := rows[0].album()
	return &a, nil
}

// CreateAlbum appends a at the end of the album order and fills in its id
// and position.
func (s *AlbumStore) CreateAlbum(ctx context.Context, a *domain.Album) error {
	return s.db.withTx(ctx, func(tx *sqlx.Tx) error {
		var next int
		if err := tx.GetContext(ctx, &next, `SELECT COALESCE(MAX(position), -1) + 1 FROM albums`); err != nil {
			return fmt.Errorf("create album: %w", err)
		}
		id, err := s.db.insert(ctx, tx, `INSERT INTO albums (title, position) VALUES (?, ?)`, a.Title, next)
		if err != nil {
			return fmt.Errorf("create album: %w", err)
		}
		a.ID = id
		a.Position = next
		if a.Pages == nil {
			a.Pages = []domain.Page{}
		}
		return nil
	})
}

func (s *AlbumStore) UpdateAlbum(ctx context.Context, a *domain.Album) error {
	res, err := s.db.conn.ExecContext(ctx, s.db.conn.Rebind(`UPDATE albums SET title = ? WHERE id = ?`), a.Title, a.ID)
	if err != nil {
		return fmt.Errorf("update album: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports zero rows when the title is unchanged.
		if _, gerr := s.GetAlbum(ctx, a.ID); gerr != nil {
			return fmt.Errorf("update album: %w", gerr)
		}
	}
	return nil
}

// DeleteAlbum removes the album and its pages, then closes the gap in the
// album order.
func (s *AlbumStore) DeleteAlbum(ctx context.Context, id int64) error {
	return s.db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM pages WHERE album_id = ?`), id); err != nil {
			return fmt.Errorf("delete album pages: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM albums WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete album: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("delete album %d: %w", id, domain.ErrNotFound)
		}
		return renumber(ctx, tx, "albums", "")
	})
}
