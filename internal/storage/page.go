package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"scrapbook/internal/domain"
)

// PageStore implements domain.PageStore. Block content is stored as a JSON
// array in the content column.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

type pageRow struct {
	ID       int64  `db:"id"`
	AlbumID  int64  `db:"album_id"`
	Title    string `db:"title"`
	Content  string `db:"content"`
	Position int    `db:"position"`
}

func (r pageRow) page() domain.Page {
	return domain.Page{
		ID:       r.ID,
		AlbumID:  r.AlbumID,
		Title:    r.Title,
		Position: r.Position,
		Content:  domain.ParseContent([]byte(r.Content)),
	}
}

const pageColumns = `id, album_id, title, content, position`

func (s *PageStore) ListPages(ctx context.Context) ([]domain.Page, error) {
	var rows []pageRow
	if err := s.db.conn.SelectContext(ctx, &rows, `SELECT `+pageColumns+` FROM pages ORDER BY album_id, position, id`); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages(rows), nil
}

func (s *PageStore) ListAlbumPages(ctx context.Context, albumID int64) ([]domain.Page, error) {
	var rows []pageRow
	query := s.db.conn.Rebind(`SELECT ` + pageColumns + ` FROM pages WHERE album_id = ? ORDER BY position, id`)
	if err := s.db.conn.SelectContext(ctx, &rows, query, albumID); err != nil {
		return nil, fmt.Errorf("list album pages: %w", err)
	}
	return pages(rows), nil
}

func pages(rows []pageRow) []domain.Page {
	out := make([]domain.Page, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.page())
	}
	return out
}

func (s *PageStore) GetPage(ctx context.Context, id int64) (*domain.Page, error) {
	return s.getPage(ctx, s.db.conn, id)
}

func (s *PageStore) getPage(ctx context.Context, q queryer, id int64) (*domain.Page, error) {
	var r pageRow
	err := q.GetContext(ctx, &r, q.Rebind(`SELECT `+pageColumns+` FROM pages WHERE id = ?`), id)
	if isNoRows(err) {
		return nil, fmt.Errorf("get page %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	p := r.page()
	return &p, nil
}

func nextPagePosition(ctx context.Context, q queryer, albumID int64) (int, error) {
	var next int
	err := q.GetContext(ctx, &next, q.Rebind(`SELECT COALESCE(MAX(position), -1) + 1 FROM pages WHERE album_id = ?`), albumID)
	return next, err
}

// CreatePage appends p at the end of its album.
func (s *PageStore) CreatePage(ctx context.Context, p *domain.Page) error {
	content, err := domain.EncodeContent(p.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	return s.db.withTx(ctx, func(tx *sqlx.Tx) error {
		next, err := nextPagePosition(ctx, tx, p.AlbumID)
		if err != nil {
			return fmt.Errorf("create page: %w", err)
		}
		id, err := s.db.insert(ctx, tx,
			`INSERT INTO pages (album_id, title, content, position) VALUES (?, ?, ?, ?)`,
			p.AlbumID, p.Title, content, next,
		)
		if err != nil {
			return fmt.Errorf("create page: %w", err)
		}
		p.ID = id
		p.Position = next
		if p.Content == nil {
			p.Content = []domain.Block{}
		}
		return nil
	})
}

// UpdatePage applies the non-nil fields of u. A page moved to another album
// without an explicit position is appended to it, and the album it left is
// renumbered.
func (s *PageStore) UpdatePage(ctx context.Context, id int64, u domain.PageUpdate) (*domain.Page, error) {
	var updated *domain.Page
	err := s.db.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.getPage(ctx, tx, id)
		if err != nil {
			return err
		}

		var sets []string
		var args []any
		if u.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, *u.Title)
		}
		if u.Content != nil {
			content, err := domain.EncodeContent(*u.Content)
			if err != nil {
				return fmt.Errorf("encode content: %w", err)
			}
			sets = append(sets, "content = ?")
			args = append(args, content)
		}
		moved := u.AlbumID != nil && *u.AlbumID != current.AlbumID
		position := u.Position
		if moved && position == nil {
			next, err := nextPagePosition(ctx, tx, *u.AlbumID)
			if err != nil {
				return fmt.Errorf("update page: %w", err)
			}
			position = &next
		}
		if u.AlbumID != nil {
			sets = append(sets, "album_id = ?")
			args = append(args, *u.AlbumID)
		}
		if position != nil {
			sets = append(sets, "position = ?")
			args = append(args, *position)
		}
		if len(sets) > 0 {
			args = append(args, id)
			query := tx.Rebind(`UPDATE pages SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update page: %w", err)
			}
		}
		if moved {
			if err := renumber(ctx, tx, "pages", "WHERE album_id = ?", current.AlbumID); err != nil {
				return err
			}
		}
		updated, err = s.getPage(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePage removes the page and renumbers the rest of its album.
func (s *PageStore) DeletePage(ctx context.Context, id int64) error {
	return s.db.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.getPage(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM pages WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete page: %w", err)
		}
		return renumber(ctx, tx, "pages", "WHERE album_id = ?", p.AlbumID)
	})
}

// ReorderPages puts the listed pages first, in the given order, followed by
// any pages of the album that were not listed. Every id must belong to the
// album.
func (s *PageStore) ReorderPages(ctx context.Context, albumID int64, pageIDs []int64) error {
	return s.db.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing []int64
		query := tx.Rebind(`SELECT id FROM pages WHERE album_id = ? ORDER BY position, id`)
		if err := tx.SelectContext(ctx, &existing, query, albumID); err != nil {
			return fmt.Errorf("reorder pages: %w", err)
		}
		inAlbum := make(map[int64]bool, len(existing))
		for _, id := range existing {
			inAlbum[id] = true
		}
		order := make([]int64, 0, len(existing))
		seen := make(map[int64]bool, len(pageIDs))
		for _, id := range pageIDs {
			if !inAlbum[id] {
				return fmt.Errorf("reorder pages: page %d in album %d: %w", id, albumID, domain.ErrNotFound)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			order = append(order, id)
		}
		for _, id := range existing {
			if !seen[id] {
				order = append(order, id)
			}
		}
		update := tx.Rebind(`UPDATE pages SET position = ? WHERE id = ?`)
		for i, id := range order {
			if _, err := tx.ExecContext(ctx, update, i, id); err != nil {
				return fmt.Errorf("reorder pages: %w", err)
			}
		}
		return nil
	})
}
