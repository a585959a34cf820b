package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"scrapbook/internal/domain"
	"scrapbook/internal/service"
	"scrapbook/internal/storage"
)

type fixture struct {
	albums  *service.AlbumService
	pages   *service.PageService
	emitter *service.MockEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Options{
		Driver: storage.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "svc.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	albumStore := storage.NewAlbumStore(db)
	pageStore := storage.NewPageStore(db)
	emitter := &service.MockEmitter{}
	return &fixture{
		albums:  service.NewAlbumService(albumStore, pageStore, emitter),
		pages:   service.NewPageService(albumStore, pageStore, emitter),
		emitter: emitter,
	}
}

// ─────────────────────────────────────────────────────────────
// AlbumService tests
// ─────────────────────────────────────────────────────────────

func TestAlbumService_CreateDefaultsTitle(t *testing.T) {
	f := newFixture(t)
	a, err := f.albums.CreateAlbum(context.Background(), "   ")
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	if a.Title != domain.DefaultAlbumTitle {
		t.Errorf("title = %q, want %q", a.Title, domain.DefaultAlbumTitle)
	}
	if a.Pages == nil {
		t.Error("new album should carry an empty page list")
	}
	if names := f.emitter.Names(); len(names) != 1 || names[0] != service.EventAlbumCreated {
		t.Errorf("events = %v", names)
	}
}

func TestAlbumService_RenameRejectsBlank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.albums.CreateAlbum(ctx, "Trip")

	_, err := f.albums.RenameAlbum(ctx, a.ID, "  ")
	if !errors.Is(err, service.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if err.Error() != "Album title is required" {
		t.Errorf("message = %q", err.Error())
	}

	renamed, err := f.albums.RenameAlbum(ctx, a.ID, " Holiday ")
	if err != nil {
		t.Fatalf("RenameAlbum: %v", err)
	}
	if renamed.Title != "Holiday" {
		t.Errorf("title = %q, want Holiday", renamed.Title)
	}

	if _, err := f.albums.RenameAlbum(ctx, 9999, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("rename missing err = %v, want ErrNotFound", err)
	}
}

func TestAlbumService_ListAttachesPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.albums.CreateAlbum(ctx, "A")
	b, _ := f.albums.CreateAlbum(ctx, "B")
	f.pages.CreatePage(ctx, service.NewPage{AlbumID: b.ID, Title: "b1"})
	f.pages.CreatePage(ctx, service.NewPage{AlbumID: a.ID, Title: "a1"})
	f.pages.CreatePage(ctx, service.NewPage{AlbumID: b.ID, Title: "b2"})

	albums, err := f.albums.ListAlbums(ctx)
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}
	if len(albums) != 2 {
		t.Fatalf("albums = %d, want 2", len(albums))
	}
	if len(albums[0].Pages) != 1 || len(albums[1].Pages) != 2 {
		t.Fatalf("page counts = %d,%d, want 1,2", len(albums[0].Pages), len(albums[1].Pages))
	}
	if albums[1].Pages[0].Title != "b1" || albums[1].Pages[1].Position != 1 {
		t.Errorf("album B pages = %+v", albums[1].Pages)
	}
}

func TestAlbumService_DeleteRenumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, _ := f.albums.CreateAlbum(ctx, "1")
	f.albums.CreateAlbum(ctx, "2")
	f.albums.CreateAlbum(ctx, "3")

	if err := f.albums.DeleteAlbum(ctx, first.ID); err != nil {
		t.Fatalf("DeleteAlbum: %v", err)
	}
	albums, _ := f.albums.ListAlbums(ctx)
	for i, a := range albums {
		if a.Position != i {
			t.Errorf("album %q position = %d, want %d", a.Title, a.Position, i)
		}
	}
}

func TestAlbumService_ReorderValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.albums.CreateAlbum(ctx, "A")
	p, _ := f.pages.CreatePage(ctx, service.NewPage{AlbumID: a.ID})

	if err := f.albums.ReorderPages(ctx, a.ID, nil); !errors.Is(err, service.ErrInvalid) {
		t.Errorf("empty ids err = %v, want ErrInvalid", err)
	}
	if err := f.albums.ReorderPages(ctx, 4242, []int64{p.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing album err = %v, want ErrNotFound", err)
	}
	if err := f.albums.ReorderPages(ctx, a.ID, []int64{p.ID}); err != nil {
		t.Errorf("ReorderPages: %v", err)
	}

	other, _ := f.albums.CreateAlbum(ctx, "B")
	foreign, _ := f.pages.CreatePage(ctx, service.NewPage{AlbumID: other.ID})
	if err := f.albums.ReorderPages(ctx, a.ID, []int64{foreign.ID}); !errors.Is(err, service.ErrInvalid) {
		t.Errorf("foreign page err = %v, want ErrInvalid", err)
	}
}
