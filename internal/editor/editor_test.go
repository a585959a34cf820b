package editor

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"scrapbook/internal/api"
	"scrapbook/internal/client"
	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
	"scrapbook/internal/service"
	"scrapbook/internal/storage"
)

type fixture struct {
	ed      *Editor
	api     *client.Client
	surface *fakeSurface
	book    *fakeBook
	alerts  *alerts
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Options{
		Driver: storage.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "editor.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	albums, pages := storage.NewAlbumStore(db), storage.NewPageStore(db)
	srv := api.New(api.Options{
		Albums: service.NewAlbumService(albums, pages, nil),
		Pages:  service.NewPageService(albums, pages, nil),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	f := &fixture{
		api:     client.New(ts.URL),
		surface: newFakeSurface(),
		book:    &fakeBook{},
		alerts:  &alerts{},
	}
	if opts.SaveDelay == 0 {
		opts.SaveDelay = 20 * time.Millisecond
	}
	opts.Surface, opts.FlipBook, opts.Alerter = f.surface, f.book, f.alerts
	f.ed = New(f.api, opts)
	f.surface.store = f.ed.Store()
	t.Cleanup(func() { f.ed.Close(context.Background()) })
	return f
}

func (f *fixture) serverPage(t *testing.T, id int64) domain.Page {
	t.Helper()
	pages, err := f.api.ListPages(context.Background())
	if err != nil {
		t.Fatalf("list pages: %v", err)
	}
	for _, p := range pages {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("page %d not on server", id)
	return domain.Page{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEditorTripScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{SaveDelay: DefaultSaveDelay})
	ed := f.ed

	if err := ed.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	album, err := ed.CreateAlbum(ctx, "Trip")
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	page, err := ed.CreatePage(ctx, album.ID, "")
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if page.Title != DefaultPageTitle || ed.Store().ActivePageID() != page.ID {
		t.Fatalf("page = %+v, active = %d", page, ed.Store().ActivePageID())
	}

	b, err := ed.AddText(ctx, "Hi", "Arial")
	if err != nil {
		t.Fatalf("AddText: %v", err)
	}
	ctl := ed.Controller()
	ctl.PointerDown(page.ID, b.ID, PointerEvent{PointerID: 1, X: b.X + 10, Y: b.Y + 10})
	ctl.PointerMove(PointerEvent{PointerID: 1, X: 60, Y: 70})
	ctl.PointerUp(PointerEvent{PointerID: 1})

	time.Sleep(DefaultSaveDelay)
	waitFor(t, func() bool {
		p := f.serverPage(t, page.ID)
		return len(p.Content) == 1 && p.Content[0].X == 50 && p.Content[0].Y == 60
	})
	got := f.serverPage(t, page.ID).Content[0]
	if got.Value.Text == nil || got.Value.Text.Text != "Hi" || got.Value.Text.FontFamily != "Arial" {
		t.Errorf("saved value = %+v", got.Value)
	}
	if got.Type != domain.BlockTypeText || got.Z <= domain.ZFloor {
		t.Errorf("saved block = %+v", got)
	}
}

func TestEditorLoadCreatesPageForEmptyAlbum(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	if _, err := f.api.CreateAlbum(ctx, "Empty"); err != nil {
		t.Fatal(err)
	}
	if err := f.ed.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.ed.Store().PageCount() != 1 || f.ed.Store().ActivePageID() == 0 {
		t.Errorf("pages = %d, active = %d", f.ed.Store().PageCount(), f.ed.Store().ActivePageID())
	}
	if f.book.PageCount() != 1 || f.ed.PageInfo() != "Page 1 of 1" {
		t.Errorf("book has %d pages, info %q", f.book.PageCount(), f.ed.PageInfo())
	}
}

func TestEditorRefusesLastPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	album, _ := f.ed.CreateAlbum(ctx, "Solo")
	page, _ := f.ed.CreatePage(ctx, album.ID, "Only")

	if err := f.ed.DeleteActivePage(ctx); !errors.Is(err, ErrLastPage) {
		t.Fatalf("err = %v, want ErrLastPage", err)
	}
	if len(*f.alerts) != 1 {
		t.Errorf("alerts = %v", *f.alerts)
	}
	f.serverPage(t, page.ID)

	second, _ := f.ed.CreatePage(ctx, album.ID, "Second")
	if err := f.ed.DeletePage(ctx, second.ID); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	if f.ed.Store().ActivePageID() != page.ID {
		t.Errorf("active = %d, want first page %d", f.ed.Store().ActivePageID(), page.ID)
	}
}

func TestEditorAddPagesCaps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	album, _ := f.ed.CreateAlbum(ctx, "Big")

	created, err := f.ed.AddPages(ctx, album.ID, 25)
	if err != nil {
		t.Fatalf("AddPages: %v", err)
	}
	if len(created) != MaxPagesPerBatch {
		t.Errorf("created %d pages", len(created))
	}
	if len(*f.alerts) != 1 || (*f.alerts)[0] != "You can add at most 20 pages at once. Repeat to add more." {
		t.Errorf("alerts = %v", *f.alerts)
	}
	if f.ed.Store().ActivePageID() != created[len(created)-1].ID {
		t.Error("last created page is not active")
	}
}

func TestEditorFlipRelative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	album, _ := f.ed.CreateAlbum(ctx, "Book")
	pages, _ := f.ed.AddPages(ctx, album.ID, 4)

	if err := f.ed.SetActivePage(ctx, pages[0].ID); err != nil {
		t.Fatal(err)
	}
	want := []int64{pages[2].ID, pages[3].ID}
	for _, id := range want {
		if !f.ed.FlipRelative(ctx, 1) {
			t.Fatal("FlipRelative(1) found no spread")
		}
		if got := f.ed.Store().ActivePageID(); got != id {
			t.Errorf("active = %d, want %d", got, id)
		}
	}
	if f.ed.FlipRelative(ctx, 1) {
		t.Error("flipped past the last spread")
	}
	if f.book.current != 3 {
		t.Errorf("book index = %d, want 3", f.book.current)
	}

	f.ed.OnFlip(1)
	if f.ed.Store().ActivePageID() != pages[1].ID {
		t.Error("OnFlip did not select the page")
	}
}

func TestEditorSwitchAlbumRebuilds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	a1, _ := f.ed.CreateAlbum(ctx, "One")
	p1, _ := f.ed.CreatePage(ctx, a1.ID, "")
	a2, _ := f.ed.CreateAlbum(ctx, "Two")
	p2, _ := f.ed.AddPages(ctx, a2.ID, 2)

	loads := f.book.loads
	if err := f.ed.SetActivePage(ctx, p1.ID); err != nil {
		t.Fatal(err)
	}
	if f.book.loads != loads+1 || f.ed.Store().ActiveAlbumID() != a1.ID {
		t.Errorf("loads %d -> %d, album %d", loads, f.book.loads, f.ed.Store().ActiveAlbumID())
	}
	if err := f.ed.MovePage(ctx, p2[1].ID, a1.ID); err != nil {
		t.Fatalf("MovePage: %v", err)
	}
	moved := f.serverPage(t, p2[1].ID)
	if moved.AlbumID != a1.ID || moved.Position != 1 {
		t.Errorf("server page = album %d position %d", moved.AlbumID, moved.Position)
	}
	if got := pageIDs(f.ed.Store().AlbumPages(a1.ID)); len(got) != 2 || got[1] != p2[1].ID {
		t.Errorf("local album pages = %v", got)
	}
	if f.book.PageCount() != 2 {
		t.Errorf("book not rebuilt after move: %d pages", f.book.PageCount())
	}
}

func TestEditorDropAndPhoto(t *testing.T) {
	ctx := context.Background()
	probe := func(string) (int, int, error) { return 640, 480, nil }
	f := newFixture(t, Options{Probe: probe})
	f.surface.container = geometry.Rect{Left: 100, Top: 50, Width: 250, Height: 350}
	album, _ := f.ed.CreateAlbum(ctx, "Drop")
	page, _ := f.ed.CreatePage(ctx, album.ID, "")

	sticker, err := f.ed.DropOnPage(ctx, page.ID, DropItem{Type: domain.BlockTypeSticker, Value: "⭐"}, 200, 150)
	if err != nil {
		t.Fatalf("drop sticker: %v", err)
	}
	if sticker.X != 160 || sticker.Y != 160 || sticker.Width != 80 {
		t.Errorf("sticker = %+v", sticker)
	}

	photo, err := f.ed.DropOnPage(ctx, page.ID, DropItem{Type: domain.BlockTypePhoto, Value: "data:image/png;base64,AA"}, 110, 60)
	if err != nil {
		t.Fatalf("drop photo: %v", err)
	}
	if photo.X != 0 || photo.Y != 0 || photo.Width != 300 || photo.Height != 225 {
		t.Errorf("photo = %+v", photo)
	}

	added, err := f.ed.AddPhoto(ctx, "data:image/png;base64,AA")
	if err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}
	if added.Width != 320 || added.Height != 240 {
		t.Errorf("photo fitted to %vx%v", added.Width, added.Height)
	}

	if _, err := f.ed.DropOnPage(ctx, page.ID, DropItem{Type: domain.BlockTypeText}, 0, 0); err == nil {
		t.Error("text drop accepted")
	}
	if err := f.ed.RemoveBlock(ctx, page.ID, sticker.ID); err != nil {
		t.Fatalf("RemoveBlock: %v", err)
	}
	if err := f.ed.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := f.serverPage(t, page.ID).Content; len(got) != 2 {
		t.Errorf("server has %d blocks, want 2", len(got))
	}
}

func TestEditorNoActivePage(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.ed.AddText(context.Background(), "x", ""); !errors.Is(err, ErrNoActivePage) {
		t.Errorf("err = %v, want ErrNoActivePage", err)
	}
	if len(*f.alerts) != 1 {
		t.Errorf("alerts = %v", *f.alerts)
	}
}

func TestEditorMoveKeepsSourcePositionsDense(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{SaveDelay: time.Hour})
	a, _ := f.ed.CreateAlbum(ctx, "A")
	b, _ := f.ed.CreateAlbum(ctx, "B")
	ps, err := f.ed.AddPages(ctx, a.ID, 3)
	if err != nil || len(ps) != 3 {
		t.Fatalf("AddPages = %d pages, %v", len(ps), err)
	}

	if err := f.ed.MovePage(ctx, ps[1].ID, b.ID); err != nil {
		t.Fatalf("MovePage: %v", err)
	}
	if third, _ := f.ed.Store().Page(ps[2].ID); third.Position != 1 {
		t.Errorf("local position of third page = %d, want 1", third.Position)
	}

	if err := f.ed.RenamePage(ps[2].ID, "Renamed"); err != nil {
		t.Fatal(err)
	}
	if err := f.ed.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	pages, err := f.api.ListPages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var positions []int
	for _, p := range pages {
		if p.AlbumID == a.ID {
			positions = append(positions, p.Position)
		}
	}
	slices.Sort(positions)
	if !slices.Equal(positions, []int{0, 1}) {
		t.Errorf("server positions in album A = %v, want [0 1]", positions)
	}
}

// gatedAPI holds the first page save until release is closed.
type gatedAPI struct {
	*client.Client
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedAPI) UpdatePage(ctx context.Context, id int64, u domain.PageUpdate) (*domain.Page, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Client.UpdatePage(ctx, id, u)
}

func TestEditorRenameDuringSaveSurvives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	album, err := f.api.CreateAlbum(ctx, "Slow")
	if err != nil {
		t.Fatal(err)
	}
	page, err := f.api.CreatePage(ctx, "first", album.ID)
	if err != nil {
		t.Fatal(err)
	}

	gated := &gatedAPI{Client: f.api, entered: make(chan struct{}), release: make(chan struct{})}
	ed := New(gated, Options{SaveDelay: time.Hour})
	t.Cleanup(func() { ed.Close(context.Background()) })
	if err := ed.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ed.RenamePage(page.ID, "second")
	flushed := make(chan error, 1)
	go func() { flushed <- ed.Flush(ctx) }()
	select {
	case <-gated.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("save never reached the API")
	}

	ed.RenamePage(page.ID, "third")
	close(gated.release)
	if err := <-flushed; err != nil {
		t.Fatalf("first flush: %v", err)
	}
	if p, _ := ed.Store().Page(page.ID); p.Title != "third" {
		t.Fatalf("local title = %q, want third", p.Title)
	}

	if err := ed.Flush(ctx); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if got := f.serverPage(t, page.ID).Title; got != "third" {
		t.Errorf("server title = %q, want third", got)
	}
}

func TestEditorSelectPageMissingFromBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	album, _ := f.ed.CreateAlbum(ctx, "Late")
	pages, _ := f.ed.AddPages(ctx, album.ID, 2)
	if err := f.ed.SetActivePage(ctx, pages[1].ID); err != nil {
		t.Fatal(err)
	}

	extra, err := f.api.CreatePage(ctx, "Extra", album.ID)
	if err != nil {
		t.Fatal(err)
	}
	f.ed.Store().InsertPage(*extra)

	loads := f.book.loads
	if err := f.ed.SetActivePage(ctx, extra.ID); err != nil {
		t.Fatal(err)
	}
	if f.book.loads != loads+1 {
		t.Errorf("book loads %d -> %d, want a rebuild", loads, f.book.loads)
	}
	if f.book.current != 2 || f.book.PageCount() != 3 {
		t.Errorf("book at %d of %d, want 2 of 3", f.book.current, f.book.PageCount())
	}
}
