// Package editor is the headless core of the scrapbook canvas: the local
// album store, pointer gestures, debounced page saves and the flip-book
// viewport. The DOM side is reached through Surface, FlipBook and Alerter.
//
// Editor methods are meant to be called from a single UI goroutine. Saves
// fire on timer goroutines and only touch the Store and the API.
package editor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
	"scrapbook/internal/schedule"
)

const (
	DefaultSaveDelay = 600 * time.Millisecond
	DefaultPageTitle = "New Page"
	MaxPagesPerBatch = 20
	MaxPhotoSide     = 320
	DropPhotoWidth   = 300
	DropStickerSize  = 80
)

type Options struct {
	SaveDelay time.Duration
	Surface   Surface
	FlipBook  FlipBook
	Alerter   Alerter
	Logger    *log.Logger
	Metrics   *schedule.Metrics
	Rand      *rand.Rand
	Probe     Probe
}

type Editor struct {
	api     API
	store   *Store
	saves   *schedule.Debouncer[int64]
	view    *Viewport
	control *Controller
	surface Surface
	alerter Alerter
	probe   Probe
	logger  *log.Logger
}

func New(api API, opts Options) *Editor {
	if opts.SaveDelay <= 0 {
		opts.SaveDelay = DefaultSaveDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Surface == nil {
		opts.Surface = nopSurface{}
	}
	e := &Editor{
		api:     api,
		store:   NewStore(opts.Rand),
		view:    NewViewport(opts.FlipBook),
		surface: opts.Surface,
		alerter: opts.Alerter,
		probe:   opts.Probe,
		logger:  opts.Logger,
	}
	e.saves = schedule.New[int64](opts.SaveDelay, e.persist,
		schedule.WithLogger[int64](opts.Logger),
		schedule.WithMetrics[int64](opts.Metrics))
	e.control = NewController(e.store, opts.Surface, e.saves.Schedule, opts.Logger)
	return e
}

func (e *Editor) Store() *Store             { return e.store }
func (e *Editor) Controller() *Controller   { return e.control }
func (e *Editor) Viewport() *Viewport       { return e.view }
func (e *Editor) ScheduleSave(pageID int64) { e.saves.Schedule(pageID) }

func (e *Editor) alert(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if e.alerter == nil {
		e.logger.Warn(msg)
		return
	}
	e.alerter.Alert(msg)
}

// ── Lifecycle ──────────────────────────────────────────────

// Load fetches the album tree and renders the active album. An active
// album without pages gets one created.
func (e *Editor) Load(ctx context.Context) error {
	albums, err := e.api.ListAlbums(ctx)
	if err != nil {
		e.alert("Could not load album data: %s", errMessage(err))
		return fmt.Errorf("load albums: %w", err)
	}
	e.store.Replace(albums)

	if id := e.store.ActiveAlbumID(); id != 0 && len(e.store.AlbumPages(id)) == 0 {
		if _, err := e.createPage(ctx, id, DefaultPageTitle, true); err != nil {
			return err
		}
	}
	e.Render(ctx)
	return nil
}

// Flush saves every page with a pending save and waits for saves in flight.
func (e *Editor) Flush(ctx context.Context) error {
	return e.saves.Flush(ctx)
}

// Close ends open gestures, flushes saves and tears down the viewport.
func (e *Editor) Close(ctx context.Context) error {
	e.control.FinishAll()
	err := e.saves.Flush(ctx)
	e.saves.Stop()
	e.view.Destroy()
	return err
}

// ── Rendering ──────────────────────────────────────────────

// Render flushes pending saves, repairs block layout in the active album
// and pushes its pages to the flip book. Pages whose layout was repaired
// get a save scheduled.
func (e *Editor) Render(ctx context.Context) {
	if err := e.saves.Flush(ctx); err != nil {
		e.logger.Error("flush before render", "err", err)
	}
	albumID := e.store.ActiveAlbumID()
	pages, patched := e.store.PrepareAlbum(albumID)
	if e.view.Render(albumID, pages) {
		if i := e.view.IndexOf(e.store.ActivePageID()); i >= 0 {
			e.view.Flip(i)
		}
	}
	for _, id := range patched {
		e.saves.Schedule(id)
	}
}

func (e *Editor) PageInfo() string { return e.view.PageInfo() }

// ── Navigation ─────────────────────────────────────────────

// SetActivePage selects a page. Switching albums rebuilds the book; within
// the same album the book just flips.
func (e *Editor) SetActivePage(ctx context.Context, pageID int64) error {
	p, ok := e.store.Page(pageID)
	if !ok {
		return fmt.Errorf("page %d: %w", pageID, ErrNotFound)
	}
	if p.AlbumID != e.view.AlbumID() {
		if err := e.saves.Flush(ctx); err != nil {
			e.logger.Error("flush before album switch", "err", err)
		}
		e.store.Select(pageID)
		e.Render(ctx)
		return nil
	}
	e.store.Select(pageID)
	if i := e.view.IndexOf(pageID); i >= 0 {
		e.view.Flip(i)
		return nil
	}
	// The book predates this page; rebuild it.
	e.Render(ctx)
	return nil
}

// FlipRelative moves offset spreads forward or back. It reports whether
// there was a spread to move to.
func (e *Editor) FlipRelative(ctx context.Context, offset int) bool {
	pages := e.store.AlbumPages(e.store.ActiveAlbumID())
	spreads := Spreads(pages)
	if len(spreads) == 0 {
		return false
	}
	active := e.store.ActivePageID()
	cur := 0
	for i, sp := range spreads {
		if sp.Contains(active) {
			cur = i
			break
		}
	}
	target := cur + offset
	if target < 0 || target >= len(spreads) {
		return false
	}
	p := spreads[target].Primary(true)
	if p == nil {
		return false
	}
	return e.SetActivePage(ctx, p.ID) == nil
}

// OnFlip handles the flip book turning to index.
func (e *Editor) OnFlip(index int) {
	if id, ok := e.view.PageAt(index); ok {
		e.store.Select(id)
	}
}

// ── Albums ─────────────────────────────────────────────────

func (e *Editor) CreateAlbum(ctx context.Context, title string) (domain.Album, error) {
	a, err := e.api.CreateAlbum(ctx, title)
	if err != nil {
		e.alert("An error occurred while creating the album.")
		return domain.Album{}, fmt.Errorf("create album: %w", err)
	}
	a.Pages = nil
	e.store.InsertAlbum(*a)
	return *a, nil
}

// RenameAlbum sets the album title. A blank title keeps the current one.
func (e *Editor) RenameAlbum(ctx context.Context, id int64, title string) error {
	cur, ok := e.store.Album(id)
	if !ok {
		return fmt.Errorf("album %d: %w", id, ErrNotFound)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = cur.Title
	}
	a, err := e.api.UpdateAlbum(ctx, id, title)
	if err != nil {
		e.alert("Could not update album: %s", errMessage(err))
		return fmt.Errorf("rename album %d: %w", id, err)
	}
	e.store.RenameAlbum(id, a.Title)
	return nil
}

// DeleteAlbum removes the album locally, then on the server. Deleting the
// active album reloads everything.
func (e *Editor) DeleteAlbum(ctx context.Context, id int64) error {
	wasActive := e.store.ActiveAlbumID() == id
	for _, p := range e.store.AlbumPages(id) {
		e.saves.Cancel(p.ID)
	}
	if !e.store.RemoveAlbum(id) {
		return fmt.Errorf("album %d: %w", id, ErrNotFound)
	}
	if err := e.api.DeleteAlbum(ctx, id); err != nil {
		e.alert("Could not delete album: %s", errMessage(err))
		return fmt.Errorf("delete album %d: %w", id, err)
	}
	if wasActive {
		return e.Load(ctx)
	}
	e.Render(ctx)
	return nil
}

// ── Pages ──────────────────────────────────────────────────

// CreatePage adds a page at the end of the album.
func (e *Editor) CreatePage(ctx context.Context, albumID int64, title string) (domain.Page, error) {
	p, err := e.createPage(ctx, albumID, title, true)
	if err != nil {
		return domain.Page{}, err
	}
	e.Render(ctx)
	return p, nil
}

func (e *Editor) createPage(ctx context.Context, albumID int64, title string, activate bool) (domain.Page, error) {
	if _, ok := e.store.Album(albumID); !ok {
		e.alert("An error occurred while creating the page.")
		return domain.Page{}, fmt.Errorf("album %d: %w", albumID, ErrNotFound)
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultPageTitle
	}
	p, err := e.api.CreatePage(ctx, title, albumID)
	if err != nil {
		e.alert("An error occurred while creating the page.")
		return domain.Page{}, fmt.Errorf("create page: %w", err)
	}
	e.store.InsertPage(*p)
	if activate {
		e.store.Select(p.ID)
	}
	return *p, nil
}

// AddPages creates up to MaxPagesPerBatch pages and activates the last one.
func (e *Editor) AddPages(ctx context.Context, albumID int64, n int) ([]domain.Page, error) {
	count := min(n, MaxPagesPerBatch)
	var created []domain.Page
	for i := 0; i < count; i++ {
		p, err := e.createPage(ctx, albumID, DefaultPageTitle, i == count-1)
		if err != nil {
			e.Render(ctx)
			return created, err
		}
		created = append(created, p)
	}
	if n > MaxPagesPerBatch {
		e.alert("You can add at most %d pages at once. Repeat to add more.", MaxPagesPerBatch)
	}
	e.Render(ctx)
	return created, nil
}

// DeletePage removes a page locally, then on the server. The last page in
// the book cannot be deleted.
func (e *Editor) DeletePage(ctx context.Context, pageID int64) error {
	if _, ok := e.store.Page(pageID); !ok {
		return fmt.Errorf("page %d: %w", pageID, ErrNotFound)
	}
	if e.store.PageCount() <= 1 {
		e.alert("At least one page must remain.")
		return ErrLastPage
	}
	wasActive := e.store.ActivePageID() == pageID
	e.saves.Cancel(pageID)
	albumID, _ := e.store.RemovePage(pageID)
	if wasActive {
		e.store.SelectAlbum(albumID)
	}
	if err := e.api.DeletePage(ctx, pageID); err != nil {
		e.alert("Could not delete page: %s", errMessage(err))
		return fmt.Errorf("delete page %d: %w", pageID, err)
	}
	e.Render(ctx)
	return nil
}

func (e *Editor) DeleteActivePage(ctx context.Context) error {
	id := e.store.ActivePageID()
	if id == 0 {
		return ErrNoActivePage
	}
	return e.DeletePage(ctx, id)
}

// MovePage moves a page to the end of another album.
func (e *Editor) MovePage(ctx context.Context, pageID, albumID int64) error {
	if _, ok := e.store.Page(pageID); !ok {
		return fmt.Errorf("page %d: %w", pageID, ErrNotFound)
	}
	if err := e.saves.Flush(ctx); err != nil {
		e.logger.Error("flush before move", "err", err)
	}
	p, err := e.api.UpdatePage(ctx, pageID, domain.PageUpdate{AlbumID: &albumID})
	if err != nil {
		e.alert("Could not move page: %s", errMessage(err))
		return fmt.Errorf("move page %d: %w", pageID, err)
	}
	e.store.SyncPage(*p)
	e.Render(ctx)
	return nil
}

// ReorderPages applies a new page order within an album.
func (e *Editor) ReorderPages(ctx context.Context, albumID int64, pageIDs []int64) error {
	if err := e.saves.Flush(ctx); err != nil {
		e.logger.Error("flush before reorder", "err", err)
	}
	if !e.store.ReorderAlbumPages(albumID, pageIDs) {
		return fmt.Errorf("album %d: %w", albumID, ErrNotFound)
	}
	if err := e.api.ReorderPages(ctx, albumID, pageIDs); err != nil {
		e.alert("Could not reorder pages: %s", errMessage(err))
		return fmt.Errorf("reorder pages: %w", err)
	}
	e.Render(ctx)
	return nil
}

func (e *Editor) RenamePage(pageID int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultPageTitle
	}
	if !e.store.RenamePage(pageID, title) {
		return fmt.Errorf("page %d: %w", pageID, ErrNotFound)
	}
	e.saves.Schedule(pageID)
	return nil
}

// ── Blocks ─────────────────────────────────────────────────

// AddBlock appends a new block to a page and schedules a save.
func (e *Editor) AddBlock(ctx context.Context, pageID int64, t domain.BlockType, v domain.BlockValue, at domain.Placement) (domain.Block, error) {
	b, ok := e.store.NewBlock(pageID, t, v, at)
	if !ok {
		return domain.Block{}, fmt.Errorf("page %d: %w", pageID, ErrNotFound)
	}
	e.store.AppendBlock(pageID, b)
	e.Render(ctx)
	e.saves.Schedule(pageID)
	return b, nil
}

// AddBlockToActivePage adds a block to the active page. Photos given as
// data URLs are sized to their natural aspect, fitted into MaxPhotoSide.
func (e *Editor) AddBlockToActivePage(ctx context.Context, t domain.BlockType, v domain.BlockValue) (domain.Block, error) {
	pageID := e.store.ActivePageID()
	if _, ok := e.store.Page(pageID); !ok {
		e.alert("Please select a page first.")
		return domain.Block{}, ErrNoActivePage
	}
	var at domain.Placement
	if t == domain.BlockTypePhoto && strings.HasPrefix(v.Source, "data:image") {
		if w, h, ok := e.probeSize(v.Source); ok {
			at.Width, at.Height = geometry.FitWithin(w, h, MaxPhotoSide)
			at.HasSize = true
		}
	}
	return e.AddBlock(ctx, pageID, t, v, at)
}

func (e *Editor) AddText(ctx context.Context, text, font string) (domain.Block, error) {
	return e.AddBlockToActivePage(ctx, domain.BlockTypeText, domain.TextContent(text, font))
}

func (e *Editor) AddPhoto(ctx context.Context, src string) (domain.Block, error) {
	return e.AddBlockToActivePage(ctx, domain.BlockTypePhoto, domain.SourceValue(src))
}

func (e *Editor) AddSticker(ctx context.Context, src string) (domain.Block, error) {
	return e.AddBlockToActivePage(ctx, domain.BlockTypeSticker, domain.SourceValue(src))
}

// DropItem is a sticker or photo dragged from the library onto a page.
type DropItem struct {
	Type  domain.BlockType `json:"type"`
	Value string           `json:"value"`
}

// DropOnPage adds the item centered on the drop point, given in screen
// coordinates.
func (e *Editor) DropOnPage(ctx context.Context, pageID int64, item DropItem, clientX, clientY float64) (domain.Block, error) {
	if item.Type != domain.BlockTypeSticker && item.Type != domain.BlockTypePhoto {
		return domain.Block{}, fmt.Errorf("unsupported drop type %q", item.Type)
	}
	f, err := e.surface.PageFrame(pageID)
	if err != nil {
		return domain.Block{}, fmt.Errorf("page frame: %w", err)
	}
	x := (clientX - f.Container.Left) / geometry.Scale(f.Container.Width, f.ContainerSize.W)
	y := (clientY - f.Container.Top) / geometry.Scale(f.Container.Height, f.ContainerSize.H)

	at := domain.Placement{HasPosition: true}
	if item.Type == domain.BlockTypeSticker {
		at.X = max(0, x-DropStickerSize/2)
		at.Y = max(0, y-DropStickerSize/2)
	} else {
		w, h := domain.DefaultSize(domain.BlockTypePhoto)
		if pw, ph, ok := e.probeSize(item.Value); ok {
			w, h = pw, ph
		}
		at.Width = DropPhotoWidth
		at.Height = DropPhotoWidth / geometry.AspectRatio(w, h)
		at.HasSize = true
		at.X = max(0, x-at.Width/2)
		at.Y = max(0, y-at.Height/2)
	}
	return e.AddBlock(ctx, pageID, item.Type, domain.SourceValue(item.Value), at)
}

func (e *Editor) probeSize(src string) (float64, float64, bool) {
	if e.probe == nil {
		return 0, 0, false
	}
	w, h, err := e.probe(src)
	if err != nil || w <= 0 || h <= 0 {
		e.logger.Debug("image probe failed", "err", err)
		return 0, 0, false
	}
	return float64(w), float64(h), true
}

// EditText replaces the text of a text block.
func (e *Editor) EditText(pageID int64, blockID, text string) error {
	ok := e.store.UpdateBlock(pageID, blockID, func(b *domain.Block) {
		if b.Value.Text == nil {
			b.Value = domain.TextContent(text, "")
			return
		}
		b.Value.Text.Text = text
	})
	if !ok {
		return fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}
	e.saves.Schedule(pageID)
	return nil
}

func (e *Editor) RemoveBlock(ctx context.Context, pageID int64, blockID string) error {
	if !e.store.RemoveBlock(pageID, blockID) {
		return fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}
	e.saves.Schedule(pageID)
	e.Render(ctx)
	return nil
}
