package editor

import (
	"math/rand/v2"
	"slices"
	"sync"

	"scrapbook/internal/domain"
)

type albumEntry struct {
	id       int64
	title    string
	position int
	pages    []int64
}

// Store is the editor's local copy of the album tree plus the active
// selection. Debounce timers read it from their own goroutines, so every
// access goes through mu.
type Store struct {
	mu            sync.RWMutex
	albums        []*albumEntry
	pages         map[int64]*domain.Page
	activeAlbumID int64
	activePageID  int64

	z   *domain.ZCounter
	rng *rand.Rand
}

// NewStore returns an empty store. A nil rng uses the global source for
// layout repair.
func NewStore(rng *rand.Rand) *Store {
	return &Store{
		pages: make(map[int64]*domain.Page),
		z:     domain.NewZCounter(),
		rng:   rng,
	}
}

// Z exposes the stacking counter.
func (s *Store) Z() *domain.ZCounter { return s.z }

// ── Loading ────────────────────────────────────────────────

// Replace swaps in a freshly fetched album tree. The previous selection is
// kept when it still exists, otherwise the first album and its first page
// become active.
func (s *Store) Replace(albums []domain.Album) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.albums = s.albums[:0]
	clear(s.pages)
	var all []domain.Page
	for _, a := range albums {
		e := &albumEntry{id: a.ID, title: a.Title, position: a.Position}
		for _, p := range a.Pages {
			p = p.Clone()
			p.AlbumID = a.ID
			if p.Content == nil {
				p.Content = []domain.Block{}
			}
			s.pages[p.ID] = &p
			e.pages = append(e.pages, p.ID)
			all = append(all, p)
		}
		s.albums = append(s.albums, e)
		s.sortPagesLocked(e)
	}
	slices.SortStableFunc(s.albums, func(a, b *albumEntry) int { return a.position - b.position })
	s.z.Raise(domain.MaxZ(all))

	if p, ok := s.pages[s.activePageID]; ok {
		s.activeAlbumID = p.AlbumID
		return
	}
	if e := s.albumLocked(s.activeAlbumID); e != nil {
		s.activePageID = firstOr0(e.pages)
		return
	}
	s.activeAlbumID, s.activePageID = 0, 0
	if len(s.albums) > 0 {
		s.activeAlbumID = s.albums[0].id
		s.activePageID = firstOr0(s.albums[0].pages)
	}
}

func firstOr0(ids []int64) int64 {
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}

// ── Reads ──────────────────────────────────────────────────

// Albums returns a deep copy of the tree, albums and pages sorted by position.
func (s *Store) Albums() []domain.Album {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Album, 0, len(s.albums))
	for _, e := range s.albums {
		out = append(out, s.albumCopyLocked(e))
	}
	return out
}

func (s *Store) Album(id int64) (domain.Album, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.albumLocked(id)
	if e == nil {
		return domain.Album{}, false
	}
	return s.albumCopyLocked(e), true
}

func (s *Store) Page(id int64) (domain.Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[id]
	if !ok {
		return domain.Page{}, false
	}
	return p.Clone(), true
}

// Block returns a copy of one block.
func (s *Store) Block(pageID int64, blockID string) (domain.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[pageID]
	if !ok {
		return domain.Block{}, false
	}
	i := p.BlockIndex(blockID)
	if i < 0 {
		return domain.Block{}, false
	}
	return p.Content[i].Clone(), true
}

func (s *Store) AlbumPages(albumID int64) []domain.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.albumLocked(albumID)
	if e == nil {
		return nil
	}
	return s.pagesCopyLocked(e)
}

// PageCount is the number of pages across all albums.
func (s *Store) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

func (s *Store) ActiveAlbumID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeAlbumID
}

func (s *Store) ActivePageID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activePageID
}

// ── Selection ──────────────────────────────────────────────

// Select makes pageID active along with its album.
func (s *Store) Select(pageID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[pageID]
	if !ok {
		return false
	}
	s.activePageID = pageID
	s.activeAlbumID = p.AlbumID
	return true
}

// SelectAlbum makes albumID active along with its first page, if any.
func (s *Store) SelectAlbum(albumID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.albumLocked(albumID)
	if e == nil {
		return false
	}
	s.activeAlbumID = albumID
	s.activePageID = firstOr0(e.pages)
	return true
}

// ── Rendering ──────────────────────────────────────────────

// PrepareAlbum repairs the layout of every block in the album and returns
// the pages to render plus the ids of pages whose blocks were patched.
func (s *Store) PrepareAlbum(albumID int64) ([]domain.Page, []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.albumLocked(albumID)
	if e == nil {
		return nil, nil
	}
	var patched []int64
	for _, id := range e.pages {
		if s.prepareLocked(s.pages[id]) {
			patched = append(patched, id)
		}
	}
	return s.pagesCopyLocked(e), patched
}

// PreparePage is PrepareAlbum for a single page.
func (s *Store) PreparePage(pageID int64) (domain.Page, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[pageID]
	if !ok {
		return domain.Page{}, false, false
	}
	changed := s.prepareLocked(p)
	return p.Clone(), changed, true
}

func (s *Store) prepareLocked(p *domain.Page) bool {
	changed := false
	for i := range p.Content {
		if domain.EnsureLayout(&p.Content[i], s.z, s.rng) {
			changed = true
		}
	}
	return changed
}

// ── Album mutations ────────────────────────────────────────

// InsertAlbum adds a newly created album and keeps albums ordered.
func (s *Store) InsertAlbum(a domain.Album) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.albumLocked(a.ID); e != nil {
		e.title, e.position = a.Title, a.Position
	} else {
		s.albums = append(s.albums, &albumEntry{id: a.ID, title: a.Title, position: a.Position})
	}
	for _, p := range a.Pages {
		s.insertPageLocked(p)
	}
	slices.SortStableFunc(s.albums, func(a, b *albumEntry) int { return a.position - b.position })
}

func (s *Store) RenameAlbum(id int64, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.albumLocked(id)
	if e == nil {
		return false
	}
	e.title = title
	return true
}

// RemoveAlbum drops an album and its pages. The remaining albums are
// renumbered the way the server does it.
func (s *Store) RemoveAlbum(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.albums, func(e *albumEntry) bool { return e.id == id })
	if i < 0 {
		return false
	}
	for _, pid := range s.albums[i].pages {
		delete(s.pages, pid)
	}
	s.albums = slices.Delete(s.albums, i, i+1)
	for n, e := range s.albums {
		e.position = n
	}
	if s.activeAlbumID == id {
		s.activeAlbumID, s.activePageID = 0, 0
	}
	return true
}

// ── Page mutations ─────────────────────────────────────────

// InsertPage adds a page created by the server to its album.
func (s *Store) InsertPage(p domain.Page) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPageLocked(p)
}

func (s *Store) insertPageLocked(p domain.Page) bool {
	e := s.albumLocked(p.AlbumID)
	if e == nil {
		return false
	}
	p = p.Clone()
	if p.Content == nil {
		p.Content = []domain.Block{}
	}
	for _, b := range p.Content {
		s.z.Raise(b.Z)
	}
	if _, ok := s.pages[p.ID]; !ok {
		e.pages = append(e.pages, p.ID)
	}
	s.pages[p.ID] = &p
	s.sortPagesLocked(e)
	return true
}

// SyncPage merges a server response into the local page. Position and
// album come from the server; title and content stay local since the user
// may have kept editing while the save was in flight.
func (s *Store) SyncPage(p domain.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	local, ok := s.pages[p.ID]
	if !ok {
		return
	}
	oldAlbum := local.AlbumID
	local.Position = p.Position
	if p.AlbumID != 0 {
		local.AlbumID = p.AlbumID
	}
	if local.AlbumID != oldAlbum {
		// The server closed the gap in the album the page left.
		if e := s.albumLocked(oldAlbum); e != nil {
			e.pages = slices.DeleteFunc(e.pages, func(id int64) bool { return id == p.ID })
			for n, pid := range e.pages {
				s.pages[pid].Position = n
			}
		}
		if e := s.albumLocked(local.AlbumID); e != nil {
			e.pages = append(e.pages, p.ID)
		}
		if s.activePageID == p.ID {
			s.activeAlbumID = local.AlbumID
		}
	}
	if e := s.albumLocked(local.AlbumID); e != nil {
		s.sortPagesLocked(e)
	}
}

// RenamePage sets a page title locally.
func (s *Store) RenamePage(id int64, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return false
	}
	p.Title = title
	return true
}

// RemovePage drops a page and its blocks, renumbering the album's
// remaining pages.
func (s *Store) RemovePage(id int64) (albumID int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return 0, false
	}
	delete(s.pages, id)
	if e := s.albumLocked(p.AlbumID); e != nil {
		e.pages = slices.DeleteFunc(e.pages, func(pid int64) bool { return pid == id })
		for n, pid := range e.pages {
			s.pages[pid].Position = n
		}
	}
	if s.activePageID == id {
		s.activePageID = 0
	}
	return p.AlbumID, true
}

// ReorderAlbumPages applies a new page order locally. Unlisted pages keep
// their relative order after the listed ones.
func (s *Store) ReorderAlbumPages(albumID int64, ids []int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.albumLocked(albumID)
	if e == nil {
		return false
	}
	order := make([]int64, 0, len(e.pages))
	for _, id := range ids {
		if slices.Contains(e.pages, id) && !slices.Contains(order, id) {
			order = append(order, id)
		}
	}
	for _, id := range e.pages {
		if !slices.Contains(order, id) {
			order = append(order, id)
		}
	}
	for n, id := range order {
		s.pages[id].Position = n
	}
	e.pages = order
	return true
}

// IndexOf returns the index of pageID within its album, or -1.
func (s *Store) IndexOf(pageID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[pageID]
	if !ok {
		return -1
	}
	e := s.albumLocked(p.AlbumID)
	if e == nil {
		return -1
	}
	return slices.Index(e.pages, pageID)
}

// ── Block mutations ────────────────────────────────────────

// UpdateBlock applies fn to a block in place.
func (s *Store) UpdateBlock(pageID int64, blockID string, fn func(b *domain.Block)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[pageID]
	if !ok {
		return false
	}
	i := p.BlockIndex(blockID)
	if i < 0 {
		return false
	}
	fn(&p.Content[i])
	return true
}

// NewBlock creates a block placed for pageID without adding it.
func (s *Store) NewBlock(pageID int64, t domain.BlockType, v domain.BlockValue, at domain.Placement) (domain.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[pageID]
	if !ok {
		return domain.Block{}, false
	}
	return domain.NewBlock(t, v, len(p.Content), at, s.z), true
}

func (s *Store) AppendBlock(pageID int64, b domain.Block) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[pageID]
	if !ok {
		return false
	}
	p.Content = append(p.Content, b.Clone())
	s.z.Raise(b.Z)
	return true
}

func (s *Store) RemoveBlock(pageID int64, blockID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[pageID]
	if !ok {
		return false
	}
	i := p.BlockIndex(blockID)
	if i < 0 {
		return false
	}
	p.Content = slices.Delete(p.Content, i, i+1)
	return true
}

// BringToFront gives the block the next z value and returns it.
func (s *Store) BringToFront(pageID int64, blockID string) (float64, bool) {
	var z float64
	ok := s.UpdateBlock(pageID, blockID, func(b *domain.Block) {
		z = s.z.Next()
		b.Z = z
	})
	return z, ok
}

// ── helpers (mu held) ──────────────────────────────────────

func (s *Store) albumLocked(id int64) *albumEntry {
	for _, e := range s.albums {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (s *Store) sortPagesLocked(e *albumEntry) {
	slices.SortStableFunc(e.pages, func(a, b int64) int {
		return s.pages[a].Position - s.pages[b].Position
	})
}

func (s *Store) pagesCopyLocked(e *albumEntry) []domain.Page {
	out := make([]domain.Page, 0, len(e.pages))
	for _, id := range e.pages {
		out = append(out, s.pages[id].Clone())
	}
	return out
}

func (s *Store) albumCopyLocked(e *albumEntry) domain.Album {
	return domain.Album{ID: e.id, Title: e.title, Position: e.position, Pages: s.pagesCopyLocked(e)}
}
