package editor

import (
	"sync"

	"github.com/charmbracelet/log"

	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
)

// gesture is one pointer interaction on a block, from pointer-down to
// pointer-up.
type gesture interface {
	move(p geometry.Point)
	render(s Surface, pageID int64, blockID string)
	apply(b *domain.Block)
}

type blockKey struct {
	pageID  int64
	blockID string
}

type session struct {
	key       blockKey
	pointerID int
	g         gesture
}

// Controller turns pointer events into drag, resize and rotate gestures.
// A block has at most one gesture at a time; events are routed to it by
// pointer id.
type Controller struct {
	store    *Store
	surface  Surface
	onCommit func(pageID int64)
	logger   *log.Logger

	mu        sync.Mutex
	byBlock   map[blockKey]*session
	byPointer map[int]*session
}

func NewController(store *Store, surface Surface, onCommit func(pageID int64), logger *log.Logger) *Controller {
	if surface == nil {
		surface = nopSurface{}
	}
	if onCommit == nil {
		onCommit = func(int64) {}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		store:     store,
		surface:   surface,
		onCommit:  onCommit,
		logger:    logger,
		byBlock:   make(map[blockKey]*session),
		byPointer: make(map[int]*session),
	}
}

// PointerDown starts a gesture on a block. It reports whether one started.
func (c *Controller) PointerDown(pageID int64, blockID string, ev PointerEvent) bool {
	if ev.Button != PrimaryButton {
		return false
	}
	var start func(Frame, domain.Block, geometry.Point) gesture
	switch ev.Target {
	case TargetBody:
		start = func(f Frame, b domain.Block, p geometry.Point) gesture { return startDrag(f, b, p) }
	case TargetResizeHandle:
		start = func(f Frame, b domain.Block, p geometry.Point) gesture { return startResize(f, b, p) }
	case TargetRotateHandle:
		start = func(f Frame, b domain.Block, p geometry.Point) gesture { return startRotate(f, b, p) }
	default:
		return false
	}

	key := blockKey{pageID: pageID, blockID: blockID}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.byBlock[key]; busy {
		return false
	}
	if _, busy := c.byPointer[ev.PointerID]; busy {
		return false
	}

	frame, err := c.surface.Frame(pageID, blockID)
	if err != nil {
		c.logger.Debug("no frame for block", "page", pageID, "block", blockID, "err", err)
		return false
	}
	z, ok := c.store.BringToFront(pageID, blockID)
	if !ok {
		return false
	}
	b, _ := c.store.Block(pageID, blockID)
	c.surface.Raise(pageID, blockID, z)

	if err := c.surface.Capture(ev.PointerID); err != nil {
		c.logger.Debug("pointer capture failed", "pointer", ev.PointerID, "err", err)
	}

	s := &session{key: key, pointerID: ev.PointerID, g: start(frame, b, ev.Point())}
	c.byBlock[key] = s
	c.byPointer[ev.PointerID] = s
	return true
}

func (c *Controller) PointerMove(ev PointerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byPointer[ev.PointerID]
	if !ok {
		return
	}
	s.g.move(ev.Point())
	s.g.render(c.surface, s.key.pageID, s.key.blockID)
}

func (c *Controller) PointerUp(ev PointerEvent)     { c.end(ev.PointerID) }
func (c *Controller) PointerCancel(ev PointerEvent) { c.end(ev.PointerID) }

// Active reports how many gestures are in progress.
func (c *Controller) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byPointer)
}

// FinishAll ends every gesture in progress, committing its current state.
func (c *Controller) FinishAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.byPointer {
		c.finish(s)
	}
}

func (c *Controller) end(pointerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.byPointer[pointerID]; ok {
		c.finish(s)
	}
}

// finish is the only exit from a gesture. c.mu must be held.
func (c *Controller) finish(s *session) {
	delete(c.byPointer, s.pointerID)
	delete(c.byBlock, s.key)
	c.surface.Release(s.pointerID)
	if c.store.UpdateBlock(s.key.pageID, s.key.blockID, s.g.apply) {
		c.onCommit(s.key.pageID)
	}
}
