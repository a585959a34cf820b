// Package assets keeps the user's custom stickers, photos and fonts as JSON
// arrays in a directory, under a shared size quota.
package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"scrapbook/internal/imaging"
)

var (
	ErrQuotaExceeded = errors.New("asset storage is full")
	ErrInvalidFont   = errors.New("font data must be a data URL")
	ErrUnknownKind   = errors.New("unknown asset kind")
)

// Photos are downscaled before they are stored.
const (
	PhotoMaxDim  = 800
	PhotoQuality = 0.7
)

type Kind string

const (
	KindStickers Kind = "stickers"
	KindPhotos   Kind = "photos"
	KindFonts    Kind = "fonts"
)

var Kinds = []Kind{KindStickers, KindPhotos, KindFonts}

// ParseKind accepts singular or plural names.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") + "s")
	if !slices.Contains(Kinds, k) {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// File is the name of the JSON file holding the kind's list.
func (k Kind) File() string { return "custom_" + string(k) + ".json" }

type Font struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

type Library struct {
	dir    string
	quota  int64
	logger *log.Logger

	mu       sync.RWMutex
	stickers []string
	photos   []string
	fonts    []Font
	sizes    map[Kind]int64
}

// Open loads the library in dir, creating the directory if needed. A
// quota of zero means unlimited.
func Open(dir string, quota int64, logger *log.Logger) (*Library, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	l := &Library{
		dir:    dir,
		quota:  quota,
		logger: logger.WithPrefix("assets"),
		sizes:  make(map[Kind]int64),
	}
	for _, k := range Kinds {
		if err := l.Reload(k); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Library) Dir() string { return l.dir }

// Reload re-reads one list from disk. A missing file is an empty list; a
// malformed one is logged and treated as empty.
func (l *Library) Reload(k Kind) error {
	data, err := os.ReadFile(filepath.Join(l.dir, k.File()))
	if errors.Is(err, os.ErrNotExist) {
		data = nil
	} else if err != nil {
		return fmt.Errorf("read %s: %w", k.File(), err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sizes[k] = int64(len(data))
	var target any
	switch k {
	case KindStickers:
		l.stickers = []string{}
		target = &l.stickers
	case KindPhotos:
		l.photos = []string{}
		target = &l.photos
	case KindFonts:
		l.fonts = []Font{}
		target = &l.fonts
	default:
		return ErrUnknownKind
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		l.logger.Warn("ignoring malformed asset file", "file", k.File(), "err", err)
		l.reset(k)
	}
	return nil
}

// reset empties a list in memory. mu must be held.
func (l *Library) reset(k Kind) {
	switch k {
	case KindStickers:
		l.stickers = []string{}
	case KindPhotos:
		l.photos = []string{}
	case KindFonts:
		l.fonts = []Font{}
	}
}

func (l *Library) Stickers() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.stickers)
}

func (l *Library) Photos() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.photos)
}

func (l *Library) Fonts() []Font {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.fonts)
}

// Usage is the number of bytes the library occupies on disk.
func (l *Library) Usage() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var n int64
	for _, s := range l.sizes {
		n += s
	}
	return n
}

// ── Mutations ──────────────────────────────────────────────

// AddSticker puts a sticker at the front of the list.
func (l *Library) AddSticker(src string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stickers = slices.Insert(l.stickers, 0, src)
	if err := l.persistLocked(KindStickers); err != nil {
		l.stickers = l.stickers[1:]
		return err
	}
	return nil
}

// AddPhoto downscales the photo and puts it at the front of the list. If
// the image cannot be decoded it is stored as given.
func (l *Library) AddPhoto(dataURL string) error {
	if small, err := imaging.Downscale(dataURL, PhotoMaxDim, PhotoQuality); err == nil {
		dataURL = small
	} else {
		l.logger.Warn("photo resize failed, storing original", "err", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.photos = slices.Insert(l.photos, 0, dataURL)
	if err := l.persistLocked(KindPhotos); err != nil {
		l.photos = l.photos[1:]
		return err
	}
	return nil
}

func (l *Library) AddFont(name, data string) error {
	if !strings.HasPrefix(data, "data:") {
		return ErrInvalidFont
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("font name is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fonts = append(l.fonts, Font{Name: name, Data: data})
	if err := l.persistLocked(KindFonts); err != nil {
		l.fonts = l.fonts[:len(l.fonts)-1]
		return err
	}
	return nil
}

// Remove deletes the first sticker or photo equal to value, or the first
// font named value. It reports whether anything was removed.
func (l *Library) Remove(k Kind, value string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var restore func()
	switch k {
	case KindStickers:
		i := slices.Index(l.stickers, value)
		if i < 0 {
			return false, nil
		}
		prev := slices.Clone(l.stickers)
		l.stickers = slices.Delete(l.stickers, i, i+1)
		restore = func() { l.stickers = prev }
	case KindPhotos:
		i := slices.Index(l.photos, value)
		if i < 0 {
			return false, nil
		}
		prev := slices.Clone(l.photos)
		l.photos = slices.Delete(l.photos, i, i+1)
		restore = func() { l.photos = prev }
	case KindFonts:
		i := slices.IndexFunc(l.fonts, func(f Font) bool { return f.Name == value })
		if i < 0 {
			return false, nil
		}
		prev := slices.Clone(l.fonts)
		l.fonts = slices.Delete(l.fonts, i, i+1)
		restore = func() { l.fonts = prev }
	default:
		return false, ErrUnknownKind
	}
	if err := l.persistLocked(k); err != nil {
		restore()
		return false, err
	}
	return true, nil
}

// persistLocked writes one list, refusing writes that would push the
// library over its quota. mu must be held.
func (l *Library) persistLocked(k Kind) error {
	var list any
	switch k {
	case KindStickers:
		list = l.stickers
	case KindPhotos:
		list = l.photos
	default:
		list = l.fonts
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k.File(), err)
	}
	if l.quota > 0 {
		total := int64(len(data))
		for other, n := range l.sizes {
			if other != k {
				total += n
			}
		}
		if total > l.quota {
			return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, total, l.quota)
		}
	}

	path := filepath.Join(l.dir, k.File())
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", k.File(), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", k.File(), err)
	}
	l.sizes[k] = int64(len(data))
	return nil
}
