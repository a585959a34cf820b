package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		err  bool
	}{
		{"sticker", KindStickers, false},
		{"Photos", KindPhotos, false},
		{" font ", KindFonts, false},
		{"videos", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestAddAndRemovePersist(t *testing.T) {
	dir := t.TempDir()
	lib, err := Open(dir, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := lib.AddSticker("data:image/png;base64,one"); err != nil {
		t.Fatal(err)
	}
	if err := lib.AddSticker("data:image/png;base64,two"); err != nil {
		t.Fatal(err)
	}
	if err := lib.AddFont("Caveat", "data:font/woff2;base64,AAAA"); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := reopened.Stickers(); len(got) != 2 || !strings.HasSuffix(got[0], "two") {
		t.Errorf("stickers = %v, newest should come first", got)
	}
	if got := reopened.Fonts(); len(got) != 1 || got[0].Name != "Caveat" {
		t.Errorf("fonts = %v", got)
	}

	removed, err := reopened.Remove(KindStickers, "data:image/png;base64,one")
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	if removed, _ := reopened.Remove(KindFonts, "Missing"); removed {
		t.Error("removed a font that does not exist")
	}
	data, _ := os.ReadFile(filepath.Join(dir, "custom_stickers.json"))
	if string(data) != `["data:image/png;base64,two"]` {
		t.Errorf("file = %s", data)
	}
}

func TestQuotaRevertsAdd(t *testing.T) {
	dir := t.TempDir()
	lib, err := Open(dir, 64, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.AddSticker("small"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err = lib.AddSticker(strings.Repeat("x", 100))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if got := lib.Stickers(); len(got) != 1 || got[0] != "small" {
		t.Errorf("stickers after failed add = %v", got)
	}
	if lib.Usage() != int64(len(`["small"]`)) {
		t.Errorf("usage = %d", lib.Usage())
	}
}

func TestMalformedFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "custom_photos.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	lib, err := Open(dir, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := lib.Photos(); got == nil || len(got) != 0 {
		t.Errorf("photos = %#v, want empty", got)
	}
}

func TestAddFontRejectsPlainData(t *testing.T) {
	lib, _ := Open(t.TempDir(), 0, nil)
	if err := lib.AddFont("Bad", "AAAA"); !errors.Is(err, ErrInvalidFont) {
		t.Errorf("err = %v", err)
	}
}

func TestAddPhotoDownscales(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1600, 400))); err != nil {
		t.Fatal(err)
	}
	lib, _ := Open(t.TempDir(), 0, nil)
	if err := lib.AddPhoto("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())); err != nil {
		t.Fatal(err)
	}
	if got := lib.Photos()[0]; !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("photo not re-encoded: %.40s", got)
	}

	if err := lib.AddPhoto("https://example.com/cat.png"); err != nil {
		t.Fatal(err)
	}
	if got := lib.Photos()[0]; got != "https://example.com/cat.png" {
		t.Errorf("undecodable photo changed: %q", got)
	}
}

func TestWatchReloadsExternalWrites(t *testing.T) {
	dir := t.TempDir()
	lib, err := Open(dir, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan Kind, 4)
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx, func(k Kind) { changed <- k }) }()
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "custom_stickers.json"), []byte(`["🌼"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case k := <-changed:
		if k != KindStickers {
			t.Errorf("changed kind = %q", k)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after external write")
	}
	if got := lib.Stickers(); len(got) != 1 || got[0] != "🌼" {
		t.Errorf("stickers = %v", got)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch: %v", err)
	}
}
