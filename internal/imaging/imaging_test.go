package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDimensions(t *testing.T) {
	w, h, err := Dimensions(pngDataURL(t, 64, 32))
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}
	if w != 64 || h != 32 {
		t.Errorf("size = %dx%d, want 64x32", w, h)
	}
}

func TestDimensionsRejectsGarbage(t *testing.T) {
	for _, in := range []string{
		"https://example.com/a.png",
		"data:text/plain;base64,aGk=",
		"data:image/png;base64,!!!",
		"data:image/png;base64,aGVsbG8=",
	} {
		if _, _, err := Dimensions(in); err == nil {
			t.Errorf("Dimensions(%q) succeeded", in)
		}
	}
}

func TestPhotoSizeFits(t *testing.T) {
	w, h, err := PhotoSize(pngDataURL(t, 800, 400))
	if err != nil {
		t.Fatalf("PhotoSize: %v", err)
	}
	if w != 320 || math.Abs(h-160) > 1e-9 {
		t.Errorf("size = %vx%v, want 320x160", w, h)
	}
}

func TestDownscale(t *testing.T) {
	out, err := Downscale(pngDataURL(t, 400, 200), 100, 0.7)
	if err != nil {
		t.Fatalf("Downscale: %v", err)
	}
	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatalf("Dimensions of result: %v", err)
	}
	if w != 100 || h != 50 {
		t.Errorf("downscaled = %dx%d, want 100x50", w, h)
	}
}
