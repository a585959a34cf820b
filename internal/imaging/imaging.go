// Package imaging probes and downsizes photos carried as data URLs.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"scrapbook/internal/geometry"
)

// MaxPhotoSide is the longest side a newly added photo block gets.
const MaxPhotoSide = 320

var ErrNotDataURL = errors.New("not an image data URL")

// DecodeDataURL returns the MIME type and payload of a data: URL.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !strings.HasPrefix(mime, "image/") {
		return "", nil, ErrNotDataURL
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("decode base64: %w", err)
		}
		return mime, data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode payload: %w", err)
	}
	return mime, []byte(data), nil
}

// Dimensions reads the pixel size of an image data URL from its header.
func Dimensions(dataURL string) (int, int, error) {
	_, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// PhotoSize returns the block size for a photo: its natural size fitted
// into MaxPhotoSide.
func PhotoSize(dataURL string) (float64, float64, error) {
	w, h, err := Dimensions(dataURL)
	if err != nil {
		return 0, 0, err
	}
	fw, fh := geometry.FitWithin(float64(w), float64(h), MaxPhotoSide)
	return fw, fh, nil
}

// Downscale re-encodes the image as a JPEG data URL no larger than maxDim
// on either side. quality is in (0, 1].
func Downscale(dataURL string, maxDim int, quality float64) (string, error) {
	_, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := geometry.FitWithin(float64(b.Dx()), float64(b.Dy()), float64(maxDim))
	dst := image.NewRGBA(image.Rect(0, 0, max(1, int(w)), max(1, int(h))))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	q := int(quality * 100)
	if q <= 0 || q > 100 {
		q = 70
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
