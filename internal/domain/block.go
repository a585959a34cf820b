package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"path"
	"strconv"
	"strings"

	"scrapbook/internal/geometry"
)

type BlockType string

const (
	BlockTypePhoto   BlockType = "photo"
	BlockTypeText    BlockType = "text"
	BlockTypeSticker BlockType = "sticker"
)

// DefaultFontFamily is assigned to text blocks stored before fonts existed.
const DefaultFontFamily = "Outfit"

type TextValue struct {
	Text       string `json:"text"`
	FontFamily string `json:"fontFamily"`
}

// BlockValue is the payload of a block. Text blocks carry Text; photos and
// stickers carry Source (an emoji, URL or data URL).
type BlockValue struct {
	Source string
	Text   *TextValue
}

func SourceValue(src string) BlockValue { return BlockValue{Source: src} }

func TextContent(text, font string) BlockValue {
	if font == "" {
		font = DefaultFontFamily
	}
	return BlockValue{Text: &TextValue{Text: text, FontFamily: font}}
}

// Block is one positioned item on a page. Missing numeric fields are NaN
// until EnsureLayout repairs them. FontSize is 0 when unset.
type Block struct {
	ID       string
	Type     BlockType
	Value    BlockValue
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Z        float64
	Rotation float64
	FontSize float64
}

func (b Block) Clone() Block {
	if b.Value.Text != nil {
		t := *b.Value.Text
		b.Value.Text = &t
	}
	return b
}

// IsGlyph reports whether a sticker renders as a text glyph (emoji) rather
// than an image.
func (b Block) IsGlyph() bool {
	return b.Type == BlockTypeSticker && !IsImageSource(b.Value.Source)
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true,
}

// IsImageSource reports whether s points at an image rather than being a glyph.
func IsImageSource(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:image/") ||
		strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "/") {
		return true
	}
	return imageExts[strings.ToLower(path.Ext(s))]
}

type blockJSON struct {
	ID       string          `json:"id"`
	Type     BlockType       `json:"type"`
	Value    json.RawMessage `json:"value"`
	X        *float64        `json:"x"`
	Y        *float64        `json:"y"`
	Width    *float64        `json:"width"`
	Height   *float64        `json:"height"`
	Z        *float64        `json:"z"`
	Rotation float64         `json:"rotation"`
	FontSize *float64        `json:"fontSize,omitempty"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	var value []byte
	var err error
	if b.Value.Text != nil {
		value, err = json.Marshal(b.Value.Text)
	} else {
		value, err = json.Marshal(b.Value.Source)
	}
	if err != nil {
		return nil, err
	}
	out := blockJSON{
		ID:       b.ID,
		Type:     b.Type,
		Value:    value,
		X:        finite(b.X),
		Y:        finite(b.Y),
		Width:    finite(b.Width),
		Height:   finite(b.Height),
		Z:        finite(b.Z),
		Rotation: b.Rotation,
	}
	if math.IsNaN(out.Rotation) || math.IsInf(out.Rotation, 0) {
		out.Rotation = 0
	}
	if b.FontSize > 0 && !math.IsInf(b.FontSize, 0) {
		out.FontSize = &b.FontSize
	}
	return json.Marshal(out)
}

// UnmarshalJSON never fails on bad numeric fields: they decode as NaN so
// layout repair can default them. Legacy string values of text blocks are
// migrated to TextValue.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Block{
		ID:       str(raw["id"]),
		Type:     BlockType(str(raw["type"])),
		X:        number(raw["x"]),
		Y:        number(raw["y"]),
		Width:    number(raw["width"]),
		Height:   number(raw["height"]),
		Z:        number(raw["z"]),
		Rotation: number(raw["rotation"]),
		FontSize: number(raw["fontSize"]),
	}
	if geometry.IsFinite(b.Rotation) {
		b.Rotation = geometry.NormalizeDegrees(b.Rotation)
	} else {
		b.Rotation = 0
	}
	if math.IsNaN(b.FontSize) || b.FontSize < 0 {
		b.FontSize = 0
	}
	b.Value = decodeValue(b.Type, raw["value"])
	return nil
}

func decodeValue(t BlockType, raw json.RawMessage) BlockValue {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var tv TextValue
		if err := json.Unmarshal(raw, &tv); err == nil {
			if tv.FontFamily == "" {
				tv.FontFamily = DefaultFontFamily
			}
			if t == BlockTypeText {
				return BlockValue{Text: &tv}
			}
			return BlockValue{Source: tv.Text}
		}
	}
	s := str(raw)
	if t == BlockTypeText {
		return TextContent(s, DefaultFontFamily)
	}
	return SourceValue(s)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// number decodes a JSON number or numeric string. Anything else is NaN.
func number(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return math.NaN()
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsInf(f, 0) {
			return f
		}
	}
	return math.NaN()
}

func str(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] != '{' && raw[0] != '[' && raw[0] != '"' {
		return string(raw)
	}
	return ""
}
