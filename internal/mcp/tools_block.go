package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"scrapbook/internal/domain"
	"scrapbook/internal/geometry"
	"scrapbook/internal/imaging"
)

// Size limits shared with the editor's resize handle.
const (
	minStickerWidth = 40.0
	minBoxWidth     = 100.0
	minFontSize     = 12.0
	maxFontSize     = 200.0
)

func (s *Server) registerBlockTools() {
	// ── list_blocks ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List all blocks on a page, optionally filtered by type"),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("type", mcp.Description("Filter by block type: photo, text or sticker (optional)")),
	), s.handleListBlocks)

	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Add a block to a page. Position is auto-calculated inside the page if not provided."),
		mcp.WithString("type",
			mcp.Description("Block type: photo, text or sticker"),
			mcp.Required(),
		),
		mcp.WithString("value",
			mcp.Description("Text for text blocks; an emoji, image URL or data URL for photos and stickers"),
			mcp.Required(),
		),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("fontFamily", mcp.Description("Font for text blocks (optional)")),
		mcp.WithNumber("x", mcp.Description("X position (optional, auto-layout if omitted)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional, auto-layout if omitted)")),
		mcp.WithNumber("width", mcp.Description("Width (optional, type default)")),
		mcp.WithNumber("height", mcp.Description("Height (optional, type default)")),
	), s.handleAddBlock)

	// ── update_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Change the value of a block, or the text and font of a text block"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("value", mcp.Description("New text, emoji or image source (optional)")),
		mcp.WithString("fontFamily", mcp.Description("New font for text blocks (optional)")),
	), s.handleUpdateBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block. The position is clamped so the block stays on the page."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
	), s.handleMoveBlock)

	// ── resize_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_block",
		mcp.WithDescription("Resize a block. Photos and stickers keep their aspect ratio; text blocks take an optional font size."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("width", mcp.Description("New width"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("New height (text blocks only)")),
		mcp.WithNumber("fontSize", mcp.Description("New font size (text blocks only)")),
	), s.handleResizeBlock)

	// ── rotate_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("rotate_block",
		mcp.WithDescription("Set a block's rotation in degrees"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("degrees", mcp.Description("Rotation, any value; stored in [0, 360)"), mcp.Required()),
	), s.handleRotateBlock)

	// ── bring_to_front ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("bring_to_front",
		mcp.WithDescription("Stack a block above every other block on its page"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleBringToFront)

	// ── remove_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a block from a page"),
		mcp.WithString("blockId", mcp.Description("Block ID to remove"), mcp.Required()),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveBlock)

	// ── arrange_blocks ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("arrange_blocks",
		mcp.WithDescription("Tile every block on a page left to right, wrapping at the page edge"),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("startX", mcp.Description("Starting X position (default 0)")),
		mcp.WithNumber("startY", mcp.Description("Starting Y position (default 0)")),
	), s.handleArrangeBlocks)
}

// blockSummary is a block as agents see it. Long sources such as data URLs
// are shortened.
type blockSummary struct {
	ID         string           `json:"id"`
	Type       domain.BlockType `json:"type"`
	Value      string           `json:"value"`
	FontFamily string           `json:"fontFamily,omitempty"`
	X          float64          `json:"x"`
	Y          float64          `json:"y"`
	Width      float64          `json:"width"`
	Height     float64          `json:"height"`
	Z          float64          `json:"z"`
	Rotation   float64          `json:"rotation"`
	FontSize   float64          `json:"fontSize,omitempty"`
}

const maxSummaryValue = 80

func summarizeBlock(b domain.Block) blockSummary {
	out := blockSummary{
		ID: b.ID, Type: b.Type,
		X: orZero(b.X), Y: orZero(b.Y), Width: orZero(b.Width), Height: orZero(b.Height),
		Z: orZero(b.Z), Rotation: orZero(b.Rotation), FontSize: orZero(b.FontSize),
	}
	if b.Value.Text != nil {
		out.Value, out.FontFamily = b.Value.Text.Text, b.Value.Text.FontFamily
	} else {
		out.Value = b.Value.Source
	}
	if r := []rune(out.Value); len(r) > maxSummaryValue {
		out.Value = string(r[:maxSummaryValue]) + "…"
	}
	return out
}

// orZero hides geometry that has not been laid out yet; JSON cannot carry NaN.
func orZero(v float64) float64 {
	if !geometry.IsFinite(v) {
		return 0
	}
	return v
}

func parseBlockType(s string) (domain.BlockType, error) {
	switch t := domain.BlockType(strings.ToLower(strings.TrimSpace(s))); t {
	case domain.BlockTypePhoto, domain.BlockTypeText, domain.BlockTypeSticker:
		return t, nil
	}
	return "", fmt.Errorf("unknown block type %q (want photo, text or sticker)", s)
}

func minWidth(b domain.Block) float64 {
	if b.Type == domain.BlockTypeSticker {
		return minStickerWidth
	}
	return minBoxWidth
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	filter := req.GetString("type", "")
	out := []blockSummary{}
	for _, b := range p.Content {
		if filter != "" && string(b.Type) != filter {
			continue
		}
		out = append(out, summarizeBlock(b))
	}
	return jsonResult(out)
}

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := parseBlockType(req.GetString("type", ""))
	if err != nil {
		return nil, err
	}
	value := req.GetString("value", "")
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("value is required")
	}
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}

	bv := domain.SourceValue(value)
	if t == domain.BlockTypeText {
		bv = domain.TextContent(value, req.GetString("fontFamily", ""))
	}
	w, h := domain.DefaultSize(t)
	if t == domain.BlockTypePhoto && strings.HasPrefix(value, "data:image/") {
		if pw, ph, err := imaging.PhotoSize(value); err == nil {
			w, h = pw, ph
		}
	}
	w = getFloat(req, "width", w)
	h = getFloat(req, "height", h)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("width and height must be positive")
	}

	args := req.GetArguments()
	_, hasX := args["x"]
	_, hasY := args["y"]

	s.mu.Lock()
	defer s.mu.Unlock()

	var added domain.Block
	_, err = s.pages.UpdateContent(ctx, pageID, func(blocks []domain.Block) ([]domain.Block, error) {
		z := repair(blocks)
		var x, y float64
		if hasX && hasY {
			x, y = s.layout.Clamp(getFloat(req, "x", 0), getFloat(req, "y", 0), w, h)
		} else {
			x, y = s.layout.NextPosition(blocks, w, h)
		}
		added = domain.NewBlock(t, bv, len(blocks), domain.Placement{
			X: x, Y: y, Width: w, Height: h,
			HasPosition: true, HasSize: true,
		}, z)
		return append(blocks, added), nil
	})
	if err != nil {
		return nil, fmt.Errorf("add block: %w", err)
	}
	return jsonResult(summarizeBlock(added))
}

func (s *Server) handleUpdateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID := req.GetString("blockId", "")
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	args := req.GetArguments()
	_, hasValue := args["value"]
	_, hasFont := args["fontFamily"]
	if !hasValue && !hasFont {
		return nil, fmt.Errorf("nothing to update: pass value or fontFamily")
	}
	value := req.GetString("value", "")
	font := req.GetString("fontFamily", "")

	b, err := s.editBlock(ctx, pageID, blockID, func(b *domain.Block) error {
		if b.Type != domain.BlockTypeText {
			if hasFont && !hasValue {
				return fmt.Errorf("fontFamily only applies to text blocks")
			}
			b.Value = domain.SourceValue(value)
			return nil
		}
		text := b.Value.Text
		if text == nil {
			text = &domain.TextValue{FontFamily: domain.DefaultFontFamily}
		}
		next := *text
		if hasValue {
			next.Text = value
		}
		if hasFont && font != "" {
			next.FontFamily = font
		}
		b.Value = domain.BlockValue{Text: &next}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update block: %w", err)
	}
	return jsonResult(summarizeBlock(b))
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	x, y := getFloat(req, "x", 0), getFloat(req, "y", 0)
	b, err := s.editBlock(ctx, pageID, req.GetString("blockId", ""), func(b *domain.Block) error {
		b.X, b.Y = s.layout.Clamp(x, y, b.Width, b.Height)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("move block: %w", err)
	}
	return jsonResult(summarizeBlock(b))
}

func (s *Server) handleResizeBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	width := getFloat(req, "width", 0)
	if width <= 0 {
		return nil, fmt.Errorf("width must be positive")
	}
	b, err := s.editBlock(ctx, pageID, req.GetString("blockId", ""), func(b *domain.Block) error {
		minW := minWidth(*b)
		maxW := max(minW, PageWidth-b.X)
		w := geometry.Clamp(width, minW, maxW)
		if b.Type == domain.BlockTypeText {
			b.Width = w
			b.Height = max(1, getFloat(req, "height", b.Height))
			if fs := getFloat(req, "fontSize", 0); fs > 0 {
				b.FontSize = geometry.Clamp(fs, minFontSize, maxFontSize)
			}
			return nil
		}
		aspect := geometry.AspectRatio(b.Width, b.Height)
		b.Width, b.Height = w, w/aspect
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resize block: %w", err)
	}
	return jsonResult(summarizeBlock(b))
}

func (s *Server) handleRotateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	deg := getFloat(req, "degrees", 0)
	if !geometry.IsFinite(deg) {
		return nil, fmt.Errorf("degrees must be a finite number")
	}
	b, err := s.editBlock(ctx, pageID, req.GetString("blockId", ""), func(b *domain.Block) error {
		b.Rotation = geometry.NormalizeDegrees(deg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rotate block: %w", err)
	}
	return jsonResult(summarizeBlock(b))
}

func (s *Server) handleBringToFront(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	b, err := s.editBlock(ctx, pageID, req.GetString("blockId", ""), func(*domain.Block) error { return nil })
	if err != nil {
		return nil, fmt.Errorf("bring to front: %w", err)
	}
	return jsonResult(summarizeBlock(b))
}

func (s *Server) handleRemoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID := req.GetString("blockId", "")
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.pages.UpdateContent(ctx, pageID, func(blocks []domain.Block) ([]domain.Block, error) {
		i := indexOfBlock(blocks, blockID)
		if i < 0 {
			return nil, fmt.Errorf("block %s not found on page %d", blockID, pageID)
		}
		return append(blocks[:i], blocks[i+1:]...), nil
	})
	if err != nil {
		return nil, fmt.Errorf("remove block: %w", err)
	}
	return textResult(fmt.Sprintf("Removed block %s", blockID)), nil
}

func (s *Server) handleArrangeBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	startX, startY := getFloat(req, "startX", 0), getFloat(req, "startY", 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.pages.UpdateContent(ctx, pageID, func(blocks []domain.Block) ([]domain.Block, error) {
		repair(blocks)
		return s.layout.ArrangeGroup(blocks, startX, startY), nil
	})
	if err != nil {
		return nil, fmt.Errorf("arrange blocks: %w", err)
	}
	return textResult(fmt.Sprintf("Arranged %d blocks on page %d", len(p.Content), pageID)), nil
}
