package mcpserver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"scrapbook/internal/domain"
	"scrapbook/internal/service"
)

type pageSummary struct {
	ID       int64  `json:"id"`
	AlbumID  int64  `json:"albumId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Blocks   int    `json:"blocks"`
}

type albumSummary struct {
	ID       int64         `json:"id"`
	Title    string        `json:"title"`
	Position int           `json:"position"`
	Pages    []pageSummary `json:"pages"`
}

func summarizePage(p domain.Page) pageSummary {
	return pageSummary{ID: p.ID, AlbumID: p.AlbumID, Title: p.Title, Position: p.Position, Blocks: len(p.Content)}
}

func summarizeAlbum(a domain.Album) albumSummary {
	out := albumSummary{ID: a.ID, Title: a.Title, Position: a.Position, Pages: make([]pageSummary, len(a.Pages))}
	for i, p := range a.Pages {
		out.Pages[i] = summarizePage(p)
	}
	return out
}

func (s *Server) registerNavigationTools() {
	// ── list_albums ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_albums",
		mcp.WithDescription("List all albums with their pages, in book order"),
	), s.handleListAlbums)

	// ── create_album ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_album",
		mcp.WithDescription("Create a new album at the end of the shelf"),
		mcp.WithString("title", mcp.Description("Album title (optional)")),
	), s.handleCreateAlbum)

	// ── rename_album ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("rename_album",
		mcp.WithDescription("Rename an album"),
		mcp.WithNumber("albumId", mcp.Description("Album ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title"), mcp.Required()),
	), s.handleRenameAlbum)

	// ── delete_album (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_album",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete an album and every page in it"),
		mcp.WithNumber("albumId", mcp.Description("Album ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteAlbum)

	// ── create_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Append a page to an album and make it the active page"),
		mcp.WithNumber("albumId", mcp.Description("Album ID (optional, defaults to the first album)")),
		mcp.WithString("title", mcp.Description("Page title (optional)")),
	), s.handleCreatePage)

	// ── rename_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("rename_page",
		mcp.WithDescription("Rename a page"),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("title", mcp.Description("New title"), mcp.Required()),
	), s.handleRenamePage)

	// ── delete_page (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_page",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a page. The last remaining page cannot be deleted."),
		mcp.WithNumber("pageId", mcp.Description("Page ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeletePage)

	// ── reorder_pages ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reorder_pages",
		mcp.WithDescription("Set the order of pages in an album"),
		mcp.WithNumber("albumId", mcp.Description("Album ID"), mcp.Required()),
		mcp.WithString("pageIds",
			mcp.Description("Comma-separated page IDs in the new order"),
			mcp.Required(),
		),
	), s.handleReorderPages)

	// ── set_active_page ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_page",
		mcp.WithDescription("Set the active page for subsequent tool calls. Tools that accept pageId will default to this."),
		mcp.WithNumber("pageId", mcp.Description("ID of the page to make active"), mcp.Required()),
	), s.handleSetActivePage)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListAlbums(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	albums, err := s.albums.ListAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	out := make([]albumSummary, len(albums))
	for i, a := range albums {
		out[i] = summarizeAlbum(a)
	}
	return jsonResult(out)
}

func (s *Server) handleCreateAlbum(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := s.albums.CreateAlbum(ctx, req.GetString("title", ""))
	if err != nil {
		return nil, err
	}
	return jsonResult(summarizeAlbum(*a))
}

func (s *Server) handleRenameAlbum(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "albumId")
	if err != nil {
		return nil, err
	}
	a, err := s.albums.RenameAlbum(ctx, id, req.GetString("title", ""))
	if err != nil {
		return nil, fmt.Errorf("rename album: %w", err)
	}
	return jsonResult(summarizeAlbum(*a))
}

func (s *Server) handleDeleteAlbum(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "albumId")
	if err != nil {
		return nil, err
	}
	a, err := s.albums.GetAlbum(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete album: %w", err)
	}
	if err := s.albums.DeleteAlbum(ctx, id); err != nil {
		return nil, fmt.Errorf("delete album: %w", err)
	}
	s.mu.Lock()
	for _, p := range a.Pages {
		if p.ID == s.activePageID {
			s.activePageID = 0
		}
	}
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Deleted album %q with %d pages", a.Title, len(a.Pages))), nil
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.pages.CreatePage(ctx, service.NewPage{
		Title:   strings.TrimSpace(req.GetString("title", "")),
		AlbumID: getInt(req, "albumId", 0),
	})
	if err != nil {
		return nil, err
	}
	s.setActivePage(p.ID)
	return jsonResult(summarizePage(*p))
}

func (s *Server) handleRenamePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolvePageID(req)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.GetString("title", ""))
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	p, err := s.pages.UpdatePage(ctx, id, domain.PageUpdate{Title: &title})
	if err != nil {
		return nil, fmt.Errorf("rename page: %w", err)
	}
	return jsonResult(summarizePage(*p))
}

func (s *Server) handleDeletePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "pageId")
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.pages.CountPages(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 1 {
		return nil, ErrLastPage
	}
	if err := s.pages.DeletePage(ctx, id); err != nil {
		return nil, fmt.Errorf("delete page: %w", err)
	}
	if s.activePageID == id {
		s.activePageID = 0
	}
	return textResult(fmt.Sprintf("Deleted page %d", id)), nil
}

func (s *Server) handleReorderPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	albumID, err := requireID(req, "albumId")
	if err != nil {
		return nil, err
	}
	ids, err := parseIDList(req.GetString("pageIds", ""))
	if err != nil {
		return nil, err
	}
	if err := s.albums.ReorderPages(ctx, albumID, ids); err != nil {
		return nil, fmt.Errorf("reorder pages: %w", err)
	}
	a, err := s.albums.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	return jsonResult(summarizeAlbum(*a))
}

func (s *Server) handleSetActivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "pageId")
	if err != nil {
		return nil, err
	}
	p, err := s.pages.GetPage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("set active page: %w", err)
	}
	s.setActivePage(p.ID)
	return textResult(fmt.Sprintf("Active page set to %d (%s)", p.ID, p.Title)), nil
}

// parseIDList splits "3, 1,2" into ids.
func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid page id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("pageIds is required")
	}
	return ids, nil
}
