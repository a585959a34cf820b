// Package mcpserver exposes albums, pages and blocks to AI agents over the
// Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"scrapbook/internal/domain"
	"scrapbook/internal/service"
)

// ErrLastPage is returned by delete_page when only one page is left.
var ErrLastPage = errors.New("at least one page must remain")

// Server is the MCP server for the scrapbook.
type Server struct {
	mcp    *server.MCPServer
	layout *LayoutEngine
	logger *log.Logger

	albums *service.AlbumService
	pages  *service.PageService

	// mu serializes read-modify-write cycles on page content.
	mu           sync.Mutex
	activePageID int64
}

type Deps struct {
	Albums *service.AlbumService
	Pages  *service.PageService
	Logger *log.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		layout: NewLayoutEngine(),
		logger: logger.WithPrefix("mcp"),
		albums: deps.Albums,
		pages:  deps.Pages,
	}

	s.mcp = server.NewMCPServer(
		"scrapbook-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerNavigationTools()
	s.registerBlockTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// getFloat reads a numeric argument. JSON numbers arrive as float64.
func getFloat(req mcp.CallToolRequest, key string, fallback float64) float64 {
	if v, ok := req.GetArguments()[key].(float64); ok {
		return v
	}
	return fallback
}

// getInt also accepts ids sent as strings.
func getInt(req mcp.CallToolRequest, key string, fallback int64) int64 {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// requireID reads a positive integer id argument.
func requireID(req mcp.CallToolRequest, key string) (int64, error) {
	id := getInt(req, key, 0)
	if id <= 0 {
		return 0, fmt.Errorf("%s is required", key)
	}
	return id, nil
}

// resolvePageID returns the pageId argument or falls back to the active page.
func (s *Server) resolvePageID(req mcp.CallToolRequest) (int64, error) {
	if id := getInt(req, "pageId", 0); id > 0 {
		return id, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePageID != 0 {
		return s.activePageID, nil
	}
	return 0, fmt.Errorf("no pageId provided and no active page set (use set_active_page first)")
}

func (s *Server) setActivePage(id int64) {
	s.mu.Lock()
	s.activePageID = id
	s.mu.Unlock()
}

// editBlock applies fn to one block and raises it above everything else on
// the page. The updated block is returned.
func (s *Server) editBlock(ctx context.Context, pageID int64, blockID string, fn func(b *domain.Block) error) (domain.Block, error) {
	if blockID == "" {
		return domain.Block{}, fmt.Errorf("blockId is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out domain.Block
	_, err := s.pages.UpdateContent(ctx, pageID, func(blocks []domain.Block) ([]domain.Block, error) {
		i := indexOfBlock(blocks, blockID)
		if i < 0 {
			return nil, fmt.Errorf("block %s not found on page %d", blockID, pageID)
		}
		z := repair(blocks)
		if err := fn(&blocks[i]); err != nil {
			return nil, err
		}
		blocks[i].Z = z.Next()
		out = blocks[i].Clone()
		return blocks, nil
	})
	return out, err
}

func indexOfBlock(blocks []domain.Block, id string) int {
	for i := range blocks {
		if blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// repair fills in missing geometry the same way the editor does on render
// and returns a counter sitting at the page's highest z.
func repair(blocks []domain.Block) *domain.ZCounter {
	z := domain.NewZCounter()
	z.Raise(domain.MaxZ([]domain.Page{{Content: blocks}}))
	for i := range blocks {
		domain.EnsureLayout(&blocks[i], z, nil)
	}
	return z
}
