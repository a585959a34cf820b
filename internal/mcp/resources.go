package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	albumsURI     = "scrapbook://albums"
	pagePrefixURI = "scrapbook://page/"
)

func (s *Server) registerResources() {
	// ── scrapbook://albums ─────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		albumsURI,
		"All Albums",
		mcp.WithMIMEType("application/json"),
	), s.handleAlbumsResource)

	// ── scrapbook://page/{pageId}/blocks ───────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pagePrefixURI+"{pageId}/blocks",
			"Blocks on a Page",
		),
		s.handlePageBlocksResource,
	)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleAlbumsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	albums, err := s.albums.ListAlbums(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]albumSummary, len(albums))
	for i, a := range albums {
		out[i] = summarizeAlbum(a)
	}
	return jsonResource(albumsURI, out)
}

func (s *Server) handlePageBlocksResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID, ok := pageIDFromURI(uri)
	if !ok {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}
	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	out := make([]blockSummary, len(p.Content))
	for i, b := range p.Content {
		out[i] = summarizeBlock(b)
	}
	return jsonResource(uri, out)
}

// pageIDFromURI extracts 12 from "scrapbook://page/12/blocks".
func pageIDFromURI(uri string) (int64, bool) {
	rest, ok := strings.CutPrefix(uri, pagePrefixURI)
	if !ok {
		return 0, false
	}
	raw, ok := strings.CutSuffix(rest, "/blocks")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
