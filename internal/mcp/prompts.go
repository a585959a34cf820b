package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("decorate_page",
		mcp.WithPromptDescription("Lay out a scrapbook page around a theme with a title, photos and stickers"),
		mcp.WithArgument("theme",
			mcp.ArgumentDescription("What the page is about, e.g. a trip or a birthday"),
			mcp.RequiredArgument(),
		),
	), s.handleDecoratePagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_album",
		mcp.WithPromptDescription("Review an album and put its pages in a sensible order"),
		mcp.WithArgument("albumId",
			mcp.ArgumentDescription("ID of the album to tidy"),
			mcp.RequiredArgument(),
		),
	), s.handleTidyAlbumPrompt)
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}
}

func (s *Server) handleDecoratePagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	theme := req.Params.Arguments["theme"]
	return userPrompt(fmt.Sprintf("Decorate a page about: %s", theme), fmt.Sprintf(`Decorate the active page as a scrapbook spread about "%s". Follow these steps:

1. Use list_blocks to see what is already on the page
2. Add a text block (add_block type=text) with a short title for "%s"
3. Add two or three sticker blocks with emoji that fit the theme
4. If photos are already on the page, tilt them slightly with rotate_block (between -8 and 8 degrees)

Pages are %.0f wide and %.0f tall. Leave x and y out to let the layout engine find free space.`, theme, theme, PageWidth, PageHeight)), nil
}

func (s *Server) handleTidyAlbumPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	albumID := req.Params.Arguments["albumId"]
	return userPrompt(fmt.Sprintf("Tidy album %s", albumID), fmt.Sprintf(`Tidy album %s:

1. Use list_albums to read the album's pages and their titles
2. Rename pages titled "New Page" or "Untitled Page" after looking at their blocks (set_active_page, list_blocks, rename_page)
3. Call reorder_pages so dated or numbered titles read in order

Never delete pages unless asked; the last page of the scrapbook cannot be deleted.`, albumID)), nil
}
