package editor

import (
	"context"
	"errors"
	"fmt"

	"scrapbook/internal/client"
	"scrapbook/internal/domain"
)

// persist sends the page's full state to the server. The response updates
// identity and placement but never replaces local content.
func (e *Editor) persist(ctx context.Context, pageID int64) error {
	p, ok := e.store.Page(pageID)
	if !ok {
		return nil
	}
	saved, err := e.api.UpdatePage(ctx, pageID, domain.PageUpdate{
		Title:    &p.Title,
		Content:  &p.Content,
		Position: &p.Position,
		AlbumID:  &p.AlbumID,
	})
	if err != nil {
		return fmt.Errorf("save page %d: %w", pageID, err)
	}
	e.store.SyncPage(*saved)
	return nil
}

// errMessage prefers the server's message for API errors.
func errMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
