package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"scrapbook/internal/domain"
	"scrapbook/internal/service"
)

// ── Albums ─────────────────────────────────────────────────

func (s *Server) listAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := s.albums.ListAlbums(r.Context())
	if err != nil {
		s.fail(w, r, err, "", "Unable to fetch albums")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"albums": albums})
}

func (s *Server) createAlbum(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	title, _ := stringField(fields, "title")
	album, err := s.albums.CreateAlbum(r.Context(), title)
	if err != nil {
		s.fail(w, r, err, "", "Unable to create album")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"album": album})
}

func (s *Server) updateAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid album id")
		return
	}
	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	title, _ := stringField(fields, "title")
	album, err := s.albums.RenameAlbum(r.Context(), id, title)
	if err != nil {
		s.fail(w, r, err, "Album not found", "Unable to update album")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"album": album})
}

func (s *Server) deleteAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid album id")
		return
	}
	if err := s.albums.DeleteAlbum(r.Context(), id); err != nil {
		s.fail(w, r, err, "Album not found", "Unable to delete album")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) reorderPages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid album id")
		return
	}
	var body struct {
		PageIDs []int64 `json:"pageIds"`
	}
	fields, err := readFields(w, r)
	if err == nil {
		if raw, ok := fields["pageIds"]; ok {
			err = json.Unmarshal(raw, &body.PageIDs)
		}
	}
	if err != nil || len(body.PageIDs) == 0 {
		writeError(w, http.StatusBadRequest, "pageIds array is required")
		return
	}
	if err := s.albums.ReorderPages(r.Context(), id, body.PageIDs); err != nil {
		s.fail(w, r, err, "Album not found", "Failed to reorder pages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ── Pages ──────────────────────────────────────────────────

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.pages.ListPages(r.Context())
	if err != nil {
		s.fail(w, r, err, "", "Unable to fetch pages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

func (s *Server) createPage(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	in := service.NewPage{}
	if title, ok := stringField(fields, "title"); ok {
		in.Title = strings.TrimSpace(title)
	}
	if albumID, ok := idField(fields, "albumId"); ok {
		in.AlbumID = albumID
	}
	if raw, ok := fields["content"]; ok {
		in.Content = domain.ParseContent(raw)
	}
	page, err := s.pages.CreatePage(r.Context(), in)
	if err != nil {
		s.fail(w, r, err, "", "Unable to create page")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"page": page})
}

func (s *Server) updatePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid page id")
		return
	}
	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var u domain.PageUpdate
	if _, present := fields["title"]; present {
		title := domain.DefaultPageTitle
		if v, ok := stringField(fields, "title"); ok {
			title = strings.TrimSpace(v)
		}
		u.Title = &title
	}
	if raw, present := fields["content"]; present {
		content := domain.ParseContent(raw)
		u.Content = &content
	}
	if pos, ok := intField(fields, "position"); ok {
		p := int(pos)
		u.Position = &p
	}
	if albumID, ok := idField(fields, "albumId"); ok {
		u.AlbumID = &albumID
	}

	page, err := s.pages.UpdatePage(r.Context(), id, u)
	if err != nil {
		s.fail(w, r, err, "Page not found", "Failed to update page")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": page})
}

func (s *Server) deletePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid page id")
		return
	}
	if err := s.pages.DeletePage(r.Context(), id); err != nil {
		s.fail(w, r, err, "Page not found", "Failed to delete page")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
