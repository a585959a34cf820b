package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"scrapbook/internal/api"
	"scrapbook/internal/domain"
	"scrapbook/internal/service"
	"scrapbook/internal/storage"
)

type testServer struct {
	*httptest.Server
	metrics *api.Metrics
}

func newTestServer(t *testing.T, staticDir string) *testServer {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Options{
		Driver: storage.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "api.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	metrics := api.NewMetrics(reg)
	albumStore := storage.NewAlbumStore(db)
	pageStore := storage.NewPageStore(db)
	srv := api.New(api.Options{
		Albums:    service.NewAlbumService(albumStore, pageStore, metrics),
		Pages:     service.NewPageService(albumStore, pageStore, metrics),
		Metrics:   metrics,
		Gatherer:  reg,
		StaticDir: staticDir,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, metrics: metrics}
}

func (ts *testServer) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type albumResp struct {
	Album domain.Album `json:"album"`
}

type pageResp struct {
	Page domain.Page `json:"page"`
}

type errResp struct {
	Error string `json:"error"`
}

func TestAlbumEndpoints(t *testing.T) {
	ts := newTestServer(t, "")

	var created albumResp
	if code := ts.do(t, "POST", "/api/albums", `{"title":"  "}`, &created); code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.Album.Title != "New Album" || created.Album.Position != 0 {
		t.Errorf("created = %+v", created.Album)
	}

	var e errResp
	if code := ts.do(t, "PUT", "/api/albums/"+itoa(created.Album.ID), `{"title":" "}`, &e); code != http.StatusBadRequest {
		t.Errorf("blank rename status = %d, want 400", code)
	}
	if e.Error != "Album title is required" {
		t.Errorf("error = %q", e.Error)
	}
	if code := ts.do(t, "PUT", "/api/albums/9999", `{"title":"x"}`, &e); code != http.StatusNotFound {
		t.Errorf("missing rename status = %d, want 404", code)
	}
	if code := ts.do(t, "PUT", "/api/albums/abc", `{"title":"x"}`, &e); code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", code)
	}
	if code := ts.do(t, "DELETE", "/api/albums/-3", "", &e); code != http.StatusBadRequest {
		t.Errorf("negative id status = %d, want 400", code)
	}

	var renamed albumResp
	if code := ts.do(t, "PUT", "/api/albums/"+itoa(created.Album.ID), `{"title":"Trip"}`, &renamed); code != http.StatusOK {
		t.Fatalf("rename status = %d", code)
	}
	if renamed.Album.Title != "Trip" {
		t.Errorf("renamed = %+v", renamed.Album)
	}

	var second, third albumResp
	ts.do(t, "POST", "/api/albums", `{"title":"B"}`, &second)
	ts.do(t, "POST", "/api/albums", `{"title":"C"}`, &third)
	if code := ts.do(t, "DELETE", "/api/albums/"+itoa(created.Album.ID), "", nil); code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}

	var list struct {
		Albums []domain.Album `json:"albums"`
	}
	ts.do(t, "GET", "/api/albums", "", &list)
	if len(list.Albums) != 2 {
		t.Fatalf("albums = %d, want 2", len(list.Albums))
	}
	for i, a := range list.Albums {
		if a.Position != i {
			t.Errorf("album %q position = %d, want %d", a.Title, a.Position, i)
		}
	}
}

func TestPageEndpoints(t *testing.T) {
	ts := newTestServer(t, "")

	var page pageResp
	if code := ts.do(t, "POST", "/api/pages", `{"title":"","albumId":"42"}`, &page); code != http.StatusCreated {
		t.Fatalf("create page status = %d", code)
	}
	if page.Page.Title != "Untitled Page" || page.Page.AlbumID == 0 || len(page.Page.Content) != 0 {
		t.Errorf("page = %+v", page.Page)
	}

	var e errResp
	if code := ts.do(t, "PUT", "/api/pages/"+itoa(page.Page.ID), `{"bogus":1}`, &e); code != http.StatusBadRequest {
		t.Errorf("empty update status = %d, want 400", code)
	}
	if e.Error != "No valid fields to update" {
		t.Errorf("error = %q", e.Error)
	}
	if code := ts.do(t, "PUT", "/api/pages/0", `{"title":"x"}`, &e); code != http.StatusBadRequest {
		t.Errorf("zero id status = %d, want 400", code)
	}
	if code := ts.do(t, "PUT", "/api/pages/777", `{"title":"x"}`, &e); code != http.StatusNotFound {
		t.Errorf("missing page status = %d, want 404", code)
	}

	body := `{"title":"Day 1","content":"[{\"id\":\"b1\",\"type\":\"text\",\"value\":\"Hi\",\"x\":5}]","position":0}`
	var updated pageResp
	if code := ts.do(t, "PUT", "/api/pages/"+itoa(page.Page.ID), body, &updated); code != http.StatusOK {
		t.Fatalf("update status = %d", code)
	}
	if updated.Page.Title != "Day 1" || len(updated.Page.Content) != 1 {
		t.Fatalf("updated = %+v", updated.Page)
	}
	if v := updated.Page.Content[0].Value.Text; v == nil || v.Text != "Hi" || v.FontFamily != "Outfit" {
		t.Errorf("legacy value not migrated: %+v", updated.Page.Content[0].Value)
	}

	var garbage pageResp
	ts.do(t, "PUT", "/api/pages/"+itoa(page.Page.ID), `{"content":{"not":"an array"}}`, &garbage)
	if len(garbage.Page.Content) != 0 {
		t.Errorf("malformed content kept: %+v", garbage.Page.Content)
	}

	var pages struct {
		Pages []domain.Page `json:"pages"`
	}
	ts.do(t, "GET", "/api/pages", "", &pages)
	if len(pages.Pages) != 1 {
		t.Errorf("pages = %d, want 1", len(pages.Pages))
	}

	if code := ts.do(t, "DELETE", "/api/pages/"+itoa(page.Page.ID), "", nil); code != http.StatusOK {
		t.Errorf("delete status = %d", code)
	}
	if code := ts.do(t, "DELETE", "/api/pages/"+itoa(page.Page.ID), "", &e); code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", code)
	}

	if got := testutil.ToFloat64(ts.metrics.Mutations().WithLabelValues(service.EventPageDeleted)); got != 1 {
		t.Errorf("page deleted mutations = %v, want 1", got)
	}
}

func TestReorderEndpoint(t *testing.T) {
	ts := newTestServer(t, "")
	var album albumResp
	ts.do(t, "POST", "/api/albums", `{"title":"A"}`, &album)
	var p0, p1 pageResp
	ts.do(t, "POST", "/api/pages", `{"title":"p0","albumId":`+itoa(album.Album.ID)+`}`, &p0)
	ts.do(t, "POST", "/api/pages", `{"title":"p1","albumId":`+itoa(album.Album.ID)+`}`, &p1)

	var e errResp
	if code := ts.do(t, "PUT", "/api/albums/"+itoa(album.Album.ID)+"/reorder", `{"pageIds":[]}`, &e); code != http.StatusBadRequest {
		t.Errorf("empty reorder status = %d, want 400", code)
	}
	body := `{"pageIds":[` + itoa(p1.Page.ID) + `,` + itoa(p0.Page.ID) + `]}`
	if code := ts.do(t, "PUT", "/api/albums/"+itoa(album.Album.ID)+"/reorder", body, nil); code != http.StatusOK {
		t.Fatalf("reorder status = %d", code)
	}

	var list struct {
		Albums []domain.Album `json:"albums"`
	}
	ts.do(t, "GET", "/api/albums", "", &list)
	pages := list.Albums[0].Pages
	if len(pages) != 2 || pages[0].Title != "p1" || pages[1].Title != "p0" {
		t.Errorf("pages after reorder = %+v", pages)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, "")
	if code := ts.do(t, "GET", "/healthz", "", nil); code != http.StatusOK {
		t.Errorf("healthz status = %d", code)
	}
	ts.do(t, "GET", "/api/albums", "", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "scrapbook_http_requests_total") {
		t.Errorf("metrics output missing request counter")
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0644)
	os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0644)
	ts := newTestServer(t, dir)

	for path, want := range map[string]string{
		"/app.js":        "console.log(1)",
		"/albums/3/page": "<html>app</html>",
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(data) != want {
			t.Errorf("GET %s = %q, want %q", path, data, want)
		}
	}

	var e errResp
	if code := ts.do(t, "GET", "/api/nope", "", &e); code != http.StatusNotFound {
		t.Errorf("unknown api route status = %d, want 404", code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
