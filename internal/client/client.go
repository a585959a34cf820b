// Package client talks to the scrapbook REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scrapbook/internal/domain"
)

// APIError is a non-2xx response. Message is the server's error text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	base string
	http *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func apiError(resp *http.Response, data []byte) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(data, &body) == nil {
		msg = body.Error
		if body.Message != "" {
			msg = body.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

// ── Albums ─────────────────────────────────────────────────

func (c *Client) ListAlbums(ctx context.Context) ([]domain.Album, error) {
	var out struct {
		Albums []domain.Album `json:"albums"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/albums", nil, &out); err != nil {
		return nil, err
	}
	for i := range out.Albums {
		if out.Albums[i].Pages == nil {
			out.Albums[i].Pages = []domain.Page{}
		}
	}
	return out.Albums, nil
}

func (c *Client) CreateAlbum(ctx context.Context, title string) (*domain.Album, error) {
	var out struct {
		Album domain.Album `json:"album"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/albums", map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out.Album, nil
}

func (c *Client) UpdateAlbum(ctx context.Context, id int64, title string) (*domain.Album, error) {
	var out struct {
		Album domain.Album `json:"album"`
	}
	if err := c.do(ctx, http.MethodPut, idPath("/api/albums", id), map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out.Album, nil
}

func (c *Client) DeleteAlbum(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/albums", id), nil, nil)
}

func (c *Client) ReorderPages(ctx context.Context, albumID int64, pageIDs []int64) error {
	body := map[string][]int64{"pageIds": pageIDs}
	return c.do(ctx, http.MethodPut, idPath("/api/albums", albumID)+"/reorder", body, nil)
}

// ── Pages ──────────────────────────────────────────────────

func (c *Client) ListPages(ctx context.Context) ([]domain.Page, error) {
	var out struct {
		Pages []domain.Page `json:"pages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/pages", nil, &out); err != nil {
		return nil, err
	}
	return out.Pages, nil
}

func (c *Client) CreatePage(ctx context.Context, title string, albumID int64) (*domain.Page, error) {
	body := map[string]any{"title": title, "albumId": albumID, "content": []domain.Block{}}
	var out struct {
		Page domain.Page `json:"page"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/pages", body, &out); err != nil {
		return nil, err
	}
	return &out.Page, nil
}

func (c *Client) UpdatePage(ctx context.Context, id int64, u domain.PageUpdate) (*domain.Page, error) {
	var out struct {
		Page domain.Page `json:"page"`
	}
	if err := c.do(ctx, http.MethodPut, idPath("/api/pages", id), u, &out); err != nil {
		return nil, err
	}
	return &out.Page, nil
}

func (c *Client) DeletePage(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/pages", id), nil, nil)
}
