package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"scrapbook/internal/domain"
)

func TestAPIErrorCarriesMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Album title is required"}`))
	}))
	defer ts.Close()

	_, err := New(ts.URL).UpdateAlbum(context.Background(), 1, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "Album title is required" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestAPIErrorPrefersMessageField(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
		w.Write([]byte(`{"error":"Database not configured","message":"running without a database"}`))
	}))
	defer ts.Close()

	err := New(ts.URL).DeletePage(context.Background(), 3)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "running without a database" {
		t.Errorf("err = %v", err)
	}
}

func TestNotFoundWithoutBody(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	err := New(ts.URL).DeleteAlbum(context.Background(), 9)
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
}

func TestUpdatePageSendsOnlySetFields(t *testing.T) {
	var got map[string]json.RawMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/pages/12" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &got)
		w.Write([]byte(`{"page":{"id":12,"album_id":4,"title":"T","position":2,"content":[]}}`))
	}))
	defer ts.Close()

	title := "T"
	content := []domain.Block{}
	page, err := New(ts.URL).UpdatePage(context.Background(), 12, domain.PageUpdate{Title: &title, Content: &content})
	if err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}
	if _, ok := got["position"]; ok {
		t.Error("unset position was sent")
	}
	if string(got["content"]) != "[]" {
		t.Errorf("content = %s, want []", got["content"])
	}
	if page.AlbumID != 4 || page.Position != 2 {
		t.Errorf("page = %+v", page)
	}
}
