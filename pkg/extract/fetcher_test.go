package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request missing User-Agent")
		}
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(nil)
	got, err := fetcher.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if got != "<html><body>hello</body></html>" {
		t.Errorf("FetchPage() = %q", got)
	}
}

func TestFetchPageInvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"no scheme", "site.example/page"},
		{"unsupported scheme", "ftp://site.example/page"},
	}

	fetcher := NewFetcher(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fetcher.FetchPage(context.Background(), tt.url)
			var exErr *ExtractError
			if !errors.As(err, &exErr) {
				t.Fatalf("FetchPage() error = %v, want *ExtractError", err)
			}
			if exErr.Type != ErrInvalidURL {
				t.Errorf("error type = %s, want %s", exErr.Type, ErrInvalidURL)
			}
		})
	}
}

// dropConnection kills the client connection without writing a
// response, which the client sees as a transport error.
func dropConnection(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	hj, ok := w.(http.Hijacker)
	if !ok {
		t.Fatal("response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		t.Fatalf("hijack: %v", err)
	}
	conn.Close()
}

func TestFetchPageRetriesOnceOnTransportError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			dropConnection(t, w)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	fetcher := NewFetcher(nil)
	got, err := fetcher.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if got != "recovered" {
		t.Errorf("FetchPage() = %q, want %q", got, "recovered")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server saw %d requests, want 2", n)
	}
}

func TestFetchPageGivesUpAfterRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		dropConnection(t, w)
	}))
	defer server.Close()

	fetcher := NewFetcher(nil)
	_, err := fetcher.FetchPage(context.Background(), server.URL)
	var exErr *ExtractError
	if !errors.As(err, &exErr) {
		t.Fatalf("FetchPage() error = %v, want *ExtractError", err)
	}
	if exErr.Type != ErrConnection {
		t.Errorf("error type = %s, want %s", exErr.Type, ErrConnection)
	}
	if exErr.Suggestion == "" {
		t.Error("connection error should carry a suggestion")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server saw %d requests, want exactly 2", n)
	}
}

func TestFetchPageStatusErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(nil)
	_, err := fetcher.FetchPage(context.Background(), server.URL)
	var exErr *ExtractError
	if !errors.As(err, &exErr) {
		t.Fatalf("FetchPage() error = %v, want *ExtractError", err)
	}
	if !strings.Contains(exErr.Message, "404") {
		t.Errorf("message %q should carry the HTTP status", exErr.Message)
	}
	if strings.Contains(exErr.Message, "could not reach") {
		t.Errorf("message %q should not claim the page was unreachable", exErr.Message)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1 (no retry on a status failure)", n)
	}
}

func TestFetchImage(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg; charset=binary")
		w.Write(payload)
	}))
	defer server.Close()

	fetcher := NewFetcher(nil)
	data, contentType, err := fetcher.FetchImage(context.Background(), server.URL+"/photo.jpg")
	if err != nil {
		t.Fatalf("FetchImage() error = %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("got %d bytes, want %d", len(data), len(payload))
	}
	if contentType != "image/jpeg" {
		t.Errorf("content type = %q, want %q", contentType, "image/jpeg")
	}
}

func TestFetchImageNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	fetcher := NewFetcher(nil)
	_, _, err := fetcher.FetchImage(context.Background(), server.URL+"/missing.jpg")
	var exErr *ExtractError
	if !errors.As(err, &exErr) {
		t.Fatalf("FetchImage() error = %v, want *ExtractError", err)
	}
	if exErr.Type != ErrImageLoad {
		t.Errorf("error type = %s, want %s", exErr.Type, ErrImageLoad)
	}
}
