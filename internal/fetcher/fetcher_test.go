package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T, opts Options) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTPFetcher(opts)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return f
}

func TestFetchReturnsBodyAndFinalURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		w.Write([]byte("<html><title>ok</title></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{UserAgent: "test-agent"})
	page, err := f.Fetch(context.Background(), srv.URL+"/moved")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(string(page.Body), "<title>ok</title>") {
		t.Fatalf("unexpected body %q", page.Body)
	}
	if !strings.HasSuffix(page.FinalURL.String(), "/final") {
		t.Fatalf("final url = %s, want redirect target", page.FinalURL)
	}
}

func TestFetchSetsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{UserAgent: "Mozilla/5.0 test"})
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotUA != "Mozilla/5.0 test" {
		t.Fatalf("user-agent = %q", gotUA)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Fatalf("accept = %q", gotAccept)
	}
}

func TestFetchDecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("compressed payload"))
		gz.Close()
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{})
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(page.Body) != "compressed payload" {
		t.Fatalf("body = %q", page.Body)
	}
}

func TestFetchRetriesNetworkFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("hijacking unsupported")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{Retries: 2, Timeout: 5 * time.Second})
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch after retries: %v", err)
	}
	if string(page.Body) != "recovered" {
		t.Fatalf("body = %q", page.Body)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestFetchHTTPErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{Retries: 2})
	_, err := f.Fetch(context.Background(), srv.URL)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want UpstreamError", err)
	}
	if upstream.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", upstream.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("attempts = %d, HTTP statuses must not be retried", got)
	}
}

func TestFetchExhaustedRetriesWrapsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close() // nothing listening any more

	f := newTestFetcher(t, Options{Retries: 1, Timeout: 2 * time.Second})
	_, err := f.Fetch(context.Background(), addr)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want UpstreamError", err)
	}
	if upstream.StatusCode != 0 {
		t.Fatalf("status = %d, want 0 for network failure", upstream.StatusCode)
	}
}

func TestFetchEnforcesBodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{MaxBodyBytes: 1024})
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestFetchRejectsRelativeURL(t *testing.T) {
	f := newTestFetcher(t, Options{})
	if _, err := f.Fetch(context.Background(), "/just/a/path"); err == nil {
		t.Fatal("expected error for relative url")
	}
}
