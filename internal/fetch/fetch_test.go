package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Go Concurrency Patterns</title></head>
<body>
<article>
<h1>Go Concurrency Patterns</h1>
<p>Goroutines are lightweight threads managed by the Go runtime. They make it
practical to structure a program as a collection of independently executing
functions that communicate through channels rather than shared memory.</p>
<p>Channels carry values between goroutines and double as synchronization
points. A send blocks until a receiver is ready, which gives programs a
natural backpressure mechanism without explicit locks or condition
variables.</p>
<p>The select statement completes the picture. It lets a goroutine wait on
multiple channel operations at once and react to whichever becomes ready
first, which is the foundation of timeouts, cancellation and fan-in
patterns.</p>
</article>
</body>
</html>`

func TestNewSelectsFetcher(t *testing.T) {
	f, err := New(TypeHTTP, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hf, ok := f.(*HTTPFetch)
	if !ok {
		t.Fatalf("expected an HTTP fetcher, got %T", f)
	}
	if hf.Timeout != DefaultTimeout || hf.MaxChars != MaxCharsDefault {
		t.Fatalf("expected defaults applied, got %+v", hf)
	}

	f, err = New(TypeChromedp, time.Second, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.(*ChromedpFetch); !ok {
		t.Fatalf("expected a chromedp fetcher, got %T", f)
	}

	if _, err := New(Type("lynx"), 0, 0); err == nil {
		t.Fatalf("expected an error for an unsupported fetcher type")
	}
}

func TestHTTPFetchExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := &HTTPFetch{Timeout: 5 * time.Second, MaxChars: 20000}
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Status)
	}
	if res.URL != srv.URL {
		t.Fatalf("expected the request URL echoed, got %q", res.URL)
	}
	if !strings.Contains(res.Title, "Go Concurrency Patterns") {
		t.Fatalf("unexpected title %q", res.Title)
	}
	if !strings.Contains(res.Text, "lightweight threads") {
		t.Fatalf("expected article text, got %q", res.Text)
	}
	if strings.Contains(res.Text, "<p>") {
		t.Fatalf("expected markup stripped, got %q", res.Text)
	}
}

func TestHTTPFetchTruncatesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := &HTTPFetch{Timeout: 5 * time.Second, MaxChars: 60}
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Text) > 60 {
		t.Fatalf("expected text capped at 60 chars, got %d", len(res.Text))
	}
}

func TestHTTPFetchRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := &HTTPFetch{Timeout: 5 * time.Second, MaxChars: 1000}
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected an error for a 404 page")
	}
}

func TestHTTPFetchRejectsEmptyURL(t *testing.T) {
	f := &HTTPFetch{Timeout: time.Second, MaxChars: 1000}
	if _, err := f.Fetch(context.Background(), "  "); err == nil {
		t.Fatalf("expected an error for an empty URL")
	}
}
