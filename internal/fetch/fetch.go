// Package fetch retrieves a webpage and reduces it to readable article text.
// Two fetchers are available: a plain HTTP client and a headless browser for
// pages that only render with JavaScript.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	DefaultTimeout  = 45 * time.Second
	MaxCharsDefault = 20000
)

// Result is the readable view of a fetched page.
type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline"`
	Text     string `json:"text"`
	Status   int    `json:"status"`
	RenderMS int    `json:"render_ms"`
}

// Fetcher retrieves one page. Implementations return an error only when the
// page could not be retrieved at all; an unextractable page comes back with
// empty Text and a nil error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Result, error)
}

// Type selects a fetcher implementation.
type Type string

const (
	TypeHTTP     Type = "http"
	TypeChromedp Type = "chromedp"
)

// New builds a fetcher of the given type.
func New(fetcherType Type, timeout time.Duration, maxChars int) (Fetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}

	switch fetcherType {
	case TypeHTTP:
		return &HTTPFetch{Timeout: timeout, MaxChars: maxChars}, nil
	case TypeChromedp:
		return &ChromedpFetch{Timeout: timeout, MaxChars: maxChars}, nil
	default:
		return nil, fmt.Errorf("unsupported fetcher type: %s", fetcherType)
	}
}

// extractReadable runs readability over raw HTML and trims the article text
// to maxChars. Extraction failure is not an error: the caller gets the status
// it already has and an empty text.
func extractReadable(html, rawURL string, maxChars int) (title, byline, text string) {
	article, err := readability.FromReader(strings.NewReader(html), mustParseURL(rawURL))
	if err != nil {
		return "", "", ""
	}
	text = article.TextContent
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return strings.TrimSpace(article.Title), strings.TrimSpace(article.Byline), strings.TrimSpace(text)
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
