package collector

import (
	"context"
	"log"
	"strings"

	"github.com/mohammad-safakhou/deepscout/internal/fetch"
	"github.com/mohammad-safakhou/deepscout/internal/research"
)

// WebpageCollector turns a caller-supplied URL into a single webpage source.
// It ignores the search query (the URL is the target) and never consults the
// model. With no URL in the options it contributes nothing.
type WebpageCollector struct {
	fetcher fetch.Fetcher
	logger  *log.Logger
}

// NewWebpageCollector creates the webpage collector around a fetcher.
func NewWebpageCollector(fetcher fetch.Fetcher) *WebpageCollector {
	return &WebpageCollector{
		fetcher: fetcher,
		logger:  log.New(log.Writer(), "[WEBPAGE] ", log.LstdFlags),
	}
}

func (w *WebpageCollector) Type() research.SourceType { return research.SourceTypeWebpage }

// Search fetches the target URL and returns exactly one source. A fetch or
// extraction failure still yields the record, with the URL as title and a
// diagnostic body, so the citation the user asked for is never silently
// dropped.
func (w *WebpageCollector) Search(ctx context.Context, query string, opts research.CollectorOptions) ([]research.Source, error) {
	target := opts.URL
	if target == "" && (strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://")) {
		target = query
	}
	if target == "" {
		return nil, nil
	}

	source := research.Source{
		Type:  research.SourceTypeWebpage,
		Title: target,
		URL:   target,
	}

	result, err := w.fetcher.Fetch(ctx, target)
	if err != nil {
		w.logger.Printf("fetch failed for %s: %v", target, err)
		source.Content = "No readable content extracted from: " + target
		return []research.Source{source}, nil
	}

	if result.Title != "" {
		source.Title = result.Title
	}
	if result.Text != "" {
		source.Content = result.Text
	} else {
		source.Content = "No readable content extracted from: " + target
	}
	w.logger.Printf("fetched %s (%d chars, %dms)", target, len(source.Content), result.RenderMS)
	return []research.Source{source}, nil
}

// Enrich is a no-op: the fetch already produced the readable content.
func (w *WebpageCollector) Enrich(ctx context.Context, sources []research.Source, opts research.CollectorOptions) []research.Source {
	return sources
}
