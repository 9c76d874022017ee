package collector

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/deepscout/config"
	"github.com/mohammad-safakhou/deepscout/internal/llm"
	"github.com/mohammad-safakhou/deepscout/internal/research"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests can
// substitute an httptest server.
var arxivAPIBase = "http://export.arxiv.org/api/query"

// PaperCollector searches arXiv for academic papers. It derives an
// arXiv-syntax query from the research question via the model; derivation
// failures are handled upstream by falling back to plain keywords.
type PaperCollector struct {
	cfg    config.ArxivConfig
	llm    llm.Client
	http   *HTTPClient
	cache  Cache
	logger *log.Logger
}

// NewPaperCollector creates the arXiv collector. cache may be nil.
func NewPaperCollector(cfg config.ArxivConfig, llmClient llm.Client, httpc *HTTPClient, cache Cache) *PaperCollector {
	return &PaperCollector{
		cfg:    cfg,
		llm:    llmClient,
		http:   httpc,
		cache:  cache,
		logger: log.New(log.Writer(), "[ARXIV] ", log.LstdFlags),
	}
}

func (p *PaperCollector) Type() research.SourceType { return research.SourceTypePaper }

// DeriveQuery asks the model to translate the question into arXiv query
// syntax. The reply is used verbatim after trimming decoration.
func (p *PaperCollector) DeriveQuery(ctx context.Context, question string, opts research.CollectorOptions) (string, error) {
	prompt := fmt.Sprintf(`You are an expert at creating search queries for the arXiv academic database.
Transform the user's question into a concise query string using arXiv's syntax.

- Use prefixes like ti: for title, au: for author, and abs: for abstract.
- Combine keywords with AND, OR. Use quotes for exact phrases.
- Focus on the most critical technical terms.

User Question: "%s"

Return ONLY the query keyword string itself, with no explanations.
Example:
User Question: "What are the latest advancements in using graph neural networks for drug discovery?"
Result: ti:"graph neural network" AND abs:"drug discovery"`, question)

	reply, err := p.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("derive arxiv query: %w", err)
	}
	return trimQueryReply(reply), nil
}

// Search queries the arXiv Atom API, optionally restricted by submission
// date, sorted by relevance descending.
func (p *PaperCollector) Search(ctx context.Context, query string, opts research.CollectorOptions) ([]research.Source, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty arxiv query")
	}

	if opts.DateFrom != "" && opts.DateTo != "" {
		from := strings.ReplaceAll(opts.DateFrom, "-", "")
		to := strings.ReplaceAll(opts.DateTo, "-", "")
		query += fmt.Sprintf(" AND submittedDate:[%s TO %s]", from, to)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = p.cfg.MaxResults
	}

	cacheKey := fmt.Sprintf("arxiv:%s:%d", query, maxResults)
	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx, cacheKey); ok {
			p.logger.Printf("cache hit for query %q", query)
			return cached, nil
		}
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	body, err := p.http.GetBytes(ctx, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing arxiv response: %w", err)
	}

	var sources []research.Source
	for _, entry := range feed.Entries {
		title := cleanText(entry.Title)
		summary := cleanText(entry.Summary)
		link := strings.TrimSpace(entry.ID)
		if title == "" || summary == "" || link == "" {
			continue
		}
		sources = append(sources, research.Source{
			Type:    research.SourceTypePaper,
			Title:   title,
			Summary: summary,
			URL:     link,
		})
	}

	if p.cache != nil && len(sources) > 0 {
		p.cache.Set(ctx, cacheKey, sources)
	}
	p.logger.Printf("found %d papers for query %q", len(sources), query)
	return sources, nil
}

// Enrich is a no-op for papers: the Atom feed already carries everything.
func (p *PaperCollector) Enrich(ctx context.Context, sources []research.Source, opts research.CollectorOptions) []research.Source {
	return sources
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// cleanText flattens newlines, normalizes quotes and collapses runs of
// whitespace so titles and abstracts are safe to embed in prompts and JSON.
func cleanText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, `"`, "'")
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}

// trimQueryReply strips the decoration models like to add around a bare
// query string: code fences, leading "Result:" labels, outer quotes.
func trimQueryReply(reply string) string {
	q := strings.TrimSpace(reply)
	q = strings.TrimPrefix(q, "```")
	q = strings.TrimSuffix(q, "```")
	q = strings.TrimSpace(q)
	if idx := strings.Index(strings.ToLower(q), "result:"); idx == 0 {
		q = strings.TrimSpace(q[len("result:"):])
	}
	// A fully quoted reply is unwrapped; quotes inside stay (exact phrases).
	if len(q) >= 2 && q[0] == '"' && q[len(q)-1] == '"' && strings.Count(q, `"`) == 2 {
		q = q[1 : len(q)-1]
	}
	if nl := strings.IndexByte(q, '\n'); nl >= 0 {
		q = strings.TrimSpace(q[:nl])
	}
	return q
}
