package research

import (
	"context"
	"time"
)

// SourceType identifies which collector produced a source.
type SourceType string

const (
	SourceTypePaper   SourceType = "paper"
	SourceTypeVideo   SourceType = "video"
	SourceTypeWebpage SourceType = "webpage"
)

// CollectorPriority is the fixed ordering used everywhere sources from
// different collectors are merged: papers first, then videos, then webpages.
// Aggregation, quota remainders and citation numbering all follow it.
var CollectorPriority = []SourceType{SourceTypePaper, SourceTypeVideo, SourceTypeWebpage}

// Question represents a single research request. It is immutable once issued;
// sub-questions derived from it are carried separately.
type Question struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	DateFrom   string    `json:"date_from,omitempty"` // YYYY-MM-DD
	DateTo     string    `json:"date_to,omitempty"`   // YYYY-MM-DD
	WebpageURL string    `json:"webpage_url,omitempty"`
	MaxSources int       `json:"max_sources"`
	Mode       Mode      `json:"mode"`
	CreatedAt  time.Time `json:"created_at"`
}

// Mode selects between the flat single-pass pipeline and the iterative
// decompose-then-research pipeline.
type Mode string

const (
	ModeDeepSearch   Mode = "deep_search"
	ModeDeepResearch Mode = "deep_research"
)

// Strategy is the research approach chosen for a question: which collectors
// to use and how hard to push them. It is computed once per request and
// passed unchanged into every sub-question pass.
type Strategy struct {
	UsePapers  bool   `json:"use_papers"`
	UseVideos  bool   `json:"use_videos"`
	UseWebpage bool   `json:"use_webpage"`
	Complexity string `json:"complexity"` // simple, medium, complex
	Recency    string `json:"recency"`    // low, medium, high
	Reasoning  string `json:"reasoning"`
}

// Enabled reports whether the given collector kind is switched on.
func (s Strategy) Enabled(t SourceType) bool {
	switch t {
	case SourceTypePaper:
		return s.UsePapers
	case SourceTypeVideo:
		return s.UseVideos
	case SourceTypeWebpage:
		return s.UseWebpage
	}
	return false
}

// DefaultStrategy is what every model failure degrades to: both search
// collectors on, middle-of-the-road effort.
func DefaultStrategy() Strategy {
	return Strategy{
		UsePapers:  true,
		UseVideos:  true,
		Complexity: "medium",
		Recency:    "medium",
		Reasoning:  "Default comprehensive research approach",
	}
}

// Source represents one collected piece of evidence. The Type discriminator
// says which of the optional fields are meaningful: papers carry Summary,
// videos carry Transcript and Channel, webpages carry Content.
type Source struct {
	DisplayIndex int        `json:"display_index"` // dense 1..K, equals the citation number
	Type         SourceType `json:"type"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Summary      string     `json:"summary,omitempty"`
	Transcript   string     `json:"transcript,omitempty"`
	Channel      string     `json:"channel,omitempty"`
	Content      string     `json:"content,omitempty"`
}

// Plan maps each enabled collector kind to its share of the source budget.
type Plan map[SourceType]int

// Quota returns the planned result count for a collector, zero when the
// collector is not part of the plan.
func (p Plan) Quota(t SourceType) int { return p[t] }

// Total returns the sum of all quotas. It is always >= the requested budget
// for a non-empty plan.
func (p Plan) Total() int {
	n := 0
	for _, q := range p {
		n += q
	}
	return n
}

// Report represents the final outcome of a research run.
type Report struct {
	ID             string        `json:"id"`
	Question       Question      `json:"question"`
	Body           string        `json:"body"`
	Sources        []Source      `json:"sources"`
	Strategy       Strategy      `json:"strategy"`
	SubQuestions   []string      `json:"sub_questions,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Collector is the contract every source collector implements. Search returns
// up to opts.MaxResults raw records for a query; Enrich fills in expensive
// per-record detail (e.g. transcripts) and must never drop a record outright.
type Collector interface {
	Type() SourceType
	Search(ctx context.Context, query string, opts CollectorOptions) ([]Source, error)
	Enrich(ctx context.Context, sources []Source, opts CollectorOptions) []Source
}

// QueryDeriver is an optional collector facet: collectors that want a
// source-specific search query (instead of the raw question) implement it.
// A failed derivation falls back to deterministic keyword extraction.
type QueryDeriver interface {
	DeriveQuery(ctx context.Context, question string, opts CollectorOptions) (string, error)
}

// CollectorOptions carries the per-pass knobs shared by all collectors.
type CollectorOptions struct {
	MaxResults      int
	DateFrom        string // YYYY-MM-DD, empty means unbounded
	DateTo          string
	TranscriptLimit int
	URL             string // webpage collector target, empty disables it
}
