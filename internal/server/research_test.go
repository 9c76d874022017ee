package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/deepscout/config"
	"github.com/mohammad-safakhou/deepscout/internal/research"
)

// stubModel answers every pipeline prompt by recognizing it.
type stubModel struct {
	mu      sync.Mutex
	prompts []string
}

func (s *stubModel) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	switch {
	case strings.Contains(prompt, "Respond in this exact format"):
		return "ArXiv: yes\nYouTube: yes\nComplexity: medium\nRecency: medium\nReasoning: test", nil
	case strings.Contains(prompt, `"sub_questions"`):
		return `{"sub_questions": ["first facet?", "second facet?"]}`, nil
	case strings.Contains(prompt, "meticulous research analyst"):
		return "Service reply [1]", nil
	case strings.Contains(prompt, "expert research analyst"):
		return "Deep service reply [1]", nil
	}
	return "", errors.New("unexpected prompt")
}

func (s *stubModel) Model() string { return "stub-model" }

// recordingCollector produces its full quota and records each invocation.
type recordingCollector struct {
	kind research.SourceType
	mu   sync.Mutex
	opts []research.CollectorOptions
}

func (r *recordingCollector) Type() research.SourceType { return r.kind }

func (r *recordingCollector) Search(ctx context.Context, query string, opts research.CollectorOptions) ([]research.Source, error) {
	r.mu.Lock()
	r.opts = append(r.opts, opts)
	r.mu.Unlock()
	out := make([]research.Source, 0, opts.MaxResults)
	for i := 0; i < opts.MaxResults; i++ {
		out = append(out, research.Source{
			Title: fmt.Sprintf("%s %d", r.kind, i+1),
			URL:   fmt.Sprintf("https://example.com/%s/%d", r.kind, i+1),
		})
	}
	return out, nil
}

func (r *recordingCollector) Enrich(ctx context.Context, sources []research.Source, opts research.CollectorOptions) []research.Source {
	return sources
}

func (r *recordingCollector) lastOpts(t *testing.T) research.CollectorOptions {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.opts) == 0 {
		t.Fatalf("collector %s was never invoked", r.kind)
	}
	return r.opts[len(r.opts)-1]
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{Backend: "gemini", Model: "gemini-2.5-flash"},
		Research: config.ResearchConfig{
			DefaultMaxSources: 4,
			MaxSubQuestions:   5,
			CollectorTimeout:  time.Second,
			TranscriptLimit:   3000,
		},
	}
}

func newTestHandler() (*ResearchHandler, *recordingCollector, *recordingCollector) {
	paper := &recordingCollector{kind: research.SourceTypePaper}
	video := &recordingCollector{kind: research.SourceTypeVideo}
	cfg := testConfig()
	engine := research.NewEngine(cfg, &stubModel{}, research.Registry{
		research.SourceTypePaper: paper,
		research.SourceTypeVideo: video,
	}, nil)
	return &ResearchHandler{Engine: engine, Cfg: cfg}, paper, video
}

func postResearch(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/research", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestResearchEndpointAnswersQuestion(t *testing.T) {
	h, paper, video := newTestHandler()
	ctx, rec := postResearch(`{"question": "What is WebAssembly?"}`)

	if err := h.research(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ResearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.HasPrefix(resp.Result, "Service reply [1]") {
		t.Fatalf("unexpected result %q", resp.Result)
	}
	if !strings.Contains(resp.Result, "## Sources") {
		t.Fatalf("expected the source list in the result, got %q", resp.Result)
	}

	// Default budget 4 split across both collectors.
	if got := paper.lastOpts(t).MaxResults; got != 2 {
		t.Fatalf("expected paper quota 2, got %d", got)
	}
	if got := video.lastOpts(t).MaxResults; got != 2 {
		t.Fatalf("expected video quota 2, got %d", got)
	}
}

func TestResearchEndpointRequiresQuestion(t *testing.T) {
	h, _, _ := newTestHandler()

	for _, body := range []string{`{}`, `{"question": "   "}`} {
		ctx, _ := postResearch(body)
		err := h.research(ctx)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %v", body, err)
		}
		if he.Message != "No question provided" {
			t.Fatalf("unexpected message %v", he.Message)
		}
	}
}

func TestResearchEndpointRejectsMalformedBody(t *testing.T) {
	h, _, _ := newTestHandler()
	ctx, _ := postResearch(`{"maxSources": "many"}`)

	err := h.research(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed body, got %v", err)
	}
}

func TestResearchEndpointRejectsUnknownMode(t *testing.T) {
	h, _, _ := newTestHandler()
	ctx, _ := postResearch(`{"question": "q", "mode": "turbo"}`)

	err := h.research(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown mode, got %v", err)
	}
	if msg, ok := he.Message.(string); !ok || !strings.Contains(msg, "unknown mode") {
		t.Fatalf("unexpected message %v", he.Message)
	}
}

func TestResearchEndpointClampsMaxSources(t *testing.T) {
	h, paper, _ := newTestHandler()

	ctx, rec := postResearch(`{"question": "q", "maxSources": 99}`)
	if err := h.research(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := paper.lastOpts(t).MaxResults; got != 5 {
		t.Fatalf("expected budget clamped to 10 and split 5/5, got paper quota %d", got)
	}

	ctx, _ = postResearch(`{"question": "q", "maxSources": -3}`)
	if err := h.research(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := paper.lastOpts(t).MaxResults; got != 1 {
		t.Fatalf("expected budget raised to 1, got paper quota %d", got)
	}
}

func TestResearchEndpointDeepMode(t *testing.T) {
	h, paper, _ := newTestHandler()
	ctx, rec := postResearch(`{"question": "q", "mode": "deep_research", "maxSources": 4}`)

	if err := h.research(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ResearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.HasPrefix(resp.Result, "Deep service reply [1]") {
		t.Fatalf("unexpected result %q", resp.Result)
	}
	if !strings.Contains(resp.Result, "<h2 id='sources'>Sources</h2>") {
		t.Fatalf("expected the deep source heading, got %q", resp.Result)
	}

	// Two sub-questions, one pass each.
	paper.mu.Lock()
	passes := len(paper.opts)
	paper.mu.Unlock()
	if passes != 2 {
		t.Fatalf("expected 2 collector passes, got %d", passes)
	}
}

func TestResearchEndpointAcceptsFormEncoding(t *testing.T) {
	h, _, _ := newTestHandler()
	e := echo.New()
	form := "question=What+is+Go%3F&mode=deep_search"
	req := httptest.NewRequest(http.MethodPost, "/research", strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()

	if err := h.research(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _, _ := newTestHandler()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	if err := h.health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "healthy" || resp.Version != version {
		t.Fatalf("unexpected health payload %+v", resp)
	}
	if len(resp.Modes) != 2 || resp.Modes[0] != "deep_search" || resp.Modes[1] != "deep_research" {
		t.Fatalf("unexpected modes %v", resp.Modes)
	}
	if resp.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model %q", resp.Model)
	}
	if len(resp.Collectors) != 3 {
		t.Fatalf("unexpected collectors %v", resp.Collectors)
	}
}
