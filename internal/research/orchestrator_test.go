package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeCollector is a scriptable Collector: it can delay, fail, panic or
// produce a fixed number of sources, and records every Search invocation.
type fakeCollector struct {
	kind   SourceType
	delay  time.Duration
	fail   bool
	panics bool

	mu       sync.Mutex
	queries  []string
	searches []CollectorOptions
}

func (f *fakeCollector) Type() SourceType { return f.kind }

func (f *fakeCollector) Search(ctx context.Context, query string, opts CollectorOptions) ([]Source, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.searches = append(f.searches, opts)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panics {
		panic("collector blew up")
	}
	if f.fail {
		return nil, errors.New("upstream unavailable")
	}
	out := make([]Source, 0, opts.MaxResults)
	for i := 0; i < opts.MaxResults; i++ {
		out = append(out, Source{
			Title: fmt.Sprintf("%s result %d", f.kind, i+1),
			URL:   fmt.Sprintf("https://example.com/%s/%d", f.kind, i+1),
		})
	}
	return out, nil
}

func (f *fakeCollector) Enrich(ctx context.Context, sources []Source, opts CollectorOptions) []Source {
	return sources
}

func (f *fakeCollector) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

func (f *fakeCollector) optsAt(t *testing.T, i int) CollectorOptions {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.searches) {
		t.Fatalf("collector %s has %d searches, wanted index %d", f.kind, len(f.searches), i)
	}
	return f.searches[i]
}

func (f *fakeCollector) queryAt(t *testing.T, i int) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.queries) {
		t.Fatalf("collector %s has %d queries, wanted index %d", f.kind, len(f.queries), i)
	}
	return f.queries[i]
}

// fakeDerivingCollector additionally implements QueryDeriver.
type fakeDerivingCollector struct {
	fakeCollector
	derived   string
	deriveErr error
}

func (f *fakeDerivingCollector) DeriveQuery(ctx context.Context, question string, opts CollectorOptions) (string, error) {
	return f.derived, f.deriveErr
}

func allOnStrategy() Strategy {
	return Strategy{UsePapers: true, UseVideos: true, UseWebpage: true, Complexity: "medium", Recency: "medium"}
}

func TestBuildPlanSplitsEvenBudget(t *testing.T) {
	o := NewOrchestrator(Registry{}, 0, nil)
	plan := o.BuildPlan(Strategy{UsePapers: true, UseVideos: true}, 4, false)

	if plan.Quota(SourceTypePaper) != 2 || plan.Quota(SourceTypeVideo) != 2 {
		t.Fatalf("expected 2/2, got %d/%d", plan.Quota(SourceTypePaper), plan.Quota(SourceTypeVideo))
	}
	if plan.Total() != 4 {
		t.Fatalf("expected total 4, got %d", plan.Total())
	}
}

func TestBuildPlanRemainderGoesToFirstInPriority(t *testing.T) {
	o := NewOrchestrator(Registry{}, 0, nil)

	plan := o.BuildPlan(Strategy{UsePapers: true, UseVideos: true}, 5, false)
	if plan.Quota(SourceTypePaper) != 3 || plan.Quota(SourceTypeVideo) != 2 {
		t.Fatalf("expected 3/2, got %d/%d", plan.Quota(SourceTypePaper), plan.Quota(SourceTypeVideo))
	}

	plan = o.BuildPlan(allOnStrategy(), 5, true)
	if plan.Quota(SourceTypePaper) != 3 || plan.Quota(SourceTypeVideo) != 1 || plan.Quota(SourceTypeWebpage) != 1 {
		t.Fatalf("expected 3/1/1, got %d/%d/%d",
			plan.Quota(SourceTypePaper), plan.Quota(SourceTypeVideo), plan.Quota(SourceTypeWebpage))
	}
}

func TestBuildPlanQuotaNeverBelowOne(t *testing.T) {
	o := NewOrchestrator(Registry{}, 0, nil)
	plan := o.BuildPlan(allOnStrategy(), 2, true)

	for _, kind := range CollectorPriority {
		if plan.Quota(kind) != 1 {
			t.Fatalf("expected quota 1 for %s, got %d", kind, plan.Quota(kind))
		}
	}
	if plan.Total() != 3 {
		t.Fatalf("expected total 3 to cover all collectors, got %d", plan.Total())
	}
}

func TestBuildPlanFallsBackToDefaultPair(t *testing.T) {
	o := NewOrchestrator(Registry{}, 0, nil)
	plan := o.BuildPlan(Strategy{}, 4, false)

	if plan.Quota(SourceTypePaper) != 2 || plan.Quota(SourceTypeVideo) != 2 {
		t.Fatalf("expected forced 2/2, got %d/%d", plan.Quota(SourceTypePaper), plan.Quota(SourceTypeVideo))
	}
	if _, ok := plan[SourceTypeWebpage]; ok {
		t.Fatalf("webpage must not appear in the fallback plan")
	}
}

func TestBuildPlanWebpageNeedsStrategyAndURL(t *testing.T) {
	o := NewOrchestrator(Registry{}, 0, nil)

	plan := o.BuildPlan(allOnStrategy(), 4, false)
	if _, ok := plan[SourceTypeWebpage]; ok {
		t.Fatalf("webpage planned without a URL")
	}

	plan = o.BuildPlan(Strategy{UsePapers: true, UseVideos: true}, 4, true)
	if _, ok := plan[SourceTypeWebpage]; ok {
		t.Fatalf("webpage planned although the strategy disabled it")
	}
}

func TestGatherConcatenatesInPriorityOrder(t *testing.T) {
	// The slowest collector comes first in priority; the output order must
	// not change because the others finish earlier.
	paper := &fakeCollector{kind: SourceTypePaper, delay: 40 * time.Millisecond}
	video := &fakeCollector{kind: SourceTypeVideo, delay: 5 * time.Millisecond}
	web := &fakeCollector{kind: SourceTypeWebpage}
	o := NewOrchestrator(Registry{
		SourceTypePaper:   paper,
		SourceTypeVideo:   video,
		SourceTypeWebpage: web,
	}, time.Second, nil)

	sources := o.Gather(context.Background(), "q", allOnStrategy(), 4,
		CollectorOptions{URL: "https://example.com/page"})

	// plan: papers 2, videos 1, webpages 1
	if len(sources) != 4 {
		t.Fatalf("expected 4 sources, got %d", len(sources))
	}
	wantOrder := []SourceType{SourceTypePaper, SourceTypePaper, SourceTypeVideo, SourceTypeWebpage}
	for i, want := range wantOrder {
		if sources[i].Type != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, sources[i].Type)
		}
	}
}

func TestGatherFailingCollectorContributesNothing(t *testing.T) {
	paper := &fakeCollector{kind: SourceTypePaper}
	video := &fakeCollector{kind: SourceTypeVideo, fail: true}
	o := NewOrchestrator(Registry{
		SourceTypePaper: paper,
		SourceTypeVideo: video,
	}, time.Second, nil)

	sources := o.Gather(context.Background(), "q", Strategy{UsePapers: true, UseVideos: true}, 4, CollectorOptions{})

	if len(sources) != 2 {
		t.Fatalf("expected the 2 paper sources to survive, got %d", len(sources))
	}
	for _, src := range sources {
		if src.Type != SourceTypePaper {
			t.Fatalf("expected only paper sources, got %s", src.Type)
		}
	}
	if video.searchCount() != 1 {
		t.Fatalf("expected the failing collector to have been tried once, got %d", video.searchCount())
	}
}

func TestGatherPanickingCollectorIsContained(t *testing.T) {
	paper := &fakeCollector{kind: SourceTypePaper}
	video := &fakeCollector{kind: SourceTypeVideo, panics: true}
	o := NewOrchestrator(Registry{
		SourceTypePaper: paper,
		SourceTypeVideo: video,
	}, time.Second, nil)

	sources := o.Gather(context.Background(), "q", Strategy{UsePapers: true, UseVideos: true}, 4, CollectorOptions{})

	if len(sources) != 2 {
		t.Fatalf("expected 2 paper sources despite the panic, got %d", len(sources))
	}
}

func TestGatherPassesQuotaAndScrubsURL(t *testing.T) {
	paper := &fakeCollector{kind: SourceTypePaper}
	video := &fakeCollector{kind: SourceTypeVideo}
	web := &fakeCollector{kind: SourceTypeWebpage}
	o := NewOrchestrator(Registry{
		SourceTypePaper:   paper,
		SourceTypeVideo:   video,
		SourceTypeWebpage: web,
	}, time.Second, nil)

	o.Gather(context.Background(), "q", allOnStrategy(), 5,
		CollectorOptions{URL: "https://example.com/page", DateFrom: "2024-01-01", DateTo: "2024-06-30"})

	paperOpts := paper.optsAt(t, 0)
	if paperOpts.MaxResults != 3 {
		t.Fatalf("expected paper quota 3, got %d", paperOpts.MaxResults)
	}
	if paperOpts.URL != "" {
		t.Fatalf("expected URL scrubbed for the paper collector, got %q", paperOpts.URL)
	}
	if paperOpts.DateFrom != "2024-01-01" || paperOpts.DateTo != "2024-06-30" {
		t.Fatalf("expected date range passed through, got %q..%q", paperOpts.DateFrom, paperOpts.DateTo)
	}

	if videoOpts := video.optsAt(t, 0); videoOpts.MaxResults != 1 || videoOpts.URL != "" {
		t.Fatalf("unexpected video opts %+v", videoOpts)
	}
	if webOpts := web.optsAt(t, 0); webOpts.MaxResults != 1 || webOpts.URL != "https://example.com/page" {
		t.Fatalf("unexpected webpage opts %+v", webOpts)
	}
}

func TestGatherUsesDerivedQuery(t *testing.T) {
	paper := &fakeDerivingCollector{
		fakeCollector: fakeCollector{kind: SourceTypePaper},
		derived:       "graph neural networks survey",
	}
	o := NewOrchestrator(Registry{SourceTypePaper: paper}, time.Second, nil)

	o.Gather(context.Background(), "What are graph neural networks?", Strategy{UsePapers: true}, 2, CollectorOptions{})

	if got := paper.queryAt(t, 0); got != "graph neural networks survey" {
		t.Fatalf("expected the derived query, got %q", got)
	}
}

func TestGatherFallsBackToKeywordsOnDeriveFailure(t *testing.T) {
	question := "What are the latest advancements in graph neural networks?"
	paper := &fakeDerivingCollector{
		fakeCollector: fakeCollector{kind: SourceTypePaper},
		deriveErr:     errors.New("model down"),
	}
	o := NewOrchestrator(Registry{SourceTypePaper: paper}, time.Second, nil)

	o.Gather(context.Background(), question, Strategy{UsePapers: true}, 2, CollectorOptions{})

	if got, want := paper.queryAt(t, 0), FallbackQuery(question); got != want {
		t.Fatalf("expected keyword fallback %q, got %q", want, got)
	}
}

func TestGatherBlankDerivationFallsBack(t *testing.T) {
	question := "What are the latest advancements in graph neural networks?"
	paper := &fakeDerivingCollector{
		fakeCollector: fakeCollector{kind: SourceTypePaper},
		derived:       "   ",
	}
	o := NewOrchestrator(Registry{SourceTypePaper: paper}, time.Second, nil)

	o.Gather(context.Background(), question, Strategy{UsePapers: true}, 2, CollectorOptions{})

	if got, want := paper.queryAt(t, 0), FallbackQuery(question); got != want {
		t.Fatalf("expected keyword fallback %q, got %q", want, got)
	}
}

func TestGatherNonDerivingCollectorGetsRawQuestion(t *testing.T) {
	web := &fakeCollector{kind: SourceTypeWebpage}
	o := NewOrchestrator(Registry{SourceTypeWebpage: web}, time.Second, nil)

	o.Gather(context.Background(), "the question as typed", allOnStrategy(), 2,
		CollectorOptions{URL: "https://example.com/page"})

	if got := web.queryAt(t, 0); got != "the question as typed" {
		t.Fatalf("expected the raw question, got %q", got)
	}
}

func TestGatherTimeoutDropsSlowCollector(t *testing.T) {
	paper := &fakeCollector{kind: SourceTypePaper, delay: 500 * time.Millisecond}
	video := &fakeCollector{kind: SourceTypeVideo}
	o := NewOrchestrator(Registry{
		SourceTypePaper: paper,
		SourceTypeVideo: video,
	}, 30*time.Millisecond, nil)

	start := time.Now()
	sources := o.Gather(context.Background(), "q", Strategy{UsePapers: true, UseVideos: true}, 2, CollectorOptions{})

	if len(sources) != 1 || sources[0].Type != SourceTypeVideo {
		t.Fatalf("expected only the video source, got %+v", sources)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("gather did not honor the collector timeout, took %v", elapsed)
	}
}

func TestGatherSkipsUnregisteredCollector(t *testing.T) {
	paper := &fakeCollector{kind: SourceTypePaper}
	o := NewOrchestrator(Registry{SourceTypePaper: paper}, time.Second, nil)

	sources := o.Gather(context.Background(), "q", Strategy{UsePapers: true, UseVideos: true}, 4, CollectorOptions{})

	if len(sources) != 2 {
		t.Fatalf("expected 2 paper sources, got %d", len(sources))
	}
}

func TestAssignDisplayIndices(t *testing.T) {
	sources := []Source{
		{Type: SourceTypePaper, Title: "a"},
		{Type: SourceTypeVideo, Title: "b"},
		{Type: SourceTypeWebpage, Title: "c"},
	}
	out := AssignDisplayIndices(sources)

	for i := range out {
		if out[i].DisplayIndex != i+1 {
			t.Fatalf("position %d: expected index %d, got %d", i, i+1, out[i].DisplayIndex)
		}
	}
	if sources[0].DisplayIndex != 1 {
		t.Fatalf("expected in-place assignment")
	}
}
