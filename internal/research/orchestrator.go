package research

import (
	"context"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/deepscout/internal/telemetry"
)

var orchestratorTracer trace.Tracer = otel.Tracer("deepscout/internal/research/orchestrator")

// Registry holds the closed set of collectors, keyed by the source type they
// produce. Wiring registers paper, video and webpage collectors at startup;
// nothing is added at runtime.
type Registry map[SourceType]Collector

// Orchestrator runs one research pass: compute the plan from the strategy,
// fan out over the enabled collectors concurrently, and aggregate their
// results deterministically. A failing collector contributes zero sources
// and never aborts the pass.
type Orchestrator struct {
	registry  Registry
	timeout   time.Duration
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewOrchestrator creates an orchestrator over the given collector registry.
// timeout bounds each collector individually, not the pass as a whole.
func NewOrchestrator(registry Registry, timeout time.Duration, tel *telemetry.Telemetry) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		timeout:   timeout,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
	}
}

// BuildPlan computes the active collector set and splits the source budget
// across it. Every enabled collector gets max(1, budget/activeCount); the
// integer-division remainder goes to the first enabled collector in priority
// order, so the quota sum always covers the budget. A strategy that enables
// nothing falls back to papers plus videos rather than dead-ending the pass.
func (o *Orchestrator) BuildPlan(strategy Strategy, budget int, hasWebpageURL bool) Plan {
	var active []SourceType
	for _, kind := range CollectorPriority {
		if kind == SourceTypeWebpage {
			if strategy.UseWebpage && hasWebpageURL {
				active = append(active, kind)
			}
			continue
		}
		if strategy.Enabled(kind) {
			active = append(active, kind)
		}
	}
	if len(active) == 0 {
		active = []SourceType{SourceTypePaper, SourceTypeVideo}
	}

	base := budget / len(active)
	if base < 1 {
		base = 1
	}
	plan := Plan{}
	for _, kind := range active {
		plan[kind] = base
	}
	if rem := budget - base*len(active); rem > 0 {
		plan[active[0]] += rem
	}
	return plan
}

// Gather executes one pass for a single (sub-)question. Collectors run
// concurrently; results are concatenated strictly in collector-priority
// order, so the output sequence does not depend on which collector finished
// first. Display indices are not assigned here; the caller numbers the
// final aggregate.
func (o *Orchestrator) Gather(ctx context.Context, question string, strategy Strategy, budget int, opts CollectorOptions) []Source {
	ctx, span := orchestratorTracer.Start(ctx, "research.gather",
		trace.WithAttributes(
			attribute.String("question", truncateAttr(question)),
			attribute.Int("budget", budget),
		))
	defer span.End()

	plan := o.BuildPlan(strategy, budget, opts.URL != "")
	o.logger.Printf("plan for %q: papers=%d videos=%d webpages=%d",
		truncateAttr(question), plan.Quota(SourceTypePaper), plan.Quota(SourceTypeVideo), plan.Quota(SourceTypeWebpage))

	// Launch in priority order and join in the same order: each task owns
	// one slot, the concatenation below is the only merge point.
	var tasks []*collectorTask
	for _, kind := range CollectorPriority {
		quota, ok := plan[kind]
		if !ok {
			continue
		}
		c, registered := o.registry[kind]
		if !registered {
			o.logger.Printf("no %s collector registered, skipping", kind)
			continue
		}
		copts := opts
		copts.MaxResults = quota
		if kind != SourceTypeWebpage {
			copts.URL = ""
		}
		collector := c
		taskKind := kind
		tasks = append(tasks, launchTask(ctx, kind, o.timeout, o.logger, func(tctx context.Context) []Source {
			return o.runCollector(tctx, collector, taskKind, question, copts)
		}))
	}

	var all []Source
	for _, t := range tasks {
		sources := t.join()
		span.AddEvent("collector.done", trace.WithAttributes(
			attribute.String("collector", string(t.kind)),
			attribute.Int("sources", len(sources)),
		))
		all = append(all, sources...)
	}

	span.SetAttributes(attribute.Int("sources.total", len(all)))
	o.logger.Printf("pass collected %d sources for %q", len(all), truncateAttr(question))
	return all
}

// runCollector is the shared per-collector pipeline: derive a query (model
// first, keyword fallback), search, enrich, stamp the type. It returns an
// empty slice on any failure; errors stop at this boundary.
func (o *Orchestrator) runCollector(ctx context.Context, c Collector, kind SourceType, question string, opts CollectorOptions) []Source {
	start := time.Now()

	query := question
	if deriver, ok := c.(QueryDeriver); ok {
		derived, err := deriver.DeriveQuery(ctx, question, opts)
		if err != nil || strings.TrimSpace(derived) == "" {
			derived = FallbackQuery(question)
			o.logger.Printf("%s query derivation failed (%v), using keywords %q", kind, err, derived)
		}
		query = derived
	}

	sources, err := c.Search(ctx, query, opts)
	if err != nil {
		o.logger.Printf("%s search failed: %v", kind, err)
		o.telemetry.RecordCollectorResult(string(kind), 0, time.Since(start), err)
		return nil
	}

	sources = c.Enrich(ctx, sources, opts)
	for i := range sources {
		sources[i].Type = kind
	}

	o.telemetry.RecordCollectorResult(string(kind), len(sources), time.Since(start), nil)
	return sources
}

// AssignDisplayIndices numbers the aggregate 1..K in place. The index equals
// the citation number the synthesizer will reference, so it is assigned
// exactly once, over the final ordered sequence.
func AssignDisplayIndices(sources []Source) []Source {
	for i := range sources {
		sources[i].DisplayIndex = i + 1
	}
	return sources
}

func truncateAttr(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
