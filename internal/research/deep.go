package research

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/deepscout/config"
	"github.com/mohammad-safakhou/deepscout/internal/llm"
	"github.com/mohammad-safakhou/deepscout/internal/telemetry"
)

var engineTracer trace.Tracer = otel.Tracer("deepscout/internal/research/engine")

// Engine runs research requests end to end: strategy, optional
// decomposition, budgeted collector passes and final synthesis. One Engine
// serves all requests; per request state lives on the stack.
type Engine struct {
	cfg        *config.Config
	llm        llm.Client
	strategy   *StrategyAnalyzer
	decomposer *QuestionDecomposer
	orch       *Orchestrator
	synth      *Synthesizer
	telemetry  *telemetry.Telemetry
	logger     *log.Logger
}

// NewEngine wires the pipeline over an already constructed collector
// registry. The caller instruments the model client before passing it in,
// so one wrapper counts calls from every component.
func NewEngine(cfg *config.Config, llmClient llm.Client, registry Registry, tel *telemetry.Telemetry) *Engine {
	return &Engine{
		cfg:        cfg,
		llm:        llmClient,
		strategy:   NewStrategyAnalyzer(llmClient),
		decomposer: NewQuestionDecomposer(llmClient, cfg.Research.MaxSubQuestions),
		orch:       NewOrchestrator(registry, cfg.Research.CollectorTimeout, tel),
		synth:      NewSynthesizer(llmClient),
		telemetry:  tel,
		logger:     log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags),
	}
}

// Research processes one question and returns the finished report. Collector
// and model failures degrade the source set or the prose, never the request;
// the only error surfaced here is a context cancelled before synthesis.
func (e *Engine) Research(ctx context.Context, question Question) (Report, error) {
	start := time.Now()
	if question.ID == "" {
		question.ID = uuid.New().String()
	}
	if question.CreatedAt.IsZero() {
		question.CreatedAt = time.Now()
	}
	mode := question.Mode
	if mode != ModeDeepResearch {
		mode = ModeDeepSearch
	}
	budget := question.MaxSources
	if budget <= 0 {
		budget = e.cfg.Research.DefaultMaxSources
	}
	if budget > 10 {
		budget = 10
	}

	ctx, span := engineTracer.Start(ctx, "research.process",
		trace.WithAttributes(
			attribute.String("question.id", question.ID),
			attribute.String("mode", string(mode)),
			attribute.Int("budget", budget),
		))
	defer span.End()

	e.logger.Printf("starting %s for question %s", mode, question.ID)

	var report Report
	if mode == ModeDeepResearch {
		report = e.deepResearch(ctx, question, budget)
	} else {
		report = e.deepSearch(ctx, question, budget)
	}

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.telemetry.RecordResearch(string(mode), time.Since(start), err)
		return Report{}, err
	}

	report.ProcessingTime = time.Since(start)
	span.SetAttributes(attribute.Int("sources.total", len(report.Sources)))
	span.SetStatus(codes.Ok, "")
	e.telemetry.RecordResearch(string(mode), report.ProcessingTime, nil)
	e.logger.Printf("completed question %s in %v with %d sources",
		question.ID, report.ProcessingTime, len(report.Sources))
	return report, nil
}

// deepSearch is the flat mode: one pass over the full question, then
// synthesis.
func (e *Engine) deepSearch(ctx context.Context, question Question, budget int) Report {
	strategy := e.strategy.Analyze(ctx, question.Text, question.WebpageURL != "")

	sources := e.orch.Gather(ctx, question.Text, strategy, budget, e.collectorOptions(question))
	sources = AssignDisplayIndices(sources)

	body := e.synth.Synthesize(ctx, question.Text, sources)
	return Report{
		ID:        uuid.New().String(),
		Question:  question,
		Body:      body,
		Sources:   sources,
		Strategy:  strategy,
		CreatedAt: time.Now(),
	}
}

// deepResearch decomposes the question and runs one full-budget pass per
// sub-question. Strategy comes from the original question once and is reused
// unchanged for every pass; the webpage target is fetched only in the first
// pass. All sources are concatenated in sub-question order and synthesized
// exactly once.
func (e *Engine) deepResearch(ctx context.Context, question Question, budget int) Report {
	subQuestions := e.decomposer.Decompose(ctx, question.Text)
	strategy := e.strategy.Analyze(ctx, question.Text, question.WebpageURL != "")

	var all []Source
	for i, sub := range subQuestions {
		passCtx, passSpan := engineTracer.Start(ctx, "research.pass",
			trace.WithAttributes(
				attribute.Int("pass", i+1),
				attribute.String("sub_question", truncateAttr(sub)),
			))

		opts := e.collectorOptions(question)
		if i > 0 {
			opts.URL = ""
		}
		sources := e.orch.Gather(passCtx, sub, strategy, budget, opts)
		all = append(all, sources...)

		passSpan.SetAttributes(attribute.Int("sources", len(sources)))
		passSpan.End()
	}
	all = AssignDisplayIndices(all)

	body := e.synth.SynthesizeDeep(ctx, question.Text, all)
	return Report{
		ID:           uuid.New().String(),
		Question:     question,
		Body:         body,
		Sources:      all,
		Strategy:     strategy,
		SubQuestions: subQuestions,
		CreatedAt:    time.Now(),
	}
}

func (e *Engine) collectorOptions(question Question) CollectorOptions {
	return CollectorOptions{
		DateFrom:        question.DateFrom,
		DateTo:          question.DateTo,
		TranscriptLimit: e.cfg.Research.TranscriptLimit,
		URL:             question.WebpageURL,
	}
}
