// Package telemetry tracks research run metrics: request outcomes, collector
// yields and model call failures. Counters are exported through a dedicated
// prometheus registry and mirrored into an in-process snapshot used for
// periodic log reports.
package telemetry

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/deepscout/config"
)

// Telemetry provides monitoring for the research pipeline. A nil *Telemetry
// is valid and records nothing, so components never need to guard their
// record calls.
type Telemetry struct {
	cfg      config.TelemetryConfig
	logger   *log.Logger
	registry *prometheus.Registry

	researchTotal     *prometheus.CounterVec
	researchDuration  *prometheus.HistogramVec
	collectorSources  *prometheus.CounterVec
	collectorFailures *prometheus.CounterVec
	collectorDuration *prometheus.HistogramVec
	llmRequests       *prometheus.CounterVec

	mu    sync.RWMutex
	stats Stats
}

// Stats is an aggregate snapshot of activity since startup.
type Stats struct {
	TotalRequests         int64
	SuccessfulRequests    int64
	FailedRequests        int64
	AverageProcessingTime time.Duration

	SourcesCollected  map[string]int64
	CollectorFailures map[string]int64

	LLMRequests int64
	LLMFailures int64
}

// New creates a telemetry instance and registers its metrics. Periodic log
// reports start only when both Enabled and PeriodicLogs are set.
func New(cfg config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		cfg:      cfg,
		logger:   log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		registry: prometheus.NewRegistry(),
		stats: Stats{
			SourcesCollected:  make(map[string]int64),
			CollectorFailures: make(map[string]int64),
		},
	}

	t.researchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_research_requests_total",
			Help: "Research requests processed, by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
	t.researchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepscout_research_duration_seconds",
			Help:    "End to end research processing time in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)
	t.collectorSources = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_collector_sources_total",
			Help: "Sources returned by each collector",
		},
		[]string{"collector"},
	)
	t.collectorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_collector_failures_total",
			Help: "Collector runs that ended in an error",
		},
		[]string{"collector"},
	)
	t.collectorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepscout_collector_duration_seconds",
			Help:    "Per collector run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collector"},
	)
	t.llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_llm_requests_total",
			Help: "Model completion calls, by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	t.registry.MustRegister(
		t.researchTotal,
		t.researchDuration,
		t.collectorSources,
		t.collectorFailures,
		t.collectorDuration,
		t.llmRequests,
	)

	if cfg.Enabled && cfg.PeriodicLogs {
		go t.startMetricsReporting()
	}

	return t
}

// Handler serves the registry in the prometheus text format.
func (t *Telemetry) Handler() http.Handler {
	if t == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// RecordResearch records one completed research request.
func (t *Telemetry) RecordResearch(mode string, duration time.Duration, err error) {
	if t == nil || !t.cfg.Enabled {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	t.researchTotal.WithLabelValues(mode, outcome).Inc()
	t.researchDuration.WithLabelValues(mode).Observe(duration.Seconds())

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.TotalRequests++
	if err == nil {
		t.stats.SuccessfulRequests++
	} else {
		t.stats.FailedRequests++
	}
	if t.stats.TotalRequests == 1 {
		t.stats.AverageProcessingTime = duration
	} else {
		total := t.stats.AverageProcessingTime * time.Duration(t.stats.TotalRequests-1)
		t.stats.AverageProcessingTime = (total + duration) / time.Duration(t.stats.TotalRequests)
	}

	t.logger.Printf("research request: mode=%s outcome=%s duration=%v", mode, outcome, duration)
}

// RecordCollectorResult records one collector run within a pass.
func (t *Telemetry) RecordCollectorResult(collector string, sources int, duration time.Duration, err error) {
	if t == nil || !t.cfg.Enabled {
		return
	}

	t.collectorSources.WithLabelValues(collector).Add(float64(sources))
	t.collectorDuration.WithLabelValues(collector).Observe(duration.Seconds())
	if err != nil {
		t.collectorFailures.WithLabelValues(collector).Inc()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.SourcesCollected[collector] += int64(sources)
	if err != nil {
		t.stats.CollectorFailures[collector]++
	}
}

// RecordLLMCall records one model completion attempt.
func (t *Telemetry) RecordLLMCall(model string, err error) {
	if t == nil || !t.cfg.Enabled {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	t.llmRequests.WithLabelValues(model, outcome).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.LLMRequests++
	if err != nil {
		t.stats.LLMFailures++
	}
}

// GetStats returns a copy of the aggregate snapshot.
func (t *Telemetry) GetStats() Stats {
	if t == nil {
		return Stats{}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := t.stats
	stats.SourcesCollected = make(map[string]int64, len(t.stats.SourcesCollected))
	for k, v := range t.stats.SourcesCollected {
		stats.SourcesCollected[k] = v
	}
	stats.CollectorFailures = make(map[string]int64, len(t.stats.CollectorFailures))
	for k, v := range t.stats.CollectorFailures {
		stats.CollectorFailures[k] = v
	}
	return stats
}

// startMetricsReporting logs a snapshot every minute.
func (t *Telemetry) startMetricsReporting() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		stats := t.GetStats()
		t.logger.Printf("snapshot: requests=%d/%d avg=%v llm=%d/%d",
			stats.SuccessfulRequests, stats.TotalRequests,
			stats.AverageProcessingTime,
			stats.LLMRequests-stats.LLMFailures, stats.LLMRequests)
	}
}

// Shutdown logs a final activity report.
func (t *Telemetry) Shutdown() {
	if t == nil {
		return
	}

	stats := t.GetStats()
	t.logger.Printf("final report: requests=%d success=%d failed=%d avg=%v",
		stats.TotalRequests, stats.SuccessfulRequests, stats.FailedRequests, stats.AverageProcessingTime)
	for collector, n := range stats.SourcesCollected {
		t.logger.Printf("  %s: %d sources, %d failures", collector, n, stats.CollectorFailures[collector])
	}
}
