package server

import (
	"fmt"

	"github.com/mohammad-safakhou/deepscout/config"
	"github.com/mohammad-safakhou/deepscout/internal/collector"
	"github.com/mohammad-safakhou/deepscout/internal/fetch"
	"github.com/mohammad-safakhou/deepscout/internal/llm"
	"github.com/mohammad-safakhou/deepscout/internal/research"
	"github.com/mohammad-safakhou/deepscout/internal/telemetry"
)

// BuildEngine constructs the research pipeline from configuration: model
// client, webpage fetcher, result cache, the three collectors and the engine
// over them. This is the single wiring point shared by the server and the
// one-shot CLI.
func BuildEngine(cfg *config.Config, tel *telemetry.Telemetry) (*research.Engine, error) {
	base, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	llmClient := llm.Instrument(base, tel)

	fetcher, err := fetch.New(fetch.Type(cfg.Collectors.Webpage.Fetcher), cfg.Collectors.Webpage.Timeout, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create webpage fetcher: %w", err)
	}

	cache := collector.NewCache(cfg.Cache)
	arxivHTTP := collector.NewHTTPClient(cfg.Collectors.Arxiv.Timeout, 2, 0)
	youtubeHTTP := collector.NewHTTPClient(cfg.Collectors.YouTube.Timeout, 2, 0)

	registry := research.Registry{
		research.SourceTypePaper:   collector.NewPaperCollector(cfg.Collectors.Arxiv, llmClient, arxivHTTP, cache),
		research.SourceTypeVideo:   collector.NewVideoCollector(cfg.Collectors.YouTube, llmClient, youtubeHTTP, cache),
		research.SourceTypeWebpage: collector.NewWebpageCollector(fetcher),
	}

	return research.NewEngine(cfg, llmClient, registry, tel), nil
}
