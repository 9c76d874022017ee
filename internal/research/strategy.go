package research

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/deepscout/internal/llm"
)

// StrategyAnalyzer decides which collectors apply to a question and how much
// effort they deserve. Analysis is best-effort: a broken model yields the
// default strategy, never an error.
type StrategyAnalyzer struct {
	llm    llm.Client
	logger *log.Logger
}

// NewStrategyAnalyzer creates a new strategy analyzer.
func NewStrategyAnalyzer(llmClient llm.Client) *StrategyAnalyzer {
	return &StrategyAnalyzer{
		llm:    llmClient,
		logger: log.New(log.Writer(), "[STRATEGY] ", log.LstdFlags),
	}
}

// Analyze inspects the question and returns the research strategy. The
// webpage switch is driven purely by whether the caller supplied a URL; the
// model is never consulted for it.
func (a *StrategyAnalyzer) Analyze(ctx context.Context, question string, hasWebpageURL bool) Strategy {
	prompt := fmt.Sprintf(`Analyze the following research question and determine the best research strategy:

Question: "%s"

Consider:
1. Does this question need academic/scientific papers? (ArXiv useful: yes/no)
2. Does this question need recent trends/discussions/tutorials? (YouTube useful: yes/no)
3. What is the complexity level? (simple/medium/complex)
4. What is the urgency for recent information? (low/medium/high)

Respond in this exact format:
ArXiv: yes/no
YouTube: yes/no
Complexity: simple/medium/complex
Recency: low/medium/high
Reasoning: [brief explanation]`, question)

	reply, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		a.logger.Printf("analysis failed, using default strategy: %v", err)
		s := DefaultStrategy()
		s.UseWebpage = hasWebpageURL
		return s
	}

	s := parseStrategyReply(reply)
	s.UseWebpage = hasWebpageURL
	a.logger.Printf("strategy: papers=%v videos=%v webpage=%v complexity=%s recency=%s",
		s.UsePapers, s.UseVideos, s.UseWebpage, s.Complexity, s.Recency)
	return s
}

// parseStrategyReply reads the "Key: value" lines of the model reply. Keys
// are matched case-insensitively, unknown lines are ignored, and every
// missing field falls back to its documented default.
func parseStrategyReply(reply string) Strategy {
	fields := map[string]string{}
	reasoning := ""
	for _, line := range strings.Split(reply, "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if key == "reasoning" {
			reasoning = value
			continue
		}
		fields[key] = strings.ToLower(value)
	}

	get := func(key, def string) string {
		if v, ok := fields[key]; ok && v != "" {
			return v
		}
		return def
	}

	if reasoning == "" {
		reasoning = "Standard research approach"
	}
	return Strategy{
		UsePapers:  get("arxiv", "yes") == "yes",
		UseVideos:  get("youtube", "yes") == "yes",
		Complexity: get("complexity", "medium"),
		Recency:    get("recency", "medium"),
		Reasoning:  reasoning,
	}
}
