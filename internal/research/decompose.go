package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/deepscout/internal/llm"
)

// QuestionDecomposer splits a compound research question into specific
// sub-questions covering distinct facets of the topic. Any failure degrades
// to researching the original question as-is.
type QuestionDecomposer struct {
	llm    llm.Client
	max    int
	logger *log.Logger
}

// NewQuestionDecomposer creates a decomposer capped at maxSubQuestions.
func NewQuestionDecomposer(llmClient llm.Client, maxSubQuestions int) *QuestionDecomposer {
	if maxSubQuestions < 1 {
		maxSubQuestions = 5
	}
	return &QuestionDecomposer{
		llm:    llmClient,
		max:    maxSubQuestions,
		logger: log.New(log.Writer(), "[DECOMPOSE] ", log.LstdFlags),
	}
}

// Decompose returns between 1 and max sub-questions. The first element of a
// degraded result is always the original question.
func (d *QuestionDecomposer) Decompose(ctx context.Context, question string) []string {
	prompt := fmt.Sprintf(`You are a research strategist. Your task is to break down a complex user question into 3-5 specific, answerable sub-questions that can be used to search academic databases (like ArXiv) and video platforms (like YouTube).

The sub-questions should cover different facets of the main topic, such as its definition, applications, challenges, and future trends.

**Main Question:** "%s"

Return your answer as a JSON object with a single key "sub_questions" containing a list of the generated question strings.

**Example:**
Main Question: "What are the latest advancements in using graph neural networks for drug discovery?"
{
  "sub_questions": [
    "What are the fundamental principles of graph neural networks?",
    "What are the current applications of GNNs in drug discovery and molecular biology?",
    "What are the recent algorithmic improvements in graph neural networks for scientific research?",
    "What are the challenges and limitations of using GNNs in pharmacology?",
    "What are the future trends and predicted breakthroughs for GNNs in medicine?"
  ]
}`, question)

	reply, err := d.llm.Complete(ctx, prompt)
	if err != nil {
		d.logger.Printf("decomposition failed, researching original question: %v", err)
		return []string{question}
	}

	jsonStr := extractJSON(reply)
	if jsonStr == "" {
		d.logger.Printf("no JSON in decomposition reply, researching original question")
		return []string{question}
	}

	var parsed struct {
		SubQuestions []string `json:"sub_questions"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		d.logger.Printf("unparseable decomposition reply: %v", err)
		return []string{question}
	}

	var out []string
	for _, sq := range parsed.SubQuestions {
		sq = strings.TrimSpace(sq)
		if sq == "" {
			continue
		}
		out = append(out, sq)
		if len(out) == d.max {
			break
		}
	}
	if len(out) == 0 {
		return []string{question}
	}
	d.logger.Printf("decomposed into %d sub-questions", len(out))
	return out
}

// extractJSON returns the first balanced {...} block in s, or "".
func extractJSON(s string) string {
	start := -1
	depth := 0
	for i, ch := range s {
		if ch == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == '}' {
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
