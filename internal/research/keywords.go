package research

import (
	"strings"

	"github.com/blevesearch/bleve/analysis"
	"github.com/blevesearch/bleve/analysis/lang/en"
	"github.com/blevesearch/bleve/analysis/token/lowercase"
	"github.com/blevesearch/bleve/analysis/token/stop"
	"github.com/blevesearch/bleve/analysis/tokenizer/unicode"
)

const maxFallbackKeywords = 6

var (
	fallbackTokenizer = unicode.NewUnicodeTokenizer()
	fallbackLowercase = lowercase.NewLowerCaseFilter()
	fallbackStop      = newStopFilter()
)

func newStopFilter() *stop.StopTokensFilter {
	tm := analysis.NewTokenMap()
	// A failed load leaves the map empty; keywords then pass through unfiltered.
	_ = tm.LoadBytes(en.EnglishStopWords)
	return stop.NewStopTokensFilter(tm)
}

// FallbackQuery reduces a question to its significant keywords: lowercased,
// English stopwords removed, short tokens dropped, capped at six terms. It is
// the deterministic replacement for model-derived search queries and must
// never fail.
func FallbackQuery(question string) string {
	tokens := fallbackTokenizer.Tokenize([]byte(question))
	tokens = fallbackLowercase.Filter(tokens)
	tokens = fallbackStop.Filter(tokens)

	var words []string
	for _, t := range tokens {
		if len(t.Term) <= 2 {
			continue
		}
		words = append(words, string(t.Term))
		if len(words) == maxFallbackKeywords {
			break
		}
	}
	if len(words) == 0 {
		return strings.TrimSpace(question)
	}
	return strings.Join(words, " ")
}
