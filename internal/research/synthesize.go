package research

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/deepscout/internal/llm"
)

// NoSourcesMessage is the terminal answer when every collector pass came
// back empty. It is returned without any model call.
const NoSourcesMessage = "No relevant sources were found to answer your question."

// Synthesizer turns an ordered source sequence into a cited report. The
// prose comes from the model; the trailing source list is always rendered
// from the input sequence itself, so citation ids stay correct regardless
// of what the model produces.
type Synthesizer struct {
	llm    llm.Client
	logger *log.Logger
}

func NewSynthesizer(llmClient llm.Client) *Synthesizer {
	return &Synthesizer{
		llm:    llmClient,
		logger: log.New(log.Writer(), "[SYNTH] ", log.LstdFlags),
	}
}

// Synthesize writes the single-pass report. A model failure degrades to the
// rendered source list with a short note; sources are never lost.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, sources []Source) string {
	if len(sources) == 0 {
		return NoSourcesMessage
	}

	sourceList := "\n\n## Sources\n<ol>" + sourceListItems(sources) + "</ol>"

	prompt := fmt.Sprintf(`You are a meticulous research analyst. Your task is to write a comprehensive, well-structured report that answers the user's question by synthesizing information from the provided sources.

**Instructions:**
1. Write a coherent report that integrates the findings from all sources.
2. For every claim or finding you take from a source, you **must** add a citation marker at the end of the sentence, like `+"`[1]`, `[2]`, or `[1, 3]`"+`.
3. Base your answer *only* on the information provided in the sources below. Do not use outside knowledge.
4. Structure your response with clear paragraphs and logical flow.
5. If sources contradict each other, mention this and present both perspectives.
6. Do NOT add a "Sources" heading or list. Produce ONLY the report text.

**Original User Question:** "%s"

**Sources:**
%s

Produce a comprehensive report text as requested.`, question, sourceContext(sources))

	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Printf("synthesis failed, returning source list: %v", err)
		return synthesisFallback + sourceList
	}
	return strings.TrimSpace(reply) + sourceList
}

// SynthesizeDeep writes the multi-pass report over the aggregate of all
// sub-question passes. Same degradation rules as Synthesize.
func (s *Synthesizer) SynthesizeDeep(ctx context.Context, question string, sources []Source) string {
	if len(sources) == 0 {
		return NoSourcesMessage
	}

	sourceList := "\n\n<h2 id='sources'>Sources</h2>\n<ol>" + sourceListItems(sources) + "</ol>"

	prompt := fmt.Sprintf(`You are an expert research analyst specializing in comprehensive report synthesis. Your task is to produce a thorough, analytical report that definitively answers the user's original question by synthesizing information from multiple research sources.

**Context:**
You have been provided with sources gathered through systematic research of sub-questions derived from the original inquiry. These sources represent the complete knowledge base for your analysis.

**Core Objectives:**
1. **Comprehensively answer** the original user question with depth and nuance
2. **Synthesize and integrate** findings across all sources to identify patterns, themes, and connections
3. **Analyze relationships** between different pieces of information rather than simply summarizing
4. **Evaluate evidence quality** and highlight areas of strong vs. weak support
5. **Identify gaps** where information may be incomplete or contradictory

**Critical Requirements:**

**Evidence & Citations:**
- Every factual claim, statistic, or finding MUST include citation markers: `+"`[1]`, `[2]`, `[1,3]`"+`
- Base conclusions ONLY on provided sources - no external knowledge
- When synthesizing across multiple sources, cite all relevant sources: `+"`[2,4,7]`"+`
- Distinguish between well-supported claims and those with limited evidence

**Analysis Depth:**
- Go beyond summarization - identify trends, implications, and underlying patterns
- Draw connections between seemingly disparate findings
- Assess the strength and limitations of the evidence
- Address contradictions explicitly and evaluate which sources are more credible

**Structure & Clarity:**
- Use the exact Markdown format specified below
- Ensure logical flow with smooth transitions between sections
- Write for an educated audience seeking comprehensive understanding
- Maintain objectivity while providing clear, actionable insights

**Handling Contradictions:**
When sources disagree:
- Present all perspectives fairly
- Evaluate which sources appear more credible and why
- Explain the nature and significance of the disagreement
- Indicate if contradictions can be reconciled or if they represent genuine uncertainty

**MANDATORY REPORT STRUCTURE:**

# Executive Summary
(2-3 paragraphs: Core findings, main conclusion, and key implications. This should be comprehensive enough to stand alone.)

## Introduction
(Establish context, scope, and importance of the question. Define key terms if necessary. Outline what the report will cover.)

## Methodology & Source Overview
(Brief description of the research approach and types/quality of sources analyzed. Note any limitations in the available data.)

## Key Findings
(Organize into 3-5 thematic subsections with descriptive headings. Each subsection should:)
- **Integrate multiple sources** to build comprehensive understanding
- **Use bullet points** for complex information when helpful
- **Bold key concepts** for emphasis
- **Analyze rather than just describe** - explain significance and implications
- **Every statement must be cited**

### [Thematic Subsection 1]
(Content with analysis and citations)

### [Thematic Subsection 2]
(Content with analysis and citations)

[Continue as needed...]

## Critical Analysis
(Evaluate the overall strength of evidence, identify key limitations, discuss areas of uncertainty, and note important gaps in knowledge.)

## Implications & Future Considerations
(Discuss broader significance, potential consequences, and areas needing further research based on the findings.)

## Conclusion
(Synthesize main points into a definitive answer to the original question. Highlight the most important takeaways and their significance.)

**IMPORTANT NOTES:**
- Do NOT add a "Sources" or "References" section - this will be appended automatically
- Your response should end with the Conclusion section
- Aim for thoroughness while maintaining readability
- If the sources don't adequately address the original question, acknowledge this limitation

**Original User Question:** "%s"

**Research Sources:**
%s

Produce a comprehensive, analytical report following the structure above.`, question, sourceContext(sources))

	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Printf("deep synthesis failed, returning source list: %v", err)
		return synthesisFallback + sourceList
	}
	return strings.TrimSpace(reply) + sourceList
}

const synthesisFallback = "The report could not be generated because the language model was unavailable. The sources collected for this question are listed below."

// sourceContext renders the numbered evidence block given to the model.
// The number in each line is the display index, which equals the citation
// id in the rendered source list.
func sourceContext(sources []Source) string {
	var b strings.Builder
	for _, src := range sources {
		title := src.Title
		if title == "" {
			title = "No Title"
		}
		switch src.Type {
		case SourceTypePaper:
			fmt.Fprintf(&b, "Source [%d]: Title: %s. Summary: %s\n\n", src.DisplayIndex, title, src.Summary)
		case SourceTypeVideo:
			transcript := src.Transcript
			if transcript == "" {
				transcript = "No transcript available."
			}
			fmt.Fprintf(&b, "Source [%d]: Title: %s. Channel: %s. Transcript: %s\n\n", src.DisplayIndex, title, src.Channel, transcript)
		case SourceTypeWebpage:
			fmt.Fprintf(&b, "Source [%d]: Title: %s. Content: %s\n\n", src.DisplayIndex, title, src.Content)
		}
	}
	return b.String()
}

// sourceListItems renders the <li> entries for the trailing source list.
// One entry per source, in input order, with ids matching the display
// indices cited in the report body.
func sourceListItems(sources []Source) string {
	var b strings.Builder
	for _, src := range sources {
		title := src.Title
		if title == "" {
			title = "No Title"
		}
		link := src.URL
		if link == "" {
			link = "#"
		}
		fmt.Fprintf(&b, `<li id="source-%d"><a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`, src.DisplayIndex, link, title)
		if src.Type == SourceTypeVideo {
			fmt.Fprintf(&b, " - %s", src.Channel)
		}
		b.WriteString("</li>")
	}
	return b.String()
}
