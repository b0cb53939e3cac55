package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"speech-coach/dto"
)

// ScoringInput carries everything the scoring provider needs to evaluate
// one speech.
type ScoringInput struct {
	Prompt          string
	Duration        int
	WordsPerMinute  int
	FillerBreakdown []dto.FillerCount
	FillerTotal     int
	Sentiment       json.RawMessage
	Transcript      string
}

// BuildScoringPrompt composes the full evaluator instruction. The output
// is deterministic for a given input and ends with a strict description of
// the JSON document the provider must return.
func BuildScoringPrompt(in ScoringInput) string {
	fillerSummary := "none detected"
	if len(in.FillerBreakdown) > 0 {
		parts := make([]string, 0, len(in.FillerBreakdown))
		for _, f := range in.FillerBreakdown {
			parts = append(parts, fmt.Sprintf("%q × %d", f.Word, f.Count))
		}
		fillerSummary = strings.Join(parts, ", ")
	}

	wpm := "unknown"
	if in.WordsPerMinute > 0 {
		wpm = fmt.Sprintf("%d", in.WordsPerMinute)
	}

	sentiment := "[]"
	if len(in.Sentiment) > 0 {
		sentiment = string(in.Sentiment)
	}

	var b strings.Builder
	b.WriteString("You are an experienced Toastmasters speech evaluator scoring a Table Topics response.\n\n")
	fmt.Fprintf(&b, "Table Topics Prompt: %q\n", in.Prompt)
	fmt.Fprintf(&b, "Recording Duration: %d seconds\n", in.Duration)
	fmt.Fprintf(&b, "Words Per Minute: %s\n", wpm)
	fmt.Fprintf(&b, "Filler Words: %s (total: %d)\n", fillerSummary, in.FillerTotal)
	fmt.Fprintf(&b, "Sentiment Data: %s\n\n", sentiment)
	b.WriteString("Full Transcript:\n\"\"\"\n")
	b.WriteString(in.Transcript)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString("Evaluate this speech against Toastmasters Table Topics standards. " +
		"Table Topics responses are typically 1-2 minutes. Score ruthlessly but fairly.\n\n")
	b.WriteString(`Return ONLY a valid JSON object (no markdown, no explanation) matching this exact structure:
{
  "overall_score": <number 1-10, one decimal>,
  "overall_label": <"Needs Work" | "Developing" | "Competent" | "Strong" | "Exceptional">,
  "scores": {
    "vocal_variety": <number 1-10>,
    "tonality": <number 1-10>,
    "word_choice": <number 1-10>,
    "filler_words": <number 1-10, inverse scoring: 10=zero fillers, 1=excessive fillers>
  },
  "score_explanations": {
    "vocal_variety": <one sentence explanation>,
    "tonality": <one sentence explanation>,
    "word_choice": <one sentence explanation>,
    "filler_words": <one sentence explanation>
  },
  "feedback_points": [<3-5 actionable coaching tips as strings>],
  "summary": "<2-3 sentence overall assessment>"
}

Do NOT evaluate gestures or body language. Evaluate speech and language only.`)

	return b.String()
}
