package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/llm"
	"github.com/shopcheck/backend/pkg/logger"
)

const systemPrompt = `You are a meticulous proofreader for e-commerce product listings.
You check product copy in English, French, German and other languages for
spelling mistakes, grammar errors, punctuation problems and other obvious
defects. You respond with a single JSON object and nothing else.`

const instructionTemplate = `Analyze the following product information for spelling,
grammar or punctuation problems. Check every language present.

Product title: %s
Product description: %s
Image text: %s

Return the analysis in exactly this JSON format:
{
  "hasIssues": true/false,
  "issues": [
    {
      "type": "spelling/grammar/punctuation/other",
      "location": "title/description/image_text",
      "original": "the problematic fragment",
      "suggestion": "the corrected fragment",
      "line": line number,
      "column": column number
    }
  ],
  "overallQuality": "excellent/good/needs_improvement/poor",
  "summary": "one-sentence overall assessment",
  "confidence": 0.95
}

Return ONLY the JSON object, no other text.`

type completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Analyzer turns product text into a structured quality judgment.
type Analyzer struct {
	llm completer
}

func NewAnalyzer(client *llm.Client) *Analyzer {
	return &Analyzer{llm: client}
}

func newAnalyzerWith(c completer) *Analyzer {
	return &Analyzer{llm: c}
}

// Check submits title, description and recognized image text for analysis.
// The returned error covers transport failures only; an unparsable response
// is converted into a fallback judgment, never an error.
func (a *Analyzer) Check(ctx context.Context, title, description, imageText string) (Judgment, error) {
	prompt := fmt.Sprintf(instructionTemplate, title, description, imageText)

	resp, err := a.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Temperature:  0.2,
	})
	if err != nil {
		return Judgment{}, fmt.Errorf("failed to run quality check: %w", err)
	}

	judgment := ParseJudgment(resp.Content)

	logger.Info("Quality check completed",
		zap.Bool("has_issues", judgment.HasIssues),
		zap.Int("issue_count", len(judgment.Issues)),
		zap.String("quality", judgment.Quality),
	)

	return judgment, nil
}

// ParseJudgment parses a raw model response into a Judgment. Surrounding code
// fences are stripped first. When the payload is not valid JSON the raw text
// is preserved in the summary of a fallback judgment so operators can see
// what the model actually said.
func ParseJudgment(raw string) Judgment {
	cleaned := StripCodeFences(raw)

	var judgment Judgment
	if err := json.Unmarshal([]byte(cleaned), &judgment); err != nil {
		logger.Warn("Quality check response was not valid JSON",
			zap.Error(err),
			zap.Int("response_length", len(raw)),
		)
		return FallbackJudgment(raw)
	}

	if judgment.Issues == nil {
		judgment.Issues = []Issue{}
	}
	// The model occasionally disagrees with itself here.
	judgment.HasIssues = len(judgment.Issues) > 0

	if !validQuality(judgment.Quality) {
		judgment.Quality = QualityGood
	}

	return judgment
}

// FallbackJudgment is the neutral default substituted when the analyzer
// response cannot be parsed.
func FallbackJudgment(raw string) Judgment {
	summary := strings.TrimSpace(raw)
	if len(summary) > 500 {
		summary = summary[:500]
	}
	return Judgment{
		HasIssues:  false,
		Issues:     []Issue{},
		Quality:    QualityUnknown,
		Summary:    "unparsable analyzer response: " + summary,
		Confidence: 0,
	}
}

// StripCodeFences removes a surrounding markdown code fence, with or without
// a language tag, leaving the inner payload untouched.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", ...).
		first := strings.TrimSpace(trimmed[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func validQuality(q string) bool {
	switch q {
	case QualityExcellent, QualityGood, QualityNeedsImprovement, QualityPoor, QualityUnknown:
		return true
	}
	return false
}
