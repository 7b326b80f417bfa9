package recognition

import (
	"context"
	"strings"
)

// Provider identifiers carried on every Outcome.
const (
	ProviderLLM       = "gpt-4o"
	ProviderVision    = "google-vision"
	ProviderTesseract = "tesseract"
	// ProviderFailed tags the sentinel outcome substituted when recognition
	// fails outright.
	ProviderFailed = "failed"
)

// Outcome is the result of one recognition attempt. Empty text is a valid,
// non-error outcome.
type Outcome struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Provider   string  `json:"provider"`
}

// Provider extracts text from an image reference.
type Provider interface {
	Name() string
	Recognize(ctx context.Context, imageURL string) (Outcome, error)
}

// FailedOutcome is the sentinel substituted by the pipeline when recognition
// errors instead of producing a result.
func FailedOutcome() Outcome {
	return Outcome{Language: "unknown", Provider: ProviderFailed}
}

var refusalPhrases = []string{
	"i'm sorry",
	"i am sorry",
	"i can't assist",
	"i cannot assist",
	"i can't help",
	"i cannot help",
	"i'm unable to",
	"i am unable to",
	"as an ai",
	"cannot process this request",
}

// IsRefusal reports whether text looks like a model declining to answer
// rather than a transcription.
func IsRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
