package recognition

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shopcheck/backend/pkg/logger"
)

// Model refusals are prompt-sensitive, so the provider walks this list in
// order and keeps the first answer that looks like a transcription.
var visionPrompts = []string{
	`You are an OCR (Optical Character Recognition) system. Your task is to extract and transcribe all visible text from the provided image.

Instructions:
1. Identify and extract ALL visible text in the image
2. Maintain the original text order and layout
3. Preserve the exact spelling and case of the text
4. If the text is in French, German, or any other language, transcribe it exactly as shown
5. Include decorative text, labels, signs, and any other written content
6. Return ONLY the extracted text, no explanations or comments
7. If there are multiple lines, separate them with line breaks
8. Do not add any interpretation or translation

Please extract and return all text visible in this image:`,
	`Transcribe every piece of text visible in this image, exactly as written, preserving line breaks. Output the text only.`,
	`What words and letters appear in this picture? List them verbatim, one line per line of text, with no commentary.`,
}

type imageCompleter interface {
	CompleteWithImage(ctx context.Context, prompt, imageURL string) (string, error)
}

// LLMProvider extracts text through a vision-capable chat model.
type LLMProvider struct {
	llm       imageCompleter
	minLength int
}

func NewLLMProvider(client imageCompleter, minLength int) *LLMProvider {
	if minLength <= 0 {
		minLength = 3
	}
	return &LLMProvider{llm: client, minLength: minLength}
}

func (p *LLMProvider) Name() string { return ProviderLLM }

func (p *LLMProvider) Recognize(ctx context.Context, imageURL string) (Outcome, error) {
	var lastErr error

	for i, prompt := range visionPrompts {
		raw, err := p.llm.CompleteWithImage(ctx, prompt, imageURL)
		if err != nil {
			lastErr = err
			logger.Warn("Vision model call failed",
				zap.Int("prompt_index", i),
				zap.Error(err),
			)
			continue
		}

		text := strings.TrimSpace(raw)
		if len(text) < p.minLength {
			lastErr = fmt.Errorf("vision model returned %d characters, below minimum %d", len(text), p.minLength)
			continue
		}
		if IsRefusal(text) {
			lastErr = fmt.Errorf("vision model refused prompt %d", i)
			logger.Warn("Vision model refused to transcribe",
				zap.Int("prompt_index", i),
			)
			continue
		}

		return Outcome{
			Text:       text,
			Confidence: 0.98,
			Language:   DetectLanguage(text),
			Provider:   ProviderLLM,
		}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("vision model produced no usable transcription")
	}
	return Outcome{}, lastErr
}
