package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shopcheck/backend/pkg/logger"
	"github.com/shopcheck/backend/pkg/retry"
)

// VisionProvider extracts text through the Google Cloud Vision images:annotate
// REST endpoint using an API key.
type VisionProvider struct {
	apiKey      string
	endpoint    string
	httpClient  *http.Client
	retryConfig retry.Config
}

func NewVisionProvider(apiKey, endpoint string) *VisionProvider {
	return &VisionProvider{
		apiKey:   apiKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		retryConfig: retry.Config{
			MaxAttempts:  2,
			InitialDelay: 300 * time.Millisecond,
			Logger:       logger.GetLogger(),
		},
	}
}

func (p *VisionProvider) Name() string { return ProviderVision }

type annotateImage struct {
	Source struct {
		ImageURI string `json:"imageUri"`
	} `json:"source"`
}

type annotateFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type annotateContext struct {
	LanguageHints []string `json:"languageHints"`
}

type annotateEntry struct {
	Image        annotateImage     `json:"image"`
	Features     []annotateFeature `json:"features"`
	ImageContext annotateContext   `json:"imageContext"`
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type textAnnotation struct {
	Locale      string `json:"locale,omitempty"`
	Description string `json:"description"`
}

type annotateResponse struct {
	Responses []struct {
		TextAnnotations []textAnnotation `json:"textAnnotations"`
		Error           *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"responses"`
}

func (p *VisionProvider) Recognize(ctx context.Context, imageURL string) (Outcome, error) {
	entry := annotateEntry{
		Features:     []annotateFeature{{Type: "TEXT_DETECTION", MaxResults: 50}},
		ImageContext: annotateContext{LanguageHints: []string{"fr", "en", "de"}},
	}
	entry.Image.Source.ImageURI = imageURL

	body, err := json.Marshal(annotateRequest{Requests: []annotateEntry{entry}})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to marshal annotate request: %w", err)
	}

	var outcome Outcome
	err = retry.Do(ctx, p.retryConfig, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			fmt.Sprintf("%s?key=%s", p.endpoint, p.apiKey), bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build annotate request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("vision request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read vision response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("vision API returned status %d", resp.StatusCode)
		}

		var parsed annotateResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("failed to parse vision response: %w", err)
		}
		if len(parsed.Responses) == 0 {
			return fmt.Errorf("vision API returned no responses")
		}

		r := parsed.Responses[0]
		if r.Error != nil {
			return fmt.Errorf("vision API error %d: %s", r.Error.Code, r.Error.Message)
		}

		if len(r.TextAnnotations) == 0 {
			logger.Debug("Vision API detected no text", zap.String("image_url", imageURL))
			outcome = Outcome{Language: "unknown", Provider: ProviderVision}
			return nil
		}

		// The first annotation aggregates the full detected text.
		full := r.TextAnnotations[0]
		text := cleanAnnotationText(full.Description)

		language := full.Locale
		if language == "" {
			language = DetectLanguage(text)
		}

		outcome = Outcome{
			Text:       text,
			Confidence: 0.95,
			Language:   language,
			Provider:   ProviderVision,
		}
		return nil
	})

	if err != nil {
		return Outcome{}, err
	}

	logger.Info("Vision OCR completed",
		zap.Int("text_length", len(outcome.Text)),
		zap.String("language", outcome.Language),
	)

	return outcome, nil
}

// cleanAnnotationText drops blank lines and trims the result.
func cleanAnnotationText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
