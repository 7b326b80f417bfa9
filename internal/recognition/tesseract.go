package recognition

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"github.com/shopcheck/backend/pkg/logger"
)

const maxImageBytes = 20 << 20

// TesseractProvider runs local OCR through the Tesseract engine. It needs no
// credentials and serves as the unconditional last step of the cascade.
type TesseractProvider struct {
	languages  []string
	httpClient *http.Client
}

func NewTesseractProvider(languages string) *TesseractProvider {
	langs := strings.Split(languages, "+")
	if len(langs) == 0 || langs[0] == "" {
		langs = []string{"eng"}
	}
	return &TesseractProvider{
		languages: langs,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *TesseractProvider) Name() string { return ProviderTesseract }

func (p *TesseractProvider) Recognize(ctx context.Context, imageURL string) (Outcome, error) {
	img, err := p.fetchImage(ctx, imageURL)
	if err != nil {
		return Outcome{}, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(p.languages...); err != nil {
		return Outcome{}, fmt.Errorf("failed to set tesseract languages: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return Outcome{}, fmt.Errorf("failed to load image into tesseract: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return Outcome{}, fmt.Errorf("tesseract recognition failed: %w", err)
	}
	text = strings.TrimSpace(text)

	confidence := p.wordConfidence(client)

	logger.Info("Tesseract OCR completed",
		zap.Int("text_length", len(text)),
		zap.Float64("confidence", confidence),
	)

	return Outcome{
		Text:       text,
		Confidence: confidence,
		Language:   DetectLanguage(text),
		Provider:   ProviderTesseract,
	}, nil
}

func (p *TesseractProvider) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image download returned empty body")
	}
	return data, nil
}

// wordConfidence averages per-word confidences, scaled to 0..1. Zero when
// nothing was recognized.
func (p *TesseractProvider) wordConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}

	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	return sum / float64(len(boxes)) / 100.0
}
