package recognition

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	name    string
	outcome Outcome
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Recognize(ctx context.Context, imageURL string) (Outcome, error) {
	f.calls++
	if f.err != nil {
		return Outcome{}, f.err
	}
	return f.outcome, nil
}

func textProvider(name, text string) *fakeProvider {
	return &fakeProvider{
		name:    name,
		outcome: Outcome{Text: text, Confidence: 0.9, Language: "en", Provider: name},
	}
}

func TestExtractFirstProviderWins(t *testing.T) {
	first := textProvider(ProviderLLM, "BOTTLE 500ml")
	second := textProvider(ProviderTesseract, "other text")

	cascade := NewCascade([]Provider{first, second}, time.Second)

	outcome, err := cascade.Extract(context.Background(), "https://example.com/img.png")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if outcome.Provider != ProviderLLM {
		t.Errorf("expected provider %q, got %q", ProviderLLM, outcome.Provider)
	}
	if outcome.Text != "BOTTLE 500ml" {
		t.Errorf("unexpected text %q", outcome.Text)
	}
	if second.calls != 0 {
		t.Errorf("second provider should not run, ran %d times", second.calls)
	}
}

func TestExtractFallsThroughOnError(t *testing.T) {
	first := &fakeProvider{name: ProviderLLM, err: errors.New("upstream 500")}
	second := textProvider(ProviderTesseract, "fallback text")

	cascade := NewCascade([]Provider{first, second}, time.Second)

	outcome, err := cascade.Extract(context.Background(), "https://example.com/img.png")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if outcome.Provider != ProviderTesseract {
		t.Errorf("expected fallback to %q, got %q", ProviderTesseract, outcome.Provider)
	}
}

func TestExtractFallsThroughOnUnusableText(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty text", ""},
		{"whitespace only", "   \n  "},
		{"refusal", "I'm sorry, I can't assist with that request."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := textProvider(ProviderLLM, tt.text)
			second := textProvider(ProviderTesseract, "actual label text")

			cascade := NewCascade([]Provider{first, second}, time.Second)

			outcome, err := cascade.Extract(context.Background(), "https://example.com/img.png")
			if err != nil {
				t.Fatalf("Extract returned error: %v", err)
			}
			if outcome.Provider != ProviderTesseract {
				t.Errorf("expected fallback to %q, got %q", ProviderTesseract, outcome.Provider)
			}
		})
	}
}

func TestExtractLastProviderEmptyTextIsValid(t *testing.T) {
	only := textProvider(ProviderTesseract, "")

	cascade := NewCascade([]Provider{only}, time.Second)

	outcome, err := cascade.Extract(context.Background(), "https://example.com/img.png")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if outcome.Provider != ProviderTesseract {
		t.Errorf("expected provider %q, got %q", ProviderTesseract, outcome.Provider)
	}
	if outcome.Text != "" {
		t.Errorf("expected empty text, got %q", outcome.Text)
	}
}

func TestExtractLastProviderErrorStillReturnsOutcome(t *testing.T) {
	first := &fakeProvider{name: ProviderLLM, err: errors.New("timeout")}
	last := &fakeProvider{name: ProviderTesseract, err: errors.New("tesseract not installed")}

	cascade := NewCascade([]Provider{first, last}, time.Second)

	outcome, err := cascade.Extract(context.Background(), "https://example.com/img.png")
	if err != nil {
		t.Fatalf("Extract must not error, got: %v", err)
	}
	if outcome.Provider != ProviderTesseract {
		t.Errorf("expected outcome tagged %q, got %q", ProviderTesseract, outcome.Provider)
	}
	if outcome.Text != "" {
		t.Errorf("expected empty text, got %q", outcome.Text)
	}
}

func TestCompareRunsAllProviders(t *testing.T) {
	first := textProvider(ProviderLLM, "from llm")
	second := &fakeProvider{name: ProviderVision, err: errors.New("quota exceeded")}
	third := textProvider(ProviderTesseract, "from tesseract")

	cascade := NewCascade([]Provider{first, second, third}, time.Second)

	results := cascade.Compare(context.Background(), "https://example.com/img.png")
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[0].Text != "from llm" || results[0].Provider != ProviderLLM {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Provider != ProviderVision || results[1].Text != "" {
		t.Errorf("failed provider should yield empty tagged outcome, got: %+v", results[1])
	}
	if results[2].Text != "from tesseract" {
		t.Errorf("unexpected third result: %+v", results[2])
	}

	for _, p := range []*fakeProvider{first, second, third} {
		if p.calls != 1 {
			t.Errorf("provider %s ran %d times, expected 1", p.name, p.calls)
		}
	}
}

func TestProvidersOrder(t *testing.T) {
	cascade := NewCascade([]Provider{
		textProvider(ProviderLLM, ""),
		textProvider(ProviderVision, ""),
		textProvider(ProviderTesseract, ""),
	}, time.Second)

	names := cascade.Providers()
	want := []string{ProviderLLM, ProviderVision, ProviderTesseract}
	if len(names) != len(want) {
		t.Fatalf("expected %d providers, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("provider %d: expected %q, got %q", i, want[i], names[i])
		}
	}
}
