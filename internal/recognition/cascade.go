package recognition

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shopcheck/backend/pkg/logger"
)

// Cascade tries an ordered list of providers and returns the first usable
// outcome. The last provider is treated as infallible at the contract level:
// if it errors too, the cascade still returns a valid (empty) outcome tagged
// with that provider. Extract therefore never fails.
type Cascade struct {
	providers []Provider
	timeout   time.Duration
}

func NewCascade(providers []Provider, timeout time.Duration) *Cascade {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Cascade{providers: providers, timeout: timeout}
}

// Providers returns the configured preference order, for logging and the
// comparison endpoint.
func (c *Cascade) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Extract walks the providers in preference order. A provider's output is
// accepted when it is non-empty and not a refusal; errors and rejected output
// cause fallthrough to the next provider. Exactly one provider's outcome is
// returned per call.
func (c *Cascade) Extract(ctx context.Context, imageURL string) (Outcome, error) {
	for i, provider := range c.providers {
		last := i == len(c.providers)-1

		outcome, err := c.invoke(ctx, provider, imageURL)
		if err != nil {
			logger.Warn("Recognition provider failed",
				zap.String("provider", provider.Name()),
				zap.Error(err),
			)
			if last {
				// Empty text from the final fallback is a valid outcome.
				return Outcome{Language: "unknown", Provider: provider.Name()}, nil
			}
			continue
		}

		text := strings.TrimSpace(outcome.Text)
		if !last && (text == "" || IsRefusal(text)) {
			logger.Warn("Recognition provider output rejected, falling back",
				zap.String("provider", provider.Name()),
				zap.Int("text_length", len(text)),
			)
			continue
		}

		logger.Info("Recognition completed",
			zap.String("provider", provider.Name()),
			zap.Int("text_length", len(text)),
			zap.String("language", outcome.Language),
		)
		return outcome, nil
	}

	// Unreachable as long as the cascade is built with the local provider
	// last, but keep the contract total.
	return FailedOutcome(), nil
}

// Compare invokes every provider concurrently for side-by-side display. No
// fallback semantics apply; failed providers come back as empty outcomes
// tagged with their name.
func (c *Cascade) Compare(ctx context.Context, imageURL string) []Outcome {
	outcomes := make([]Outcome, len(c.providers))

	var wg sync.WaitGroup
	for i, provider := range c.providers {
		wg.Add(1)
		go func(i int, provider Provider) {
			defer wg.Done()
			outcome, err := c.invoke(ctx, provider, imageURL)
			if err != nil {
				logger.Warn("Comparison provider failed",
					zap.String("provider", provider.Name()),
					zap.Error(err),
				)
				outcome = Outcome{Language: "unknown", Provider: provider.Name()}
			}
			outcomes[i] = outcome
		}(i, provider)
	}
	wg.Wait()

	return outcomes
}

func (c *Cascade) invoke(ctx context.Context, provider Provider, imageURL string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return provider.Recognize(ctx, imageURL)
}
