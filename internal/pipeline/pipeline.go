package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/analysis"
	"github.com/shopcheck/backend/internal/metrics"
	"github.com/shopcheck/backend/internal/recognition"
	"github.com/shopcheck/backend/internal/storage/models"
	"github.com/shopcheck/backend/pkg/logger"
)

// Trigger labels for metrics.
const (
	TriggerWebhook = "webhook"
	TriggerManual  = "manual"
)

// Recognizer produces extracted image text. The production implementation is
// the provider cascade, which never errors; the error path exists so the
// pipeline can substitute a sentinel outcome if an implementation does fail.
type Recognizer interface {
	Extract(ctx context.Context, imageURL string) (recognition.Outcome, error)
}

// Checker produces a quality judgment for the combined product text.
type Checker interface {
	Check(ctx context.Context, title, description, imageText string) (analysis.Judgment, error)
}

// Notifier reports a finished check to a human channel. The bool is a soft
// success flag, never an error.
type Notifier interface {
	Send(ctx context.Context, product models.ProductRecord, judgment analysis.Judgment, ocrText string) bool
}

// Store persists audit records.
type Store interface {
	InsertCheck(ctx context.Context, rec *models.CheckRecord) error
}

// OutcomeCache is an optional recognition cache consulted before the cascade.
type OutcomeCache interface {
	GetOutcome(ctx context.Context, imageURL string) (recognition.Outcome, bool, error)
	SetOutcome(ctx context.Context, imageURL string, outcome recognition.Outcome) error
}

// Flags report which stages of a run completed. Partial failure is a valid
// end state; callers distinguish it from total success through these.
type Flags struct {
	OCRCompleted     bool `json:"ocrCompleted"`
	CheckCompleted   bool `json:"spellCheckCompleted"`
	NotificationSent bool `json:"notificationSent"`
	Saved            bool `json:"databaseSaved"`
}

// Result is the full outcome of one verification run.
type Result struct {
	Product  models.ProductRecord
	Outcome  recognition.Outcome
	Judgment analysis.Judgment
	Flags    Flags
}

type Config struct {
	// NotifyAlways sends a card on every run instead of only when issues
	// were found.
	NotifyAlways bool
}

// Pipeline sequences recognition, analysis, notification and persistence for
// one product, isolating failures so no stage can take down the run.
type Pipeline struct {
	recognizer   Recognizer
	checker      Checker
	notifier     Notifier
	store        Store
	cache        OutcomeCache
	notifyAlways bool
}

// New wires the pipeline. cache may be nil.
func New(recognizer Recognizer, checker Checker, notifier Notifier, store Store, cache OutcomeCache, cfg Config) *Pipeline {
	return &Pipeline{
		recognizer:   recognizer,
		checker:      checker,
		notifier:     notifier,
		store:        store,
		cache:        cache,
		notifyAlways: cfg.NotifyAlways,
	}
}

// Run executes the four stages in fixed order. It never returns an error:
// each stage's failure is absorbed into the result flags.
func (p *Pipeline) Run(ctx context.Context, product models.ProductRecord, trigger string) Result {
	logger.Info("Verification run started",
		zap.String("shopify_id", product.ID),
		zap.String("trigger", trigger),
		zap.Bool("has_image", product.ImageURL != ""),
	)

	res := Result{Product: product}

	res.Outcome, res.Flags.OCRCompleted = p.runRecognition(ctx, product)
	res.Judgment, res.Flags.CheckCompleted = p.runCheck(ctx, product, res.Outcome.Text)
	res.Flags.NotificationSent = p.runNotification(ctx, product, res.Judgment, res.Outcome.Text)
	res.Flags.Saved = p.runPersistence(ctx, product, res)

	status := "complete"
	if !res.Flags.OCRCompleted || !res.Flags.CheckCompleted || !res.Flags.Saved {
		status = "partial"
	}
	metrics.PipelineRuns.WithLabelValues(trigger, status).Inc()

	logger.Info("Verification run finished",
		zap.String("shopify_id", product.ID),
		zap.String("status", status),
		zap.Bool("has_issues", res.Judgment.HasIssues),
		zap.Int("issue_count", len(res.Judgment.Issues)),
	)

	return res
}

func (p *Pipeline) runRecognition(ctx context.Context, product models.ProductRecord) (recognition.Outcome, bool) {
	timer := prometheus.NewTimer(metrics.StageDuration.WithLabelValues("recognition"))
	defer timer.ObserveDuration()

	// No image is a trivially completed stage, not a failure.
	if product.ImageURL == "" {
		return recognition.Outcome{Language: "unknown"}, true
	}

	if p.cache != nil {
		cached, ok, err := p.cache.GetOutcome(ctx, product.ImageURL)
		if err != nil {
			logger.Warn("Recognition cache read failed", zap.Error(err))
			metrics.CacheMisses.WithLabelValues("recognition").Inc()
		} else if ok {
			metrics.CacheHits.WithLabelValues("recognition").Inc()
			metrics.ProviderUsage.WithLabelValues(cached.Provider).Inc()
			return cached, true
		} else {
			metrics.CacheMisses.WithLabelValues("recognition").Inc()
		}
	}

	outcome, err := p.recognizer.Extract(ctx, product.ImageURL)
	if err != nil {
		logger.Error("Recognition failed, substituting sentinel outcome",
			zap.String("shopify_id", product.ID),
			zap.Error(err),
		)
		metrics.ProviderUsage.WithLabelValues(recognition.ProviderFailed).Inc()
		return recognition.FailedOutcome(), false
	}

	metrics.ProviderUsage.WithLabelValues(outcome.Provider).Inc()

	if p.cache != nil && outcome.Provider != recognition.ProviderFailed {
		if err := p.cache.SetOutcome(ctx, product.ImageURL, outcome); err != nil {
			logger.Warn("Recognition cache write failed", zap.Error(err))
		}
	}

	return outcome, true
}

func (p *Pipeline) runCheck(ctx context.Context, product models.ProductRecord, imageText string) (analysis.Judgment, bool) {
	timer := prometheus.NewTimer(metrics.StageDuration.WithLabelValues("analysis"))
	defer timer.ObserveDuration()

	judgment, err := p.checker.Check(ctx, product.Title, product.BodyHTML, imageText)
	if err != nil {
		logger.Error("Quality check failed, substituting default judgment",
			zap.String("shopify_id", product.ID),
			zap.Error(err),
		)
		metrics.AnalyzerFallbacks.Inc()
		return analysis.Judgment{
			HasIssues:  false,
			Issues:     []analysis.Issue{},
			Quality:    analysis.QualityUnknown,
			Summary:    "quality check unavailable: " + err.Error(),
			Confidence: 0,
		}, false
	}

	if judgment.Quality == analysis.QualityUnknown {
		metrics.AnalyzerFallbacks.Inc()
	}
	metrics.IssuesFound.Observe(float64(len(judgment.Issues)))

	return judgment, true
}

func (p *Pipeline) runNotification(ctx context.Context, product models.ProductRecord, judgment analysis.Judgment, ocrText string) bool {
	if !judgment.HasIssues && !p.notifyAlways {
		logger.Debug("No issues found, notification skipped",
			zap.String("shopify_id", product.ID),
		)
		return false
	}

	timer := prometheus.NewTimer(metrics.StageDuration.WithLabelValues("notification"))
	defer timer.ObserveDuration()

	sent := p.notifier.Send(ctx, product, judgment, ocrText)
	if sent {
		metrics.NotificationsSent.WithLabelValues("sent").Inc()
	} else {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
	}
	return sent
}

func (p *Pipeline) runPersistence(ctx context.Context, product models.ProductRecord, res Result) bool {
	timer := prometheus.NewTimer(metrics.StageDuration.WithLabelValues("persistence"))
	defer timer.ObserveDuration()

	now := time.Now()
	rec := &models.CheckRecord{
		ID:          uuid.New().String(),
		ShopifyID:   product.ID,
		Title:       product.Title,
		Description: product.BodyHTML,
		ImageURL:    product.ImageURL,
		HasIssues:   res.Judgment.HasIssues,
		IssueCount:  len(res.Judgment.Issues),
		Quality:     res.Judgment.Quality,
		Issues:      res.Judgment.Issues,
		OCRText:     res.Outcome.Text,
		Summary:     res.Judgment.Summary,
		Notified:    res.Flags.NotificationSent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := p.store.InsertCheck(ctx, rec); err != nil {
		logger.Error("Failed to persist check record",
			zap.String("shopify_id", product.ID),
			zap.Error(err),
		)
		metrics.ChecksSaved.WithLabelValues("failed").Inc()
		return false
	}

	metrics.ChecksSaved.WithLabelValues("saved").Inc()
	return true
}
