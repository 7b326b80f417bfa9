package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopcheck_pipeline_runs_total",
			Help: "Verification pipeline runs by trigger and result",
		},
		[]string{"trigger", "status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopcheck_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	ProviderUsage = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopcheck_recognition_provider_total",
			Help: "Recognition outcomes by winning provider",
		},
		[]string{"provider"},
	)

	IssuesFound = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopcheck_issues_per_check",
			Help:    "Number of issues found per check",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	AnalyzerFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopcheck_analyzer_fallbacks_total",
			Help: "Checks that substituted a default judgment",
		},
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopcheck_notifications_total",
			Help: "Notification attempts by result",
		},
		[]string{"status"},
	)

	ChecksSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopcheck_checks_saved_total",
			Help: "Audit records persisted by result",
		},
		[]string{"status"},
	)

	WebhooksRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopcheck_webhooks_rejected_total",
			Help: "Webhook deliveries rejected for bad signatures",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopcheck_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopcheck_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(PipelineRuns)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(ProviderUsage)
	prometheus.MustRegister(IssuesFound)
	prometheus.MustRegister(AnalyzerFallbacks)
	prometheus.MustRegister(NotificationsSent)
	prometheus.MustRegister(ChecksSaved)
	prometheus.MustRegister(WebhooksRejected)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
