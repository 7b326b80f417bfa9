package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/analysis"
	"github.com/shopcheck/backend/internal/api/handlers"
	"github.com/shopcheck/backend/internal/cache/redis"
	"github.com/shopcheck/backend/internal/ingestion"
	"github.com/shopcheck/backend/internal/llm"
	"github.com/shopcheck/backend/internal/metrics"
	"github.com/shopcheck/backend/internal/middleware/ratelimit"
	"github.com/shopcheck/backend/internal/middleware/security"
	"github.com/shopcheck/backend/internal/middleware/validation"
	"github.com/shopcheck/backend/internal/notify"
	"github.com/shopcheck/backend/internal/pipeline"
	"github.com/shopcheck/backend/internal/recognition"
	"github.com/shopcheck/backend/internal/storage/sqlite"
	"github.com/shopcheck/backend/pkg/config"
	appLogger "github.com/shopcheck/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting product copy verification service")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// Redis is optional: without it every run hits the provider cascade.
	var outcomeCache pipeline.OutcomeCache
	if cfg.Redis.Host != "" {
		redisClient, err := redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Recognition.CacheTTLMin)*time.Minute,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, recognition cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			outcomeCache = redisClient
		}
	}

	cascade := buildCascade(cfg)
	appLogger.Info("Recognition cascade configured", zap.Strings("providers", cascade.Providers()))

	analyzerLLM := llm.NewClient(
		cfg.OpenRouter.APIKey,
		cfg.OpenRouter.BaseURL,
		cfg.Analyzer.Model,
		cfg.Analyzer.Temperature,
		cfg.Analyzer.MaxTokens,
		cfg.OpenRouter.Referer,
		cfg.OpenRouter.Title,
	)
	analyzer := analysis.NewAnalyzer(analyzerLLM)

	dispatcher := notify.NewDispatcher(
		cfg.Notify.WebhookURL,
		time.Duration(cfg.Notify.TimeoutSec)*time.Second,
	)

	pipe := pipeline.New(cascade, analyzer, dispatcher, sqliteClient, outcomeCache, pipeline.Config{
		NotifyAlways: cfg.Notify.Always,
	})

	worker := pipeline.NewWorker(cfg.Worker.QueueSize, cfg.Worker.Concurrency)

	extractor := ingestion.NewExtractor(time.Duration(cfg.Recognition.TimeoutSec) * time.Second)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Shopify-Hmac-Sha256, X-Shopify-Shop-Domain",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	rateLimiter := ratelimit.New(ratelimit.Config{})
	defer rateLimiter.Stop()
	app.Use(rateLimiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxBodySize: cfg.Server.BodyLimit,
	}))

	webhookHandler := handlers.NewWebhookHandler(cfg.Webhook.Secret, extractor, pipe, worker)
	verifyHandler := handlers.NewVerifyHandler(pipe, extractor)
	ocrHandler := handlers.NewOCRHandler(cascade)
	auditHandler := handlers.NewAuditHandler(sqliteClient)

	api := app.Group("/api/v1")

	api.Post("/webhooks/products", webhookHandler.HandleProductWebhook)
	api.Post("/verify", verifyHandler.HandleVerify)
	api.Post("/verify/url", verifyHandler.HandleVerifyURL)
	api.Post("/ocr/compare", ocrHandler.HandleCompare)
	api.Get("/checks", auditHandler.HandleListChecks)
	api.Get("/checks/:id", auditHandler.HandleGetCheck)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ready",
			"providers": cascade.Providers(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	worker.Stop(stopCtx)

	appLogger.Info("Server stopped")
}

// buildCascade orders providers by configured credentials. Tesseract needs no
// credentials and always anchors the chain.
func buildCascade(cfg *config.Config) *recognition.Cascade {
	var providers []recognition.Provider

	if cfg.OpenRouter.APIKey != "" {
		ocrLLM := llm.NewClient(
			cfg.OpenRouter.APIKey,
			cfg.OpenRouter.BaseURL,
			cfg.OpenRouter.Model,
			0,
			cfg.Analyzer.MaxTokens,
			cfg.OpenRouter.Referer,
			cfg.OpenRouter.Title,
		)
		providers = append(providers, recognition.NewLLMProvider(ocrLLM, cfg.Recognition.MinTextLength))
	}

	if cfg.Vision.APIKey != "" {
		providers = append(providers, recognition.NewVisionProvider(cfg.Vision.APIKey, cfg.Vision.Endpoint))
	}

	providers = append(providers, recognition.NewTesseractProvider(cfg.Tesseract.Languages))

	return recognition.NewCascade(providers, time.Duration(cfg.Recognition.TimeoutSec)*time.Second)
}
