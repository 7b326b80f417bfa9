package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/ingestion"
	"github.com/shopcheck/backend/internal/metrics"
	"github.com/shopcheck/backend/internal/pipeline"
	"github.com/shopcheck/backend/internal/storage/models"
	"github.com/shopcheck/backend/pkg/logger"
)

// Runner executes one verification run.
type Runner interface {
	Run(ctx context.Context, product models.ProductRecord, trigger string) pipeline.Result
}

// Submitter queues background work.
type Submitter interface {
	Submit(name string, fn func(ctx context.Context)) bool
}

type WebhookHandler struct {
	secret    string
	extractor *ingestion.Extractor
	runner    Runner
	worker    Submitter
}

func NewWebhookHandler(secret string, extractor *ingestion.Extractor, runner Runner, worker Submitter) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		extractor: extractor,
		runner:    runner,
		worker:    worker,
	}
}

// HandleProductWebhook verifies the delivery signature over the raw body
// before anything is parsed, queues the run, and acknowledges immediately.
func (h *WebhookHandler) HandleProductWebhook(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get("X-Shopify-Hmac-Sha256")

	if !verifySignature(body, signature, h.secret) {
		metrics.WebhooksRejected.Inc()
		logger.Warn("Webhook rejected, bad signature",
			zap.String("ip", c.IP()),
			zap.String("shop", c.Get("X-Shopify-Shop-Domain")),
		)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	product, err := h.extractor.FromWebhook(body, c.Get("X-Shopify-Shop-Domain"))
	if err != nil {
		logger.Error("Failed to extract product from webhook", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Invalid product payload",
		})
	}

	queued := h.worker.Submit("webhook:"+product.ID, func(ctx context.Context) {
		h.runner.Run(ctx, product, pipeline.TriggerWebhook)
	})
	if !queued {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Verification queue full",
		})
	}

	logger.Info("Webhook accepted",
		zap.String("shopify_id", product.ID),
		zap.String("shop", product.ShopDomain),
	)

	return c.JSON(fiber.Map{
		"success": true,
		"queued":  true,
	})
}

// verifySignature checks the base64 HMAC-SHA256 header in constant time. An
// empty secret or header always fails.
func verifySignature(body []byte, header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}

	provided, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
