package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/ingestion"
	"github.com/shopcheck/backend/internal/pipeline"
	"github.com/shopcheck/backend/internal/storage/models"
	"github.com/shopcheck/backend/pkg/logger"
)

type VerifyHandler struct {
	runner    Runner
	extractor *ingestion.Extractor
}

func NewVerifyHandler(runner Runner, extractor *ingestion.Extractor) *VerifyHandler {
	return &VerifyHandler{
		runner:    runner,
		extractor: extractor,
	}
}

// HandleVerify runs the full pipeline synchronously over caller-supplied
// product fields and returns the complete result.
func (h *VerifyHandler) HandleVerify(c *fiber.Ctx) error {
	var req struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		BodyHTML   string `json:"body_html"`
		ImageURL   string `json:"image_url"`
		ShopDomain string `json:"shop_domain"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title == "" && req.ImageURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one of title or image_url is required",
		})
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	product := models.ProductRecord{
		ID:         req.ID,
		Title:      req.Title,
		BodyHTML:   req.BodyHTML,
		ImageURL:   req.ImageURL,
		ShopDomain: req.ShopDomain,
	}

	result := h.runner.Run(c.Context(), product, pipeline.TriggerManual)

	return c.JSON(resultPayload(result))
}

// HandleVerifyURL resolves a storefront product URL into a product record and
// runs the pipeline on it.
func (h *VerifyHandler) HandleVerifyURL(c *fiber.Ctx) error {
	var req struct {
		ProductURL string `json:"product_url"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ProductURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "product_url is required",
		})
	}

	product, err := h.extractor.FromURL(c.Context(), req.ProductURL)
	if err != nil {
		logger.Error("Failed to extract product from URL",
			zap.String("product_url", req.ProductURL),
			zap.Error(err),
		)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not extract product from URL",
		})
	}

	result := h.runner.Run(c.Context(), product, pipeline.TriggerManual)

	return c.JSON(resultPayload(result))
}

func resultPayload(result pipeline.Result) fiber.Map {
	return fiber.Map{
		"success": true,
		"product": fiber.Map{
			"id":          result.Product.ID,
			"title":       result.Product.Title,
			"shop_domain": result.Product.ShopDomain,
		},
		"ocr":         result.Outcome,
		"spell_check": result.Judgment,
		"workflow":    result.Flags,
	}
}
