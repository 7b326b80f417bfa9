package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/recognition"
	"github.com/shopcheck/backend/pkg/logger"
)

// Comparer runs every recognition provider against one image.
type Comparer interface {
	Compare(ctx context.Context, imageURL string) []recognition.Outcome
	Providers() []string
}

type OCRHandler struct {
	comparer Comparer
}

func NewOCRHandler(comparer Comparer) *OCRHandler {
	return &OCRHandler{comparer: comparer}
}

// HandleCompare returns side-by-side outcomes from all configured providers,
// with no fallback semantics. Meant for tuning the cascade.
func (h *OCRHandler) HandleCompare(c *fiber.Ctx) error {
	var req struct {
		ImageURL string `json:"image_url"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ImageURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "image_url is required",
		})
	}

	logger.Info("Provider comparison requested",
		zap.String("image_url", req.ImageURL),
		zap.Strings("providers", h.comparer.Providers()),
	)

	results := h.comparer.Compare(c.Context(), req.ImageURL)

	return c.JSON(fiber.Map{
		"image_url": req.ImageURL,
		"results":   results,
	})
}
