package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/storage/models"
	"github.com/shopcheck/backend/internal/storage/sqlite"
	"github.com/shopcheck/backend/pkg/logger"
)

const maxListLimit = 200

// AuditStore reads persisted check records.
type AuditStore interface {
	ListChecks(ctx context.Context, limit int) ([]models.CheckRecord, error)
	GetCheck(ctx context.Context, id string) (*models.CheckRecord, error)
}

type AuditHandler struct {
	store AuditStore
}

func NewAuditHandler(store AuditStore) *AuditHandler {
	return &AuditHandler{store: store}
}

func (h *AuditHandler) HandleListChecks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 {
		limit = 50
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	checks, err := h.store.ListChecks(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to list checks", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list checks",
		})
	}

	return c.JSON(fiber.Map{
		"count":  len(checks),
		"checks": checks,
	})
}

func (h *AuditHandler) HandleGetCheck(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Check id is required",
		})
	}

	check, err := h.store.GetCheck(c.Context(), id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Check not found",
			})
		}
		logger.Error("Failed to load check", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load check",
		})
	}

	return c.JSON(check)
}
