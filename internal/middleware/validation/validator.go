package validation

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	MaxBodySize         int
	AllowedContentTypes []string
}

// Middleware gates content types and pre-validates the URL-bearing verify
// endpoints so handlers can assume well-formed input. The webhook route is
// exempt: its raw body must reach the handler untouched for signature
// verification.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 2 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}

			if len(c.Body()) > cfg.MaxBodySize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Request body exceeds maximum size",
				})
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/verify/url") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			productURL, ok := req["product_url"].(string)
			if !ok || productURL == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "product_url is required and must be a string",
				})
			}

			if !isValidURL(productURL) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid product_url format",
				})
			}
		} else if strings.Contains(path, "/api/v1/ocr/compare") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			imageURL, ok := req["image_url"].(string)
			if !ok || imageURL == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "image_url is required and must be a string",
				})
			}

			if !isValidURL(imageURL) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid image_url format",
				})
			}
		}

		return c.Next()
	}
}

func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if u.Host == "" {
		return false
	}

	return true
}
