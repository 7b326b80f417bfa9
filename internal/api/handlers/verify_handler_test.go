package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shopcheck/backend/internal/ingestion"
)

func newVerifyApp(runner Runner) *fiber.App {
	app := fiber.New()
	handler := NewVerifyHandler(runner, ingestion.NewExtractor(time.Second))
	app.Post("/api/v1/verify", handler.HandleVerify)
	app.Post("/api/v1/verify/url", handler.HandleVerifyURL)
	return app
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestVerifyRunsSynchronously(t *testing.T) {
	runner := &recordingRunner{}
	app := newVerifyApp(runner)

	resp, err := app.Test(jsonRequest("/api/v1/verify",
		`{"id": "77", "title": "Organic Honey", "image_url": "https://cdn.example.com/honey.jpg"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if len(runner.products) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runner.products))
	}
	if runner.products[0].ID != "77" {
		t.Errorf("product id = %q", runner.products[0].ID)
	}

	var payload struct {
		Success  bool `json:"success"`
		Workflow struct {
			OCRCompleted bool `json:"ocrCompleted"`
		} `json:"workflow"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if !payload.Success {
		t.Error("expected success response")
	}
}

func TestVerifyGeneratesIDWhenMissing(t *testing.T) {
	runner := &recordingRunner{}
	app := newVerifyApp(runner)

	resp, err := app.Test(jsonRequest("/api/v1/verify", `{"title": "Organic Honey"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if runner.products[0].ID == "" {
		t.Error("handler should assign an id when none is given")
	}
}

func TestVerifyRequiresContent(t *testing.T) {
	app := newVerifyApp(&recordingRunner{})

	resp, err := app.Test(jsonRequest("/api/v1/verify", `{"shop_domain": "demo.myshopify.com"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestVerifyURLRequiresProductURL(t *testing.T) {
	app := newVerifyApp(&recordingRunner{})

	resp, err := app.Test(jsonRequest("/api/v1/verify/url", `{}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
