package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/shopcheck/backend/internal/storage/models"
	"github.com/shopcheck/backend/internal/storage/sqlite"
)

type fakeAuditStore struct {
	checks    []models.CheckRecord
	lastLimit int
}

func (f *fakeAuditStore) ListChecks(ctx context.Context, limit int) ([]models.CheckRecord, error) {
	f.lastLimit = limit
	if limit < len(f.checks) {
		return f.checks[:limit], nil
	}
	return f.checks, nil
}

func (f *fakeAuditStore) GetCheck(ctx context.Context, id string) (*models.CheckRecord, error) {
	for i := range f.checks {
		if f.checks[i].ID == id {
			return &f.checks[i], nil
		}
	}
	return nil, sqlite.ErrNotFound
}

func newAuditApp(store AuditStore) *fiber.App {
	app := fiber.New()
	handler := NewAuditHandler(store)
	app.Get("/api/v1/checks", handler.HandleListChecks)
	app.Get("/api/v1/checks/:id", handler.HandleGetCheck)
	return app
}

func TestListChecks(t *testing.T) {
	store := &fakeAuditStore{checks: []models.CheckRecord{
		{ID: "chk-1", ShopifyID: "100"},
		{ID: "chk-2", ShopifyID: "200"},
	}}
	app := newAuditApp(store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/checks?limit=10", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Count  int                  `json:"count"`
		Checks []models.CheckRecord `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if payload.Count != 2 || len(payload.Checks) != 2 {
		t.Errorf("count = %d, checks = %d", payload.Count, len(payload.Checks))
	}
	if store.lastLimit != 10 {
		t.Errorf("limit = %d, want 10", store.lastLimit)
	}
}

func TestListChecksCapsLimit(t *testing.T) {
	store := &fakeAuditStore{}
	app := newAuditApp(store)

	if _, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/checks?limit=100000", nil)); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if store.lastLimit != maxListLimit {
		t.Errorf("limit = %d, want %d", store.lastLimit, maxListLimit)
	}
}

func TestGetCheck(t *testing.T) {
	store := &fakeAuditStore{checks: []models.CheckRecord{{ID: "chk-1", ShopifyID: "100"}}}
	app := newAuditApp(store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/checks/chk-1", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var rec models.CheckRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if rec.ShopifyID != "100" {
		t.Errorf("shopify id = %q", rec.ShopifyID)
	}
}

func TestGetCheckNotFound(t *testing.T) {
	app := newAuditApp(&fakeAuditStore{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/checks/missing", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
