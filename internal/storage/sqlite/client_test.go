package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopcheck/backend/internal/analysis"
	"github.com/shopcheck/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return client
}

func sampleRecord(id, shopifyID string, createdAt time.Time) *models.CheckRecord {
	return &models.CheckRecord{
		ID:          id,
		ShopifyID:   shopifyID,
		Title:       "Organic Hony",
		Description: "<p>Sweet and natural.</p>",
		ImageURL:    "https://cdn.example.com/honey.jpg",
		HasIssues:   true,
		IssueCount:  1,
		Quality:     analysis.QualityNeedsImprovement,
		Issues: []analysis.Issue{
			{
				Kind:       analysis.KindSpelling,
				Location:   analysis.LocationTitle,
				Original:   "Hony",
				Suggestion: "Honey",
				Line:       1,
				Column:     9,
			},
		},
		OCRText:   "ORGANIC HONEY 250g",
		Summary:   "One typo in the title.",
		Notified:  true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestInsertAndGetCheck(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	if err := client.InsertCheck(ctx, sampleRecord("chk-1", "123456", now)); err != nil {
		t.Fatalf("InsertCheck failed: %v", err)
	}

	got, err := client.GetCheck(ctx, "chk-1")
	if err != nil {
		t.Fatalf("GetCheck failed: %v", err)
	}

	if got.ShopifyID != "123456" {
		t.Errorf("shopify id = %q", got.ShopifyID)
	}
	if !got.HasIssues || got.IssueCount != 1 {
		t.Errorf("issue flags = %v/%d", got.HasIssues, got.IssueCount)
	}
	if len(got.Issues) != 1 {
		t.Fatalf("expected 1 deserialized issue, got %d", len(got.Issues))
	}
	issue := got.Issues[0]
	if issue.Kind != analysis.KindSpelling || issue.Original != "Hony" || issue.Suggestion != "Honey" {
		t.Errorf("issue round-trip mismatch: %+v", issue)
	}
	if !got.Notified {
		t.Error("notified flag lost in round-trip")
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, now)
	}
}

func TestInsertDuplicateShopifyID(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	now := time.Now()
	if err := client.InsertCheck(ctx, sampleRecord("chk-1", "123456", now)); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := client.InsertCheck(ctx, sampleRecord("chk-2", "123456", now))
	if !errors.Is(err, ErrDuplicateProduct) {
		t.Errorf("expected ErrDuplicateProduct, got %v", err)
	}
}

func TestListChecksNewestFirst(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"chk-a", "chk-b", "chk-c"} {
		rec := sampleRecord(id, id+"-shopify", base.Add(time.Duration(i)*time.Minute))
		if err := client.InsertCheck(ctx, rec); err != nil {
			t.Fatalf("insert %s failed: %v", id, err)
		}
	}

	checks, err := client.ListChecks(ctx, 2)
	if err != nil {
		t.Fatalf("ListChecks failed: %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("expected 2 records, got %d", len(checks))
	}
	if checks[0].ID != "chk-c" || checks[1].ID != "chk-b" {
		t.Errorf("expected newest first, got %s then %s", checks[0].ID, checks[1].ID)
	}
}

func TestListChecksEmptyIssues(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	rec := sampleRecord("chk-1", "123456", time.Now())
	rec.HasIssues = false
	rec.IssueCount = 0
	rec.Issues = nil

	if err := client.InsertCheck(ctx, rec); err != nil {
		t.Fatalf("InsertCheck failed: %v", err)
	}

	checks, err := client.ListChecks(ctx, 10)
	if err != nil {
		t.Fatalf("ListChecks failed: %v", err)
	}
	if checks[0].Issues == nil {
		t.Error("issues should deserialize to an empty slice, not nil")
	}
	if len(checks[0].Issues) != 0 {
		t.Errorf("expected no issues, got %d", len(checks[0].Issues))
	}
}

func TestGetCheckNotFound(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetCheck(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
