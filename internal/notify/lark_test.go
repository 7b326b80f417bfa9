package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopcheck/backend/internal/analysis"
	"github.com/shopcheck/backend/internal/storage/models"
)

func sampleProduct() models.ProductRecord {
	return models.ProductRecord{
		ID:         "8812345",
		Title:      "Chocolat Noir Biologique",
		ShopDomain: "demo-shop.myshopify.com",
	}
}

func sampleJudgment() analysis.Judgment {
	return analysis.Judgment{
		HasIssues: true,
		Issues: []analysis.Issue{
			{
				Kind:       analysis.KindSpelling,
				Location:   analysis.LocationTitle,
				Original:   "Bilogique",
				Suggestion: "Biologique",
				Line:       1,
				Column:     15,
			},
		},
		Quality:    analysis.QualityNeedsImprovement,
		Summary:    "One spelling mistake.",
		Confidence: 0.92,
	}
}

func TestSendPostsInteractiveCard(t *testing.T) {
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, 5*time.Second)

	ok := d.Send(context.Background(), sampleProduct(), sampleJudgment(), "CHOCOLAT NOIR 70%")
	if !ok {
		t.Fatal("Send should report success")
	}

	var msg map[string]any
	if err := json.Unmarshal(received, &msg); err != nil {
		t.Fatalf("webhook body is not JSON: %v", err)
	}
	if msg["msg_type"] != "interactive" {
		t.Errorf("expected interactive message, got %v", msg["msg_type"])
	}

	body := string(received)
	if !strings.Contains(body, "Bilogique") || !strings.Contains(body, "Biologique") {
		t.Error("card should list the issue with original and suggestion")
	}
	if !strings.Contains(body, "https://demo-shop.myshopify.com/admin/products/8812345") {
		t.Error("card should carry the admin deep link")
	}
	if !strings.Contains(body, "CHOCOLAT NOIR 70%") {
		t.Error("card should include the recognized text")
	}
}

func TestSendTruncatesRecognizedText(t *testing.T) {
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, 5*time.Second)

	long := strings.Repeat("x", TruncateLimit+50)
	if !d.Send(context.Background(), sampleProduct(), sampleJudgment(), long) {
		t.Fatal("Send should report success")
	}

	body := string(received)
	if strings.Contains(body, long) {
		t.Error("full recognized text should not appear in the card")
	}
	if !strings.Contains(body, long[:TruncateLimit]+"...") {
		t.Error("card should carry the truncated text with ellipsis marker")
	}
}

func TestSendWithoutWebhookURL(t *testing.T) {
	d := NewDispatcher("", time.Second)

	if d.Send(context.Background(), sampleProduct(), sampleJudgment(), "text") {
		t.Error("Send must report false when no webhook URL is configured")
	}
}

func TestSendReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, time.Second)

	if d.Send(context.Background(), sampleProduct(), sampleJudgment(), "text") {
		t.Error("Send must report false on non-200 response")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"elevenchars", 10, "elevenchar..."},
		{"", 5, ""},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
