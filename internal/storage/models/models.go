package models

import (
	"time"

	"github.com/shopcheck/backend/internal/analysis"
)

// ProductRecord is one product as handed to the verification pipeline.
// Immutable for the duration of a run.
type ProductRecord struct {
	ID         string
	Title      string
	BodyHTML   string
	ImageURL   string
	ShopDomain string
	CreatedAt  time.Time
}

// CheckRecord is the durable snapshot of one verification run. It is served
// verbatim by the audit endpoints.
type CheckRecord struct {
	ID          string           `json:"id"`
	ShopifyID   string           `json:"shopifyId"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	ImageURL    string           `json:"imageUrl"`
	HasIssues   bool             `json:"hasIssues"`
	IssueCount  int              `json:"issueCount"`
	Quality     string           `json:"quality"`
	Issues      []analysis.Issue `json:"issues"`
	OCRText     string           `json:"ocrText"`
	Summary     string           `json:"summary"`
	Notified    bool             `json:"notified"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
