package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/analysis"
	"github.com/shopcheck/backend/internal/storage/models"
	"github.com/shopcheck/backend/pkg/logger"
)

// ErrDuplicateProduct is returned when a check for the same external product
// id already exists.
var ErrDuplicateProduct = errors.New("product check already recorded")

// ErrNotFound is returned by reads that match no record.
var ErrNotFound = errors.New("check record not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS product_checks (
		id TEXT PRIMARY KEY,
		shopify_id TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		image_url TEXT,
		has_issues INTEGER NOT NULL,
		issue_count INTEGER DEFAULT 0,
		quality TEXT NOT NULL,
		issues TEXT NOT NULL,
		ocr_text TEXT,
		summary TEXT,
		notified INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_checks_created ON product_checks(created_at);
	CREATE INDEX IF NOT EXISTS idx_checks_has_issues ON product_checks(has_issues);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// InsertCheck appends one audit record. A duplicate shopify_id surfaces as
// ErrDuplicateProduct so callers can tell conflicts from other failures.
func (c *Client) InsertCheck(ctx context.Context, rec *models.CheckRecord) error {
	issuesJSON, err := json.Marshal(rec.Issues)
	if err != nil {
		return fmt.Errorf("failed to serialize issues: %w", err)
	}

	query := `
		INSERT INTO product_checks (id, shopify_id, title, description, image_url,
			has_issues, issue_count, quality, issues, ocr_text, summary, notified,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = c.db.ExecContext(ctx, query,
		rec.ID,
		rec.ShopifyID,
		rec.Title,
		rec.Description,
		rec.ImageURL,
		boolToInt(rec.HasIssues),
		rec.IssueCount,
		rec.Quality,
		string(issuesJSON),
		rec.OCRText,
		rec.Summary,
		boolToInt(rec.Notified),
		rec.CreatedAt.Unix(),
		rec.UpdatedAt.Unix(),
	)

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, rec.ShopifyID)
		}
		return fmt.Errorf("failed to insert check: %w", err)
	}

	logger.Info("Check recorded",
		zap.String("check_id", rec.ID),
		zap.String("shopify_id", rec.ShopifyID),
		zap.Bool("has_issues", rec.HasIssues),
	)

	return nil
}

const checkColumns = `id, shopify_id, title, description, image_url, has_issues,
	issue_count, quality, issues, ocr_text, summary, notified, created_at, updated_at`

// ListChecks returns the most recent records, newest first.
func (c *Client) ListChecks(ctx context.Context, limit int) ([]models.CheckRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM product_checks ORDER BY created_at DESC LIMIT ?`, checkColumns)

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}
	defer rows.Close()

	var records []models.CheckRecord
	for rows.Next() {
		rec, err := scanCheck(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checks: %w", err)
	}

	return records, nil
}

// GetCheck fetches one record by its internal id.
func (c *Client) GetCheck(ctx context.Context, id string) (*models.CheckRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM product_checks WHERE id = ?`, checkColumns)

	rec, err := scanCheck(c.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func scanCheck(scan func(dest ...any) error) (models.CheckRecord, error) {
	var rec models.CheckRecord
	var hasIssues, notified int
	var issuesJSON string
	var createdAt, updatedAt int64

	err := scan(
		&rec.ID,
		&rec.ShopifyID,
		&rec.Title,
		&rec.Description,
		&rec.ImageURL,
		&hasIssues,
		&rec.IssueCount,
		&rec.Quality,
		&issuesJSON,
		&rec.OCRText,
		&rec.Summary,
		&notified,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan check row: %w", err)
	}

	rec.HasIssues = hasIssues != 0
	rec.Notified = notified != 0
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)

	rec.Issues = []analysis.Issue{}
	if issuesJSON != "" {
		if err := json.Unmarshal([]byte(issuesJSON), &rec.Issues); err != nil {
			return rec, fmt.Errorf("failed to deserialize issues for check %s: %w", rec.ID, err)
		}
	}
	if rec.Issues == nil {
		rec.Issues = []analysis.Issue{}
	}

	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
