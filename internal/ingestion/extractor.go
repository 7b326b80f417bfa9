package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/storage/models"
	"github.com/shopcheck/backend/pkg/logger"
)

var ErrNoProduct = errors.New("no product data found")

// webhookProduct mirrors the relevant subset of a Shopify product payload.
type webhookProduct struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	BodyHTML  string `json:"body_html"`
	CreatedAt string `json:"created_at"`
	Image     *struct {
		Src string `json:"src"`
	} `json:"image"`
	Images []struct {
		Src string `json:"src"`
	} `json:"images"`
}

// Extractor turns webhook payloads and storefront URLs into product records.
type Extractor struct {
	httpClient *http.Client
}

func NewExtractor(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{httpClient: &http.Client{Timeout: timeout}}
}

// FromWebhook parses a product creation/update payload. shopDomain comes from
// the delivery headers, not the body.
func (e *Extractor) FromWebhook(body []byte, shopDomain string) (models.ProductRecord, error) {
	var p webhookProduct
	if err := json.Unmarshal(body, &p); err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to parse product payload: %w", err)
	}

	if p.ID == 0 {
		return models.ProductRecord{}, errors.New("product payload missing id")
	}
	if p.Title == "" {
		return models.ProductRecord{}, errors.New("product payload missing title")
	}

	return models.ProductRecord{
		ID:         strconv.FormatInt(p.ID, 10),
		Title:      p.Title,
		BodyHTML:   p.BodyHTML,
		ImageURL:   firstImage(p),
		ShopDomain: shopDomain,
		CreatedAt:  parseTime(p.CreatedAt),
	}, nil
}

// FromURL resolves a storefront product page. It tries the public .json
// endpoint first and falls back to scraping the page's meta tags.
func (e *Extractor) FromURL(ctx context.Context, productURL string) (models.ProductRecord, error) {
	u, err := url.Parse(productURL)
	if err != nil || u.Host == "" {
		return models.ProductRecord{}, fmt.Errorf("invalid product URL %q", productURL)
	}

	rec, err := e.fromJSONEndpoint(ctx, u)
	if err == nil {
		return rec, nil
	}
	logger.Warn("Storefront JSON endpoint failed, falling back to HTML",
		zap.String("product_url", productURL),
		zap.Error(err),
	)

	return e.fromHTML(ctx, u)
}

func (e *Extractor) fromJSONEndpoint(ctx context.Context, u *url.URL) (models.ProductRecord, error) {
	jsonURL := *u
	jsonURL.RawQuery = ""
	if !strings.HasSuffix(jsonURL.Path, ".json") {
		jsonURL.Path += ".json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jsonURL.String(), nil)
	if err != nil {
		return models.ProductRecord{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to fetch %s: %w", jsonURL.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ProductRecord{}, fmt.Errorf("storefront returned status %d", resp.StatusCode)
	}

	var payload struct {
		Product webhookProduct `json:"product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to decode product JSON: %w", err)
	}

	if payload.Product.ID == 0 || payload.Product.Title == "" {
		return models.ProductRecord{}, ErrNoProduct
	}

	return models.ProductRecord{
		ID:         strconv.FormatInt(payload.Product.ID, 10),
		Title:      payload.Product.Title,
		BodyHTML:   payload.Product.BodyHTML,
		ImageURL:   firstImage(payload.Product),
		ShopDomain: u.Host,
		CreatedAt:  parseTime(payload.Product.CreatedAt),
	}, nil
}

func (e *Extractor) fromHTML(ctx context.Context, u *url.URL) (models.ProductRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.ProductRecord{}, err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to fetch product page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ProductRecord{}, fmt.Errorf("product page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to parse product page: %w", err)
	}

	title := metaContent(doc, `meta[property="og:title"]`)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		return models.ProductRecord{}, ErrNoProduct
	}

	description := metaContent(doc, `meta[property="og:description"]`)
	if description == "" {
		description = metaContent(doc, `meta[name="description"]`)
	}

	return models.ProductRecord{
		ID:         productHandle(u),
		Title:      title,
		BodyHTML:   description,
		ImageURL:   metaContent(doc, `meta[property="og:image"]`),
		ShopDomain: u.Host,
		CreatedAt:  time.Now(),
	}, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// productHandle falls back to the last URL path segment when no numeric id is
// available from scraped pages.
func productHandle(u *url.URL) string {
	path := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), ".json")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return u.Host
	}
	return path
}

func firstImage(p webhookProduct) string {
	if len(p.Images) > 0 && p.Images[0].Src != "" {
		return p.Images[0].Src
	}
	if p.Image != nil {
		return p.Image.Src
	}
	return ""
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now()
}
