package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/analysis"
	"github.com/shopcheck/backend/internal/storage/models"
	"github.com/shopcheck/backend/pkg/logger"
	"github.com/shopcheck/backend/pkg/retry"
)

// TruncateLimit bounds how much recognized text goes into a card.
const TruncateLimit = 200

// Dispatcher posts check reports to a Lark (Feishu) incoming webhook as
// interactive cards.
type Dispatcher struct {
	webhookURL  string
	httpClient  *http.Client
	retryConfig retry.Config
}

func NewDispatcher(webhookURL string, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		retryConfig: retry.Config{
			MaxAttempts:  2,
			InitialDelay: 500 * time.Millisecond,
			Logger:       logger.GetLogger(),
		},
	}
}

// Send posts one report card. It returns true only when the webhook accepted
// the message; a missing webhook URL is a soft no-op.
func (d *Dispatcher) Send(ctx context.Context, product models.ProductRecord, judgment analysis.Judgment, ocrText string) bool {
	if d.webhookURL == "" {
		logger.Warn("Notification webhook URL not configured, skipping")
		return false
	}

	payload, err := json.Marshal(buildCard(product, judgment, ocrText))
	if err != nil {
		logger.Error("Failed to marshal notification card", zap.Error(err))
		return false
	}

	err = retry.Do(ctx, d.retryConfig, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		logger.Error("Notification delivery failed", zap.Error(err))
		return false
	}

	logger.Info("Notification sent",
		zap.String("shopify_id", product.ID),
		zap.Int("issue_count", len(judgment.Issues)),
	)
	return true
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardElement struct {
	Tag     string       `json:"tag"`
	Text    *cardText    `json:"text,omitempty"`
	Actions []cardAction `json:"actions,omitempty"`
}

type cardAction struct {
	Tag  string   `json:"tag"`
	Text cardText `json:"text"`
	Type string   `json:"type"`
	URL  string   `json:"url"`
}

type card struct {
	Config struct {
		WideScreenMode bool `json:"wide_screen_mode"`
	} `json:"config"`
	Header struct {
		Title    cardText `json:"title"`
		Template string   `json:"template"`
	} `json:"header"`
	Elements []cardElement `json:"elements"`
}

type message struct {
	MsgType string `json:"msg_type"`
	Card    card   `json:"card"`
}

func buildCard(product models.ProductRecord, judgment analysis.Judgment, ocrText string) message {
	template := "green"
	title := "Product copy check passed"
	if judgment.HasIssues {
		template = "red"
		title = "Product copy check report"
	}

	var c card
	c.Config.WideScreenMode = true
	c.Header.Title = cardText{Tag: "plain_text", Content: title}
	c.Header.Template = template

	markdown := func(content string) cardElement {
		return cardElement{Tag: "div", Text: &cardText{Tag: "lark_md", Content: content}}
	}

	c.Elements = append(c.Elements,
		markdown(fmt.Sprintf("**Product:** %s\n**Shop:** %s", product.Title, product.ShopDomain)),
		markdown(fmt.Sprintf("**Overall quality:** %s\n**Issues found:** %d", judgment.Quality, len(judgment.Issues))),
	)

	if len(judgment.Issues) > 0 {
		c.Elements = append(c.Elements, markdown("**Issue details:**\n"+formatIssues(judgment.Issues)))
	}

	c.Elements = append(c.Elements,
		markdown(fmt.Sprintf("**Recognized text:**\n```\n%s\n```", Truncate(ocrText, TruncateLimit))),
		markdown(fmt.Sprintf("**Checked at:** %s", time.Now().Format(time.RFC3339))),
		cardElement{
			Tag: "action",
			Actions: []cardAction{{
				Tag:  "button",
				Text: cardText{Tag: "plain_text", Content: "View product"},
				Type: "primary",
				URL:  adminURL(product),
			}},
		},
	)

	return message{MsgType: "interactive", Card: c}
}

func formatIssues(issues []analysis.Issue) string {
	var b strings.Builder
	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. **%s** (%s): `%s` → `%s`\n",
			i+1, issue.Kind, issue.Location, issue.Original, issue.Suggestion)
	}
	return strings.TrimRight(b.String(), "\n")
}

func adminURL(product models.ProductRecord) string {
	return fmt.Sprintf("https://%s/admin/products/%s", product.ShopDomain, product.ID)
}

// Truncate caps s at limit characters, appending an ellipsis marker when
// anything was cut.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
