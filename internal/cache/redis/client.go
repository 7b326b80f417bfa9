package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shopcheck/backend/internal/recognition"
	"github.com/shopcheck/backend/pkg/logger"
	"github.com/shopcheck/backend/pkg/utils"
)

// Client caches recognition outcomes so re-delivered webhooks and repeated
// manual runs against the same image skip the provider cascade.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}

	logger.Info("Redis client initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func outcomeKey(imageURL string) string {
	return "ocr:" + utils.HashString(imageURL)
}

// SetOutcome stores one recognition outcome under the image URL hash.
func (c *Client) SetOutcome(ctx context.Context, imageURL string, outcome recognition.Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	if err := c.client.Set(ctx, outcomeKey(imageURL), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache outcome: %w", err)
	}

	logger.Debug("Recognition outcome cached", zap.String("image_url", imageURL))
	return nil
}

// GetOutcome looks up a cached outcome; the bool reports whether one existed.
func (c *Client) GetOutcome(ctx context.Context, imageURL string) (recognition.Outcome, bool, error) {
	data, err := c.client.Get(ctx, outcomeKey(imageURL)).Bytes()
	if err == redis.Nil {
		return recognition.Outcome{}, false, nil
	}
	if err != nil {
		return recognition.Outcome{}, false, fmt.Errorf("failed to read outcome cache: %w", err)
	}

	var outcome recognition.Outcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return recognition.Outcome{}, false, fmt.Errorf("failed to unmarshal cached outcome: %w", err)
	}

	logger.Debug("Recognition cache hit", zap.String("image_url", imageURL))
	return outcome, true, nil
}
