package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fsaeinventory/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	actionGetInventory    = "getInventory"
	actionGetTransactions = "getTransactions"
	actionSaveInventory   = "saveInventory"
)

// StatusError is returned when the endpoint answers with a non-2xx code.
type StatusError struct {
	Action string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d", e.Action, e.Code)
}

// Client talks to a spreadsheet script endpoint that serves and stores the
// whole inventory through a single URL and an "action" query parameter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a client for the endpoint URL.
func NewClient(baseURL string, timeout time.Duration, retry RetryPolicy, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = models.DefaultRequestTimeout * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		logger:     logger,
		sleep:      sleepContext,
	}
}

// UseRedisCache configures optional Redis caching for GET actions.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// LoadInventory fetches and normalizes the item list.
func (c *Client) LoadInventory(ctx context.Context) ([]models.Item, error) {
	records, err := c.getRecords(ctx, actionGetInventory)
	if err != nil {
		return nil, err
	}
	items := make([]models.Item, 0, len(records))
	for i, rec := range records {
		items = append(items, models.ItemFromRecord(rec, i))
	}
	return items, nil
}

// LoadTransactions fetches the remote movement log.
func (c *Client) LoadTransactions(ctx context.Context) ([]models.Transaction, error) {
	records, err := c.getRecords(ctx, actionGetTransactions)
	if err != nil {
		return nil, err
	}
	txs := make([]models.Transaction, 0, len(records))
	for _, rec := range records {
		txs = append(txs, models.TransactionFromRecord(rec))
	}
	return txs, nil
}

// SaveInventory posts the full snapshot. The response body is not inspected.
func (c *Client) SaveInventory(ctx context.Context, items []models.Item) error {
	if items == nil {
		items = []models.Item{}
	}
	body, err := json.Marshal(struct {
		Items []models.Item `json:"items"`
	}{Items: items})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	endpoint, err := c.actionURL(actionSaveInventory)
	if err != nil {
		return err
	}

	err = c.withRetry(ctx, actionSaveInventory, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		_, err = c.do(req, actionSaveInventory)
		return err
	})
	if err != nil {
		return err
	}

	c.dropCache(ctx, actionGetInventory, actionGetTransactions)
	c.logger.Debug().Int("items", len(items)).Msg("inventory snapshot saved")
	return nil
}

func (c *Client) getRecords(ctx context.Context, action string) ([]models.Record, error) {
	var records []models.Record
	if c.readCache(ctx, action, &records) {
		return records, nil
	}

	endpoint, err := c.actionURL(action)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = c.withRetry(ctx, action, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		raw, err = c.do(req, action)
		return err
	})
	if err != nil {
		return nil, err
	}

	records, err = decodeRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	c.writeCache(ctx, action, records)
	return records, nil
}

// decodeRecords accepts any JSON document; anything but an array of objects
// yields an empty list. Invalid JSON is an error.
func decodeRecords(raw []byte) ([]models.Record, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	list, ok := doc.([]interface{})
	if !ok {
		return []models.Record{}, nil
	}
	records := make([]models.Record, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			obj = map[string]interface{}{}
		}
		records = append(records, models.Record(obj))
	}
	return records, nil
}

func (c *Client) actionURL(action string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse endpoint url: %w", err)
	}
	q := u.Query()
	q.Set("action", action)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) withRetry(ctx context.Context, action string, fn func() error) error {
	attempts := c.retry.attempts()
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts {
			break
		}
		delay := c.retry.NextDelay(attempt)
		c.logger.Warn().Err(err).Str("action", action).Int("attempt", attempt).Dur("delay", delay).Msg("endpoint request failed, retrying")
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError || statusErr.Code == http.StatusTooManyRequests
	}
	return true
}

func (c *Client) do(req *http.Request, action string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", action, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Action: action, Code: resp.StatusCode}
	}
	return data, nil
}

func (c *Client) cacheKey(action string) string {
	return fmt.Sprintf("endpoint:%s:%s", c.baseURL, action)
}

func (c *Client) readCache(ctx context.Context, action string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, c.cacheKey(action)).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, action string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.cacheKey(action), data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("action", action).Msg("cache write failed")
	}
}

func (c *Client) dropCache(ctx context.Context, actions ...string) {
	if c.redis == nil || len(actions) == 0 {
		return
	}
	keys := make([]string, 0, len(actions))
	for _, action := range actions {
		keys = append(keys, c.cacheKey(action))
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
