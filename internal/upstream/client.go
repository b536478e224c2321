// Package upstream is the HTTP client for the content backend. The backend
// is an external collaborator; this package only moves raw records across
// the wire and classifies failures.
package upstream

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/quillpress/prerender/internal/config"
	"github.com/quillpress/prerender/internal/content"
	"github.com/quillpress/prerender/internal/logger"
)

// ErrNotFound is returned when the backend reports the record does not
// exist. Callers treat this as a distinct condition from transient fetch
// failures: not-found redirects, transient failures degrade to stale cache.
var ErrNotFound = errors.New("content not found")

const tracerName = "prerender/upstream"

// Client fetches content records from the backend API.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     logger.Logger
	tracer     trace.Tracer
}

// relatedResponse is the backend's listing envelope.
type relatedResponse struct {
	Items []content.RawRecord `json:"items"`
	Count int                 `json:"count"`
}

// NewClient creates a backend client from the upstream configuration.
func NewClient(cfg *config.UpstreamConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}
}

// FetchPrimary retrieves the primary record for a slug or id. The record is
// returned as-is; shape resolution belongs to the content package.
func (c *Client) FetchPrimary(ctx context.Context, slugOrID string) (content.RawRecord, error) {
	ctx, span := c.tracer.Start(ctx, "upstream.FetchPrimary")
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/v1/content/%s", c.baseURL, url.PathEscape(slugOrID))

	var record content.RawRecord
	if err := c.getJSON(ctx, endpoint, &record); err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched primary record",
		logger.String("slug_or_id", slugOrID),
	)
	return record, nil
}

// FetchRelated retrieves up to limit raw records of the same type, excluding
// the given content id. The backend applies the exclusion; the resolver
// re-applies it defensively after normalization.
func (c *Client) FetchRelated(ctx context.Context, contentID, contentType string, tags []string, limit int) ([]content.RawRecord, error) {
	ctx, span := c.tracer.Start(ctx, "upstream.FetchRelated")
	defer span.End()

	query := url.Values{}
	query.Set("type", contentType)
	query.Set("exclude", contentID)
	query.Set("limit", strconv.Itoa(limit))
	if len(tags) > 0 {
		query.Set("tags", strings.Join(tags, ","))
	}
	endpoint := fmt.Sprintf("%s/api/v1/content?%s", c.baseURL, query.Encode())

	var resp relatedResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched related records",
		logger.String("content_id", contentID),
		logger.String("content_type", contentType),
		logger.Int("item_count", len(resp.Items)),
	)
	return resp.Items, nil
}

// getJSON performs one GET with the per-call timeout and decodes the body.
func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("Backend request failed",
			logger.String("url", endpoint),
			logger.Duration("duration", duration),
			logger.Error(err),
		)
		return fmt.Errorf("fetch from backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Backend returned non-OK status",
			logger.String("url", endpoint),
			logger.Int("status_code", resp.StatusCode),
			logger.Duration("duration", duration),
		)
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		c.logger.Error("Failed to decode backend response",
			logger.String("url", endpoint),
			logger.Duration("duration", duration),
			logger.Error(err),
		)
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
