package arcgis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/mpls-liquor-etl/internal/domain"
	"github.com/couchcryptid/mpls-liquor-etl/internal/observability"
)

// Client fetches the license feed from an ArcGIS FeatureServer GeoJSON query.
// It implements pipeline.FeedExtractor.
type Client struct {
	feedURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client for the given query URL.
func NewClient(feedURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Extract performs one GET against the feed and flattens the returned feature
// collection. Any failure is returned as is; there is no retry.
func (c *Client) Extract(ctx context.Context) (domain.Table, error) {
	start := time.Now()
	table, err := c.fetch(ctx)
	c.metrics.FeedDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FeedErrors.Inc()
		return domain.Table{}, err
	}

	c.metrics.FeaturesFetched.Add(float64(len(table.Rows)))
	c.logger.Info("license feed fetched",
		"features", len(table.Rows),
		"columns", len(table.Columns),
		"duration", time.Since(start),
	)
	return table, nil
}

func (c *Client) fetch(ctx context.Context) (domain.Table, error) {
	body, err := c.Download(ctx)
	if err != nil {
		return domain.Table{}, err
	}
	table, err := domain.FlattenFeatureCollection(bytes.NewReader(body))
	if err != nil {
		return domain.Table{}, fmt.Errorf("read feed: %w", err)
	}
	return table, nil
}

// Download performs the feed GET and returns the raw response body.
func (c *Client) Download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("feed error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return body, nil
}
