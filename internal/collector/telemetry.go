package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

const (
	queryPath       = "/v2/metrics/cloud/query"
	descriptorsPath = "/v2/metrics/cloud/descriptors/metrics"
	clusterIDField  = "resource.kafka.id"
	defaultMaxPages = 10
)

type TelemetryCollectorConfig struct {
	Endpoint  string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	MaxPages  int
}

// TelemetryCollector queries the Confluent Cloud Metrics API.
type TelemetryCollector struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	apiSecret string
	maxPages  int
}

func NewTelemetryCollector(cfg TelemetryCollectorConfig) *TelemetryCollector {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	return &TelemetryCollector{
		client:    &http.Client{Timeout: timeout},
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		maxPages:  maxPages,
	}
}

type queryRequest struct {
	Aggregations []aggregation `json:"aggregations"`
	Filter       filter        `json:"filter"`
	Granularity  string        `json:"granularity"`
	Intervals    []string      `json:"intervals"`
}

type aggregation struct {
	Metric string `json:"metric"`
}

type filter struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value string `json:"value"`
}

type queryResponse struct {
	Data []struct {
		Timestamp time.Time `json:"timestamp"`
		Value     float64   `json:"value"`
	} `json:"data"`
	Meta struct {
		Pagination struct {
			NextPageToken string `json:"next_page_token"`
		} `json:"pagination"`
	} `json:"meta"`
}

func (c *TelemetryCollector) ReadSeries(ctx context.Context, q SeriesQuery) ([]models.MetricSample, error) {
	body, err := json.Marshal(queryRequest{
		Aggregations: []aggregation{{Metric: q.Kind.TelemetryName()}},
		Filter:       filter{Field: clusterIDField, Op: "EQ", Value: q.ClusterID},
		Granularity:  string(q.Bucket),
		Intervals:    []string{q.Interval},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrCollectionFailed, err)
	}

	var samples []models.MetricSample
	pageToken := ""
	for page := 0; page < c.maxPages; page++ {
		resp, err := c.queryPage(ctx, q.ClusterID, body, pageToken)
		if err != nil {
			return nil, err
		}
		for _, d := range resp.Data {
			samples = append(samples, models.MetricSample{Timestamp: d.Timestamp, Value: d.Value})
		}
		pageToken = resp.Meta.Pagination.NextPageToken
		if pageToken == "" {
			break
		}
	}
	if pageToken != "" {
		logger.WithClusterCtx(ctx, q.ClusterID).Warnf(
			"Stopped reading %s after %d pages; later samples of the window were dropped",
			q.Kind, c.maxPages,
		)
	}

	logger.WithClusterCtx(ctx, q.ClusterID).Debugf(
		"Read %d samples of %s (granularity=%s, interval=%s)",
		len(samples), q.Kind, q.Bucket, q.Interval,
	)

	return samples, nil
}

func (c *TelemetryCollector) queryPage(ctx context.Context, clusterID string, body []byte, pageToken string) (*queryResponse, error) {
	target := c.endpoint + queryPath
	if pageToken != "" {
		target += "?page_token=" + url.QueryEscape(pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrCollectionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrCollectionFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, clusterID)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrCollectionFailed, resp.StatusCode, truncate(respBody, 200))
	}

	var out queryResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &out, nil
}

// HealthCheck lists metric descriptors, which needs valid credentials but no cluster.
func (c *TelemetryCollector) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+descriptorsPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	default:
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
}

func (c *TelemetryCollector) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
