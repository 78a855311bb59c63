package prediction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/config"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
)

const maxResponseBytes = 1 << 20

// Predictor is the prediction call consumed by the orchestrator
type Predictor interface {
	Predict(ctx context.Context, grouping string, points []ReadingPoint) (map[string]models.PredictionOutcome, error)
	HealthCheck(ctx context.Context) bool
}

// Client calls the remote water-quality model service.
// One attempt per call, bounded by the configured timeout.
type Client struct {
	predictURL string
	healthURL  string
	timeout    time.Duration
	httpClient *http.Client
	codec      Codec
}

// NewClient creates a model service client
func NewClient(cfg config.PredictionConfig, codec Codec) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if codec == nil {
		codec = NewJSONCodec()
	}
	return &Client{
		predictURL: base + cfg.Endpoint,
		healthURL:  base + cfg.HealthPath,
		timeout:    cfg.Timeout(),
		httpClient: &http.Client{},
		codec:      codec,
	}
}

// Predict sends the points of one grouping and returns the decoded outcomes
func (c *Client) Predict(ctx context.Context, grouping string, points []ReadingPoint) (map[string]models.PredictionOutcome, error) {
	body, err := c.codec.EncodeRequest(grouping, points)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictURL, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.NewPredictionError("request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.NewPredictionError("call", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperr.NewPredictionError("read", err)
	}

	logger.Debug().
		Str("grouping", grouping).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Prediction service responded")

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.NewPredictionError("call", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(data, 200)))
	}

	return c.codec.DecodeResponse(data)
}

// HealthCheck reports whether the model service answers its health endpoint
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("url", c.healthURL).Msg("Prediction service health check failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	return resp.StatusCode == http.StatusOK
}
