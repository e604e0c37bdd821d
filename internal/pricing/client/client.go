// Package client provides the HTTP client for the external rate engine.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inspection_booking_backend/internal/pricing/transport"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
)

// Client is the HTTP client for the rate engine.
type Client struct {
	httpClient *http.Client
	endpoint   string
	log        *logger.Logger
}

// New creates a rate engine client.
func New(cfg config.PricingConfig, log *logger.Logger) *Client {
	timeout := cfg.GetPricingTimeout()
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	path := cfg.GetPricingEstimatePath()
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(cfg.GetPricingURL(), "/") + path,
		log:        log,
	}
}

// Estimate posts the request and decodes the price.
func (c *Client) Estimate(ctx context.Context, reqBody transport.EstimateRequest) (transport.EstimateResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return transport.EstimateResponse{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return transport.EstimateResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("rate engine request failed", "error", err, "service", reqBody.Service)
		return transport.EstimateResponse{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Warn("rate engine rejected request", "status", resp.StatusCode, "service", reqBody.Service, "body", string(body))
		return transport.EstimateResponse{}, fmt.Errorf("bad request: status %d", resp.StatusCode)
	default:
		c.log.Error("rate engine upstream error", "status", resp.StatusCode, "service", reqBody.Service)
		return transport.EstimateResponse{}, fmt.Errorf("upstream error: status %d", resp.StatusCode)
	}

	var out transport.EstimateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Error("rate engine decode failed", "error", err)
		return transport.EstimateResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
