// Package notion provides a minimal client for the Notion database query
// API with retry, metrics, and a page fetcher that walks every result page.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/guttosm/networth/internal/domain/models"
	"github.com/guttosm/networth/internal/logger"
)

const (
	// DefaultBaseURL is the public Notion API endpoint.
	DefaultBaseURL = "https://api.notion.com"

	// DefaultVersion is the Notion-Version header sent on every request.
	DefaultVersion = "2022-06-28"

	// MaxPageSize is the largest page the query endpoint returns.
	MaxPageSize = 100

	maxErrorBody = 1 << 20
)

// Config holds the client configuration.
type Config struct {
	// Token is the integration secret (REQUIRED).
	Token string

	// BaseURL and Version default to the public API values.
	BaseURL string
	Version string

	// Timeout bounds each HTTP call (default 30s).
	Timeout time.Duration

	Retry RetryConfig
}

// QueryRequest is one page request against a database.
type QueryRequest struct {
	DatabaseID  string `json:"-"`
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// QueryResponse is one page of query results.
type QueryResponse struct {
	Results    []models.Record `json:"results"`
	HasMore    bool            `json:"has_more"`
	NextCursor string          `json:"next_cursor"`
}

// errorEnvelope is the body Notion returns on non-2xx responses.
type errorEnvelope struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is a Notion API client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new Notion client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("notion token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid notion base url: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logger.Component("notion-client"),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// QueryDatabase fetches a single page of a database query, retrying
// transient failures per the configured RetryConfig.
func (c *Client) QueryDatabase(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if req.DatabaseID == "" {
		return nil, fmt.Errorf("database id is required")
	}
	if req.PageSize <= 0 || req.PageSize > MaxPageSize {
		req.PageSize = MaxPageSize
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	endpoint := c.config.BaseURL + "/v1/databases/" + url.PathEscape(req.DatabaseID) + "/query"

	var out *QueryResponse
	err = retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		resp, err := c.do(ctx, endpoint, body)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// do performs one HTTP round trip and decodes the result.
func (c *Client) do(ctx context.Context, endpoint string, body []byte) (*QueryResponse, error) {
	start := time.Now()
	defer func() { requestDuration.Observe(time.Since(start).Seconds()) }()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	httpReq.Header.Set("Notion-Version", c.config.Version)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, &APIError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	var out QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Message:    "decode response",
			Err:        err,
		}
	}

	c.logger.Debug().
		Int("results", len(out.Results)).
		Bool("has_more", out.HasMore).
		Dur("duration", time.Since(start)).
		Msg("notion query page")

	return &out, nil
}

// decodeAPIError builds an APIError from a non-2xx response.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Class:      classifyStatus(resp.StatusCode),
		Message:    http.StatusText(resp.StatusCode),
	}

	var env errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, &env); err == nil && env.Object == "error" {
		apiErr.Code = env.Code
		if env.Message != "" {
			apiErr.Message = env.Message
		}
	}

	if apiErr.Class == ErrorClassRateLimit {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}
