// Package client is the Go SDK for the chemlite REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/common"
)

const Version = "0.1.0"

var ErrInvalidConfig = errors.New(errors.ErrCodeValidation, "invalid client configuration")

type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	pathways     *PathwaysClient
	pathwaysOnce sync.Once
}

// APIError is a non-2xx answer. Code and Detail come from the response
// envelope when the server sent one.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("chemlite: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg + " [request_id=" + e.RequestID + "]"
}

func (e *APIError) IsNotFound() bool      { return e.StatusCode == http.StatusNotFound }
func (e *APIError) IsConflict() bool      { return e.StatusCode == http.StatusConflict }
func (e *APIError) IsRateLimited() bool   { return e.StatusCode == http.StatusTooManyRequests }
func (e *APIError) IsServerError() bool   { return e.StatusCode >= 500 && e.StatusCode < 600 }
func (e *APIError) IsClientError() bool   { return e.StatusCode >= 400 && e.StatusCode < 500 }
func (e *APIError) HasCode(c string) bool { return e.Code == c }

// envelope is the server's response body.
type envelope struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data"`
	Error      *common.ErrorDetail `json:"error"`
	Pagination *common.Pagination  `json:"pagination"`
}

// NewClient creates a client for the API at baseURL, which must be an http
// or https URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: baseURL required", ErrInvalidConfig)
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid baseURL: %v", ErrInvalidConfig, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: baseURL scheme must be http or https", ErrInvalidConfig)
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    fmt.Sprintf("chemlite-go-sdk/%s", Version),
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Pathways returns the pathway endpoints client.
func (c *Client) Pathways() *PathwaysClient {
	c.pathwaysOnce.Do(func() {
		c.pathways = &PathwaysClient{client: c}
	})
	return c.pathways
}

// do sends one request and decodes the envelope's data into result when
// result is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) (*common.Pagination, error) {
	raw, err := c.doRaw(ctx, method, path, body, "application/json")
	if err != nil {
		return nil, err
	}
	if result == nil || len(raw) == 0 {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return env.Pagination, nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return env.Pagination, nil
}

// doRaw returns the raw body of a 2xx answer. Transport errors and 5xx are
// retried with exponential backoff; 429 waits for Retry-After when the
// server sends one.
func (c *Client) doRaw(ctx context.Context, method, path string, body interface{}, accept string) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = b
	}

	var lastErr error
	var wait time.Duration
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			if wait <= 0 {
				wait = c.calculateBackoff(attempt)
			}
			c.logger.Debugf("retry attempt %d after %v", attempt, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			wait = 0
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		requestID := uuid.New().String()
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Errorf("request failed: %v", err)
			lastErr = err
			continue
		}
		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, time.Since(start))

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode < 400 {
			return respBody, nil
		}

		apiErr := newAPIError(resp.StatusCode, requestID, respBody)
		lastErr = apiErr
		switch {
		case apiErr.IsRateLimited():
			seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
			if err != nil {
				return nil, apiErr
			}
			c.logger.Infof("rate limited, retrying after %d seconds", seconds)
			wait = time.Duration(seconds) * time.Second
		case apiErr.IsServerError():
		default:
			return nil, apiErr
		}
	}
	return nil, lastErr
}

func newAPIError(status int, requestID string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Detail = env.Error.Detail
	} else if len(body) > 0 {
		apiErr.Message = string(body)
	} else {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	if q := int64(backoff / 4); q > 0 {
		backoff += time.Duration(rand.Int63n(q))
	}
	return backoff
}
