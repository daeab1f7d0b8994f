// Package opensearch indexes the compound catalogue for full-text lookup.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v3"

	"github.com/turtacn/chemlite/internal/config"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
)

var (
	ErrInvalidConfig    = errors.New(errors.ErrCodeValidation, "opensearch addresses required")
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "opensearch connection failed")
)

// Client performs raw requests against the cluster.
type Client struct {
	client  *opensearch.Client
	timeout time.Duration
	logger  logging.Logger
	healthy atomic.Bool
}

func NewClient(cfg config.OpenSearchConfig, logger logging.Logger) (*Client, error) {
	c, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "opensearch connection failed")
	}
	logger.Info("opensearch client connected", logging.Strings("addresses", cfg.Addresses))
	return c, nil
}

func newClient(cfg config.OpenSearchConfig, logger logging.Logger) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, ErrInvalidConfig
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{MaxIdleConnsPerHost: 10}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		Transport:     transport,
		MaxRetries:    3,
		RetryBackoff:  func(int) time.Duration { return 100 * time.Millisecond },
		RetryOnStatus: []int{502, 503, 504, 429},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create opensearch client")
	}
	return &Client{client: client, timeout: timeout, logger: logger}, nil
}

// Ping checks the cluster root endpoint.
func (c *Client) Ping(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodHead, "/", nil)
	if err == nil && status >= 300 {
		err = errors.New(errors.ErrCodeServiceUnavailable, "ping returned error status").WithDetail(http.StatusText(status))
	}
	c.healthy.Store(err == nil)
	if err != nil {
		c.logger.Warn("opensearch ping failed", logging.Err(err))
	}
	return err
}

// IsHealthy reports the result of the last Ping.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// do sends one request. body is JSON encoded unless it is already a byte
// slice.
func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return 0, nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode request body")
		}
		r = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, path, r)
	if err != nil {
		return 0, nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build opensearch request")
	}
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Perform(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, errors.ErrCodeExternalService, "opensearch request failed").WithDetail(method + " " + path)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to read opensearch response")
	}
	return resp.StatusCode, data, nil
}

// errorResponse turns a non-2xx reply into an AppError.
func errorResponse(status int, body []byte, message string) error {
	var payload struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	detail := http.StatusText(status)
	if json.Unmarshal(body, &payload) == nil && payload.Error.Type != "" {
		detail = payload.Error.Type + ": " + payload.Error.Reason
	}
	return errors.New(errors.ErrCodeExternalService, message).WithDetail(detail)
}
