package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/common"
)

func TestTokenBucketLimiter_BurstThenRefill(t *testing.T) {
	l := NewTokenBucketLimiter(2, 3, 0)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, info := l.Allow("10.0.0.1")
		require.True(t, ok, "request %d", i)
		assert.Equal(t, 2-i, info.Remaining)
	}
	ok, info := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 0, info.Remaining)

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(500 * time.Millisecond)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok, "one token refilled after half a second at 2 rps")
}

func TestTokenBucketLimiter_Cleanup(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1, time.Minute)
	defer l.Stop()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.BucketCount())

	now = now.Add(2 * time.Minute)
	l.Allow("b")
	l.cleanup()
	assert.Equal(t, 1, l.BucketCount())

	l.Stop()
	l.Stop()
}

func TestRateLimit_Middleware(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 1, 0)
	r := newEngine(RateLimit(l, DefaultRateLimitConfig()))

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/pathways/glyc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/pathways/glyc", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	var body struct {
		Error *common.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(errors.ErrCodeTooManyRequests), body.Error.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code, "probes are never limited")
}
