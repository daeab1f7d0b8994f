package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/chemlite/pkg/types/common"
)

// HealthChecker is one dependency probed by the readiness endpoints.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

type checkerFunc struct {
	name  string
	check func(ctx context.Context) error
}

func (c checkerFunc) Name() string                    { return c.name }
func (c checkerFunc) Check(ctx context.Context) error { return c.check(ctx) }

// NewChecker adapts a ping or health method into a HealthChecker.
func NewChecker(name string, check func(ctx context.Context) error) HealthChecker {
	return checkerFunc{name: name, check: check}
}

type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
	timeout  time.Duration
}

// NewHealthHandler reports version and runs checkers on readiness probes.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		timeout:  5 * time.Second,
	}
}

// RegisterRoutes mounts /healthz, /readyz and /healthz/detail.
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/healthz/detail", h.Detailed)
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

type ReadinessResponse struct {
	Status     string                            `json:"status"`
	Version    string                            `json:"version,omitempty"`
	Uptime     string                            `json:"uptime,omitempty"`
	Components map[string]common.ComponentHealth `json:"components,omitempty"`
}

// Liveness answers as long as the process serves HTTP.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  h.uptime(),
	})
}

// Readiness is 503 while any dependency is down.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if len(h.checkers) == 0 {
		c.JSON(http.StatusOK, ReadinessResponse{Status: "ready"})
		return
	}
	components, healthy := h.CheckAll(c.Request.Context())
	resp := ReadinessResponse{Status: "ready", Components: components}
	status := http.StatusOK
	if !healthy {
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Detailed runs every checker and reports each result.
func (h *HealthHandler) Detailed(c *gin.Context) {
	components, healthy := h.CheckAll(c.Request.Context())
	resp := ReadinessResponse{
		Status:     string(common.HealthUp),
		Version:    h.version,
		Uptime:     h.uptime(),
		Components: components,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = string(common.HealthDegraded)
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// CheckAll probes every checker concurrently under the handler timeout.
func (h *HealthHandler) CheckAll(ctx context.Context) (map[string]common.ComponentHealth, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]common.ComponentHealth, len(h.checkers))
	var mu sync.Mutex
	var g errgroup.Group
	for _, checker := range h.checkers {
		checker := checker
		g.Go(func() error {
			start := time.Now()
			err := checker.Check(ctx)
			ch := common.ComponentHealth{
				Name:    checker.Name(),
				Status:  common.HealthUp,
				Latency: time.Since(start),
			}
			if err != nil {
				ch.Status = common.HealthDown
				ch.Message = err.Error()
			}
			mu.Lock()
			results[checker.Name()] = ch
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	healthy := true
	for _, ch := range results {
		if ch.Status != common.HealthUp {
			healthy = false
		}
	}
	return results, healthy
}

func (h *HealthHandler) uptime() string {
	return time.Since(h.startAt).Truncate(time.Second).String()
}
