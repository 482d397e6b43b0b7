package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/examgate/internal/response"
)

const healthTimeout = 2 * time.Second

// Pinger is a store that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	store     Pinger
	rdb       *redis.Client
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. rdb may be nil.
func NewHealthHandler(store Pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{store: store, rdb: rdb, startTime: time.Now()}
}

type healthStatus struct {
	Status     string `json:"status"`
	Store      string `json:"store"`
	Redis      string `json:"redis"`
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
}

// Health godoc
// GET /health
// 200 when the store answers, 503 otherwise. Redis is optional and only reported.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := healthStatus{
		Status:     "ok",
		Store:      "ok",
		Redis:      "disabled",
		Uptime:     time.Since(h.startTime).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}

	if err := h.store.Ping(ctx); err != nil {
		status.Status, status.Store = "degraded", "unreachable"
	}
	if h.rdb != nil {
		status.Redis = "ok"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			status.Redis = "unreachable"
		}
	}

	code := http.StatusOK
	if status.Store != "ok" {
		code = http.StatusServiceUnavailable
	}
	response.Success(c, code, status)
}
