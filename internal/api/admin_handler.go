package api

import (
	"database/sql"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/crewboard/crewboard-api/internal/platform/logger"
	"github.com/crewboard/crewboard-api/internal/queue"
)

// AdminHandler serves operational endpoints: queue visibility and health.
type AdminHandler struct {
	monitor *queue.Monitor
	db      *sql.DB
	redis   *redis.Client
}

// NewAdminHandler creates a new AdminHandler. db and redis may be nil when
// the corresponding backend is not configured; Health then skips them.
func NewAdminHandler(monitor *queue.Monitor, db *sql.DB, rdb *redis.Client) *AdminHandler {
	return &AdminHandler{
		monitor: monitor,
		db:      db,
		redis:   rdb,
	}
}

// Queues handles GET /admin/queues. It returns per-queue job counts; a
// counting failure for one queue appears in that queue's entry without
// failing the whole response.
func (h *AdminHandler) Queues(w http.ResponseWriter, r *http.Request) {
	stats := h.monitor.Stats(r.Context())
	RespondWithJSON(w, r, http.StatusOK, stats)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Redis    string `json:"redis,omitempty"`
}

// Health handles GET /healthz. It pings the configured backends and reports
// 503 when any of them is unreachable.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK

	if h.db != nil {
		resp.Database = "ok"
		if err := h.db.PingContext(ctx); err != nil {
			logger.FromContext(ctx).Error("database health check failed", "error", err)
			resp.Database = "unreachable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	if h.redis != nil {
		resp.Redis = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			logger.FromContext(ctx).Error("redis health check failed", "error", err)
			resp.Redis = "unreachable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	RespondWithJSON(w, r, status, resp)
}
