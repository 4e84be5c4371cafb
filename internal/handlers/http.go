package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/birokt/smittevern/internal/api"
	"github.com/birokt/smittevern/internal/metrics"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HTTPHandler serves the unauthenticated operational endpoints
type HTTPHandler struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHTTPHandler creates a new HTTP handler. db and m may be nil.
func NewHTTPHandler(db *gorm.DB, m *metrics.Metrics, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{db: db, metrics: m, logger: logger}
}

// SetupRoutes configures the health and metrics routes
func (h *HTTPHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
}

// handleHealth reports liveness and, when a database is wired, its reachability
func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	response := map[string]string{
		"status":  "ok",
		"version": Version,
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pingDB(ctx, h.db); err != nil {
			h.logger.Warn("health check: database unreachable", zap.Error(err))
			response["status"] = "degraded"
			response["database"] = "unreachable"
			api.RespondJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		response["database"] = "ok"
	}

	api.RespondJSON(w, http.StatusOK, response)
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
