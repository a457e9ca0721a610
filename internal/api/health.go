package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is implemented by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler provides health check endpoint
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// ServeHTTP handles health check requests
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Database:  "up",
		Timestamp: time.Now().UTC(),
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("database ping failed", "error", err)
		response.Status = "unhealthy"
		response.Database = "down"
		status = http.StatusServiceUnavailable
	}

	WriteJSON(w, status, response, h.logger)
}
