package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/todoapp/internal/repository"
)

// healthCheckTimeout はストア疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// HealthHandler はストアの疎通を確認するヘルスチェックハンドラー。
type HealthHandler struct {
	store repository.Pinger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(store repository.Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

type healthResponse struct {
	Status string `json:"status"`
}

// Health はストアに到達できれば200、できなければ503を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.store.PingContext(ctx); err != nil {
		slog.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
