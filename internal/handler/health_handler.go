package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/dealwatch/internal/worker/monitor"
)

// healthCheckTimeout はデータベース疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// Pinger はデータベースの疎通確認を行う。*sql.DBが満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatusReporter はモニターの現在状態を返す。
type StatusReporter interface {
	Status() monitor.Status
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	db      Pinger
	monitor StatusReporter
}

// NewHealthHandler はHealthHandlerを生成する。monitorはnilでもよい。
func NewHealthHandler(db Pinger, mon StatusReporter) *HealthHandler {
	return &HealthHandler{db: db, monitor: mon}
}

type healthResponse struct {
	Status   string          `json:"status"`
	Database string          `json:"database"`
	Monitor  *monitor.Status `json:"monitor,omitempty"`
}

// Health はデータベースに疎通できれば200、できなければ503を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	if h.monitor != nil {
		st := h.monitor.Status()
		resp.Monitor = &st
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
