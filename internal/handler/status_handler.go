package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/socialdemo/internal/middleware"
	"github.com/hitoshi/socialdemo/internal/viewstate"
)

// StatusContainer は外部API稼働状況のビュー状態コンテナのインターフェース。
type StatusContainer interface {
	Check(ctx context.Context) bool
	Snapshot() viewstate.StatusSnapshot
}

// StatusHandler は稼働状況のHTTPハンドラー。
type StatusHandler struct {
	status StatusContainer
}

// NewStatusHandler はStatusHandlerを生成する。
func NewStatusHandler(status StatusContainer) *StatusHandler {
	return &StatusHandler{status: status}
}

// Health はこのプロセスの死活状態を返す。外部APIの状態には依存しない。
// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatus は外部APIの稼働状況を返す。
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.status.Snapshot())
}

// Check は外部APIの稼働状況を即時に確認して返す。
// POST /api/status/check
func (h *StatusHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.status.Check(shared(r))
	middleware.WriteJSON(w, http.StatusOK, h.status.Snapshot())
}
