package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/demostand/internal/demomode"
	"github.com/hitoshi/demostand/internal/middleware"
)

// DemoModeServiceInterface はデモモードハンドラーが必要とするサービスインターフェース。
type DemoModeServiceInterface interface {
	// IsEnabled はテナントのデモモードが有効かを返す。
	IsEnabled(ctx context.Context, tenantID string) (bool, error)
	// Enable はデモデータを投入しデモモードを有効化する。
	Enable(ctx context.Context, tenantID string) error
	// Disable はテナントのデモデータを全削除しデモモードを無効化する。
	Disable(ctx context.Context, tenantID string) (demomode.PurgeResult, error)
	// EnsureConsistent はフラグと実データの不整合を検出して修復する。
	EnsureConsistent(ctx context.Context, tenantID string) error
}

// DemoModeHandler はデモモード切替のHTTPハンドラー。
type DemoModeHandler struct {
	service DemoModeServiceInterface
}

// NewDemoModeHandler はDemoModeHandlerを生成する。
func NewDemoModeHandler(service DemoModeServiceInterface) *DemoModeHandler {
	return &DemoModeHandler{service: service}
}

// demoModeRequest はデモモード切替リクエストのボディ。
type demoModeRequest struct {
	Enabled bool `json:"enabled"`
}

// demoModeResponse はデモモード状態のレスポンス。
type demoModeResponse struct {
	Enabled     bool  `json:"enabled"`
	DeletedRows int64 `json:"deleted_rows,omitempty"`
}

// GetState は現在のデモモード状態を返す。
// GET /api/demo-mode
func (h *DemoModeHandler) GetState(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	enabled, err := h.service.IsEnabled(r.Context(), principal.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, demoModeResponse{Enabled: enabled})
}

// Toggle はデモモードを有効化または無効化する。
// POST /api/demo-mode
//
// 有効化はデモデータの投入、無効化はテナントデータの全削除を伴う。
// どちらも冪等で、同じ状態への切替は安全に繰り返せる。
func (h *DemoModeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req demoModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	if req.Enabled {
		if err := h.service.Enable(r.Context(), principal.ID); err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, demoModeResponse{Enabled: true})
		return
	}

	result, err := h.service.Disable(r.Context(), principal.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, demoModeResponse{
		Enabled:     false,
		DeletedRows: result.Total(),
	})
}
