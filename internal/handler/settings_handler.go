package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/demostand/internal/middleware"
	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/permission"
	"github.com/hitoshi/demostand/internal/settings"
)

// SettingsAccessor は設定ハンドラーが必要とするストアインターフェース。
// settings.Storeの部分集合として定義する。
type SettingsAccessor interface {
	Get(ctx context.Context, key, tenantID, def string) (string, error)
	Set(ctx context.Context, key, value, tenantID string) error
	IsDemoMode(ctx context.Context, tenantID string) (bool, error)
}

// SettingsHandler はテナント設定のHTTPハンドラー。
type SettingsHandler struct {
	store SettingsAccessor
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(store SettingsAccessor) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// settingRequest は設定更新リクエストのボディ。
type settingRequest struct {
	Value string `json:"value"`
}

// settingResponse は設定値のレスポンス。
type settingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Get は設定値を解決順序に従って返す。
// GET /api/settings/{key}
//
// 接続情報（APIトークン等）は読み取りでも返さない。
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	key := chi.URLParam(r, "key")
	if key == settings.KeyAPIToken {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewPermissionDeniedError())
		return
	}

	value, err := h.store.Get(r.Context(), key, principal.ID, "")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settingResponse{Key: key, Value: value})
}

// Set は設定値をテナント単位で上書きする。
// PUT /api/settings/{key}
//
// 接続関連キーはデモモード中は変更できず、EditConnection権限が必要。
func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	perms := middleware.PermissionsFromContext(r.Context())
	if !perms.CanManageSettings() {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewPermissionDeniedError())
		return
	}

	key := chi.URLParam(r, "key")

	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	if settings.IsConnectionKey(key) {
		// 接続情報の変更は専用権限が必要
		if !perms.Has(permission.EditConnection) {
			writeAPIErrorResponse(w, http.StatusForbidden, model.NewPermissionDeniedError())
			return
		}

		// デモモード中は接続設定をロックする
		demoMode, err := h.store.IsDemoMode(r.Context(), principal.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if demoMode {
			writeAPIErrorResponse(w, http.StatusConflict, model.NewDemoModeLockedError())
			return
		}
	}

	if err := h.store.Set(r.Context(), key, req.Value, principal.ID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settingResponse{Key: key, Value: req.Value})
}
