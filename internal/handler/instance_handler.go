package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/demostand/internal/middleware"
	"github.com/hitoshi/demostand/internal/model"
)

// InstanceServiceInterface は接続先インスタンスハンドラーが必要とするサービスインターフェース。
type InstanceServiceInterface interface {
	// SetInstanceURL は接続先URLを検証・疎通確認のうえ保存する。
	SetInstanceURL(ctx context.Context, tenantID, rawURL string) error
	// InstanceURL は保存済みの接続先URLを返す。
	InstanceURL(ctx context.Context, tenantID string) (string, error)
}

// InstanceHandler は接続先インスタンス設定のHTTPハンドラー。
type InstanceHandler struct {
	service InstanceServiceInterface
}

// NewInstanceHandler はInstanceHandlerを生成する。
func NewInstanceHandler(service InstanceServiceInterface) *InstanceHandler {
	return &InstanceHandler{service: service}
}

// instanceRequest は接続先URL更新リクエストのボディ。
type instanceRequest struct {
	URL string `json:"url"`
}

// instanceResponse は接続先URLのレスポンス。
type instanceResponse struct {
	URL string `json:"url"`
}

// Get は保存済みの接続先URLを返す。
// GET /api/instance
func (h *InstanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	url, err := h.service.InstanceURL(r.Context(), principal.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, instanceResponse{URL: url})
}

// Set は接続先URLを検証して保存する。
// PUT /api/instance
//
// デモモード中はサービス層がDEMO_MODE_LOCKEDを返す。
func (h *InstanceHandler) Set(w http.ResponseWriter, r *http.Request) {
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

	var req instanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	if err := h.service.SetInstanceURL(r.Context(), principal.ID, req.URL); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, instanceResponse{URL: req.URL})
}
