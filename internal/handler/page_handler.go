package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/demostand/internal/middleware"
	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/page"
)

// PageServiceInterface はデモページハンドラーが必要とするサービスインターフェース。
type PageServiceInterface interface {
	Create(ctx context.Context, actor *model.Principal, input page.Input) (*model.Page, error)
	Update(ctx context.Context, actor *model.Principal, pageID string, input page.Input) (*model.Page, error)
	Get(ctx context.Context, actor *model.Principal, pageID string) (*model.Page, error)
	List(ctx context.Context, actor *model.Principal) ([]*model.Page, error)
	Delete(ctx context.Context, actor *model.Principal, pageID string) error
}

// PageHandler はデモページCRUDのHTTPハンドラー。
type PageHandler struct {
	service PageServiceInterface
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(service PageServiceInterface) *PageHandler {
	return &PageHandler{service: service}
}

// pageRequest はページ作成・更新リクエストのボディ。
type pageRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

// pageResponse はページのAPIレスポンス。
type pageResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Create はページを新規作成する。
// POST /api/pages
func (h *PageHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	created, err := h.service.Create(r.Context(), principal, toPageInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPageResponse(created))
}

// Update はページを上書き更新する。
// PUT /api/pages/{id}
func (h *PageHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	updated, err := h.service.Update(r.Context(), principal, chi.URLParam(r, "id"), toPageInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPageResponse(updated))
}

// Get はページ詳細を返す。
// GET /api/pages/{id}
func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	found, err := h.service.Get(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPageResponse(found))
}

// List は自テナントのページ一覧を返す。
// GET /api/pages
func (h *PageHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	pages, err := h.service.List(r.Context(), principal)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]pageResponse, 0, len(pages))
	for _, p := range pages {
		resp = append(resp, toPageResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete はページを削除する。
// DELETE /api/pages/{id}
func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toPageInput はリクエストボディからサービス入力に変換する。
func toPageInput(req pageRequest) page.Input {
	return page.Input{
		Title:       req.Title,
		ContentHTML: req.Content,
		Status:      model.PageStatus(req.Status),
	}
}

// toPageResponse はmodel.PageからAPIレスポンスに変換する。
func toPageResponse(p *model.Page) pageResponse {
	return pageResponse{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.ContentHTML,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
