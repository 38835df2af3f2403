package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/demostand/internal/middleware"
	"github.com/hitoshi/demostand/internal/model"
)

// AccountDirectory は管理ハンドラーが必要とする申込レコードの参照インターフェース。
// repository.DemoAccountRepositoryの部分集合として定義する。
type AccountDirectory interface {
	ListAll(ctx context.Context) ([]*model.DemoAccount, error)
	CountByState(ctx context.Context) (unverified, verified int, err error)
}

// AdminHandler は管理APIのHTTPハンドラー。
// すべてのエンドポイントはview_admin権限を要求する。
type AdminHandler struct {
	directory AccountDirectory
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(directory AccountDirectory) *AdminHandler {
	return &AdminHandler{directory: directory}
}

// adminAccountResponse は管理API向けの申込レコードのレスポンス。
// トークンやパスワードハッシュは含めない。
type adminAccountResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Organization string     `json:"organization,omitempty"`
	Verified     bool       `json:"verified"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// adminStatusResponse は申込状況サマリーのレスポンス。
type adminStatusResponse struct {
	Unverified int `json:"unverified"`
	Verified   int `json:"verified"`
	Total      int `json:"total"`
}

// ListAccounts は全申込レコードの一覧を返す。
// GET /api/admin/accounts
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	accounts, err := h.directory.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]adminAccountResponse, 0, len(accounts))
	for _, account := range accounts {
		resp = append(resp, adminAccountResponse{
			ID:           account.ID,
			Email:        account.Email,
			DisplayName:  account.DisplayName,
			Organization: account.Organization,
			Verified:     account.IsVerified(),
			CreatedAt:    account.CreatedAt,
			LastLoginAt:  account.LastLoginAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status は申込状況のサマリーを返す。
// GET /api/admin/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	unverified, verified, err := h.directory.CountByState(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, adminStatusResponse{
		Unverified: unverified,
		Verified:   verified,
		Total:      unverified + verified,
	})
}

// authorize はview_admin権限を検証する。権限がない場合はレスポンスを書き込みfalseを返す。
func (h *AdminHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	perms := middleware.PermissionsFromContext(r.Context())
	if !perms.CanViewAdmin() {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewPermissionDeniedError())
		return false
	}
	return true
}
