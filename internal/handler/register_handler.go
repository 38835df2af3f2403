// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/demostand/internal/metrics"
	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/registration"
)

const sessionCookieName = "session_id"

// RegistrationServiceInterface は申込ハンドラーが必要とするサービスインターフェース。
type RegistrationServiceInterface interface {
	// Register はデモ申込を受け付け、確認メールを送信する。
	Register(ctx context.Context, input registration.RegisterInput) (*model.DemoAccount, error)
	// Verify は確認トークンを検証し、プリンシパルを払い出す。
	Verify(ctx context.Context, token string) (*model.Principal, error)
}

// SessionCreator は確認完了直後の自動ログインに必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type SessionCreator interface {
	CreateSession(ctx context.Context, principalID string) (*model.Session, error)
}

// HandlerConfig はCookieやリダイレクト先の共通設定。
type HandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// RegisterHandler はデモ申込・本人確認のHTTPハンドラー。
type RegisterHandler struct {
	service        RegistrationServiceInterface
	sessionCreator SessionCreator
	config         HandlerConfig
	metrics        metrics.MetricsCollector
}

// NewRegisterHandler はRegisterHandlerを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewRegisterHandler(
	service RegistrationServiceInterface,
	sessionCreator SessionCreator,
	config HandlerConfig,
	collector metrics.MetricsCollector,
) *RegisterHandler {
	return &RegisterHandler{
		service:        service,
		sessionCreator: sessionCreator,
		config:         config,
		metrics:        collector,
	}
}

// registerRequest はデモ申込リクエストのボディ。
type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	DisplayName  string `json:"display_name"`
	Organization string `json:"organization"`
	Purpose      string `json:"purpose"`
	Consent      bool   `json:"consent"`
}

// registerResponse はデモ申込成功時のレスポンス。
type registerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Register はデモ申込を処理する。
// POST /api/register
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	_, err := h.service.Register(r.Context(), registration.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		DisplayName:  req.DisplayName,
		Organization: req.Organization,
		PurposeText:  req.Purpose,
		Consent:      req.Consent,
	})
	if err != nil {
		h.recordConflict(err)
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRegistration()
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Success: true,
		Message: "確認メールを送信しました。メール内のリンクから登録を完了してください。",
	})
}

// Verify は確認トークンを検証し、完了画面へリダイレクトする。
// GET /verify?token=xxx
//
// 成功時はセッションを作成してダッシュボードへ303リダイレクトする。
// 消費済みトークン（ALREADY_VERIFIED）はログイン画面へリダイレクトする。
func (h *RegisterHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	principal, err := h.service.Verify(r.Context(), token)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeAlreadyVerified {
			http.Redirect(w, r, h.config.BaseURL+"/login", http.StatusSeeOther)
			return
		}
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordVerification()
	}

	// 確認完了直後に自動ログインさせる。
	// セッション作成に失敗してもリダイレクトは行う（ログイン画面から入り直せる）。
	session, err := h.sessionCreator.CreateSession(r.Context(), principal.ID)
	if err != nil {
		slog.Error("failed to create session after verification",
			slog.String("principal_id", principal.ID),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, h.config.BaseURL+"/login", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.config.BaseURL+"/dashboard", http.StatusSeeOther)
}

// recordConflict は申込が重複で弾かれた場合に理由付きでメトリクスを記録する。
func (h *RegisterHandler) recordConflict(err error) {
	if h.metrics == nil {
		return
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return
	}
	switch apiErr.Code {
	case model.ErrCodeVerificationPending, model.ErrCodeAlreadyRegistered:
		h.metrics.RecordRegistrationConflict(apiErr.Code)
	}
}
