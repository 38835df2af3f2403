package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/demostand/internal/middleware"
	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/registration"
)

// --- モック定義 ---

// mockRegistrationService はRegistrationServiceInterfaceのモック実装。
type mockRegistrationService struct {
	registerFn func(ctx context.Context, input registration.RegisterInput) (*model.DemoAccount, error)
	verifyFn   func(ctx context.Context, token string) (*model.Principal, error)
}

func (m *mockRegistrationService) Register(ctx context.Context, input registration.RegisterInput) (*model.DemoAccount, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return nil, nil
}

func (m *mockRegistrationService) Verify(ctx context.Context, token string) (*model.Principal, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, token)
	}
	return nil, nil
}

// mockSessionCreator はSessionCreatorのモック実装。
type mockSessionCreator struct {
	createSessionFn func(ctx context.Context, principalID string) (*model.Session, error)
}

func (m *mockSessionCreator) CreateSession(ctx context.Context, principalID string) (*model.Session, error) {
	if m.createSessionFn != nil {
		return m.createSessionFn(ctx, principalID)
	}
	return &model.Session{ID: "session-1", PrincipalID: principalID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// --- テストヘルパー ---

// testConfig はテスト用の共通ハンドラー設定。
var testConfig = HandlerConfig{
	BaseURL:       "https://demo.example.com",
	CookieSecure:  true,
	SessionMaxAge: 86400,
}

// withPrincipal はテスト用にリクエストコンテキストにプリンシパルを注入するヘルパー。
func withPrincipal(r *http.Request, principal *model.Principal) *http.Request {
	ctx := middleware.ContextWithPrincipal(r.Context(), principal)
	return r.WithContext(ctx)
}

// demoTester はテスト用のデモテスタープリンシパルを生成するヘルパー。
func demoTester(id string) *model.Principal {
	return &model.Principal{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: "テスター",
		Role:        model.RoleDemoTester,
	}
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// --- POST /api/register テスト ---

func TestRegisterHandler_Register_Success(t *testing.T) {
	svc := &mockRegistrationService{
		registerFn: func(ctx context.Context, input registration.RegisterInput) (*model.DemoAccount, error) {
			if input.Email != "tester@example.com" {
				t.Errorf("Email = %q, want %q", input.Email, "tester@example.com")
			}
			if !input.Consent {
				t.Error("Consent = false, want true")
			}
			return &model.DemoAccount{ID: "acct-1", Email: input.Email}, nil
		},
	}

	h := NewRegisterHandler(svc, &mockSessionCreator{}, testConfig, nil)

	body := `{"email": "tester@example.com", "password": "password123", "display_name": "テスター", "consent": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var result registerResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.Success {
		t.Error("success = false, want true")
	}
}

func TestRegisterHandler_Register_InvalidJSON(t *testing.T) {
	h := NewRegisterHandler(&mockRegistrationService{}, &mockSessionCreator{}, testConfig, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString("{invalid"))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRegisterHandler_Register_PendingDuplicate409(t *testing.T) {
	svc := &mockRegistrationService{
		registerFn: func(ctx context.Context, input registration.RegisterInput) (*model.DemoAccount, error) {
			return nil, model.NewVerificationPendingError()
		},
	}

	h := NewRegisterHandler(svc, &mockSessionCreator{}, testConfig, nil)

	body := `{"email": "tester@example.com", "password": "password123", "consent": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeVerificationPending {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeVerificationPending)
	}
}

func TestRegisterHandler_Register_RegisteredDuplicate409(t *testing.T) {
	svc := &mockRegistrationService{
		registerFn: func(ctx context.Context, input registration.RegisterInput) (*model.DemoAccount, error) {
			return nil, model.NewAlreadyRegisteredError()
		},
	}

	h := NewRegisterHandler(svc, &mockSessionCreator{}, testConfig, nil)

	body := `{"email": "tester@example.com", "password": "password123", "consent": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeAlreadyRegistered {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeAlreadyRegistered)
	}
}

// --- GET /verify テスト ---

func TestRegisterHandler_Verify_RedirectsToDashboard(t *testing.T) {
	svc := &mockRegistrationService{
		verifyFn: func(ctx context.Context, token string) (*model.Principal, error) {
			if token != "valid-token" {
				t.Errorf("token = %q, want %q", token, "valid-token")
			}
			return demoTester("principal-1"), nil
		},
	}
	creator := &mockSessionCreator{
		createSessionFn: func(ctx context.Context, principalID string) (*model.Session, error) {
			if principalID != "principal-1" {
				t.Errorf("principalID = %q, want %q", principalID, "principal-1")
			}
			return &model.Session{ID: "session-abc", PrincipalID: principalID}, nil
		},
	}

	h := NewRegisterHandler(svc, creator, testConfig, nil)

	req := httptest.NewRequest(http.MethodGet, "/verify?token=valid-token", nil)
	w := httptest.NewRecorder()

	h.Verify(w, req)

	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "https://demo.example.com/dashboard" {
		t.Errorf("Location = %q, want dashboard redirect", loc)
	}

	// 自動ログイン用のセッションCookieが設定される
	cookies := w.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == sessionCookieName && c.Value == "session-abc" {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie should be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("session cookie not set after verification")
	}
}

func TestRegisterHandler_Verify_AlreadyVerifiedRedirectsToLogin(t *testing.T) {
	svc := &mockRegistrationService{
		verifyFn: func(ctx context.Context, token string) (*model.Principal, error) {
			return nil, model.NewAlreadyVerifiedError()
		},
	}

	h := NewRegisterHandler(svc, &mockSessionCreator{}, testConfig, nil)

	req := httptest.NewRequest(http.MethodGet, "/verify?token=used-token", nil)
	w := httptest.NewRecorder()

	h.Verify(w, req)

	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "https://demo.example.com/login" {
		t.Errorf("Location = %q, want login redirect", loc)
	}
}

func TestRegisterHandler_Verify_InvalidToken401(t *testing.T) {
	svc := &mockRegistrationService{
		verifyFn: func(ctx context.Context, token string) (*model.Principal, error) {
			return nil, model.NewInvalidTokenError()
		},
	}

	h := NewRegisterHandler(svc, &mockSessionCreator{}, testConfig, nil)

	req := httptest.NewRequest(http.MethodGet, "/verify?token=bogus", nil)
	w := httptest.NewRecorder()

	h.Verify(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeInvalidToken {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeInvalidToken)
	}
}

func TestRegisterHandler_Verify_SessionFailureRedirectsToLogin(t *testing.T) {
	svc := &mockRegistrationService{
		verifyFn: func(ctx context.Context, token string) (*model.Principal, error) {
			return demoTester("principal-1"), nil
		},
	}
	creator := &mockSessionCreator{
		createSessionFn: func(ctx context.Context, principalID string) (*model.Session, error) {
			return nil, context.DeadlineExceeded
		},
	}

	h := NewRegisterHandler(svc, creator, testConfig, nil)

	req := httptest.NewRequest(http.MethodGet, "/verify?token=valid-token", nil)
	w := httptest.NewRecorder()

	h.Verify(w, req)

	// 検証自体は成功しているのでエラーではなくログイン画面へ誘導する
	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "https://demo.example.com/login" {
		t.Errorf("Location = %q, want login redirect", loc)
	}
}
