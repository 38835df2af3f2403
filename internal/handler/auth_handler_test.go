package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/demostand/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFn            func(ctx context.Context, email, password string) (*model.Session, *model.Principal, error)
	logoutFn           func(ctx context.Context, sessionID string) error
	currentPrincipalFn func(ctx context.Context, sessionID string) (*model.Principal, error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, *model.Principal, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) CurrentPrincipal(ctx context.Context, sessionID string) (*model.Principal, error) {
	if m.currentPrincipalFn != nil {
		return m.currentPrincipalFn(ctx, sessionID)
	}
	return nil, nil
}

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Session, *model.Principal, error) {
			if email != "tester@example.com" {
				t.Errorf("email = %q, want %q", email, "tester@example.com")
			}
			session := &model.Session{ID: "session-1", PrincipalID: "principal-1", ExpiresAt: time.Now().Add(time.Hour)}
			return session, demoTester("principal-1"), nil
		},
	}

	h := NewAuthHandler(svc, testConfig)

	body := `{"email": "tester@example.com", "password": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result principalResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.ID != "principal-1" {
		t.Errorf("id = %q, want %q", result.ID, "principal-1")
	}
	if result.Role != model.RoleDemoTester {
		t.Errorf("role = %q, want %q", result.Role, model.RoleDemoTester)
	}

	// セッションCookieが設定される
	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value == "session-1" {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie should be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("session cookie not set after login")
	}
}

func TestAuthHandler_Login_Failure401(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Session, *model.Principal, error) {
			return nil, nil, model.NewLoginFailedError()
		},
	}

	h := NewAuthHandler(svc, testConfig)

	body := `{"email": "tester@example.com", "password": "wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeLoginFailed {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeLoginFailed)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	var deletedSessionID string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			deletedSessionID = sessionID
			return nil
		},
	}

	h := NewAuthHandler(svc, testConfig)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-1"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deletedSessionID != "session-1" {
		t.Errorf("deleted session = %q, want %q", deletedSessionID, "session-1")
	}

	// MaxAge=-1のCookieでクリアされる
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared after logout")
	}
}

func TestAuthHandler_Me_Unauthenticated401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testConfig)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Me_Success(t *testing.T) {
	svc := &mockAuthService{
		currentPrincipalFn: func(ctx context.Context, sessionID string) (*model.Principal, error) {
			if sessionID != "session-1" {
				t.Errorf("sessionID = %q, want %q", sessionID, "session-1")
			}
			return demoTester("principal-1"), nil
		},
	}

	h := NewAuthHandler(svc, testConfig)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-1"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result principalResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Email != "principal-1@example.com" {
		t.Errorf("email = %q, want %q", result.Email, "principal-1@example.com")
	}
}
