package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/permission"
)

// --- モック定義 ---

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

type mockPrincipalRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Principal, error)
}

func (m *mockPrincipalRepository) FindByID(ctx context.Context, id string) (*model.Principal, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func validSessionRepo(sessionID, principalID string) *mockSessionRepository {
	return &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == sessionID {
				return &model.Session{
					ID:          sessionID,
					PrincipalID: principalID,
					ExpiresAt:   time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}
}

func validPrincipalRepo(principalID string) *mockPrincipalRepository {
	return &mockPrincipalRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Principal, error) {
			if id == principalID {
				return &model.Principal{
					ID:   principalID,
					Role: model.RoleDemoTester,
				}, nil
			}
			return nil, nil
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsPrincipal(t *testing.T) {
	mw := NewSessionMiddleware(
		validSessionRepo("valid-session-id", "principal-123"),
		validPrincipalRepo("principal-123"),
	)

	var capturedID string
	var capturedPerms permission.Set
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := PrincipalFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedID = principal.ID
		capturedPerms = PermissionsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if capturedID != "principal-123" {
		t.Errorf("principalID = %q, want %q", capturedID, "principal-123")
	}
	// デモテスターの権限集合も注入されること
	if !capturedPerms.CanEditOwnPages() {
		t.Error("権限集合がコンテキストに注入されていない")
	}
	if capturedPerms.CanViewAdmin() {
		t.Error("デモテスターに管理権限が付与された")
	}
}

func TestSessionMiddleware_NoSessionCookie_Returns401(t *testing.T) {
	mw := NewSessionMiddleware(&mockSessionRepository{}, &mockPrincipalRepository{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_UnknownSession_Returns401(t *testing.T) {
	mw := NewSessionMiddleware(
		validSessionRepo("valid-session-id", "principal-123"),
		validPrincipalRepo("principal-123"),
	)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "unknown-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_DeletedPrincipal_Returns401(t *testing.T) {
	// 期限切れスイープでプリンシパルが削除された後のセッション参照
	mw := NewSessionMiddleware(
		validSessionRepo("valid-session-id", "principal-123"),
		&mockPrincipalRepository{},
	)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestPrincipalFromContext_MissingPrincipal_ReturnsError(t *testing.T) {
	if _, err := PrincipalFromContext(context.Background()); err == nil {
		t.Error("expected error for missing principal")
	}
}

func TestPermissionsFromContext_MissingPermissions_ReturnsEmptySet(t *testing.T) {
	perms := PermissionsFromContext(context.Background())
	if perms.CanEditOwnPages() || perms.CanViewAdmin() {
		t.Error("コンテキストに権限がない場合は空集合を返すべき")
	}
}
