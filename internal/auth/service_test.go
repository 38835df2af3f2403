package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/demostand/internal/model"
)

// --- 認証サービス テスト用モック ---

// mockPrincipalRepo はテスト用のPrincipalRepositoryモック。
type mockPrincipalRepo struct {
	byID    map[string]*model.Principal
	byEmail map[string]*model.Principal
}

func newMockPrincipalRepo() *mockPrincipalRepo {
	return &mockPrincipalRepo{
		byID:    make(map[string]*model.Principal),
		byEmail: make(map[string]*model.Principal),
	}
}

func (m *mockPrincipalRepo) add(p *model.Principal) {
	m.byID[p.ID] = p
	m.byEmail[p.Email] = p
}

func (m *mockPrincipalRepo) FindByID(_ context.Context, id string) (*model.Principal, error) {
	return m.byID[id], nil
}

func (m *mockPrincipalRepo) FindByEmail(_ context.Context, email string) (*model.Principal, error) {
	return m.byEmail[email], nil
}

func (m *mockPrincipalRepo) DeleteByID(_ context.Context, id string) error {
	if p, ok := m.byID[id]; ok {
		delete(m.byEmail, p.Email)
		delete(m.byID, id)
	}
	return nil
}

// mockSessionRepo はテスト用のSessionRepositoryモック。
type mockSessionRepo struct {
	sessions    map[string]*model.Session
	createCalls int
	deleteCalls int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.Session) error {
	m.createCalls++
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok || s.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	return s, nil
}

func (m *mockSessionRepo) DeleteByID(_ context.Context, id string) error {
	m.deleteCalls++
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteByPrincipalID(_ context.Context, principalID string) error {
	for id, s := range m.sessions {
		if s.PrincipalID == principalID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// mockLastLoginRepo はUpdateLastLoginの呼び出しだけを記録するDemoAccountRepositoryモック。
type mockLastLoginRepo struct {
	lastLoginCalls []string
}

func (m *mockLastLoginRepo) Create(_ context.Context, _ *model.DemoAccount) error { return nil }
func (m *mockLastLoginRepo) FindByID(_ context.Context, _ string) (*model.DemoAccount, error) {
	return nil, nil
}
func (m *mockLastLoginRepo) FindByEmail(_ context.Context, _ string) (*model.DemoAccount, error) {
	return nil, nil
}
func (m *mockLastLoginRepo) FindByToken(_ context.Context, _ string) (*model.DemoAccount, error) {
	return nil, nil
}
func (m *mockLastLoginRepo) VerifyWithPrincipal(_ context.Context, _ string, _ *model.Principal, _ time.Time) error {
	return nil
}
func (m *mockLastLoginRepo) UpdateLastLogin(_ context.Context, principalID string, _ time.Time) error {
	m.lastLoginCalls = append(m.lastLoginCalls, principalID)
	return nil
}
func (m *mockLastLoginRepo) ListCreatedBefore(_ context.Context, _ time.Time) ([]*model.DemoAccount, error) {
	return nil, nil
}
func (m *mockLastLoginRepo) ListCreatedBetween(_ context.Context, _, _ time.Time) ([]*model.DemoAccount, error) {
	return nil, nil
}
func (m *mockLastLoginRepo) ListAll(_ context.Context) ([]*model.DemoAccount, error) {
	return nil, nil
}
func (m *mockLastLoginRepo) CountByState(_ context.Context) (int, int, error) { return 0, 0, nil }
func (m *mockLastLoginRepo) DeleteByID(_ context.Context, _ string) error     { return nil }

func testPrincipal(t *testing.T, email, password string) *model.Principal {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	return &model.Principal{
		ID:           "principal-1",
		Email:        email,
		DisplayName:  "テスター",
		Role:         model.RoleDemoTester,
		PasswordHash: string(hash),
	}
}

func newTestService(principals *mockPrincipalRepo, sessions *mockSessionRepo, accounts *mockLastLoginRepo) *Service {
	return NewService(principals, sessions, accounts, ServiceConfig{SessionMaxAge: 3600})
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	principals := newMockPrincipalRepo()
	principals.add(testPrincipal(t, "tester@example.com", "correct-password"))
	sessions := newMockSessionRepo()
	accounts := &mockLastLoginRepo{}
	svc := newTestService(principals, sessions, accounts)

	session, principal, err := svc.Login(context.Background(), "tester@example.com", "correct-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if principal.ID != "principal-1" {
		t.Errorf("Principal.ID = %q, want principal-1", principal.ID)
	}
	if len(session.ID) != 64 {
		t.Errorf("セッションID長 = %d, want 64", len(session.ID))
	}
	if session.PrincipalID != "principal-1" {
		t.Errorf("Session.PrincipalID = %q, want principal-1", session.PrincipalID)
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Error("セッション有効期限が過去になっている")
	}
	if sessions.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", sessions.createCalls)
	}
	if len(accounts.lastLoginCalls) != 1 || accounts.lastLoginCalls[0] != "principal-1" {
		t.Errorf("最終ログイン更新が呼ばれていない: %v", accounts.lastLoginCalls)
	}
}

func TestLogin_EmailCaseInsensitive(t *testing.T) {
	principals := newMockPrincipalRepo()
	principals.add(testPrincipal(t, "tester@example.com", "correct-password"))
	svc := newTestService(principals, newMockSessionRepo(), &mockLastLoginRepo{})

	if _, _, err := svc.Login(context.Background(), " Tester@Example.COM ", "correct-password"); err != nil {
		t.Errorf("Login() error = %v", err)
	}
}

// プリンシパル不在とパスワード不一致が同一のエラーになり、
// メールアドレスの登録有無を外部から観測できないことを検証する。
func TestLogin_FailureDoesNotRevealRegistration(t *testing.T) {
	principals := newMockPrincipalRepo()
	principals.add(testPrincipal(t, "tester@example.com", "correct-password"))
	svc := newTestService(principals, newMockSessionRepo(), &mockLastLoginRepo{})

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"パスワード不一致", "tester@example.com", "wrong-password"},
		{"未登録メールアドレス", "nobody@example.com", "correct-password"},
		{"空のメールアドレス", "", "correct-password"},
		{"空のパスワード", "tester@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tt.email, tt.password)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("APIErrorを期待したが %v", err)
			}
			if apiErr.Code != model.ErrCodeLoginFailed {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeLoginFailed)
			}
		})
	}
}

// --- Logout / CurrentPrincipal ---

func TestLogout(t *testing.T) {
	principals := newMockPrincipalRepo()
	principals.add(testPrincipal(t, "tester@example.com", "correct-password"))
	sessions := newMockSessionRepo()
	svc := newTestService(principals, sessions, &mockLastLoginRepo{})

	session, _, err := svc.Login(context.Background(), "tester@example.com", "correct-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.Logout(context.Background(), session.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, ok := sessions.sessions[session.ID]; ok {
		t.Error("ログアウト後もセッションが残っている")
	}

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Error("空のセッションIDはエラーになるべき")
	}
}

func TestCurrentPrincipal(t *testing.T) {
	principals := newMockPrincipalRepo()
	principals.add(testPrincipal(t, "tester@example.com", "correct-password"))
	svc := newTestService(principals, newMockSessionRepo(), &mockLastLoginRepo{})

	session, _, err := svc.Login(context.Background(), "tester@example.com", "correct-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	principal, err := svc.CurrentPrincipal(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("CurrentPrincipal() error = %v", err)
	}
	if principal.Email != "tester@example.com" {
		t.Errorf("Email = %q, want tester@example.com", principal.Email)
	}

	if _, err := svc.CurrentPrincipal(context.Background(), "no-such-session"); err == nil {
		t.Error("存在しないセッションはエラーになるべき")
	}
}

func TestCurrentPrincipal_ExpiredSession(t *testing.T) {
	principals := newMockPrincipalRepo()
	principals.add(testPrincipal(t, "tester@example.com", "correct-password"))
	sessions := newMockSessionRepo()
	sessions.sessions["expired"] = &model.Session{
		ID:          "expired",
		PrincipalID: "principal-1",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	svc := newTestService(principals, sessions, &mockLastLoginRepo{})

	if _, err := svc.CurrentPrincipal(context.Background(), "expired"); err == nil {
		t.Error("期限切れセッションはエラーになるべき")
	}
}

func TestCurrentPrincipal_SweptPrincipal(t *testing.T) {
	principals := newMockPrincipalRepo()
	principals.add(testPrincipal(t, "tester@example.com", "correct-password"))
	svc := newTestService(principals, newMockSessionRepo(), &mockLastLoginRepo{})

	session, _, err := svc.Login(context.Background(), "tester@example.com", "correct-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// 期限切れスイープで削除された後のセッション参照
	if err := principals.DeleteByID(context.Background(), "principal-1"); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}

	_, err = svc.CurrentPrincipal(context.Background(), session.ID)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePrincipalNotFound {
		t.Errorf("PRINCIPAL_NOT_FOUNDを期待したが %v", err)
	}
}
