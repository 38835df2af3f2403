// Package auth はパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	principalRepo repository.PrincipalRepository
	sessionRepo   repository.SessionRepository
	accountRepo   repository.DemoAccountRepository
	config        ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	principalRepo repository.PrincipalRepository,
	sessionRepo repository.SessionRepository,
	accountRepo repository.DemoAccountRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		principalRepo: principalRepo,
		sessionRepo:   sessionRepo,
		accountRepo:   accountRepo,
		config:        config,
	}
}

// Login はメールアドレスとパスワードを検証し、セッションを発行する。
// プリンシパル不在とパスワード不一致は同一のエラーを返し、
// メールアドレスの登録有無を外部から観測できないようにする。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, *model.Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, nil, model.NewLoginFailedError()
	}

	principal, err := s.principalRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("プリンシパルの検索に失敗しました: %w", err)
	}
	if principal == nil {
		// タイミング差を減らすためダミーハッシュと比較する
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, nil, model.NewLoginFailedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(password)); err != nil {
		return nil, nil, model.NewLoginFailedError()
	}

	session, err := s.CreateSession(ctx, principal.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.accountRepo.UpdateLastLogin(ctx, principal.ID, time.Now()); err != nil {
		slog.Warn("failed to update last login",
			slog.String("principal_id", principal.ID),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("demo tester logged in", slog.String("principal_id", principal.ID))
	return session, principal, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("demo tester logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentPrincipal はセッションから現在のプリンシパルを取得する。
func (s *Service) CurrentPrincipal(ctx context.Context, sessionID string) (*model.Principal, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	principal, err := s.principalRepo.FindByID(ctx, session.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}
	if principal == nil {
		return nil, model.NewPrincipalNotFoundError()
	}

	return principal, nil
}

// CreateSession はセッションを作成し永続化する。
// 本人確認完了直後の自動ログインでも使用する。
func (s *Service) CreateSession(ctx context.Context, principalID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:          sessionID,
		PrincipalID: principalID,
		ExpiresAt:   time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:   time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// dummyHash はプリンシパル不在時のタイミング対策用ハッシュ。
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)
	return h
}()

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
