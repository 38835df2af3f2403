// Package registration はデモ申込と本人確認のドメインロジックを提供する。
package registration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/repository"
	"github.com/hitoshi/demostand/internal/security"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// tokenByteLength は確認トークンのバイト長。hex表現で64文字になる。
const tokenByteLength = 32

// MailSender は申込フローで送信するメールのインターフェース。
type MailSender interface {
	SendVerification(ctx context.Context, to, token string) error
	SendAdminRegistrationNotice(ctx context.Context, account *model.DemoAccount) error
}

// DemoProvisioner は確認完了直後のデモデータ投入のインターフェース。
type DemoProvisioner interface {
	Enable(ctx context.Context, tenantID string) error
}

// RegisterInput は申込フォームの入力を表す。
type RegisterInput struct {
	Email        string
	Password     string
	DisplayName  string
	Organization string
	PurposeText  string
	Consent      bool
}

// Service はデモ申込・本人確認のサービス層。
// 申込 → 確認メール送信 → トークン検証 → プリンシパル払い出し → デモデータ投入のフローを統括する。
type Service struct {
	accountRepo repository.DemoAccountRepository
	sanitizer   security.ContentSanitizerService
	mailer      MailSender
	provisioner DemoProvisioner
	logger      *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	accountRepo repository.DemoAccountRepository,
	sanitizer security.ContentSanitizerService,
	mailer MailSender,
	provisioner DemoProvisioner,
	logger *slog.Logger,
) *Service {
	return &Service{
		accountRepo: accountRepo,
		sanitizer:   sanitizer,
		mailer:      mailer,
		provisioner: provisioner,
		logger:      logger,
	}
}

// Register はデモ申込を受け付け、確認メールを送信する。
// フロー: 入力検証 → 重複チェック → 申込レコード作成 → 確認メール送信 → 管理者通知
//
// 同一メールアドレスの未確認申込が既に存在する場合は、新しいレコードを作らず
// 既存トークンで確認メールを再送し、VERIFICATION_PENDINGを返す。
// 確認済みの場合はALREADY_REGISTEREDを返す。どちらもUIが分岐に使う。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.DemoAccount, error) {
	// 1. 入力検証。検証失敗時は一切の副作用なしに失敗する。
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, model.NewInvalidEmailError(input.Email)
	}
	if !input.Consent {
		return nil, model.NewConsentRequiredError()
	}
	if len(input.Password) < minPasswordLength {
		return nil, model.NewWeakPasswordError()
	}

	// 2. 重複チェック
	existing, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("申込レコードの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, s.resolveExistingAccount(ctx, existing)
	}

	// 3. 申込レコード作成
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("確認トークンの生成に失敗しました: %w", err)
	}

	now := time.Now()
	account := &model.DemoAccount{
		ID:                uuid.New().String(),
		Email:             email,
		DisplayName:       s.sanitizer.SanitizeText(strings.TrimSpace(input.DisplayName)),
		Organization:      s.sanitizer.SanitizeText(strings.TrimSpace(input.Organization)),
		PurposeText:       s.sanitizer.SanitizeText(strings.TrimSpace(input.PurposeText)),
		VerificationToken: token,
		PasswordHash:      string(passwordHash),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		// 同時申込の競合。重複チェックをすり抜けて一意制約で敗れた側は、
		// 先行した申込と同じ分岐（再送またはALREADY_REGISTERED）に合流する。
		if repository.IsUniqueViolation(err) {
			winner, ferr := s.accountRepo.FindByEmail(ctx, email)
			if ferr == nil && winner != nil {
				return nil, s.resolveExistingAccount(ctx, winner)
			}
		}
		return nil, fmt.Errorf("申込レコードの作成に失敗しました: %w", err)
	}

	// 4. 確認メール送信。失敗した場合、重複申込でトークンが再送されるため
	// レコードはロールバックしない。
	if err := s.mailer.SendVerification(ctx, account.Email, account.VerificationToken); err != nil {
		s.logger.Error("failed to send verification mail",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	// 5. 管理者通知はベストエフォート
	if err := s.mailer.SendAdminRegistrationNotice(ctx, account); err != nil {
		s.logger.Warn("failed to send admin notice",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("demo account registered",
		slog.String("account_id", account.ID),
	)

	return account, nil
}

// Verify は確認トークンを検証し、プリンシパルを払い出す。
// プリンシパル作成と申込レコードの確認済み化は同一トランザクションで行われ、
// 「確認済みだがログインできない」中間状態は生じない。
// コミット後、払い出されたプリンシパルIDをテナントIDとしてデモデータを投入する。
//
// 消費済みトークン（確認済みレコードに紐づくトークン）はALREADY_VERIFIEDを返し、
// どのレコードにも一致しないトークンはINVALID_TOKENを返す。UIはこの2つを区別して表示する。
func (s *Service) Verify(ctx context.Context, token string) (*model.Principal, error) {
	if token == "" {
		return nil, model.NewInvalidTokenError()
	}

	account, err := s.accountRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("申込レコードの検索に失敗しました: %w", err)
	}
	if account == nil {
		return nil, model.NewInvalidTokenError()
	}
	if account.IsVerified() {
		return nil, model.NewAlreadyVerifiedError()
	}

	now := time.Now()
	principal := &model.Principal{
		ID:           uuid.New().String(),
		Email:        account.Email,
		DisplayName:  account.DisplayName,
		Role:         model.RoleDemoTester,
		PasswordHash: account.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accountRepo.VerifyWithPrincipal(ctx, account.ID, principal, now); err != nil {
		// 同一トークンの検証が並行して先に完了していた場合
		if errors.Is(err, repository.ErrNotUnverified) {
			return nil, model.NewAlreadyVerifiedError()
		}
		return nil, fmt.Errorf("本人確認の確定に失敗しました: %w", err)
	}

	// デモデータ投入はコミット後のベストエフォート。失敗してもアカウントは使用可能で、
	// デモモード再有効化で再投入できる。
	if err := s.provisioner.Enable(ctx, principal.ID); err != nil {
		s.logger.Error("failed to provision demo data",
			slog.String("principal_id", principal.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("demo account verified",
		slog.String("account_id", account.ID),
		slog.String("principal_id", principal.ID),
	)

	return principal, nil
}

// resolveExistingAccount は同一メールアドレスの既存申込を、UIが分岐できる
// エラーへ解決する。未確認の既存申込には既存トークンで確認メールを再送する。
func (s *Service) resolveExistingAccount(ctx context.Context, existing *model.DemoAccount) error {
	if existing.IsVerified() {
		return model.NewAlreadyRegisteredError()
	}
	if err := s.mailer.SendVerification(ctx, existing.Email, existing.VerificationToken); err != nil {
		s.logger.Error("failed to resend verification mail",
			slog.String("account_id", existing.ID),
			slog.String("error", err.Error()),
		)
	}
	return model.NewVerificationPendingError()
}

// generateToken は暗号学的乱数から確認トークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, tokenByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
