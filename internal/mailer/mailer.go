// Package mailer はSMTP経由のメール送信を提供する。
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/hitoshi/demostand/internal/model"
)

// Config はメール送信の設定。
// Hostが空の場合、送信はログのみのno-opになる（ローカル開発用）。
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminEmail string
	BaseURL    string
}

// Mailer はデモ環境の各種メールを組み立てて送信する。
type Mailer struct {
	config Config
	logger *slog.Logger
}

// New はMailerを生成する。
func New(config Config, logger *slog.Logger) *Mailer {
	return &Mailer{
		config: config,
		logger: logger,
	}
}

// Enabled はSMTP送信が設定されているかを返す。
func (m *Mailer) Enabled() bool {
	return m.config.Host != "" && m.config.From != ""
}

// SendVerification は確認リンク付きの登録確認メールを送信する。
// トークンは登録完了の唯一の認可情報であるため、ログには出力しない。
func (m *Mailer) SendVerification(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/verify?token=%s", strings.TrimRight(m.config.BaseURL, "/"), token)

	body := strings.Join([]string{
		"デモ環境へのお申し込みありがとうございます。",
		"",
		"以下のリンクを開いてメールアドレスの確認を完了してください:",
		link,
		"",
		"このメールに心当たりがない場合は破棄してください。",
	}, "\r\n")

	return m.send(ctx, to, "【デモ環境】メールアドレスの確認", body)
}

// SendAdminRegistrationNotice は管理者へ新規申込を通知する。
// ベストエフォート送信のため、呼び出し側はエラーを握りつぶしてよい。
func (m *Mailer) SendAdminRegistrationNotice(ctx context.Context, account *model.DemoAccount) error {
	if m.config.AdminEmail == "" {
		return nil
	}

	body := strings.Join([]string{
		"新しいデモ申込がありました。",
		"",
		fmt.Sprintf("メール: %s", account.Email),
		fmt.Sprintf("名前: %s", account.DisplayName),
		fmt.Sprintf("団体: %s", account.Organization),
		fmt.Sprintf("利用目的: %s", account.PurposeText),
		fmt.Sprintf("申込日時: %s", account.CreatedAt.Format(time.RFC3339)),
	}, "\r\n")

	return m.send(ctx, m.config.AdminEmail, "【デモ環境】新規申込通知", body)
}

// SendExpiryWarning は期限切れ間近のアカウント一覧を管理者へ1通にまとめて送信する。
// テスター本人への個別送信は行わない。
func (m *Mailer) SendExpiryWarning(ctx context.Context, accounts []*model.DemoAccount) error {
	if m.config.AdminEmail == "" || len(accounts) == 0 {
		return nil
	}

	lines := []string{
		fmt.Sprintf("%d件のデモアカウントがまもなく期限切れになります。", len(accounts)),
		"",
	}
	for _, a := range accounts {
		lines = append(lines, fmt.Sprintf("- %s（申込日時: %s）",
			a.Email, a.CreatedAt.Format(time.RFC3339)))
	}

	return m.send(ctx, m.config.AdminEmail, "【デモ環境】期限切れ予告", strings.Join(lines, "\r\n"))
}

// send は1通のプレーンテキストメールを送信する。
// SMTP未設定の場合はログのみ出力して成功扱いにする。
func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if !m.Enabled() {
		m.logger.Info("mail delivery skipped (SMTP not configured)",
			slog.String("to", to),
			slog.String("subject", subject),
		)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.config.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(m.config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.config.Username),
			mail.WithPassword(m.config.Password),
		)
	}

	client, err := mail.NewClient(m.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Info("mail sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}
