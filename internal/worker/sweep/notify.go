package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/repository"
)

// WarningNotifier は期限切れ予告メールの送信を抽象化するインターフェース。
type WarningNotifier interface {
	SendExpiryWarning(ctx context.Context, accounts []*model.DemoAccount) error
}

// NotifyJob は期限切れ間近のアカウントを管理者へ予告通知するジョブ。
// 対象はアカウント年齢が [retention - warning, retention) の半開区間に入るもの。
// テスター本人への通知は行わず、管理者宛に1通へ集約する。
type NotifyJob struct {
	accountRepo repository.DemoAccountRepository
	notifier    WarningNotifier
	logger      *slog.Logger
	now         func() time.Time

	Enabled       bool // falseの場合、RunはDBに触れずに即座に戻る
	RetentionDays int  // アカウントの保持日数
	WarningDays   int  // 期限の何日前から予告対象に含めるか
}

// NewNotifyJob は新しいNotifyJobを生成する。
func NewNotifyJob(accountRepo repository.DemoAccountRepository, notifier WarningNotifier, logger *slog.Logger) *NotifyJob {
	return &NotifyJob{
		accountRepo:   accountRepo,
		notifier:      notifier,
		logger:        logger,
		now:           time.Now,
		Enabled:       true,
		RetentionDays: 30,
		WarningDays:   3,
	}
}

// Run は予告対象のアカウントを集めて管理者へ1通のメールを送信する。
// 年齢区間 [retention - warning, retention) をcreated_atの区間 (from, to] に
// 変換して検索する。対象が0件の場合は送信しない。
func (j *NotifyJob) Run(ctx context.Context) error {
	if !j.Enabled {
		return nil
	}

	start := j.now()
	// age < retention  ⇔  created_at > now - retention
	from := start.AddDate(0, 0, -j.RetentionDays)
	// age >= retention - warning  ⇔  created_at <= now - (retention - warning)
	to := start.AddDate(0, 0, -(j.RetentionDays - j.WarningDays))

	accounts, err := j.accountRepo.ListCreatedBetween(ctx, from, to)
	if err != nil {
		j.logger.Error("予告スイープの対象取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("予告スイープの対象取得に失敗: %w", err)
	}

	if len(accounts) == 0 {
		j.logger.Info("予告対象のアカウントはありません")
		return nil
	}

	if err := j.notifier.SendExpiryWarning(ctx, accounts); err != nil {
		j.logger.Error("期限切れ予告メールの送信に失敗しました",
			slog.Int("account_count", len(accounts)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れ予告メールの送信に失敗: %w", err)
	}

	j.logger.Info("期限切れ予告スイープが完了しました",
		slog.Int("account_count", len(accounts)),
		slog.Int("warning_days", j.WarningDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
