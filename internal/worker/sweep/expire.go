// Package sweep はデモアカウントのライフサイクルスイープを提供する。
// 保持期間（デフォルト30日）を超過したアカウントの削除と、
// 期限切れ間近のアカウントの予告通知を定期バッチで行う。
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/demostand/internal/demomode"
	"github.com/hitoshi/demostand/internal/metrics"
	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/repository"
)

// TenantDataPurger はテナント内デモデータの一括削除を抽象化するインターフェース。
type TenantDataPurger interface {
	Disable(ctx context.Context, tenantID string) (demomode.PurgeResult, error)
}

// ExpireJob は保持期間を超過したデモアカウントの削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
// アカウント単位で失敗を隔離し、1件の失敗がバッチ全体を中断させることはない。
type ExpireJob struct {
	accountRepo   repository.DemoAccountRepository
	principalRepo repository.PrincipalRepository
	settingRepo   repository.SettingRepository
	purger        TenantDataPurger
	collector     metrics.MetricsCollector
	logger        *slog.Logger
	now           func() time.Time

	Enabled       bool // falseの場合、RunはDBに触れずに即座に戻る
	RetentionDays int  // アカウントの保持日数（デフォルト: 30）
}

// NewExpireJob は新しいExpireJobを生成する。
func NewExpireJob(
	accountRepo repository.DemoAccountRepository,
	principalRepo repository.PrincipalRepository,
	settingRepo repository.SettingRepository,
	purger TenantDataPurger,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *ExpireJob {
	return &ExpireJob{
		accountRepo:   accountRepo,
		principalRepo: principalRepo,
		settingRepo:   settingRepo,
		purger:        purger,
		collector:     collector,
		logger:        logger,
		now:           time.Now,
		Enabled:       true,
		RetentionDays: 30,
	}
}

// Run は保持期間を超過したアカウントを削除する。
// 境界はcutoffちょうどを含む（created_at <= now - RetentionDays）。
// 削除順序: テナントデータ → 設定行 → プリンシパル（セッション・ページはCASCADE）→ 申込レコード。
// 並行実行で対象が先に消えていてもエラーにならない。
func (j *ExpireJob) Run(ctx context.Context) error {
	if !j.Enabled {
		return nil
	}

	start := j.now()
	cutoff := start.AddDate(0, 0, -j.RetentionDays)

	accounts, err := j.accountRepo.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("期限切れスイープの対象取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れスイープの対象取得に失敗: %w", err)
	}

	var expired, failed int
	for _, account := range accounts {
		if err := j.expireAccount(ctx, account); err != nil {
			failed++
			j.collector.RecordSweepFailure()
			j.logger.Error("アカウントの期限切れ処理に失敗しました",
				slog.String("account_id", account.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		expired++
	}

	j.collector.RecordAccountsExpired(expired)
	j.collector.RecordSweepDuration(time.Since(start))

	j.logger.Info("期限切れスイープが完了しました",
		slog.Int("expired_count", expired),
		slog.Int("failed_count", failed),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// expireAccount は1アカウント分の削除を行う。
func (j *ExpireJob) expireAccount(ctx context.Context, account *model.DemoAccount) error {
	if account.PrincipalID != nil {
		tenantID := *account.PrincipalID

		if _, err := j.purger.Disable(ctx, tenantID); err != nil {
			return fmt.Errorf("テナントデータの削除に失敗: %w", err)
		}
		if _, err := j.settingRepo.DeleteByTenant(ctx, tenantID); err != nil {
			return fmt.Errorf("設定行の削除に失敗: %w", err)
		}
		if err := j.principalRepo.DeleteByID(ctx, tenantID); err != nil {
			return fmt.Errorf("プリンシパルの削除に失敗: %w", err)
		}
	}

	if err := j.accountRepo.DeleteByID(ctx, account.ID); err != nil {
		return fmt.Errorf("申込レコードの削除に失敗: %w", err)
	}
	return nil
}
