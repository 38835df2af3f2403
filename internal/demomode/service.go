// Package demomode はデモモードの切り替えとテナント内デモデータの整合性維持を提供する。
package demomode

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/demostand/internal/demodata"
	"github.com/hitoshi/demostand/internal/repository"
	"github.com/hitoshi/demostand/internal/settings"
)

// defaultCheckTTL は整合性チェックの再実行を抑止する期間。
// リクエストごとのDBスキャンを避けるため、テナントごとにこの間隔でのみ検査する。
const defaultCheckTTL = 10 * time.Minute

// PurgeResult はデモデータ削除の件数内訳。
type PurgeResult struct {
	Events    int64
	Calendars int64
	Services  int64
}

// Total は削除された総行数を返す。
func (r PurgeResult) Total() int64 {
	return r.Events + r.Calendars + r.Services
}

// Service はデモモードのライフサイクルを統括する。
// 有効化はサンプルデータの投入とフラグ設定、無効化はフラグ解除と
// テナント内デモデータの完全削除を意味する。
type Service struct {
	store       *settings.Store
	eventRepo   repository.EventRepository
	calRepo     repository.CalendarRepository
	svcRepo     repository.ServiceRepository
	horizonDays int
	logger      *slog.Logger
	now         func() time.Time

	// 整合性チェックの最終実行時刻。プロセスローカルで十分であり、
	// 再起動後の初回リクエストで必ず再検査される。
	mu          sync.Mutex
	lastChecked map[string]time.Time
	checkTTL    time.Duration
}

// NewService はServiceを生成する。
func NewService(
	store *settings.Store,
	eventRepo repository.EventRepository,
	calRepo repository.CalendarRepository,
	svcRepo repository.ServiceRepository,
	horizonDays int,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:       store,
		eventRepo:   eventRepo,
		calRepo:     calRepo,
		svcRepo:     svcRepo,
		horizonDays: horizonDays,
		logger:      logger,
		now:         time.Now,
		lastChecked: make(map[string]time.Time),
		checkTTL:    defaultCheckTTL,
	}
}

// IsEnabled はテナントのデモモードが有効かを返す。
func (s *Service) IsEnabled(ctx context.Context, tenantID string) (bool, error) {
	return s.store.IsDemoMode(ctx, tenantID)
}

// Enable はデモモードを有効化する。
// サンプルデータをUPSERTで投入してからフラグを立てる。投入は冪等であり、
// 既にデモモードが有効な場合の再実行は欠損行の補充として機能する。
func (s *Service) Enable(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}

	seed := demodata.Generate(tenantID, s.now(), s.horizonDays)

	for _, c := range seed.Calendars {
		if _, err := s.calRepo.Upsert(ctx, c); err != nil {
			return fmt.Errorf("カレンダーの投入に失敗しました: %w", err)
		}
	}
	for _, sv := range seed.Services {
		if _, err := s.svcRepo.Upsert(ctx, sv); err != nil {
			return fmt.Errorf("奉仕役割の投入に失敗しました: %w", err)
		}
	}
	for _, e := range seed.Events {
		if _, err := s.eventRepo.Upsert(ctx, e); err != nil {
			return fmt.Errorf("予定の投入に失敗しました: %w", err)
		}
	}

	if err := s.store.SetDemoMode(ctx, true, tenantID); err != nil {
		return fmt.Errorf("デモモードフラグの設定に失敗しました: %w", err)
	}

	// フラグを立てた直後の整合性チェックで誤削除されないよう記録を更新する
	s.markChecked(tenantID)

	s.logger.Info("demo mode enabled",
		slog.String("tenant_id", tenantID),
		slog.String("seed", seed.Fingerprint()),
	)
	return nil
}

// Disable はデモモードを無効化し、テナント内のデモデータを完全削除する。
// 削除はフラグ解除より先に行う。途中で失敗した場合はフラグが残り、
// 再実行または整合性チェックで削除が完遂される。
func (s *Service) Disable(ctx context.Context, tenantID string) (PurgeResult, error) {
	if tenantID == "" {
		return PurgeResult{}, fmt.Errorf("tenant ID is required")
	}

	result, err := s.purge(ctx, tenantID)
	if err != nil {
		return result, err
	}

	if err := s.store.SetDemoMode(ctx, false, tenantID); err != nil {
		return result, fmt.Errorf("デモモードフラグの解除に失敗しました: %w", err)
	}

	s.markChecked(tenantID)

	s.logger.Info("demo mode disabled",
		slog.String("tenant_id", tenantID),
		slog.Int64("purged_rows", result.Total()),
	)
	return result, nil
}

// EnsureConsistent はフラグとデータの不整合を遅延修復する。
// デモモードが無効なのにデモデータが残っている場合（削除途中のクラッシュ等）、
// 残存行を削除する。テナントごとにcheckTTL間隔でのみ実行される。
func (s *Service) EnsureConsistent(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return nil
	}

	s.mu.Lock()
	if last, ok := s.lastChecked[tenantID]; ok && s.now().Sub(last) < s.checkTTL {
		s.mu.Unlock()
		return nil
	}
	s.lastChecked[tenantID] = s.now()
	s.mu.Unlock()

	enabled, err := s.store.IsDemoMode(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("デモモードフラグの取得に失敗しました: %w", err)
	}
	if enabled {
		return nil
	}

	count, err := s.eventRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("残存データの確認に失敗しました: %w", err)
	}
	calCount, err := s.calRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("残存データの確認に失敗しました: %w", err)
	}
	svcCount, err := s.svcRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("残存データの確認に失敗しました: %w", err)
	}
	if count == 0 && calCount == 0 && svcCount == 0 {
		return nil
	}

	result, err := s.purge(ctx, tenantID)
	if err != nil {
		return err
	}

	s.logger.Warn("orphaned demo data cleaned up",
		slog.String("tenant_id", tenantID),
		slog.Int64("purged_rows", result.Total()),
	)
	return nil
}

// purge はテナント内の全デモデータを削除する。
func (s *Service) purge(ctx context.Context, tenantID string) (PurgeResult, error) {
	var result PurgeResult
	var err error

	if result.Events, err = s.eventRepo.DeleteByTenant(ctx, tenantID); err != nil {
		return result, fmt.Errorf("予定の削除に失敗しました: %w", err)
	}
	if result.Calendars, err = s.calRepo.DeleteByTenant(ctx, tenantID); err != nil {
		return result, fmt.Errorf("カレンダーの削除に失敗しました: %w", err)
	}
	if result.Services, err = s.svcRepo.DeleteByTenant(ctx, tenantID); err != nil {
		return result, fmt.Errorf("奉仕役割の削除に失敗しました: %w", err)
	}
	return result, nil
}

func (s *Service) markChecked(tenantID string) {
	s.mu.Lock()
	s.lastChecked[tenantID] = s.now()
	s.mu.Unlock()
}
