// Package instance は接続先インスタンスURLの検証と保存を提供する。
package instance

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/security"
	"github.com/hitoshi/demostand/internal/settings"
)

// probeTimeout は疎通確認のタイムアウト。
const probeTimeout = 10 * time.Second

// Service は持ち込みインスタンスへの接続設定を管理するサービス層。
// デモモード中は接続設定の変更を一切受け付けない。接続系キーは
// デモモード有効時に固定値へ強制されるため、ここで保存をブロックすることで
// 「保存はできたのに反映されない」という紛らわしい状態を避ける。
type Service struct {
	store  *settings.Store
	guard  security.SSRFGuardService
	client *http.Client
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(store *settings.Store, guard security.SSRFGuardService, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		guard:  guard,
		client: guard.NewSafeClient(probeTimeout),
		logger: logger,
	}
}

// SetInstanceURL は接続先インスタンスURLを検証・疎通確認してから保存する。
// 検証順序: デモモードロック → 静的URL検証 → HTTP疎通確認 → 保存。
func (s *Service) SetInstanceURL(ctx context.Context, tenantID, rawURL string) error {
	enabled, err := s.store.IsDemoMode(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("デモモードフラグの取得に失敗しました: %w", err)
	}
	if enabled {
		return model.NewDemoModeLockedError()
	}

	normalized, err := normalizeURL(rawURL)
	if err != nil {
		return model.NewInvalidInstanceURLError(err.Error())
	}

	if err := s.guard.ValidateURL(normalized); err != nil {
		return model.NewInvalidInstanceURLError(err.Error())
	}

	if err := s.probe(ctx, normalized); err != nil {
		return model.NewInstanceUnreachableError(err.Error())
	}

	if err := s.store.Set(ctx, settings.KeyInstanceURL, normalized, tenantID); err != nil {
		return fmt.Errorf("接続先URLの保存に失敗しました: %w", err)
	}

	s.logger.Info("instance URL updated",
		slog.String("tenant_id", tenantID),
		slog.String("instance_url", normalized),
	)
	return nil
}

// InstanceURL は解決済みの接続先URLを返す。
// デモモード中は設定ストア側でデモ用固定値に強制される。
func (s *Service) InstanceURL(ctx context.Context, tenantID string) (string, error) {
	return s.store.Get(ctx, settings.KeyInstanceURL, tenantID, "")
}

// probe は接続先インスタンスへの疎通を確認する。
// SSRF防止クライアント経由でHEADを送り、サーバーが応答すれば成功とする。
// ステータスコードは問わない（認証前の4xxも「到達できた」ことを意味する）。
func (s *Service) probe(ctx context.Context, instanceURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, instanceURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("instance returned status %d", resp.StatusCode)
	}
	return nil
}

// normalizeURL はURLを正規化する。末尾スラッシュを除去し、
// パス・クエリ・フラグメント付きのURLは拒否する。
func normalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("URLが空です")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("URLを解析できません")
	}
	if u.Scheme != "https" {
		return "", fmt.Errorf("httpsスキームのみ使用できます")
	}
	if u.Host == "" {
		return "", fmt.Errorf("ホストがありません")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("クエリやフラグメントは指定できません")
	}
	if p := strings.TrimRight(u.Path, "/"); p != "" {
		return "", fmt.Errorf("パスは指定できません")
	}

	return "https://" + u.Host, nil
}
