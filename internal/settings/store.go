// Package settings はテナント単位の設定ストアを提供する。
//
// 解決順序は4段階:
//  1. デモモード有効時の接続系キー → 固定のデモ値（保存値は完全に無視する）
//  2. テナントのオーバーライド行（空文字列は「未設定」として扱う）
//  3. グローバル既定値行（予約テナントID _global）
//  4. 呼び出し側が渡したデフォルト値
//
// デモモード中のテナントが接続先を任意のエンドポイントに向け替えられないよう、
// 接続系キーはストアの値に関わらず必ず固定値を返す。
package settings

import (
	"context"
	"fmt"

	"github.com/hitoshi/demostand/internal/repository"
)

// GlobalTenantID はグローバル既定値を保持する予約テナントID。
const GlobalTenantID = "_global"

// 設定キー
const (
	// KeyDemoMode はデモモードフラグのキー。値は "1"（有効）または行なし（無効）。
	KeyDemoMode = "demo_mode"
	// KeyInstanceURL は接続先インスタンスURLのキー。接続系キー。
	KeyInstanceURL = "instance_url"
	// KeyAPIToken は接続用APIトークンのキー。接続系キー。
	KeyAPIToken = "api_token"
	// KeyAuthEmail は接続用認証メールアドレスのキー。接続系キー。
	KeyAuthEmail = "auth_email"
)

// デモモード有効時に強制される固定の接続値。
const (
	DemoInstanceURL = "https://demo.church.tools"
	DemoAPIToken    = "demo-readonly-token"
	DemoAuthEmail   = "demo@church.tools"
)

// demoForcedValues はデモモード有効時に強制される接続系キーとその固定値。
var demoForcedValues = map[string]string{
	KeyInstanceURL: DemoInstanceURL,
	KeyAPIToken:    DemoAPIToken,
	KeyAuthEmail:   DemoAuthEmail,
}

// Store はテナント単位の設定解決を提供する。
type Store struct {
	repo repository.SettingRepository
}

// NewStore はStoreを生成する。
func NewStore(repo repository.SettingRepository) *Store {
	return &Store{repo: repo}
}

// Get は解決順序に従って設定値を返す。
// デモ強制 → テナントオーバーライド → グローバル既定値 → 呼び出し側デフォルト。
func (s *Store) Get(ctx context.Context, key, tenantID, def string) (string, error) {
	// 1. デモモード有効時の接続系キーは固定値を返す
	if forced, isConnKey := demoForcedValues[key]; isConnKey {
		enabled, err := s.IsDemoMode(ctx, tenantID)
		if err != nil {
			return "", err
		}
		if enabled {
			return forced, nil
		}
	}

	// 2. テナントのオーバーライド。空文字列は未設定として扱う。
	if tenantID != "" {
		value, ok, err := s.repo.Get(ctx, tenantID, key)
		if err != nil {
			return "", fmt.Errorf("failed to resolve tenant setting: %w", err)
		}
		if ok && value != "" {
			return value, nil
		}
	}

	// 3. グローバル既定値
	value, ok, err := s.repo.Get(ctx, GlobalTenantID, key)
	if err != nil {
		return "", fmt.Errorf("failed to resolve global setting: %w", err)
	}
	if ok && value != "" {
		return value, nil
	}

	// 4. 呼び出し側デフォルト
	return def, nil
}

// Set はテナントのオーバーライド値を保存する。
func (s *Store) Set(ctx context.Context, key, value, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	return s.repo.Set(ctx, tenantID, key, value)
}

// SetGlobal はグローバル既定値を保存する。
func (s *Store) SetGlobal(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, GlobalTenantID, key, value)
}

// Delete はテナントのオーバーライド行を削除する。
func (s *Store) Delete(ctx context.Context, key, tenantID string) error {
	return s.repo.Delete(ctx, tenantID, key)
}

// IsDemoMode はテナントのデモモードフラグを返す。
// フラグ行が存在し値が "1" の場合のみ有効。
func (s *Store) IsDemoMode(ctx context.Context, tenantID string) (bool, error) {
	if tenantID == "" {
		return false, nil
	}
	value, ok, err := s.repo.Get(ctx, tenantID, KeyDemoMode)
	if err != nil {
		return false, fmt.Errorf("failed to read demo mode flag: %w", err)
	}
	return ok && value == "1", nil
}

// SetDemoMode はテナントのデモモードフラグを切り替える。
// 無効化は行の削除で表現する。
func (s *Store) SetDemoMode(ctx context.Context, enabled bool, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if enabled {
		return s.repo.Set(ctx, tenantID, KeyDemoMode, "1")
	}
	return s.repo.Delete(ctx, tenantID, KeyDemoMode)
}

// IsConnectionKey は指定されたキーがデモモードで強制される接続系キーかを返す。
func IsConnectionKey(key string) bool {
	_, ok := demoForcedValues[key]
	return ok
}
