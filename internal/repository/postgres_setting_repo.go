package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSettingRepo はPostgreSQLを使用したテナント設定リポジトリ。
type PostgresSettingRepo struct {
	db *sql.DB
}

// NewPostgresSettingRepo はPostgresSettingRepoを生成する。
func NewPostgresSettingRepo(db *sql.DB) *PostgresSettingRepo {
	return &PostgresSettingRepo{db: db}
}

// Get は設定値を返す。行が存在しない場合はok=falseを返す。
func (r *PostgresSettingRepo) Get(ctx context.Context, tenantID, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT setting_value FROM user_settings WHERE tenant_id = $1 AND setting_key = $2`,
		tenantID, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting: %w", err)
	}

	return value, true, nil
}

// Set は設定値をUPSERTする。
func (r *PostgresSettingRepo) Set(ctx context.Context, tenantID, key, value string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if key == "" {
		return fmt.Errorf("setting key is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_settings (tenant_id, setting_key, setting_value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (tenant_id, setting_key) DO UPDATE SET
		   setting_value = EXCLUDED.setting_value`,
		tenantID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// Delete は設定行を削除する。存在しない行の削除はエラーにならない。
func (r *PostgresSettingRepo) Delete(ctx context.Context, tenantID, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_settings WHERE tenant_id = $1 AND setting_key = $2`,
		tenantID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

// DeleteByTenant は指定テナントの全設定行を削除し、削除行数を返す。
func (r *PostgresSettingRepo) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenant ID is required")
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_settings WHERE tenant_id = $1`,
		tenantID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tenant settings: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

// compile-time interface check
var _ SettingRepository = (*PostgresSettingRepo)(nil)
