package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/demostand/internal/model"
)

// PostgresServiceRepo はPostgreSQLを使用したテナント隔離奉仕役割リポジトリ。
type PostgresServiceRepo struct {
	db QueryExecer
}

// NewPostgresServiceRepo はPostgresServiceRepoを生成する。
func NewPostgresServiceRepo(db QueryExecer) *PostgresServiceRepo {
	return &PostgresServiceRepo{db: db}
}

// ListByTenant は指定テナントの奉仕役割一覧を名前昇順で返す。
func (r *PostgresServiceRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.Service, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, service_id, name, service_group, created_at, updated_at
		 FROM tenant_services
		 WHERE tenant_id = $1
		 ORDER BY name`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []*model.Service
	for rows.Next() {
		s := &model.Service{}
		if err := rows.Scan(
			&s.ID, &s.TenantID, &s.ServiceID, &s.Name, &s.ServiceGroup,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate services: %w", err)
	}

	return services, nil
}

// Upsert は (tenant_id, service_id) の自然キーで冪等にUPSERTする。
// 必須フィールドが欠けている場合は一切の書き込みなしに失敗する。
func (r *PostgresServiceRepo) Upsert(ctx context.Context, service *model.Service) (string, error) {
	if service.TenantID == "" {
		return "", fmt.Errorf("tenant ID is required")
	}
	if service.ServiceID == "" {
		return "", fmt.Errorf("service ID is required")
	}

	id := service.ID
	if id == "" {
		id = uuid.New().String()
	}

	var rowID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tenant_services
		 (id, tenant_id, service_id, name, service_group, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (tenant_id, service_id) DO UPDATE SET
		   name = EXCLUDED.name,
		   service_group = EXCLUDED.service_group,
		   updated_at = now()
		 RETURNING id`,
		id, service.TenantID, service.ServiceID, service.Name, service.ServiceGroup,
	).Scan(&rowID)
	if err != nil {
		return "", fmt.Errorf("failed to upsert service: %w", err)
	}

	return rowID, nil
}

// DeleteByTenant は指定テナントの全奉仕役割を削除し、削除行数を返す。
func (r *PostgresServiceRepo) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenant ID is required")
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tenant_services WHERE tenant_id = $1`,
		tenantID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tenant services: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

// CountByTenant は指定テナントの奉仕役割件数を返す。
func (r *PostgresServiceRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM tenant_services WHERE tenant_id = $1`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tenant services: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ ServiceRepository = (*PostgresServiceRepo)(nil)
