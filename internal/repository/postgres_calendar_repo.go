package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/demostand/internal/model"
)

// PostgresCalendarRepo はPostgreSQLを使用したテナント隔離カレンダーリポジトリ。
type PostgresCalendarRepo struct {
	db QueryExecer
}

// NewPostgresCalendarRepo はPostgresCalendarRepoを生成する。
func NewPostgresCalendarRepo(db QueryExecer) *PostgresCalendarRepo {
	return &PostgresCalendarRepo{db: db}
}

// ListByTenant は指定テナントのカレンダー一覧をsort_order昇順で返す。
func (r *PostgresCalendarRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.Calendar, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, calendar_id, name, color, is_public, sort_order,
		        created_at, updated_at
		 FROM tenant_calendars
		 WHERE tenant_id = $1
		 ORDER BY sort_order, calendar_id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	defer rows.Close()

	var calendars []*model.Calendar
	for rows.Next() {
		c := &model.Calendar{}
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.CalendarID, &c.Name, &c.Color, &c.IsPublic,
			&c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan calendar: %w", err)
		}
		calendars = append(calendars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calendars: %w", err)
	}

	return calendars, nil
}

// Upsert は (tenant_id, calendar_id) の自然キーで冪等にUPSERTする。
// 必須フィールドが欠けている場合は一切の書き込みなしに失敗する。
func (r *PostgresCalendarRepo) Upsert(ctx context.Context, calendar *model.Calendar) (string, error) {
	if calendar.TenantID == "" {
		return "", fmt.Errorf("tenant ID is required")
	}
	if calendar.CalendarID == "" {
		return "", fmt.Errorf("calendar ID is required")
	}

	id := calendar.ID
	if id == "" {
		id = uuid.New().String()
	}

	var rowID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tenant_calendars
		 (id, tenant_id, calendar_id, name, color, is_public, sort_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		 ON CONFLICT (tenant_id, calendar_id) DO UPDATE SET
		   name = EXCLUDED.name,
		   color = EXCLUDED.color,
		   is_public = EXCLUDED.is_public,
		   sort_order = EXCLUDED.sort_order,
		   updated_at = now()
		 RETURNING id`,
		id, calendar.TenantID, calendar.CalendarID, calendar.Name,
		calendar.Color, calendar.IsPublic, calendar.SortOrder,
	).Scan(&rowID)
	if err != nil {
		return "", fmt.Errorf("failed to upsert calendar: %w", err)
	}

	return rowID, nil
}

// DeleteByTenant は指定テナントの全カレンダーを削除し、削除行数を返す。
func (r *PostgresCalendarRepo) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenant ID is required")
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tenant_calendars WHERE tenant_id = $1`,
		tenantID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tenant calendars: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

// CountByTenant は指定テナントのカレンダー件数を返す。
func (r *PostgresCalendarRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM tenant_calendars WHERE tenant_id = $1`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tenant calendars: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ CalendarRepository = (*PostgresCalendarRepo)(nil)
