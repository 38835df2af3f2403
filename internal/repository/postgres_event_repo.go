package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/demostand/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用したテナント隔離予定リポジトリ。
type PostgresEventRepo struct {
	db QueryExecer
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db QueryExecer) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

// ListByTenant は指定テナントの予定一覧を開始時刻昇順で返す。
func (r *PostgresEventRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, appointment_id, start_at, end_at, title,
		        calendar_id, location, note, created_at, updated_at
		 FROM tenant_events
		 WHERE tenant_id = $1
		 ORDER BY start_at`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e := &model.Event{}
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.AppointmentID, &e.StartAt, &e.EndAt, &e.Title,
			&e.CalendarID, &e.Location, &e.Note, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// Upsert は (tenant_id, appointment_id, start_at) の自然キーで冪等にUPSERTする。
// UNIQUE制約を利用したINSERT ON CONFLICTで実装する。
// 必須フィールドが欠けている場合は一切の書き込みなしに失敗する。
func (r *PostgresEventRepo) Upsert(ctx context.Context, event *model.Event) (string, error) {
	if event.TenantID == "" {
		return "", fmt.Errorf("tenant ID is required")
	}
	if event.AppointmentID == "" {
		return "", fmt.Errorf("appointment ID is required")
	}
	if event.StartAt.IsZero() {
		return "", fmt.Errorf("start time is required")
	}

	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}

	var rowID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tenant_events
		 (id, tenant_id, appointment_id, start_at, end_at, title,
		  calendar_id, location, note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		 ON CONFLICT (tenant_id, appointment_id, start_at) DO UPDATE SET
		   end_at = EXCLUDED.end_at,
		   title = EXCLUDED.title,
		   calendar_id = EXCLUDED.calendar_id,
		   location = EXCLUDED.location,
		   note = EXCLUDED.note,
		   updated_at = now()
		 RETURNING id`,
		id, event.TenantID, event.AppointmentID, event.StartAt, event.EndAt,
		event.Title, event.CalendarID, event.Location, event.Note,
	).Scan(&rowID)
	if err != nil {
		return "", fmt.Errorf("failed to upsert event: %w", err)
	}

	return rowID, nil
}

// DeleteByTenant は指定テナントの全予定を削除し、削除行数を返す。
// 既に空のテナントに対してもエラーにならない（削除行数0）。
func (r *PostgresEventRepo) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenant ID is required")
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tenant_events WHERE tenant_id = $1`,
		tenantID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tenant events: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}

// CountByTenant は指定テナントの予定件数を返す。
func (r *PostgresEventRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM tenant_events WHERE tenant_id = $1`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tenant events: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
