package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/demostand/internal/model"
)

// PostgresPageRepo はPostgreSQLを使用したデモページリポジトリ。
// すべての操作はtenant_idでスコープされ、他テナントのページには触れられない。
type PostgresPageRepo struct {
	db *sql.DB
}

// NewPostgresPageRepo はPostgresPageRepoを生成する。
func NewPostgresPageRepo(db *sql.DB) *PostgresPageRepo {
	return &PostgresPageRepo{db: db}
}

// Create はページを作成する。
func (r *PostgresPageRepo) Create(ctx context.Context, page *model.Page) error {
	if page.TenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO demo_pages (id, tenant_id, title, content_html, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		page.ID, page.TenantID, page.Title, page.ContentHTML, page.Status,
		page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

// Update はページを上書き更新する。テナント外の行は対象にならない。
func (r *PostgresPageRepo) Update(ctx context.Context, page *model.Page) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE demo_pages
		 SET title = $1, content_html = $2, status = $3, updated_at = $4
		 WHERE id = $5 AND tenant_id = $6`,
		page.Title, page.ContentHTML, page.Status, page.UpdatedAt,
		page.ID, page.TenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("page not found: %s", page.ID)
	}
	return nil
}

// FindByID は指定テナントのページを取得する。見つからない場合はnilを返す。
func (r *PostgresPageRepo) FindByID(ctx context.Context, tenantID, pageID string) (*model.Page, error) {
	p := &model.Page{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, title, content_html, status, created_at, updated_at
		 FROM demo_pages
		 WHERE id = $1 AND tenant_id = $2`,
		pageID, tenantID,
	).Scan(&p.ID, &p.TenantID, &p.Title, &p.ContentHTML, &p.Status, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find page: %w", err)
	}

	return p, nil
}

// ListByTenant は指定テナントのページ一覧を更新日時降順で返す。
func (r *PostgresPageRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.Page, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, title, content_html, status, created_at, updated_at
		 FROM demo_pages
		 WHERE tenant_id = $1
		 ORDER BY updated_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []*model.Page
	for rows.Next() {
		p := &model.Page{}
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.Title, &p.ContentHTML, &p.Status,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}

	return pages, nil
}

// DeleteByID は指定テナントのページを削除する。
func (r *PostgresPageRepo) DeleteByID(ctx context.Context, tenantID, pageID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM demo_pages WHERE id = $1 AND tenant_id = $2`,
		pageID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("page not found: %s", pageID)
	}
	return nil
}

// CountByTenant は指定テナントのページ件数を返す。
func (r *PostgresPageRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM demo_pages WHERE tenant_id = $1`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ PageRepository = (*PostgresPageRepo)(nil)
