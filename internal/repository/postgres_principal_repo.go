package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/demostand/internal/model"
)

// PostgresPrincipalRepo はPostgreSQLを使用したプリンシパルリポジトリ。
type PostgresPrincipalRepo struct {
	db *sql.DB
}

// NewPostgresPrincipalRepo はPostgresPrincipalRepoを生成する。
func NewPostgresPrincipalRepo(db *sql.DB) *PostgresPrincipalRepo {
	return &PostgresPrincipalRepo{db: db}
}

// FindByID は指定IDのプリンシパルを取得する。見つからない場合はnilを返す。
func (r *PostgresPrincipalRepo) FindByID(ctx context.Context, id string) (*model.Principal, error) {
	p := &model.Principal{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, role, password_hash, created_at, updated_at
		 FROM principals WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Email, &p.DisplayName, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find principal by ID: %w", err)
	}

	return p, nil
}

// FindByEmail はメールアドレスでプリンシパルを検索する。見つからない場合はnilを返す。
func (r *PostgresPrincipalRepo) FindByEmail(ctx context.Context, email string) (*model.Principal, error) {
	p := &model.Principal{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, role, password_hash, created_at, updated_at
		 FROM principals WHERE email = $1`,
		email,
	).Scan(&p.ID, &p.Email, &p.DisplayName, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find principal by email: %w", err)
	}

	return p, nil
}

// DeleteByID は指定IDのプリンシパルを削除する。
// sessions、demo_pagesはCASCADE削除される。
// 並行スイープが先に削除した場合は0行削除で正常終了する。
func (r *PostgresPrincipalRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM principals WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete principal: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PrincipalRepository = (*PostgresPrincipalRepo)(nil)
