package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/demostand/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したデモ申込リポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

const accountColumns = `id, email, display_name, organization, purpose_text,
	verification_token, password_hash, verified_at, principal_id,
	last_login_at, created_at, updated_at`

// scanAccount は1行分の申込レコードをスキャンする。
func scanAccount(row interface{ Scan(...any) error }) (*model.DemoAccount, error) {
	a := &model.DemoAccount{}
	err := row.Scan(
		&a.ID, &a.Email, &a.DisplayName, &a.Organization, &a.PurposeText,
		&a.VerificationToken, &a.PasswordHash, &a.VerifiedAt, &a.PrincipalID,
		&a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create は未確認状態の申込レコードを作成する。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.DemoAccount) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO demo_accounts
		 (id, email, display_name, organization, purpose_text,
		  verification_token, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID, account.Email, account.DisplayName, account.Organization,
		account.PurposeText, account.VerificationToken, account.PasswordHash,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert demo account: %w", err)
	}
	return nil
}

// FindByID は指定IDの申込レコードを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.DemoAccount, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM demo_accounts WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find demo account by ID: %w", err)
	}
	return account, nil
}

// FindByEmail はメールアドレスで申込レコードを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.DemoAccount, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM demo_accounts WHERE email = $1`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find demo account by email: %w", err)
	}
	return account, nil
}

// FindByToken は確認トークンで申込レコードを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByToken(ctx context.Context, token string) (*model.DemoAccount, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM demo_accounts WHERE verification_token = $1`, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find demo account by token: %w", err)
	}
	return account, nil
}

// VerifyWithPrincipal はプリンシパルの作成と申込レコードの確認済み化を
// 同一トランザクションで行う。
func (r *PostgresAccountRepo) VerifyWithPrincipal(ctx context.Context, accountID string, principal *model.Principal, verifiedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// プリンシパルを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO principals (id, email, display_name, role, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		principal.ID, principal.Email, principal.DisplayName, principal.Role,
		principal.PasswordHash, principal.CreatedAt, principal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert principal: %w", err)
	}

	// 申込レコードを確認済みにする。未確認の行のみ対象とし、
	// 競合する検証が先に完了していた場合は0行更新となりエラーにする。
	result, err := tx.ExecContext(ctx,
		`UPDATE demo_accounts
		 SET verified_at = $1, principal_id = $2, updated_at = $1
		 WHERE id = $3 AND verified_at IS NULL`,
		verifiedAt, principal.ID, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark account verified: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotUnverified)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateLastLogin は最終ログイン日時を更新する。
func (r *PostgresAccountRepo) UpdateLastLogin(ctx context.Context, principalID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE demo_accounts SET last_login_at = $1, updated_at = $1 WHERE principal_id = $2`,
		at, principalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// ListCreatedBefore はcutoffちょうども含めて、それ以前に作成された申込レコードを返す。
func (r *PostgresAccountRepo) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*model.DemoAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM demo_accounts
		 WHERE created_at <= $1 ORDER BY created_at`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired accounts: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// ListCreatedBetween は作成日時が (from, to] の半開区間に含まれる申込レコードを返す。
func (r *PostgresAccountRepo) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*model.DemoAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM demo_accounts
		 WHERE created_at > $1 AND created_at <= $2 ORDER BY created_at`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring accounts: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// ListAll は全申込レコードを作成日時昇順で返す。
func (r *PostgresAccountRepo) ListAll(ctx context.Context) ([]*model.DemoAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM demo_accounts ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// CountByState は未確認・確認済みの件数を返す。
func (r *PostgresAccountRepo) CountByState(ctx context.Context) (unverified, verified int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT
		   count(*) FILTER (WHERE verified_at IS NULL),
		   count(*) FILTER (WHERE verified_at IS NOT NULL)
		 FROM demo_accounts`,
	).Scan(&unverified, &verified)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return unverified, verified, nil
}

// DeleteByID は指定IDの申込レコードを削除する。
// 既に削除済みの場合でもエラーにならない。
func (r *PostgresAccountRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM demo_accounts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete demo account: %w", err)
	}
	return nil
}

// collectAccounts はクエリ結果の全行をスキャンして返す。
func collectAccounts(rows *sql.Rows) ([]*model.DemoAccount, error) {
	var accounts []*model.DemoAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan demo account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate demo accounts: %w", err)
	}
	return accounts, nil
}

// compile-time interface check
var _ DemoAccountRepository = (*PostgresAccountRepo)(nil)
