// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/demostand/internal/model"
)

// QueryExecer は*sql.DBと*sql.Txの共通操作を抽象化するインターフェース。
// テナント隔離リポジトリはこの抽象の上に構築し、テストでフェイクを差し込めるようにする。
type QueryExecer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DemoAccountRepository はデモ申込レコードの永続化インターフェース。
type DemoAccountRepository interface {
	// Create は未確認状態の申込レコードを作成する。
	Create(ctx context.Context, account *model.DemoAccount) error

	// FindByID は指定IDの申込レコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.DemoAccount, error)

	// FindByEmail はメールアドレスで申込レコードを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.DemoAccount, error)

	// FindByToken は確認トークンで申込レコードを検索する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.DemoAccount, error)

	// VerifyWithPrincipal はプリンシパルの作成と申込レコードの確認済み化を
	// 同一トランザクションで行う。どちらかが失敗した場合は両方ロールバックされ、
	// 「確認済みだがプリンシパルなし」の状態は生じない。
	VerifyWithPrincipal(ctx context.Context, accountID string, principal *model.Principal, verifiedAt time.Time) error

	// UpdateLastLogin は最終ログイン日時を更新する。
	UpdateLastLogin(ctx context.Context, principalID string, at time.Time) error

	// ListCreatedBefore はcutoffちょうども含めて、それ以前に作成された申込レコードを返す。
	// 期限切れスイープの対象選択に使用する。
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*model.DemoAccount, error)

	// ListCreatedBetween は作成日時が (from, to] の半開区間に含まれる申込レコードを返す。
	// 期限切れ予告スイープの対象選択に使用する。
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*model.DemoAccount, error)

	// ListAll は全申込レコードを作成日時昇順で返す。
	ListAll(ctx context.Context) ([]*model.DemoAccount, error)

	// CountByState は未確認・確認済みの件数を返す。
	CountByState(ctx context.Context) (unverified, verified int, err error)

	// DeleteByID は指定IDの申込レコードを削除する。
	// 既に削除済みの場合はエラーにならない（並行スイープ耐性）。
	DeleteByID(ctx context.Context, id string) error
}

// PrincipalRepository はプリンシパルの永続化インターフェース。
type PrincipalRepository interface {
	// FindByID は指定IDのプリンシパルを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Principal, error)

	// FindByEmail はメールアドレスでプリンシパルを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Principal, error)

	// DeleteByID は指定IDのプリンシパルを削除する。
	// sessions、demo_pagesはCASCADE削除される。
	// 既に削除済みの場合はエラーにならない（並行スイープ耐性）。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByPrincipalID は指定プリンシパルの全セッションを削除する。
	DeleteByPrincipalID(ctx context.Context, principalID string) error
}

// EventRepository はテナント隔離された予定の永続化インターフェース。
// すべての操作はtenant_idでフィルタされ、テナント間の可視性は存在しない。
type EventRepository interface {
	// ListByTenant は指定テナントの予定一覧を開始時刻昇順で返す。
	ListByTenant(ctx context.Context, tenantID string) ([]*model.Event, error)

	// Upsert は (tenant_id, appointment_id, start_at) の自然キーで冪等にUPSERTする。
	// 自然キーの必須フィールドが欠けている場合は一切の書き込みなしに失敗する。
	// 戻り値は行のID。
	Upsert(ctx context.Context, event *model.Event) (string, error)

	// DeleteByTenant は指定テナントの全予定を削除し、削除行数を返す。
	DeleteByTenant(ctx context.Context, tenantID string) (int64, error)

	// CountByTenant は指定テナントの予定件数を返す。
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

// CalendarRepository はテナント隔離されたカレンダーの永続化インターフェース。
type CalendarRepository interface {
	// ListByTenant は指定テナントのカレンダー一覧をsort_order昇順で返す。
	ListByTenant(ctx context.Context, tenantID string) ([]*model.Calendar, error)

	// Upsert は (tenant_id, calendar_id) の自然キーで冪等にUPSERTする。
	Upsert(ctx context.Context, calendar *model.Calendar) (string, error)

	// DeleteByTenant は指定テナントの全カレンダーを削除し、削除行数を返す。
	DeleteByTenant(ctx context.Context, tenantID string) (int64, error)

	// CountByTenant は指定テナントのカレンダー件数を返す。
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

// ServiceRepository はテナント隔離された奉仕役割の永続化インターフェース。
type ServiceRepository interface {
	// ListByTenant は指定テナントの奉仕役割一覧を名前昇順で返す。
	ListByTenant(ctx context.Context, tenantID string) ([]*model.Service, error)

	// Upsert は (tenant_id, service_id) の自然キーで冪等にUPSERTする。
	Upsert(ctx context.Context, service *model.Service) (string, error)

	// DeleteByTenant は指定テナントの全奉仕役割を削除し、削除行数を返す。
	DeleteByTenant(ctx context.Context, tenantID string) (int64, error)

	// CountByTenant は指定テナントの奉仕役割件数を返す。
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

// SettingRepository はテナント単位の設定オーバーライドの永続化インターフェース。
type SettingRepository interface {
	// Get は設定値を返す。行が存在しない場合はok=falseを返す。
	Get(ctx context.Context, tenantID, key string) (value string, ok bool, err error)

	// Set は設定値をUPSERTする。
	Set(ctx context.Context, tenantID, key, value string) error

	// Delete は設定行を削除する。存在しない行の削除はエラーにならない。
	Delete(ctx context.Context, tenantID, key string) error

	// DeleteByTenant は指定テナントの全設定行を削除し、削除行数を返す。
	DeleteByTenant(ctx context.Context, tenantID string) (int64, error)
}

// PageRepository はデモページの永続化インターフェース。
type PageRepository interface {
	// Create はページを作成する。
	Create(ctx context.Context, page *model.Page) error

	// Update はページを上書き更新する。テナント外の行は対象にならない。
	Update(ctx context.Context, page *model.Page) error

	// FindByID は指定テナントのページを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, tenantID, pageID string) (*model.Page, error)

	// ListByTenant は指定テナントのページ一覧を更新日時降順で返す。
	ListByTenant(ctx context.Context, tenantID string) ([]*model.Page, error)

	// DeleteByID は指定テナントのページを削除する。
	DeleteByID(ctx context.Context, tenantID, pageID string) error

	// CountByTenant は指定テナントのページ件数を返す。
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}
