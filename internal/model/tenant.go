package model

import "time"

// Event はテナントに隔離された予定（アポイントメントの1オカレンス）を表す。
// 自然キーは (TenantID, AppointmentID, StartAt)。同じ繰り返し系列でも
// 開始時刻が異なれば別の行になる。
type Event struct {
	ID            string
	TenantID      string
	AppointmentID string
	StartAt       time.Time
	EndAt         time.Time
	Title         string
	CalendarID    string
	Location      string
	Note          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Calendar はテナントに隔離されたカレンダーを表す。
// 自然キーは (TenantID, CalendarID)。
type Calendar struct {
	ID         string
	TenantID   string
	CalendarID string
	Name       string
	Color      string
	IsPublic   bool
	SortOrder  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Service はテナントに隔離された奉仕役割（サービス）を表す。
// 自然キーは (TenantID, ServiceID)。
type Service struct {
	ID           string
	TenantID     string
	ServiceID    string
	Name         string
	ServiceGroup string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSetting はテナント単位の設定オーバーライドを表す。
// 行が存在しない（または値が空の）キーはグローバル既定値にフォールバックする。
type UserSetting struct {
	TenantID     string
	SettingKey   string
	SettingValue string
}
