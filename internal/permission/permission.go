// Package permission はロールに応じた操作権限を定義する。
package permission

import "github.com/hitoshi/demostand/internal/model"

// Permission は個別の操作権限を表す。
type Permission string

// デモテスターに付与されうる権限の一覧。
const (
	ViewEvents      Permission = "view_events"       // 予定の閲覧
	ViewCalendars   Permission = "view_calendars"    // カレンダーの閲覧
	ViewServices    Permission = "view_services"     // 奉仕役割の閲覧
	ManageOwnPages  Permission = "manage_own_pages"  // 自分のデモページの作成・編集・削除
	PublishOwnPages Permission = "publish_own_pages" // 自分のデモページの公開
	ToggleDemoMode  Permission = "toggle_demo_mode"  // デモモードの切り替え
	EditSettings    Permission = "edit_settings"     // 接続設定以外の設定変更
	EditConnection  Permission = "edit_connection"   // 接続設定の変更（デモテスターには付与しない）
	ViewAdmin       Permission = "view_admin"        // 管理APIの参照（デモテスターには付与しない）
)

// Set はロールに紐づく権限の集合を表す不変の値オブジェクト。
type Set struct {
	perms map[Permission]bool
}

// NewSet は指定された権限だけを持つSetを生成する。
func NewSet(perms ...Permission) Set {
	m := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		m[p] = true
	}
	return Set{perms: m}
}

// Has は権限が含まれているかを返す。
func (s Set) Has(p Permission) bool {
	return s.perms[p]
}

// List は含まれる権限の一覧を返す。順序は不定。
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	return out
}

// CanEditOwnPages は自分のデモページを作成・編集・削除できるかを返す。
func (s Set) CanEditOwnPages() bool { return s.Has(ManageOwnPages) }

// CanPublishPages は自分のデモページを公開できるかを返す。
func (s Set) CanPublishPages() bool { return s.Has(PublishOwnPages) }

// CanManageSettings は接続設定以外の設定を変更できるかを返す。
func (s Set) CanManageSettings() bool { return s.Has(EditSettings) }

// CanViewAdmin は管理APIを参照できるかを返す。
// デモテスターには付与されない。
func (s Set) CanViewAdmin() bool { return s.Has(ViewAdmin) }

// ForRole はロール名に対応する権限集合を返す。
// 未知のロールには空集合を返し、何も許可しない。
func ForRole(role string) Set {
	switch role {
	case model.RoleDemoTester:
		return NewSet(
			ViewEvents,
			ViewCalendars,
			ViewServices,
			ManageOwnPages,
			PublishOwnPages,
			ToggleDemoMode,
			EditSettings,
		)
	case model.RoleAdmin:
		return NewSet(
			ViewEvents,
			ViewCalendars,
			ViewServices,
			ManageOwnPages,
			PublishOwnPages,
			ToggleDemoMode,
			EditSettings,
			EditConnection,
			ViewAdmin,
		)
	default:
		return NewSet()
	}
}
