package permission

import (
	"testing"

	"github.com/hitoshi/demostand/internal/model"
)

func TestForRole_DemoTester(t *testing.T) {
	set := ForRole(model.RoleDemoTester)

	granted := []Permission{
		ViewEvents, ViewCalendars, ViewServices,
		ManageOwnPages, PublishOwnPages, ToggleDemoMode, EditSettings,
	}
	for _, p := range granted {
		if !set.Has(p) {
			t.Errorf("デモテスターは %s を持つべき", p)
		}
	}

	// 接続設定の変更と管理APIはデモテスターには許可されない
	if set.Has(EditConnection) {
		t.Error("デモテスターは edit_connection を持ってはならない")
	}
	if set.CanViewAdmin() {
		t.Error("デモテスターは view_admin を持ってはならない")
	}
}

func TestSet_PredicateMethods(t *testing.T) {
	set := ForRole(model.RoleDemoTester)

	if !set.CanEditOwnPages() || !set.CanPublishPages() || !set.CanManageSettings() {
		t.Error("デモテスターのページ・設定権限の述語がfalseを返した")
	}

	var empty Set
	if empty.CanEditOwnPages() || empty.CanViewAdmin() {
		t.Error("空集合の述語がtrueを返した")
	}
}

func TestForRole_Admin(t *testing.T) {
	set := ForRole(model.RoleAdmin)

	if !set.CanViewAdmin() {
		t.Error("管理者は view_admin を持つべき")
	}
	if !set.Has(EditConnection) {
		t.Error("管理者は edit_connection を持つべき")
	}
}

func TestForRole_UnknownRoleEmptySet(t *testing.T) {
	set := ForRole("administrator")

	if set.Has(ViewEvents) || set.Has(EditConnection) {
		t.Error("未知のロールには何も許可されないべき")
	}
	if len(set.List()) != 0 {
		t.Errorf("List() = %v, want empty", set.List())
	}
}

func TestSet_Has(t *testing.T) {
	set := NewSet(ViewEvents)

	if !set.Has(ViewEvents) {
		t.Error("含めた権限がHasでfalseになった")
	}
	if set.Has(ToggleDemoMode) {
		t.Error("含めていない権限がHasでtrueになった")
	}
}

func TestSet_ZeroValueDeniesAll(t *testing.T) {
	var set Set
	if set.Has(ViewEvents) {
		t.Error("ゼロ値のSetは何も許可しないべき")
	}
}
