package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/demostand/internal/model"
)

// 各Postgresリポジトリがインターフェースをみたすことはコンパイル時に検証済み。
// ここでは自然キー・テナントIDの事前検証がDBアクセスなしに失敗することを確認する。
// リポジトリにnilの*sql.DBを渡しているため、検証を通過して書き込みに進むとpanicする。

// TestEventUpsert_RequiresTenantID はテナントID欠落時に書き込みなしで失敗することを検証する。
func TestEventUpsert_RequiresTenantID(t *testing.T) {
	repo := NewPostgresEventRepo(nil)

	_, err := repo.Upsert(context.Background(), &model.Event{
		AppointmentID: "appt-1",
		StartAt:       time.Now(),
	})
	if err == nil {
		t.Fatal("expected error for missing tenant ID")
	}
}

// TestEventUpsert_RequiresNaturalKey は自然キー欠落時に書き込みなしで失敗することを検証する。
func TestEventUpsert_RequiresNaturalKey(t *testing.T) {
	repo := NewPostgresEventRepo(nil)

	tests := []struct {
		name  string
		event *model.Event
	}{
		{
			name:  "missing appointment ID",
			event: &model.Event{TenantID: "t-1", StartAt: time.Now()},
		},
		{
			name:  "missing start time",
			event: &model.Event{TenantID: "t-1", AppointmentID: "appt-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Upsert(context.Background(), tt.event)
			if err == nil {
				t.Fatal("expected error for incomplete natural key")
			}
		})
	}
}

// TestCalendarUpsert_RequiresNaturalKey はカレンダーの必須フィールド検証を確認する。
func TestCalendarUpsert_RequiresNaturalKey(t *testing.T) {
	repo := NewPostgresCalendarRepo(nil)

	_, err := repo.Upsert(context.Background(), &model.Calendar{TenantID: "t-1"})
	if err == nil {
		t.Fatal("expected error for missing calendar ID")
	}

	_, err = repo.Upsert(context.Background(), &model.Calendar{CalendarID: "cal-1"})
	if err == nil {
		t.Fatal("expected error for missing tenant ID")
	}
}

// TestServiceUpsert_RequiresNaturalKey は奉仕役割の必須フィールド検証を確認する。
func TestServiceUpsert_RequiresNaturalKey(t *testing.T) {
	repo := NewPostgresServiceRepo(nil)

	_, err := repo.Upsert(context.Background(), &model.Service{TenantID: "t-1"})
	if err == nil {
		t.Fatal("expected error for missing service ID")
	}

	_, err = repo.Upsert(context.Background(), &model.Service{ServiceID: "svc-1"})
	if err == nil {
		t.Fatal("expected error for missing tenant ID")
	}
}

// TestDeleteByTenant_RequiresTenantID は空テナントIDでの全削除を拒否することを検証する。
// テナントIDなしのDELETEは全テナント削除になりかねないため、必ず事前検証で止める。
func TestDeleteByTenant_RequiresTenantID(t *testing.T) {
	ctx := context.Background()

	if _, err := NewPostgresEventRepo(nil).DeleteByTenant(ctx, ""); err == nil {
		t.Error("event repo should reject empty tenant ID")
	}
	if _, err := NewPostgresCalendarRepo(nil).DeleteByTenant(ctx, ""); err == nil {
		t.Error("calendar repo should reject empty tenant ID")
	}
	if _, err := NewPostgresServiceRepo(nil).DeleteByTenant(ctx, ""); err == nil {
		t.Error("service repo should reject empty tenant ID")
	}
	if _, err := NewPostgresSettingRepo(nil).DeleteByTenant(ctx, ""); err == nil {
		t.Error("setting repo should reject empty tenant ID")
	}
}

// TestSettingSet_RequiresKeyAndTenant は設定UPSERTの事前検証を確認する。
func TestSettingSet_RequiresKeyAndTenant(t *testing.T) {
	repo := NewPostgresSettingRepo(nil)

	if err := repo.Set(context.Background(), "", "key", "value"); err == nil {
		t.Error("expected error for missing tenant ID")
	}
	if err := repo.Set(context.Background(), "t-1", "", "value"); err == nil {
		t.Error("expected error for missing setting key")
	}
}

// TestPageCreate_RequiresTenantID はページ作成のテナントID検証を確認する。
func TestPageCreate_RequiresTenantID(t *testing.T) {
	repo := NewPostgresPageRepo(nil)

	err := repo.Create(context.Background(), &model.Page{
		ID:    "page-1",
		Title: "test",
	})
	if err == nil {
		t.Fatal("expected error for missing tenant ID")
	}
}

// 各リポジトリのコンストラクタがnilを返さないことを検証する。
func TestRepositoryConstructors(t *testing.T) {
	if NewPostgresAccountRepo(nil) == nil {
		t.Error("account repo constructor returned nil")
	}
	if NewPostgresPrincipalRepo(nil) == nil {
		t.Error("principal repo constructor returned nil")
	}
	if NewPostgresSessionRepo(nil) == nil {
		t.Error("session repo constructor returned nil")
	}
	if NewPostgresEventRepo(nil) == nil {
		t.Error("event repo constructor returned nil")
	}
	if NewPostgresCalendarRepo(nil) == nil {
		t.Error("calendar repo constructor returned nil")
	}
	if NewPostgresServiceRepo(nil) == nil {
		t.Error("service repo constructor returned nil")
	}
	if NewPostgresSettingRepo(nil) == nil {
		t.Error("setting repo constructor returned nil")
	}
	if NewPostgresPageRepo(nil) == nil {
		t.Error("page repo constructor returned nil")
	}
}
