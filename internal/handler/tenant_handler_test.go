package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/repository"
)

// --- リポジトリスタブ ---

type stubEventRepo struct {
	events []*model.Event
}

func (s *stubEventRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.Event, error) {
	out := make([]*model.Event, 0)
	for _, ev := range s.events {
		if ev.TenantID == tenantID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *stubEventRepo) Upsert(ctx context.Context, event *model.Event) (string, error) {
	return "", nil
}

func (s *stubEventRepo) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	return 0, nil
}

func (s *stubEventRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	return len(s.events), nil
}

type stubCalendarRepo struct {
	calendars []*model.Calendar
}

func (s *stubCalendarRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.Calendar, error) {
	return s.calendars, nil
}

func (s *stubCalendarRepo) Upsert(ctx context.Context, calendar *model.Calendar) (string, error) {
	return "", nil
}

func (s *stubCalendarRepo) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	return 0, nil
}

func (s *stubCalendarRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	return len(s.calendars), nil
}

type stubServiceRepo struct {
	services []*model.Service
}

func (s *stubServiceRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.Service, error) {
	return s.services, nil
}

func (s *stubServiceRepo) Upsert(ctx context.Context, service *model.Service) (string, error) {
	return "", nil
}

func (s *stubServiceRepo) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	return 0, nil
}

func (s *stubServiceRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	return len(s.services), nil
}

// stubSelector はRepositorySelectorのスタブ実装。常に同じリポジトリを返す。
type stubSelector struct {
	events    repository.EventRepository
	calendars repository.CalendarRepository
	services  repository.ServiceRepository
}

func (s *stubSelector) EventsFor(actor *model.Principal) repository.EventRepository {
	return s.events
}

func (s *stubSelector) CalendarsFor(actor *model.Principal) repository.CalendarRepository {
	return s.calendars
}

func (s *stubSelector) ServicesFor(actor *model.Principal) repository.ServiceRepository {
	return s.services
}

func newStubSelector() *stubSelector {
	return &stubSelector{
		events:    &stubEventRepo{},
		calendars: &stubCalendarRepo{},
		services:  &stubServiceRepo{},
	}
}

func TestTenantDataHandler_ListEvents_OwnTenantOnly(t *testing.T) {
	start := time.Date(2026, 9, 6, 10, 0, 0, 0, time.UTC)
	selector := newStubSelector()
	selector.events = &stubEventRepo{events: []*model.Event{
		{ID: "ev-1", TenantID: "tenant-1", AppointmentID: "demo-appt-1", Title: "礼拝", StartAt: start, EndAt: start.Add(90 * time.Minute), CalendarID: "demo-cal-worship"},
		{ID: "ev-2", TenantID: "tenant-2", AppointmentID: "demo-appt-1", Title: "他テナントの予定", StartAt: start, EndAt: start.Add(time.Hour)},
	}}

	var checkedTenant string
	demoMode := &mockDemoModeService{
		ensureConsistentFn: func(ctx context.Context, tenantID string) error {
			checkedTenant = tenantID
			return nil
		},
	}

	h := NewTenantDataHandler(selector, demoMode)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = withPrincipal(req, demoTester("tenant-1"))
	w := httptest.NewRecorder()

	h.ListEvents(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	// 一覧取得前に整合性チェックが走る
	if checkedTenant != "tenant-1" {
		t.Errorf("consistency check tenant = %q, want %q", checkedTenant, "tenant-1")
	}

	var result []eventResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(result))
	}
	if result[0].Title != "礼拝" {
		t.Errorf("title = %q, want %q", result[0].Title, "礼拝")
	}
}

func TestTenantDataHandler_ListEvents_ConsistencyFailureStillLists(t *testing.T) {
	selector := newStubSelector()
	demoMode := &mockDemoModeService{
		ensureConsistentFn: func(ctx context.Context, tenantID string) error {
			return context.DeadlineExceeded
		},
	}

	h := NewTenantDataHandler(selector, demoMode)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = withPrincipal(req, demoTester("tenant-1"))
	w := httptest.NewRecorder()

	h.ListEvents(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestTenantDataHandler_ListCalendars(t *testing.T) {
	selector := newStubSelector()
	selector.calendars = &stubCalendarRepo{calendars: []*model.Calendar{
		{ID: "cal-1", TenantID: "tenant-1", CalendarID: "demo-cal-worship", Name: "礼拝", Color: "#4a90d9", IsPublic: true},
	}}

	h := NewTenantDataHandler(selector, &mockDemoModeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/calendars", nil)
	req = withPrincipal(req, demoTester("tenant-1"))
	w := httptest.NewRecorder()

	h.ListCalendars(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result []calendarResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 1 || result[0].CalendarID != "demo-cal-worship" {
		t.Errorf("unexpected calendars: %+v", result)
	}
}

func TestTenantDataHandler_ListServices(t *testing.T) {
	selector := newStubSelector()
	selector.services = &stubServiceRepo{services: []*model.Service{
		{ID: "svc-1", TenantID: "tenant-1", ServiceID: "demo-svc-preaching", Name: "説教", ServiceGroup: "礼拝"},
	}}

	h := NewTenantDataHandler(selector, &mockDemoModeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req = withPrincipal(req, demoTester("tenant-1"))
	w := httptest.NewRecorder()

	h.ListServices(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result []serviceResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 1 || result[0].Name != "説教" {
		t.Errorf("unexpected services: %+v", result)
	}
}

func TestTenantDataHandler_ListEvents_Unauthenticated401(t *testing.T) {
	h := NewTenantDataHandler(newStubSelector(), &mockDemoModeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	w := httptest.NewRecorder()

	h.ListEvents(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
