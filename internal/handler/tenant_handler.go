package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/demostand/internal/middleware"
	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/repository"
)

// RepositorySelector はアクターのロールに応じてテナントリポジトリを選択するインターフェース。
// provider.RepositoryProviderの部分集合として定義する。
type RepositorySelector interface {
	EventsFor(actor *model.Principal) repository.EventRepository
	CalendarsFor(actor *model.Principal) repository.CalendarRepository
	ServicesFor(actor *model.Principal) repository.ServiceRepository
}

// TenantDataHandler は予定・カレンダー・奉仕役割の読み取りHTTPハンドラー。
// 一覧取得の前にデモモードフラグと実データの整合性チェックを行う。
type TenantDataHandler struct {
	selector RepositorySelector
	demoMode DemoModeServiceInterface
}

// NewTenantDataHandler はTenantDataHandlerを生成する。
func NewTenantDataHandler(selector RepositorySelector, demoMode DemoModeServiceInterface) *TenantDataHandler {
	return &TenantDataHandler{
		selector: selector,
		demoMode: demoMode,
	}
}

// eventResponse は予定のAPIレスポンス。
type eventResponse struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointment_id"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	Title         string    `json:"title"`
	CalendarID    string    `json:"calendar_id"`
	Location      string    `json:"location,omitempty"`
	Note          string    `json:"note,omitempty"`
}

// calendarResponse はカレンダーのAPIレスポンス。
type calendarResponse struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendar_id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	IsPublic   bool   `json:"is_public"`
	SortOrder  int    `json:"sort_order"`
}

// serviceResponse は奉仕役割のAPIレスポンス。
type serviceResponse struct {
	ID           string `json:"id"`
	ServiceID    string `json:"service_id"`
	Name         string `json:"name"`
	ServiceGroup string `json:"service_group,omitempty"`
}

// ListEvents は自テナントの予定一覧を返す。
// GET /api/events
func (h *TenantDataHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	h.ensureConsistent(r, principal.ID)

	events, err := h.selector.EventsFor(principal).ListByTenant(r.Context(), principal.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, eventResponse{
			ID:            ev.ID,
			AppointmentID: ev.AppointmentID,
			StartAt:       ev.StartAt,
			EndAt:         ev.EndAt,
			Title:         ev.Title,
			CalendarID:    ev.CalendarID,
			Location:      ev.Location,
			Note:          ev.Note,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListCalendars は自テナントのカレンダー一覧を返す。
// GET /api/calendars
func (h *TenantDataHandler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	h.ensureConsistent(r, principal.ID)

	calendars, err := h.selector.CalendarsFor(principal).ListByTenant(r.Context(), principal.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]calendarResponse, 0, len(calendars))
	for _, cal := range calendars {
		resp = append(resp, calendarResponse{
			ID:         cal.ID,
			CalendarID: cal.CalendarID,
			Name:       cal.Name,
			Color:      cal.Color,
			IsPublic:   cal.IsPublic,
			SortOrder:  cal.SortOrder,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListServices は自テナントの奉仕役割一覧を返す。
// GET /api/services
func (h *TenantDataHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	h.ensureConsistent(r, principal.ID)

	services, err := h.selector.ServicesFor(principal).ListByTenant(r.Context(), principal.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]serviceResponse, 0, len(services))
	for _, svc := range services {
		resp = append(resp, serviceResponse{
			ID:           svc.ID,
			ServiceID:    svc.ServiceID,
			Name:         svc.Name,
			ServiceGroup: svc.ServiceGroup,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ensureConsistent は読み取り前の整合性チェックを行う。
// 失敗してもリクエスト自体は継続する（一覧は読める方が良い）。
func (h *TenantDataHandler) ensureConsistent(r *http.Request, tenantID string) {
	if err := h.demoMode.EnsureConsistent(r.Context(), tenantID); err != nil {
		slog.Warn("demo mode consistency check failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
	}
}
