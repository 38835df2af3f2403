package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/demostand/internal/metrics"
	"github.com/hitoshi/demostand/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	PrincipalFinder   middleware.PrincipalFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 共通設定
	Config HandlerConfig

	// 観測
	Metrics       metrics.MetricsCollector
	HealthChecker HealthChecker

	// サービス
	RegistrationService RegistrationServiceInterface
	SessionCreator      SessionCreator
	AuthService         AuthServiceInterface
	DemoModeService     DemoModeServiceInterface
	RepositorySelector  RepositorySelector
	Settings            SettingsAccessor
	InstanceService     InstanceServiceInterface
	PageService         PageServiceInterface
	AccountDirectory    AccountDirectory
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → (認証グループ: Session → CSRF → RateLimit)
//
// 申込・確認・ログインのルートは認証グループの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(newHTTPStatusMiddleware(deps.Metrics))
	}

	registerHandler := NewRegisterHandler(deps.RegistrationService, deps.SessionCreator, deps.Config, deps.Metrics)
	authHandler := NewAuthHandler(deps.AuthService, deps.Config)
	demoModeHandler := NewDemoModeHandler(deps.DemoModeService)
	tenantHandler := NewTenantDataHandler(deps.RepositorySelector, deps.DemoModeService)
	settingsHandler := NewSettingsHandler(deps.Settings)
	instanceHandler := NewInstanceHandler(deps.InstanceService)
	pageHandler := NewPageHandler(deps.PageService)
	adminHandler := NewAdminHandler(deps.AccountDirectory)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// デモ申込（専用の厳しいレート制限を適用）
	r.With(deps.RateLimiter.RegisterMiddleware()).Post("/api/register", registerHandler.Register)

	// 確認メールのリンク先
	r.Get("/verify", registerHandler.Verify)

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.PrincipalFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// デモモード切替
		r.Route("/api/demo-mode", func(r chi.Router) {
			r.Get("/", demoModeHandler.GetState)
			r.Post("/", demoModeHandler.Toggle)
		})

		// テナントデータの閲覧
		r.Get("/api/events", tenantHandler.ListEvents)
		r.Get("/api/calendars", tenantHandler.ListCalendars)
		r.Get("/api/services", tenantHandler.ListServices)

		// 設定
		r.Route("/api/settings/{key}", func(r chi.Router) {
			r.Get("/", settingsHandler.Get)
			r.Put("/", settingsHandler.Set)
		})

		// 接続先インスタンス
		r.Route("/api/instance", func(r chi.Router) {
			r.Get("/", instanceHandler.Get)
			r.Put("/", instanceHandler.Set)
		})

		// デモページ管理
		r.Route("/api/pages", func(r chi.Router) {
			r.Get("/", pageHandler.List)
			r.Post("/", pageHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", pageHandler.Get)
				r.Put("/", pageHandler.Update)
				r.Delete("/", pageHandler.Delete)
			})
		})

		// 管理API（権限チェックはハンドラー内で行う）
		r.Route("/api/admin", func(r chi.Router) {
			r.Get("/accounts", adminHandler.ListAccounts)
			r.Get("/status", adminHandler.Status)
		})
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// statusCapture はレスポンスのステータスコードを記録するResponseWriterラッパー。
type statusCapture struct {
	http.ResponseWriter
	status int
}

func (sc *statusCapture) WriteHeader(code int) {
	sc.status = code
	sc.ResponseWriter.WriteHeader(code)
}

// newHTTPStatusMiddleware はレスポンスのステータスコードをメトリクスに記録するミドルウェアを返す。
func newHTTPStatusMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc := &statusCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sc, r)
			collector.RecordHTTPStatus(sc.status)
		})
	}
}
