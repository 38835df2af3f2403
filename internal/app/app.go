// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/demostand/internal/auth"
	"github.com/hitoshi/demostand/internal/config"
	"github.com/hitoshi/demostand/internal/database"
	"github.com/hitoshi/demostand/internal/demomode"
	"github.com/hitoshi/demostand/internal/handler"
	"github.com/hitoshi/demostand/internal/instance"
	"github.com/hitoshi/demostand/internal/logger"
	"github.com/hitoshi/demostand/internal/mailer"
	"github.com/hitoshi/demostand/internal/metrics"
	"github.com/hitoshi/demostand/internal/middleware"
	"github.com/hitoshi/demostand/internal/page"
	"github.com/hitoshi/demostand/internal/provider"
	"github.com/hitoshi/demostand/internal/registration"
	"github.com/hitoshi/demostand/internal/repository"
	"github.com/hitoshi/demostand/internal/security"
	"github.com/hitoshi/demostand/internal/settings"
	"github.com/hitoshi/demostand/internal/worker/sweep"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandStatus:
		return runStatus(w, cfg)
	case CommandListAccounts:
		return runListAccounts(w, cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	principalRepo := repository.NewPostgresPrincipalRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	calendarRepo := repository.NewPostgresCalendarRepo(db)
	serviceRepo := repository.NewPostgresServiceRepo(db)
	settingRepo := repository.NewPostgresSettingRepo(db)
	pageRepo := repository.NewPostgresPageRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	settingsStore := settings.NewStore(settingRepo)

	m := mailer.New(mailer.Config{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.MailFrom,
		AdminEmail: cfg.AdminEmail,
		BaseURL:    cfg.BaseURL,
	}, slog.Default())

	demoModeService := demomode.NewService(
		settingsStore, eventRepo, calendarRepo, serviceRepo,
		cfg.SeedHorizonDays, slog.Default(),
	)

	registrationService := registration.NewService(
		accountRepo, sanitizer, m, demoModeService, slog.Default(),
	)

	authService := auth.NewService(
		principalRepo, sessionRepo, accountRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	// デモテナントのリポジトリをロールに応じて選択するプロバイダ。
	// 外部ホスト側のリポジトリは未接続のため、デモ側のみを配線する。
	repoProvider := provider.New(provider.Repositories{
		Events:    eventRepo,
		Calendars: calendarRepo,
		Services:  serviceRepo,
	}, provider.Repositories{})

	pageService := page.NewService(pageRepo, sanitizer, slog.Default())
	instanceService := instance.NewService(settingsStore, ssrfGuard, slog.Default())

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		PrincipalFinder:   principalRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterConfig(cfg)),
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		Config: handler.HandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		Metrics:       collector,
		HealthChecker: db,

		RegistrationService: registrationService,
		SessionCreator:      authService,
		AuthService:         authService,
		DemoModeService:     demoModeService,
		RepositorySelector:  repoProvider,
		Settings:            settingsStore,
		InstanceService:     instanceService,
		PageService:         pageService,
		AccountDirectory:    accountRepo,
	}

	router := handler.NewRouter(deps)

	// /metrics はAPIミドルウェアチェーンの外に配置する
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.Handle("/", router)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はライフサイクルワーカーモードで起動する。
// 期限切れスイープと予告通知を定期実行し、/metricsを公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	principalRepo := repository.NewPostgresPrincipalRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	calendarRepo := repository.NewPostgresCalendarRepo(db)
	serviceRepo := repository.NewPostgresServiceRepo(db)
	settingRepo := repository.NewPostgresSettingRepo(db)

	// 3. サービスの初期化
	settingsStore := settings.NewStore(settingRepo)
	demoModeService := demomode.NewService(
		settingsStore, eventRepo, calendarRepo, serviceRepo,
		cfg.SeedHorizonDays, slog.Default(),
	)

	m := mailer.New(mailer.Config{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.MailFrom,
		AdminEmail: cfg.AdminEmail,
		BaseURL:    cfg.BaseURL,
	}, slog.Default())

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. スイープジョブの初期化
	expireJob := sweep.NewExpireJob(
		accountRepo, principalRepo, settingRepo, demoModeService,
		collector, slog.Default(),
	)
	expireJob.Enabled = cfg.CleanupEnabled
	expireJob.RetentionDays = cfg.RetentionDays

	notifyJob := sweep.NewNotifyJob(accountRepo, m, slog.Default())
	notifyJob.Enabled = cfg.NotifyEnabled
	notifyJob.RetentionDays = cfg.RetentionDays
	notifyJob.WarningDays = cfg.WarningDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Duration("notify_interval", cfg.NotifyInterval),
		slog.Bool("cleanup_enabled", cfg.CleanupEnabled),
		slog.Bool("notify_enabled", cfg.NotifyEnabled),
	)

	// /metrics と /health をバックグラウンドで公開
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{Addr: ":" + cfg.ServerPort, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// 予告通知ジョブをバックグラウンドで定期実行
	go func() {
		ticker := time.NewTicker(cfg.NotifyInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := notifyJob.Run(ctx); err != nil {
					slog.Error("notify job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// 期限切れスイープをメインgoroutineで定期実行（起動直後に1回実行）
	if err := expireJob.Run(ctx); err != nil {
		slog.Error("expire job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
			}
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := expireJob.Run(ctx); err != nil {
				slog.Error("expire job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runStatus はスキーマバージョンと申込状況のサマリーを表示する。
func runStatus(w io.Writer, cfg *config.Config) error {
	version, err := database.SchemaVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	accountRepo := repository.NewPostgresAccountRepo(db)
	unverified, verified, err := accountRepo.CountByState(context.Background())
	if err != nil {
		return fmt.Errorf("failed to count accounts: %w", err)
	}

	fmt.Fprintf(w, "schema version: %d\n", version)
	fmt.Fprintf(w, "accounts: %d total (%d verified, %d unverified)\n",
		unverified+verified, verified, unverified)
	return nil
}

// runListAccounts は申込レコードの一覧を表示する。
// トークンとパスワードハッシュは表示しない。
func runListAccounts(w io.Writer, cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	accountRepo := repository.NewPostgresAccountRepo(db)
	accounts, err := accountRepo.ListAll(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	for _, account := range accounts {
		state := "unverified"
		if account.IsVerified() {
			state = "verified"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			account.ID, account.Email, state,
			account.CreatedAt.Format(time.RFC3339),
		)
	}
	fmt.Fprintf(w, "total: %d\n", len(accounts))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// rateLimiterConfig はアプリ設定（req/min単位）からレート制限設定（req/sec単位）を組み立てる。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	limiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		limiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		limiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitRegister > 0 {
		limiterCfg.RegisterRate = rate.Limit(float64(cfg.RateLimitRegister) / 60.0)
		limiterCfg.RegisterBurst = cfg.RateLimitRegister
	}
	return limiterCfg
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
