package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/cuentas/internal/account"
	"github.com/hitoshi/cuentas/internal/auth"
	"github.com/hitoshi/cuentas/internal/config"
	"github.com/hitoshi/cuentas/internal/credential"
	"github.com/hitoshi/cuentas/internal/database"
	"github.com/hitoshi/cuentas/internal/docstore"
	"github.com/hitoshi/cuentas/internal/handler"
	"github.com/hitoshi/cuentas/internal/logger"
	"github.com/hitoshi/cuentas/internal/metrics"
	"github.com/hitoshi/cuentas/internal/middleware"
	"github.com/hitoshi/cuentas/internal/repository"
	"github.com/hitoshi/cuentas/internal/security"
	"github.com/hitoshi/cuentas/internal/worker/cleanup"
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
		slog.String("backend_mode", cfg.BackendMode),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// buildBackends はBACKEND_MODEに応じてクレデンシャルサービスと
// ドキュメントストアを構築する。
func buildBackends(cfg *config.Config, db *sql.DB) (credential.Service, docstore.Store, error) {
	switch cfg.BackendMode {
	case config.BackendPostgres:
		return credential.NewPostgresService(db, cfg.RateLimitLogin), docstore.NewPostgresStore(db), nil

	case config.BackendREST:
		// マネージドバックエンドのURLはSSRF対策の検証を通す
		guard := security.NewSSRFGuard()
		if err := guard.ValidateURL(cfg.CredentialBaseURL); err != nil {
			return nil, nil, fmt.Errorf("invalid credential base URL: %w", err)
		}
		if err := guard.ValidateURL(cfg.DocstoreBaseURL); err != nil {
			return nil, nil, fmt.Errorf("invalid docstore base URL: %w", err)
		}

		httpClient := guard.NewSafeClient(cfg.RESTTimeout)
		creds := credential.NewRESTService(
			httpClient, slog.Default(),
			cfg.CredentialBaseURL, cfg.RESTAPIKey,
			cfg.ServiceEmail, cfg.ServicePassword,
		)
		// ドキュメントストアへのリクエストはサービスアカウントの
		// IDトークンで認可する
		store := docstore.NewRESTStore(httpClient, slog.Default(), cfg.DocstoreBaseURL, creds)
		return creds, store, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend mode: %q", cfg.BackendMode)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続（セッションは常にPostgreSQLに保存される）
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. バックエンドの構築
	creds, store, err := buildBackends(cfg, db)
	if err != nil {
		return err
	}

	sessionRepo := repository.NewPostgresSessionRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()

	authService := auth.NewService(
		creds, store, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	accountService := account.NewService(creds, store, sessionRepo, sanitizer, collector)
	listService := account.NewListService(store, cfg.AccountCapacity)

	// 5. レート制限の構築（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = perMinute(cfg.RateLimitGeneral)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.LoginRate = perMinute(cfg.RateLimitLogin)
	rateLimiterCfg.LoginBurst = cfg.RateLimitLogin
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger: slog.Default(),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		Registrar: accountService,

		AccountService: accountService,
		ListService:    listService,

		LoginMetrics: collector,
		ListMetrics:  collector,
		MetricsPage:  metrics.SetupMetricsRoute(registry),
	}

	router := handler.NewRouter(deps)

	// 7. 期限切れセッションの日次クリーンアップをバックグラウンドで起動
	cleanupJob := cleanup.NewSessionCleanupJob(db, slog.Default())
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go cleanupJob.Start(cleanupCtx)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
