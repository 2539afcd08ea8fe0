package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cuentas/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	Registrar   Registrar

	// アカウント管理
	AccountService AccountServiceInterface
	ListService    ListServiceInterface

	// メトリクス
	LoginMetrics LoginRecorder
	ListMetrics  ListRecorder
	MetricsPage  http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → SessionMiddleware → RateLimit(GeneralMiddleware)
//
// 認証ルート（/auth/*）はセッションミドルウェアの外に配置する。
// ログインのみIP単位の専用レート制限が追加で掛かる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Registrar, deps.LoginMetrics, deps.AuthConfig)
	accountHandler := NewAccountHandler(deps.AccountService, deps.ListService, deps.ListMetrics)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if deps.MetricsPage != nil {
		r.Handle("/metrics", deps.MetricsPage)
	}

	r.Route("/auth", func(r chi.Router) {
		// ログインはIP単位のレート制限付き
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/register", authHandler.Register)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// SPAが状態変更リクエストの前に取得するCSRFトークン
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// アカウント管理
		r.Route("/api/accounts", func(r chi.Router) {
			r.Get("/", accountHandler.List)
			r.Post("/", accountHandler.Create)

			// 本人プロフィール
			r.Get("/me", accountHandler.GetSelf)
			r.Patch("/me", accountHandler.UpdateSelf)

			r.Route("/{accountID}", func(r chi.Router) {
				r.Get("/", accountHandler.GetByID)
				r.Patch("/", accountHandler.UpdateByID)
				r.Delete("/", accountHandler.Delete)
			})
		})
	})

	return r
}
