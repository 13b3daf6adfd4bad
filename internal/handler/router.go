package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IsakHolmdahl/accesshub/internal/middleware"
	"github.com/IsakHolmdahl/accesshub/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionCodec      session.Codec
	CookieDomain      string
	CookieSecure      bool
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	UserFinder  UserFinder
	AuthConfig  AuthHandlerConfig
	AuthMetrics LoginMetrics

	// 管理者API
	AdminUserService   AdminUserService
	AdminAccessService AdminAccessService
	AnalyticsService   AnalyticsService

	// 一般ユーザーAPI
	UserAccessService UserAccessService

	// チャット
	ChatService ChatService
	AgentHealth AgentHealthChecker

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session
//
// セッションミドルウェアは全ルートに適用され、公開パスの判定は
// ミドルウェア内部のallowlistで行う。変更系APIにはCSRF検証と
// 一般レート制限を追加し、チャット送信にはチャット専用レート制限を重ねる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessionMW := middleware.NewSessionMiddleware(middleware.SessionConfig{
		Codec:        deps.SessionCodec,
		CookieSecure: deps.CookieSecure,
		CookieDomain: deps.CookieDomain,
	}, logger)

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.CookieSecure,
		CookieDomain: deps.CookieDomain,
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(sessionMW.Handler)

	authHandler := NewAuthHandler(deps.UserFinder, deps.SessionCodec, deps.AuthConfig, deps.AuthMetrics, logger)
	adminUsersHandler := NewAdminUsersHandler(deps.AdminUserService)
	adminAccessesHandler := NewAdminAccessesHandler(deps.AdminAccessService)
	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsService)
	userAccessesHandler := NewUserAccessesHandler(deps.UserAccessService)
	chatHandler := NewChatHandler(deps.ChatService, deps.AgentHealth)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)
	})

	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 管理者: ユーザー管理
		r.Route("/api/admin/users", func(r chi.Router) {
			r.Get("/", adminUsersHandler.List)
			r.Post("/", adminUsersHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", adminUsersHandler.Get)
				r.Patch("/", adminUsersHandler.Update)
				r.Delete("/", adminUsersHandler.Delete)

				r.Get("/accesses", adminUsersHandler.ListAccesses)
				r.Post("/accesses", adminUsersHandler.AssignAccess)
				r.Delete("/accesses/{accessId}", adminUsersHandler.RevokeAccess)
			})
		})

		// 管理者: アクセスカタログ管理
		r.Route("/api/admin/accesses", func(r chi.Router) {
			r.Get("/", adminAccessesHandler.List)
			r.Post("/", adminAccessesHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", adminAccessesHandler.Get)
				r.Patch("/", adminAccessesHandler.Update)
				r.Delete("/", adminAccessesHandler.Delete)
			})
		})

		// 管理者: 分析クエリ
		r.Post("/api/admin/analytics/query", analyticsHandler.Query)

		// 一般ユーザー: 自分のアクセス管理
		r.Route("/api/accesses/user", func(r chi.Router) {
			r.Get("/", userAccessesHandler.List)
			r.Post("/", userAccessesHandler.Request)
			r.Delete("/{accessId}", userAccessesHandler.Revoke)
		})

		// チャット
		r.Route("/api/chat", func(r chi.Router) {
			r.Get("/", chatHandler.History)
			// POST /api/chat - メッセージ送信（チャット専用レート制限を追加）
			r.With(deps.RateLimiter.ChatMiddleware()).Post("/", chatHandler.Send)
			r.Delete("/", chatHandler.Clear)

			r.Get("/health", chatHandler.AgentHealth)
		})
	})

	return r
}
