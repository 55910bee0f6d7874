package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/evewatch/internal/middleware"
	"github.com/hitoshi/evewatch/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger      *slog.Logger
	RateLimiter *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ストア
	HistoryRepo repository.HistoryRepository
	Settings    *repository.SettingsStore

	// 監視
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → Logging → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	pageHandler := NewPageHandler(deps.AuthService, deps.HistoryRepo, deps.Settings, deps.AuthConfig)
	apiHandler := NewAPIHandler(deps.AuthService, deps.HistoryRepo, deps.AuthConfig)
	settingsHandler := NewSettingsHandler(deps.Settings)

	// --- 運用系のルート（レート制限なし） ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", deps.MetricsHandler)

	// --- アプリケーションルート ---
	// ページは公開のため認証ゲートは置かず、ハンドラー側でセッションを参照する。
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", pageHandler.Home)
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)
		r.Get("/api/location", apiHandler.Location)

		// POST /update_settings - 設定更新専用のより厳しいレート制限を追加
		r.With(deps.RateLimiter.SettingsMiddleware()).Post("/update_settings", settingsHandler.Update)
	})

	return r
}
