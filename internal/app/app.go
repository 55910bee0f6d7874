// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/evewatch/internal/auth"
	"github.com/hitoshi/evewatch/internal/config"
	"github.com/hitoshi/evewatch/internal/esi"
	"github.com/hitoshi/evewatch/internal/handler"
	"github.com/hitoshi/evewatch/internal/logger"
	"github.com/hitoshi/evewatch/internal/metrics"
	"github.com/hitoshi/evewatch/internal/middleware"
	"github.com/hitoshi/evewatch/internal/poller"
	"github.com/hitoshi/evewatch/internal/repository"
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

	return runServe(cfg)
}

// runServe はサーバーモードで起動する。
// インメモリストアと全依存関係をワイヤリングし、バックグラウンドPollerと
// HTTPサーバーを起動する。SIGINTまたはSIGTERMシグナルを受信すると
// Pollerを停止した上でグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. セッション署名キーの準備
	// 未設定の場合はプロセス限りのランダムキーを生成する。再起動で
	// 既存セッションは無効になるため本番ではSESSION_SECRETを設定すること。
	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		generated, err := generateSessionSecret()
		if err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		sessionSecret = generated
		slog.Warn("SESSION_SECRET is not set, using a random per-process key")
	}

	if !cfg.HasOAuthCredentials() {
		slog.Warn("EVE SSO credentials are not configured, /login will return an error")
	}

	// 2. ストアの初期化
	tokenRepo := repository.NewMemoryTokenRepo()
	historyRepo := repository.NewMemoryHistoryRepo(cfg.HistoryMaxEntries)
	sessionRepo := repository.NewMemorySessionRepo()
	settings := repository.NewSettingsStore(cfg.PollInterval)

	// 3. ESIクライアントの初期化
	esiClient := esi.NewClient(
		esi.ClientConfig{
			ClientID:     cfg.EVEClientID,
			ClientSecret: cfg.EVEClientSecret,
			RedirectURL:  cfg.EVERedirectURL,
		},
		&http.Client{Timeout: cfg.FetchTimeout},
		slog.Default(),
	)

	// 4. ドメインサービスの初期化
	authService := auth.NewService(
		esiClient, tokenRepo, historyRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	// 5. メトリクスの初期化（プライベートレジストリ）
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. Pollerの起動
	p := poller.NewPoller(
		tokenRepo, historyRepo, settings, esiClient, collector,
		slog.Default(), cfg.PollMaxConcurrent, cfg.FetchTimeout,
	)

	pollerCtx, cancelPoller := context.WithCancel(context.Background())
	defer cancelPoller()
	go p.Start(pollerCtx)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSettings),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      slog.Default(),
		RateLimiter: rateLimiter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieSecure:   cfg.CookieSecure,
			SessionMaxAge:  cfg.SessionMaxAge,
			SessionSecret:  sessionSecret,
			HasCredentials: cfg.HasOAuthCredentials(),
		},

		HistoryRepo: historyRepo,
		Settings:    settings,

		MetricsHandler: metrics.Handler(registry),
	})

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
		slog.Info("HTTP server starting",
			slog.String("addr", server.Addr),
			slog.Duration("poll_interval", settings.PollInterval()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down...")

	// Pollerを先に止めてから接続をドレインする
	cancelPoller()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully")
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

// generateSessionSecret はプロセス限りのセッション署名キーを生成する。
func generateSessionSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
