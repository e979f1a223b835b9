package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/socialdemo/internal/config"
	"github.com/hitoshi/socialdemo/internal/gateway"
	"github.com/hitoshi/socialdemo/internal/logger"
	"github.com/hitoshi/socialdemo/internal/security"
	"github.com/hitoshi/socialdemo/internal/viewstate"
)

// shutdownTimeout はグレースフルシャットダウンの最大待ち時間。
const shutdownTimeout = 30 * time.Second

// errAPIOffline はprobeコマンドで外部APIに到達できなかったことを表す。
var errAPIOffline = errors.New("posts API is offline")

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, log, nil
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

	cfg, log, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("posts_api", cfg.PostsAPIURL),
		slog.String("catalog_api", cfg.CatalogAPIURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := newUpstreamClient(cfg)
	if err != nil {
		return err
	}

	switch cmd {
	case CommandProbe:
		return runProbe(ctx, cfg, log, client)
	default:
		return runServe(ctx, cfg, log, client)
	}
}

// newUpstreamClient は設定された外部APIホストのみに接続できるHTTPクライアントを生成する。
func newUpstreamClient(cfg *config.Config) (*http.Client, error) {
	guard, err := security.NewUpstreamGuard(cfg.PostsAPIURL, cfg.CatalogAPIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream guard: %w", err)
	}
	return guard.NewClient(cfg.FetchTimeout), nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、初回取得の後にHTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger, client *http.Client) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := NewServer(cfg, log, client, registry)
	defer srv.Close()

	if err := srv.WarmUp(ctx); err != nil {
		return fmt.Errorf("warm-up failed: %w", err)
	}
	srv.Start(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilDone(ctx, server, log)
}

// serveUntilDone はHTTPサーバーを起動し、ctxがキャンセルされるとシャットダウンする。
func serveUntilDone(ctx context.Context, server *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// runProbe は外部APIの死活確認を1回行う。到達できない場合はエラーを返す。
func runProbe(ctx context.Context, cfg *config.Config, log *slog.Logger, client *http.Client) error {
	gw := gateway.New(client, log, cfg.GatewayConfig())
	return probeOnce(ctx, gw, log)
}

// probeOnce はproberで1回確認し、結果をログに出力する。
func probeOnce(ctx context.Context, prober viewstate.Prober, log *slog.Logger) error {
	status := viewstate.NewAPIStatus(prober, nil, log, 0)
	online := status.Check(ctx)

	log.Info("probe completed", slog.Bool("online", online))
	if !online {
		return errAPIOffline
	}
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
