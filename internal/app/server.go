package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/socialdemo/internal/config"
	"github.com/hitoshi/socialdemo/internal/gateway"
	"github.com/hitoshi/socialdemo/internal/handler"
	"github.com/hitoshi/socialdemo/internal/metrics"
	"github.com/hitoshi/socialdemo/internal/middleware"
	"github.com/hitoshi/socialdemo/internal/model"
	"github.com/hitoshi/socialdemo/internal/viewstate"
)

// Server はワイヤリング済みのゲートウェイ・ビュー状態コンテナ・HTTPルーターを保持する。
type Server struct {
	logger      *slog.Logger
	gateway     *gateway.Gateway
	posts       *viewstate.PostsState
	users       *viewstate.UsersState
	products    *viewstate.ProductsState
	status      *viewstate.APIStatus
	rateLimiter *middleware.RateLimiter
	handler     http.Handler
}

// NewServer は設定から全依存関係をワイヤリングしたServerを生成する。
// httpClientは外部API呼び出しに使用する。registryがnilの場合はメトリクスを公開しない。
func NewServer(cfg *config.Config, logger *slog.Logger, httpClient *http.Client, registry *prometheus.Registry) *Server {
	var collector metrics.MetricsCollector = metrics.Nop{}
	var metricsHandler http.Handler
	if registry != nil {
		collector = metrics.NewCollector(registry)
		metricsHandler = metrics.Handler(registry)
	}

	gw := gateway.New(httpClient, logger, cfg.GatewayConfig(), gateway.WithMetrics(collector))

	s := &Server{
		logger:      logger,
		gateway:     gw,
		posts:       viewstate.NewPostsState(gw, logger),
		users:       viewstate.NewUsersState(gw, logger),
		products:    viewstate.NewProductsState(gw, logger, model.DefaultProductFilters()),
		status:      viewstate.NewAPIStatus(gw, collector, logger, cfg.StatusPollInterval),
		rateLimiter: middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitMutation)),
	}

	s.handler = handler.NewRouter(&handler.RouterDeps{
		Logger:            logger,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       s.rateLimiter,
		MetricsHandler:    metricsHandler,
		Posts:             s.posts,
		Users:             s.users,
		Products:          s.products,
		Status:            s.status,
		Gateway:           gw,
	})

	return s
}

// Handler はHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.handler
}

// WarmUp はタイムライン・ユーザー一覧・商品一覧の初回取得を並行して行う。
// 各コンテナは失敗時にフォールバック値を保持するため、取得失敗ではエラーにならない。
func (s *Server) WarmUp(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.posts.FetchPosts(gctx)
		return nil
	})
	g.Go(func() error {
		s.users.Mount(gctx)
		return nil
	})
	g.Go(func() error {
		s.products.Mount(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("warm-up completed",
		slog.Bool("posts_degraded", s.posts.Snapshot().Degraded),
		slog.Bool("users_degraded", s.users.Snapshot().Degraded),
		slog.Bool("products_degraded", s.products.Snapshot().Degraded),
	)
	return ctx.Err()
}

// Start は外部APIの死活確認ループを開始する。
func (s *Server) Start(ctx context.Context) {
	s.status.Start(ctx)
}

// Close はバックグラウンドのgoroutineを停止する。
func (s *Server) Close() {
	s.status.Stop()
	s.rateLimiter.Stop()
}
