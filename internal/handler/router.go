package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/socialdemo/internal/middleware"
	"github.com/hitoshi/socialdemo/internal/viewstate"
)

// Gateway はハンドラーが直接利用するゲートウェイ操作。
type Gateway interface {
	viewstate.CommentsSource
	CatalogSource
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// Prometheusのスクレイプ用ハンドラー。nilの場合は /metrics を公開しない。
	MetricsHandler http.Handler

	// ビュー状態コンテナ
	Posts    PostsContainer
	Users    UsersContainer
	Products ProductsContainer
	Status   StatusContainer

	// リクエストごとに取得するコメント・商品詳細・カテゴリの取得元
	Gateway Gateway
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS → RateLimit(General, /api配下のみ)
//
// 変更系（POST）のエンドポイントには変更系専用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	statusHandler := NewStatusHandler(deps.Status)
	postsHandler := NewPostsHandler(deps.Posts, deps.Users, deps.Gateway, logger)
	productsHandler := NewProductsHandler(deps.Products, deps.Gateway, logger)

	// --- レート制限対象外 ---
	r.Get("/health", statusHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		mutation := deps.RateLimiter.MutationMiddleware()

		// 稼働状況
		r.Get("/status", statusHandler.GetStatus)
		r.With(mutation).Post("/status/check", statusHandler.Check)

		// タイムライン
		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postsHandler.ListPosts)
			r.With(mutation).Post("/", postsHandler.CreatePost)
			r.With(mutation).Post("/refresh", postsHandler.RefreshPosts)

			r.Route("/{id}", func(r chi.Router) {
				r.With(mutation).Post("/like", postsHandler.ToggleLike)
				r.Get("/comments", postsHandler.ListComments)
			})
		})

		// ユーザー
		r.Get("/users", postsHandler.ListUsers)
		r.With(mutation).Post("/users/refresh", postsHandler.RefreshUsers)

		// ストーリー・検索（固定データ）
		r.Get("/stories", postsHandler.ListStories)
		r.Get("/search", postsHandler.Search)

		// マーケットプレイス
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productsHandler.ListProducts)
			r.With(mutation).Post("/more", productsHandler.LoadMore)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", productsHandler.GetProduct)
				r.With(mutation).Post("/favorite", productsHandler.ToggleFavorite)
			})
		})
		r.Get("/categories", productsHandler.ListCategories)
	})

	return r
}
