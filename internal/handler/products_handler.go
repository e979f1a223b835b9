package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/socialdemo/internal/middleware"
	"github.com/hitoshi/socialdemo/internal/model"
	"github.com/hitoshi/socialdemo/internal/viewstate"
)

// maxProductLimit は1ページあたりに指定できる最大取得件数。
const maxProductLimit = 100

// ProductsContainer は商品一覧のビュー状態コンテナのインターフェース。
type ProductsContainer interface {
	Mount(ctx context.Context) bool
	SetFilters(ctx context.Context, f model.ProductFilters) bool
	LoadMore(ctx context.Context) bool
	ToggleFavorite(ctx context.Context, productID int) bool
	Snapshot() viewstate.ProductsSnapshot
}

// CatalogSource は商品詳細とカテゴリ一覧の取得元。
type CatalogSource interface {
	viewstate.ProductSource
	GetCategories(ctx context.Context) ([]string, error)
}

// ProductsHandler はマーケットプレイスのHTTPハンドラー。
type ProductsHandler struct {
	products ProductsContainer
	catalog  CatalogSource
	logger   *slog.Logger
}

// NewProductsHandler はProductsHandlerを生成する。
func NewProductsHandler(products ProductsContainer, catalog CatalogSource, logger *slog.Logger) *ProductsHandler {
	return &ProductsHandler{
		products: products,
		catalog:  catalog,
		logger:   logger,
	}
}

// loadMoreResponse は追加取得のレスポンス。Startedは取得を開始したかどうか。
type loadMoreResponse struct {
	Started bool `json:"started"`
	viewstate.ProductsSnapshot
}

// categoriesResponse はカテゴリ一覧のレスポンス。
type categoriesResponse struct {
	Categories []string `json:"categories"`
	Degraded   bool     `json:"degraded"`
}

// ListProducts は取得条件を反映した商品一覧の状態を返す。
// クエリがない場合は初回のみ取得し、ある場合は条件が変わったときのみ再取得する。
// GET /api/products?category=&priceRange=&condition=&q=&sortBy=&limit=
func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := shared(r)

	if r.URL.RawQuery == "" {
		h.products.Mount(ctx)
		middleware.WriteJSON(w, http.StatusOK, h.products.Snapshot())
		return
	}

	f, apiErr := filtersFromQuery(r.URL.Query())
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	h.products.SetFilters(ctx, f)
	middleware.WriteJSON(w, http.StatusOK, h.products.Snapshot())
}

// LoadMore は次のページを取得して末尾に追加する。
// POST /api/products/more
func (h *ProductsHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	started := h.products.LoadMore(shared(r))
	middleware.WriteJSON(w, http.StatusOK, loadMoreResponse{
		Started:          started,
		ProductsSnapshot: h.products.Snapshot(),
	})
}

// ToggleFavorite は商品のお気に入り状態の切り替えを送信する。
// POST /api/products/{id}/favorite
func (h *ProductsHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseID(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	if !h.products.ToggleFavorite(shared(r), id) {
		writeAPIError(w, model.NewToggleFailedError(viewstate.MsgToggleFavorite))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.products.Snapshot())
}

// GetProduct は商品詳細を取得する。外部APIにもフォールバックにも存在しない場合は404。
// GET /api/products/{id}
func (h *ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseID(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	state := viewstate.NewProductState(h.catalog, h.logger)
	state.SetProductID(r.Context(), id)

	snap := state.Snapshot()
	if snap.Product == nil {
		writeAPIError(w, model.NewProductNotFoundError(id))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, snap)
}

// ListCategories はカテゴリ一覧を返す。取得に失敗した場合は固定のカテゴリ一覧を返す。
// GET /api/categories
func (h *ProductsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.GetCategories(r.Context())
	middleware.WriteJSON(w, http.StatusOK, categoriesResponse{
		Categories: categories,
		Degraded:   err != nil,
	})
}

// filtersFromQuery はクエリパラメータから商品一覧の取得条件を組み立てる。
// 指定のない項目は初期条件の値を使う。
func filtersFromQuery(q url.Values) (model.ProductFilters, *model.APIError) {
	f := model.DefaultProductFilters()

	if v := q.Get("category"); v != "" {
		f.Category = v
	}

	if v := q.Get("priceRange"); v != "" {
		switch pr := model.PriceRange(v); pr {
		case model.PriceRangeAll, model.PriceRangeUnder100, model.PriceRange100To500,
			model.PriceRange500To1K, model.PriceRangeOver1K:
			f.PriceRange = pr
		default:
			return f, model.NewInvalidRequestError("priceRangeが不正です: " + v)
		}
	}

	if v := q.Get("condition"); v != "" {
		switch v {
		case "all", string(model.ConditionNew), string(model.ConditionUsed), string(model.ConditionRefurbished):
			f.Condition = v
		default:
			return f, model.NewInvalidRequestError("conditionが不正です: " + v)
		}
	}

	f.SearchQuery = q.Get("q")

	if v := q.Get("sortBy"); v != "" {
		switch sb := model.SortBy(v); sb {
		case model.SortRecent, model.SortPriceLow, model.SortPriceHigh, model.SortRating:
			f.SortBy = sb
		default:
			return f, model.NewInvalidRequestError("sortByが不正です: " + v)
		}
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > maxProductLimit {
			return f, model.NewInvalidRequestError("limitは1から" + strconv.Itoa(maxProductLimit) + "の整数で指定してください")
		}
		f.Limit = limit
	}

	return f, nil
}
