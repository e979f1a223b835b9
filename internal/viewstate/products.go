package viewstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/socialdemo/internal/fixture"
	"github.com/hitoshi/socialdemo/internal/model"
)

// ProductsSource は商品一覧コンテナが利用するゲートウェイ操作。
type ProductsSource interface {
	GetProducts(ctx context.Context, f model.ProductFilters) ([]model.Product, error)
	ToggleProductFavorite(ctx context.Context, productID int) bool
}

// ProductsSnapshot は商品一覧コンテナの状態のコピー。
type ProductsSnapshot struct {
	Filters  model.ProductFilters `json:"filters"`
	Products []model.Product      `json:"products"`
	HasMore  bool                 `json:"hasMore"`
	Status
}

// ProductsState はマーケットプレイスの商品一覧の状態を保持する。
// 取得条件のうちLimitとSkip以外が変わった場合のみ自動で再取得する。
type ProductsState struct {
	source ProductsSource
	logger *slog.Logger

	mu       sync.Mutex
	filters  model.ProductFilters
	mounted  bool
	products []model.Product
	hasMore  bool
	nextSkip int
	status   Status
	reqs     requests
}

// NewProductsState はProductsStateの新しいインスタンスを生成する。
// 初回取得が終わるまでは固定商品の先頭1ページを表示する。
func NewProductsState(source ProductsSource, logger *slog.Logger, filters model.ProductFilters) *ProductsState {
	return &ProductsState{
		source:   source,
		logger:   logger,
		filters:  filters,
		products: fixture.ProductsPage(filters.PageSize()),
		hasMore:  true,
	}
}

// Mount は初回利用時に商品一覧を取得する。取得した場合はtrueを返す。
func (s *ProductsState) Mount(ctx context.Context) bool {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return false
	}
	s.mounted = true
	s.mu.Unlock()

	s.FetchProducts(ctx, false)
	return true
}

// SetFilters は取得条件を更新する。LimitとSkip以外の条件が変わった場合
// （または未取得の場合）のみ再取得し、trueを返す。
func (s *ProductsState) SetFilters(ctx context.Context, f model.ProductFilters) bool {
	s.mu.Lock()
	changed := !s.mounted || !s.filters.SameQuery(f)
	s.filters = f
	s.mounted = true
	s.mu.Unlock()

	if !changed {
		return false
	}
	s.FetchProducts(ctx, false)
	return true
}

// FetchProducts は商品一覧を取得する。
// appendがfalseの場合は一覧を置き換え、取得条件のSkipから読み直す。
// trueの場合は次のページを取得して末尾に追加する。追加取得は読み込み中には行わない。
// 取得を行った場合はtrueを返す。
func (s *ProductsState) FetchProducts(ctx context.Context, appendPage bool) bool {
	s.mu.Lock()
	if appendPage && s.status.Loading {
		s.mu.Unlock()
		return false
	}
	f := s.filters
	if appendPage {
		f.Skip = s.nextSkip
	}
	token := s.reqs.next()
	s.status.Loading = true
	s.status.clearError()
	s.mu.Unlock()

	var products []model.Product
	err := protect(s.logger, "fetch_products", func() error {
		var err error
		products, err = s.source.GetProducts(ctx, f)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.reqs.isLatest(token) {
		s.logger.Debug("古い商品取得結果を破棄しました", slog.Uint64("token", token))
		return true
	}
	s.status.Loading = false
	s.status.Degraded = err != nil && !isPanic(err)
	if err != nil {
		s.status.fail(MsgFetchProducts, err)
		// 追加取得の失敗ではフォールバック値を追加しない
		if appendPage || isPanic(err) {
			return true
		}
		s.products = products
		s.hasMore = false
		s.nextSkip = f.Skip
		return true
	}

	if appendPage {
		s.products = append(s.products, products...)
	} else {
		s.products = products
	}
	s.hasMore = len(products) >= f.PageSize()
	s.nextSkip = max(f.Skip, 0) + f.PageSize()
	return true
}

// LoadMore は読み込み中でなく、続きがある場合のみ次のページを取得する。
// 取得を開始した場合はtrueを返す。
func (s *ProductsState) LoadMore(ctx context.Context) bool {
	s.mu.Lock()
	if s.status.Loading || !s.hasMore {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	return s.FetchProducts(ctx, true)
}

// ToggleFavorite はお気に入りを切り替える。成功時のみ該当商品のフラグを反転する。
func (s *ProductsState) ToggleFavorite(ctx context.Context, productID int) bool {
	var ok bool
	err := protect(s.logger, "toggle_favorite", func() error {
		ok = s.source.ToggleProductFavorite(ctx, productID)
		return nil
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || !ok {
		s.status.fail(MsgToggleFavorite, err)
		return false
	}
	updated := make([]model.Product, len(s.products))
	for i, p := range s.products {
		if p.ID == productID {
			p.IsFavorite = !p.IsFavorite
		}
		updated[i] = p
	}
	s.products = updated
	return true
}

// DismissError は表示中のエラーメッセージを消去する。
func (s *ProductsState) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.clearError()
}

// Snapshot は現在の状態のコピーを返す。
func (s *ProductsState) Snapshot() ProductsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ProductsSnapshot{
		Filters:  s.filters,
		Products: cloneProducts(s.products),
		HasMore:  s.hasMore,
		Status:   s.status,
	}
}

// ProductSource は商品詳細コンテナが利用するゲートウェイ操作。
type ProductSource interface {
	GetProductByID(ctx context.Context, id int) (*model.Product, error)
}

// ProductSnapshot は商品詳細コンテナの状態のコピー。Productは見つからない場合nil。
type ProductSnapshot struct {
	ProductID int            `json:"productId"`
	Product   *model.Product `json:"product"`
	Status
}

// ProductState は1つの商品の詳細の状態を保持する。
// 対象の商品IDが変わるたびに再取得する。
type ProductState struct {
	source ProductSource
	logger *slog.Logger

	mu        sync.Mutex
	productID int
	mounted   bool
	product   *model.Product
	status    Status
	reqs      requests
}

// NewProductState はProductStateの新しいインスタンスを生成する。
func NewProductState(source ProductSource, logger *slog.Logger) *ProductState {
	return &ProductState{source: source, logger: logger}
}

// SetProductID は対象の商品IDを設定し、初回または値が変わった場合に取得する。
// 取得した場合はtrueを返す。
func (s *ProductState) SetProductID(ctx context.Context, id int) bool {
	s.mu.Lock()
	if s.mounted && s.productID == id {
		s.mu.Unlock()
		return false
	}
	s.mounted = true
	s.productID = id
	s.mu.Unlock()

	s.FetchProduct(ctx)
	return true
}

// FetchProduct は現在の商品IDの詳細を再取得する。商品IDが0以下の場合は何もしない。
// 取得に失敗した場合は固定商品一覧の検索結果（見つからなければnil）を表示する。
func (s *ProductState) FetchProduct(ctx context.Context) {
	s.mu.Lock()
	id := s.productID
	if id <= 0 {
		s.mu.Unlock()
		return
	}
	token := s.reqs.next()
	s.status.Loading = true
	s.status.clearError()
	s.mu.Unlock()

	var product *model.Product
	err := protect(s.logger, "fetch_product", func() error {
		var err error
		product, err = s.source.GetProductByID(ctx, id)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.reqs.isLatest(token) {
		return
	}
	s.status.Loading = false
	s.status.Degraded = err != nil && !isPanic(err)
	if err != nil {
		s.status.fail(MsgFetchProduct, err)
	}
	if !isPanic(err) {
		s.product = product
	}
}

// Snapshot は現在の状態のコピーを返す。
func (s *ProductState) Snapshot() ProductSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := ProductSnapshot{ProductID: s.productID, Status: s.status}
	if s.product != nil {
		p := s.product.Clone()
		snap.Product = &p
	}
	return snap
}
