package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/socialdemo/internal/fixture"
	"github.com/hitoshi/socialdemo/internal/model"
)

// PlaceholderCategories はカテゴリ取得失敗時に返す固定のカテゴリ一覧。
var PlaceholderCategories = []string{
	"smartphones", "laptops", "fragrances", "skincare", "groceries", "home-decoration",
}

// ProductsURL は商品一覧取得のリクエストURLを組み立てる。
// 空白でない検索語はカテゴリより優先され、検索エンドポイントを使う。
// ページングは常に、並び順は指定がある場合のみ付与する。
func ProductsURL(baseURL string, f model.ProductFilters) string {
	endpoint := baseURL + "/products"
	params := url.Values{}

	if q := strings.TrimSpace(f.SearchQuery); q != "" {
		endpoint = baseURL + "/products/search"
		params.Set("q", q)
	} else if f.Category != "" && f.Category != "all" {
		endpoint = baseURL + "/products/category/" + url.PathEscape(f.Category)
	}

	params.Set("limit", strconv.Itoa(f.PageSize()))
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}
	params.Set("skip", strconv.Itoa(skip))

	switch f.SortBy {
	case model.SortPriceLow:
		params.Set("sortBy", "price")
		params.Set("order", "asc")
	case model.SortPriceHigh:
		params.Set("sortBy", "price")
		params.Set("order", "desc")
	case model.SortRating:
		params.Set("sortBy", "rating")
		params.Set("order", "desc")
	}

	return endpoint + "?" + params.Encode()
}

// GetProducts は条件に合う商品一覧を取得する。
// カテゴリ・検索・並び順・ページングはAPI側で、状態と価格帯はレスポンス変換後に絞り込む。
// 失敗時は同じ条件で絞り込んだ固定商品一覧（最大ページサイズ件）とErrDegradedを返す。
func (g *Gateway) GetProducts(ctx context.Context, f model.ProductFilters) ([]model.Product, error) {
	delay := g.cfg.ProductListDelay
	if g.cfg.ProductListJitter > 0 {
		delay += time.Duration(g.random.Float64() * float64(g.cfg.ProductListJitter))
	}
	if !sleep(ctx, delay) {
		return degrade(g, opGetProducts, fallbackProducts(f), transportError(opGetProducts, context.Cause(ctx)))
	}

	var raw apiProductList
	if err := g.getJSON(ctx, opGetProducts, upstreamCatalog, ProductsURL(g.cfg.CatalogBaseURL, f), &raw); err != nil {
		return degrade(g, opGetProducts, fallbackProducts(f), err)
	}

	products := make([]model.Product, 0, len(raw.Products))
	for i, p := range raw.Products {
		products = append(products, g.toProduct(p, listSeller(p.ID, i)))
	}
	return filterProducts(products, f), nil
}

// fallbackProducts は固定商品一覧を取得条件で絞り込み、ページサイズ件までに切り詰める。
func fallbackProducts(f model.ProductFilters) []model.Product {
	q := strings.ToLower(strings.TrimSpace(f.SearchQuery))
	matched := make([]model.Product, 0, f.PageSize())
	for _, p := range filterProducts(fixture.Products(), f) {
		if q != "" {
			if !matchesSearch(p, q) {
				continue
			}
		} else if !MatchesCategory(f.Category, p.Category) {
			continue
		}
		matched = append(matched, p)
		if len(matched) == f.PageSize() {
			break
		}
	}
	return matched
}

func matchesSearch(p model.Product, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(p.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(p.Description), lowerQuery) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), lowerQuery) {
			return true
		}
	}
	return false
}

// GetProductByID は商品詳細を取得する。出品者は固定ユーザーの先頭とする。
// 失敗時は固定商品一覧からIDで検索し、見つからなければnilを返す。いずれもErrDegradedを伴う。
func (g *Gateway) GetProductByID(ctx context.Context, id int) (*model.Product, error) {
	if !sleep(ctx, g.cfg.ProductDelay) {
		return degrade(g, opGetProduct, fallbackProduct(id), transportError(opGetProduct, context.Cause(ctx)))
	}

	var raw apiProduct
	rawURL := fmt.Sprintf("%s/products/%d", g.cfg.CatalogBaseURL, id)
	if err := g.getJSON(ctx, opGetProduct, upstreamCatalog, rawURL, &raw); err != nil {
		return degrade(g, opGetProduct, fallbackProduct(id), err)
	}

	p := g.toProduct(raw, fixture.CurrentUser())
	return &p, nil
}

func fallbackProduct(id int) *model.Product {
	p, ok := fixture.ProductByID(id)
	if !ok {
		return nil
	}
	return &p
}

// categoryEntry はカテゴリAPIの要素。APIのバージョンにより文字列またはオブジェクトで返る。
type categoryEntry string

func (c *categoryEntry) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = categoryEntry(s)
		return nil
	}
	var obj struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Slug == "" {
		return fmt.Errorf("カテゴリにslugがありません: %s", b)
	}
	*c = categoryEntry(obj.Slug)
	return nil
}

// GetCategories はカタログAPIのカテゴリslug一覧を取得する。
// 失敗時は固定の6件とErrDegradedを返す。
func (g *Gateway) GetCategories(ctx context.Context) ([]string, error) {
	var raw []categoryEntry
	if err := g.getJSON(ctx, opGetCategories, upstreamCatalog, g.cfg.CatalogBaseURL+"/products/categories", &raw); err != nil {
		return degrade(g, opGetCategories, append([]string(nil), PlaceholderCategories...), err)
	}

	categories := make([]string, 0, len(raw))
	for _, c := range raw {
		categories = append(categories, string(c))
	}
	return categories, nil
}

// ToggleProductFavorite はお気に入りの切り替えを擬似的に処理する。ToggleLikeと同じ規約に従う。
func (g *Gateway) ToggleProductFavorite(ctx context.Context, productID int) bool {
	return g.simulateToggle(ctx, opToggleFavorite, slog.Int("product_id", productID))
}
