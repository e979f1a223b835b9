package gateway

import (
	"strings"

	"github.com/hitoshi/socialdemo/internal/fixture"
	"github.com/hitoshi/socialdemo/internal/model"
)

// defaultCategory は対応表にないカテゴリの表示名。
const defaultCategory = "Electronics"

// categoryMap はカタログAPIのカテゴリslugを表示用カテゴリに対応付ける。
var categoryMap = map[string]string{
	"smartphones":        "Electronics",
	"laptops":            "Computers",
	"fragrances":         "Fashion",
	"skincare":           "Fashion",
	"groceries":          "Home",
	"home-decoration":    "Home",
	"furniture":          "Home",
	"tops":               "Fashion",
	"womens-dresses":     "Fashion",
	"womens-shoes":       "Fashion",
	"mens-shirts":        "Fashion",
	"mens-shoes":         "Fashion",
	"mens-watches":       "Fashion",
	"womens-watches":     "Fashion",
	"womens-bags":        "Fashion",
	"womens-jewellery":   "Fashion",
	"sunglasses":         "Fashion",
	"automotive":         "Vehicles",
	"motorcycle":         "Vehicles",
	"lighting":           "Home",
	"sports-accessories": "Sports",
}

// productLocations は商品の所在地として割り当てる都市の一覧。
var productLocations = [...]string{
	"New York, NY",
	"Los Angeles, CA",
	"Chicago, IL",
	"Houston, TX",
	"Phoenix, AZ",
	"Philadelphia, PA",
	"San Antonio, TX",
	"San Diego, CA",
	"Dallas, TX",
	"San Jose, CA",
	"Austin, TX",
	"Jacksonville, FL",
	"Fort Worth, TX",
	"Columbus, OH",
	"Charlotte, NC",
	"San Francisco, CA",
	"Indianapolis, IN",
	"Seattle, WA",
	"Denver, CO",
	"Boston, MA",
}

// apiProduct はカタログAPIの商品レコード。
type apiProduct struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
	Stock       int     `json:"stock"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Thumbnail   string  `json:"thumbnail"`
}

// apiProductList はカタログAPIの一覧レスポンス。
type apiProductList struct {
	Products []apiProduct `json:"products"`
	Total    int          `json:"total"`
	Skip     int          `json:"skip"`
	Limit    int          `json:"limit"`
}

// MapCategory はカタログAPIのカテゴリslugを表示用カテゴリに変換する。
// 対応表にないslugは"Electronics"になる。
func MapCategory(slug string) string {
	if c, ok := categoryMap[slug]; ok {
		return c
	}
	return defaultCategory
}

// MatchesCategory は商品の表示カテゴリがフィルタのカテゴリと等価かを返す。
// フィルタ値は表示カテゴリ名（大文字小文字を区別しない）とAPIのslugのどちらも受け付ける。
// 空文字と"all"はすべての商品に一致する。
func MatchesCategory(filter, category string) bool {
	if filter == "" || filter == "all" {
		return true
	}
	if strings.EqualFold(filter, category) {
		return true
	}
	if mapped, ok := categoryMap[filter]; ok {
		return mapped == category
	}
	return false
}

// drawCondition は重み付き（新品40%、中古50%、整備済み10%）で商品状態を選ぶ。
func drawCondition(r Random) model.Condition {
	v := r.Float64()
	switch {
	case v < 0.4:
		return model.ConditionNew
	case v < 0.9:
		return model.ConditionUsed
	default:
		return model.ConditionRefurbished
	}
}

func drawLocation(r Random) string {
	return productLocations[r.IntN(len(productLocations))]
}

// toProduct はカタログAPIのレコードを正規の商品に変換する。
// 価格と評価の丸めはここで1回だけ行う。
func (g *Gateway) toProduct(p apiProduct, seller model.User) model.Product {
	tags := make([]string, 0, 2)
	for _, t := range []string{p.Brand, p.Category} {
		if t != "" {
			tags = append(tags, t)
		}
	}

	return model.Product{
		ID:          p.ID,
		Title:       p.Title,
		Price:       model.RoundPrice(p.Price),
		Currency:    "$",
		Image:       p.Thumbnail,
		Seller:      seller,
		Category:    MapCategory(p.Category),
		Condition:   drawCondition(g.random),
		Location:    drawLocation(g.random),
		Description: p.Description,
		Rating:      model.RoundRating(p.Rating),
		Reviews:     between(g.random, 10, 200),
		IsAvailable: p.Stock > 0,
		Tags:        tags,
	}
}

// listSeller は一覧の位置indexに対応する固定ユーザーを出品者として返す。
// IDのみ商品IDから導出する。
func listSeller(productID, index int) model.User {
	seller := fixture.UserAt(index)
	seller.ID = productID%fixture.UserCount() + 1
	return seller
}

// filterProducts はAPIが対応していない条件（状態・価格帯）で商品を絞り込む。
func filterProducts(products []model.Product, f model.ProductFilters) []model.Product {
	out := products[:0]
	for _, p := range products {
		if f.Condition != "" && f.Condition != "all" && string(p.Condition) != f.Condition {
			continue
		}
		if !f.PriceRange.Contains(p.Price) {
			continue
		}
		out = append(out, p)
	}
	return out
}
