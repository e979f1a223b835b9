package model

import "math"

// Condition は商品の状態を表す。
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
)

// Product はマーケットプレイスの商品を表す。
// RatingとPriceの丸めは取り込み時に1回だけ行い、以降は再計算しない。
type Product struct {
	ID          int       `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Price       int       `json:"price" yaml:"price"`
	Currency    string    `json:"currency" yaml:"currency"`
	Image       string    `json:"image" yaml:"image"`
	Seller      User      `json:"seller" yaml:"-"`
	Category    string    `json:"category" yaml:"category"`
	Condition   Condition `json:"condition" yaml:"condition"`
	Location    string    `json:"location" yaml:"location"`
	Description string    `json:"description" yaml:"description"`
	Rating      float64   `json:"rating" yaml:"rating"`
	Reviews     int       `json:"reviews" yaml:"reviews"`
	IsAvailable bool      `json:"isAvailable" yaml:"isAvailable"`
	Tags        []string  `json:"tags" yaml:"tags"`
	IsFavorite  bool      `json:"isFavorite" yaml:"isFavorite"`
}

// Clone はTagsスライスを含めた独立したコピーを返す。
func (p Product) Clone() Product {
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	return p
}

// RoundRating は評価を0.0〜5.0に収め、小数第1位に丸める。
func RoundRating(r float64) float64 {
	switch {
	case math.IsNaN(r) || r <= 0:
		return 0
	case r >= 5:
		return 5
	}
	return math.Round(r*10) / 10
}

// RoundPrice は価格を整数に丸める。負の値・NaNは0とする。
func RoundPrice(p float64) int {
	if math.IsNaN(p) || p <= 0 {
		return 0
	}
	if p >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(p))
}

// PriceRange は価格帯フィルタを表す。
type PriceRange string

const (
	PriceRangeAll      PriceRange = "all"
	PriceRangeUnder100 PriceRange = "under100"
	PriceRange100To500 PriceRange = "100-500"
	PriceRange500To1K  PriceRange = "500-1000"
	PriceRangeOver1K   PriceRange = "over1000"
)

// Contains は価格が価格帯に含まれるかを返す。未知の値は全件を許可する。
func (r PriceRange) Contains(price int) bool {
	switch r {
	case PriceRangeUnder100:
		return price < 100
	case PriceRange100To500:
		return price >= 100 && price <= 500
	case PriceRange500To1K:
		return price >= 500 && price <= 1000
	case PriceRangeOver1K:
		return price > 1000
	default:
		return true
	}
}

// SortBy は商品一覧の並び順を表す。
type SortBy string

const (
	SortRecent    SortBy = "recent"
	SortPriceLow  SortBy = "price-low"
	SortPriceHigh SortBy = "price-high"
	SortRating    SortBy = "rating"
)

// DefaultProductLimit は1ページあたりのデフォルト取得件数。
const DefaultProductLimit = 20

// ProductFilters は商品一覧の取得条件。
// Category/SearchQuery/SortByはサーバー側、Condition/PriceRangeはクライアント側で適用される。
type ProductFilters struct {
	Category    string     `json:"category"`
	PriceRange  PriceRange `json:"priceRange"`
	Condition   string     `json:"condition"`
	SearchQuery string     `json:"searchQuery"`
	SortBy      SortBy     `json:"sortBy"`
	Limit       int        `json:"limit"`
	Skip        int        `json:"skip"`
}

// PageSize はLimitが未指定の場合にデフォルト値を返す。
func (f ProductFilters) PageSize() int {
	if f.Limit <= 0 {
		return DefaultProductLimit
	}
	return f.Limit
}

// SameQuery はLimitとSkipを除いた条件が等しいかを返す。
// 商品一覧の自動再取得はこの比較で判定する。
func (f ProductFilters) SameQuery(o ProductFilters) bool {
	return f.Category == o.Category &&
		f.PriceRange == o.PriceRange &&
		f.Condition == o.Condition &&
		f.SearchQuery == o.SearchQuery &&
		f.SortBy == o.SortBy
}

// DefaultProductFilters はマーケットプレイス画面の初期取得条件を返す。
func DefaultProductFilters() ProductFilters {
	return ProductFilters{
		Category:   "all",
		PriceRange: PriceRangeAll,
		Condition:  "all",
		SortBy:     SortRecent,
		Limit:      DefaultProductLimit,
	}
}
