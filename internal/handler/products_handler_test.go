package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/hitoshi/socialdemo/internal/fixture"
	"github.com/hitoshi/socialdemo/internal/model"
	"github.com/hitoshi/socialdemo/internal/viewstate"
)

func TestListProducts_WithoutQuery_MountsOnce(t *testing.T) {
	deps := newTestDeps(t)
	products := &mockProducts{snapshot: viewstate.ProductsSnapshot{
		Filters:  model.DefaultProductFilters(),
		Products: fixture.ProductsPage(3),
		HasMore:  true,
	}}
	deps.Products = products

	for i := 0; i < 2; i++ {
		w := serve(t, deps, http.MethodGet, "/api/products", "")
		assertStatus(t, w, http.StatusOK)
	}

	if products.mountCalls != 2 {
		t.Errorf("mountCalls = %d, want 2", products.mountCalls)
	}
	if len(products.filters) != 0 {
		t.Errorf("SetFilters should not be called without query, got %v", products.filters)
	}
}

func TestListProducts_QueryToFilters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  model.ProductFilters
	}{
		{
			name:  "カテゴリのみ",
			query: "category=fashion",
			want: model.ProductFilters{
				Category: "fashion", PriceRange: model.PriceRangeAll, Condition: "all",
				SortBy: model.SortRecent, Limit: model.DefaultProductLimit,
			},
		},
		{
			name:  "全項目",
			query: "category=smartphones&priceRange=100-500&condition=used&q=phone&sortBy=price-low&limit=5",
			want: model.ProductFilters{
				Category: "smartphones", PriceRange: model.PriceRange100To500, Condition: "used",
				SearchQuery: "phone", SortBy: model.SortPriceLow, Limit: 5,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t)
			products := &mockProducts{}
			deps.Products = products

			w := serve(t, deps, http.MethodGet, "/api/products?"+tt.query, "")
			assertStatus(t, w, http.StatusOK)

			if len(products.filters) != 1 {
				t.Fatalf("SetFilters calls = %d, want 1", len(products.filters))
			}
			if got := products.filters[0]; got != tt.want {
				t.Errorf("filters = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestListProducts_InvalidQuery_Returns400(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"不正な価格帯", "priceRange=cheap"},
		{"不正な状態", "condition=broken"},
		{"不正な並び順", "sortBy=name"},
		{"数値でない件数", "limit=ten"},
		{"0件", "limit=0"},
		{"上限超過", "limit=101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t)
			products := &mockProducts{}
			deps.Products = products

			w := serve(t, deps, http.MethodGet, "/api/products?"+tt.query, "")
			assertStatus(t, w, http.StatusBadRequest)

			if body := parseAPIErrorResponse(t, w); body.Code != model.ErrCodeInvalidRequest {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidRequest)
			}
			if len(products.filters) != 0 {
				t.Error("SetFilters should not be called for invalid query")
			}
		})
	}
}

func TestLoadMore_ReportsStarted(t *testing.T) {
	for _, started := range []bool{true, false} {
		deps := newTestDeps(t)
		deps.Products = &mockProducts{loadMoreFn: func(ctx context.Context) bool { return started }}

		w := serve(t, deps, http.MethodPost, "/api/products/more", "")
		assertStatus(t, w, http.StatusOK)

		var got loadMoreResponse
		decodeBody(t, w, &got)
		if got.Started != started {
			t.Errorf("started = %v, want %v", got.Started, started)
		}
	}
}

func TestToggleFavorite(t *testing.T) {
	tests := []struct {
		name       string
		ok         bool
		wantStatus int
	}{
		{"成功", true, http.StatusOK},
		{"失敗", false, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t)
			var gotID int
			deps.Products = &mockProducts{favoriteFn: func(ctx context.Context, id int) bool {
				gotID = id
				return tt.ok
			}}

			w := serve(t, deps, http.MethodPost, "/api/products/12/favorite", "")
			assertStatus(t, w, tt.wantStatus)

			if gotID != 12 {
				t.Errorf("id = %d, want 12", gotID)
			}
			if !tt.ok {
				if body := parseAPIErrorResponse(t, w); body.Message != viewstate.MsgToggleFavorite {
					t.Errorf("message = %q, want %q", body.Message, viewstate.MsgToggleFavorite)
				}
			}
		})
	}
}

func TestGetProduct(t *testing.T) {
	fallback, ok := fixture.ProductByID(1)
	if !ok {
		t.Fatal("fixture product 1 should exist")
	}

	tests := []struct {
		name         string
		path         string
		product      *model.Product
		err          error
		wantStatus   int
		wantDegraded bool
	}{
		{"成功", "/api/products/1", &fallback, nil, http.StatusOK, false},
		{"フォールバック", "/api/products/1", &fallback, degradedErr("get_product"), http.StatusOK, true},
		{"見つからない", "/api/products/999", nil, degradedErr("get_product"), http.StatusNotFound, false},
		{"不正なID", "/api/products/x", nil, nil, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t)
			deps.Gateway = &mockGateway{getProductFn: func(ctx context.Context, id int) (*model.Product, error) {
				return tt.product, tt.err
			}}

			w := serve(t, deps, http.MethodGet, tt.path, "")
			assertStatus(t, w, tt.wantStatus)

			if tt.wantStatus != http.StatusOK {
				return
			}
			var got viewstate.ProductSnapshot
			decodeBody(t, w, &got)
			if got.Product == nil || got.Product.ID != 1 {
				t.Fatalf("product = %+v, want id 1", got.Product)
			}
			if got.Degraded != tt.wantDegraded {
				t.Errorf("degraded = %v, want %v", got.Degraded, tt.wantDegraded)
			}
		})
	}
}

func TestListCategories(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantDegraded bool
	}{
		{"成功", nil, false},
		{"フォールバック", degradedErr("get_categories"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t)
			deps.Gateway = &mockGateway{getCategoriesFn: func(ctx context.Context) ([]string, error) {
				return []string{"smartphones", "laptops"}, tt.err
			}}

			w := serve(t, deps, http.MethodGet, "/api/categories", "")
			assertStatus(t, w, http.StatusOK)

			var got categoriesResponse
			decodeBody(t, w, &got)
			if len(got.Categories) != 2 {
				t.Errorf("categories = %v, want 2 entries", got.Categories)
			}
			if got.Degraded != tt.wantDegraded {
				t.Errorf("degraded = %v, want %v", got.Degraded, tt.wantDegraded)
			}
		})
	}
}
