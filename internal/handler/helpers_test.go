package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hitoshi/socialdemo/internal/middleware"
	"github.com/hitoshi/socialdemo/internal/model"
	"github.com/hitoshi/socialdemo/internal/viewstate"
)

// --- モック定義 ---

// mockPosts はPostsContainerのモック実装。
type mockPosts struct {
	mu         sync.Mutex
	fetchCalls int
	createFn   func(ctx context.Context, content string) bool
	toggleFn   func(ctx context.Context, id int) bool
	snapshot   viewstate.PostsSnapshot
}

func (m *mockPosts) FetchPosts(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
}

func (m *mockPosts) CreatePost(ctx context.Context, content string) bool {
	if m.createFn != nil {
		return m.createFn(ctx, content)
	}
	return true
}

func (m *mockPosts) ToggleLike(ctx context.Context, id int) bool {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, id)
	}
	return true
}

func (m *mockPosts) Snapshot() viewstate.PostsSnapshot { return m.snapshot }

// mockUsers はUsersContainerのモック実装。
type mockUsers struct {
	fetchCalls int
	snapshot   viewstate.UsersSnapshot
}

func (m *mockUsers) FetchUsers(ctx context.Context)    { m.fetchCalls++ }
func (m *mockUsers) Snapshot() viewstate.UsersSnapshot { return m.snapshot }

// mockProducts はProductsContainerのモック実装。
type mockProducts struct {
	mountCalls int
	filters    []model.ProductFilters
	loadMoreFn func(ctx context.Context) bool
	favoriteFn func(ctx context.Context, id int) bool
	snapshot   viewstate.ProductsSnapshot
}

func (m *mockProducts) Mount(ctx context.Context) bool {
	m.mountCalls++
	return m.mountCalls == 1
}

func (m *mockProducts) SetFilters(ctx context.Context, f model.ProductFilters) bool {
	m.filters = append(m.filters, f)
	return true
}

func (m *mockProducts) LoadMore(ctx context.Context) bool {
	if m.loadMoreFn != nil {
		return m.loadMoreFn(ctx)
	}
	return false
}

func (m *mockProducts) ToggleFavorite(ctx context.Context, id int) bool {
	if m.favoriteFn != nil {
		return m.favoriteFn(ctx, id)
	}
	return true
}

func (m *mockProducts) Snapshot() viewstate.ProductsSnapshot { return m.snapshot }

// mockStatus はStatusContainerのモック実装。
type mockStatus struct {
	checkCalls int
	snapshot   viewstate.StatusSnapshot
}

func (m *mockStatus) Check(ctx context.Context) bool {
	m.checkCalls++
	return m.snapshot.Online
}

func (m *mockStatus) Snapshot() viewstate.StatusSnapshot { return m.snapshot }

// mockGateway はGatewayのモック実装。
type mockGateway struct {
	getCommentsFn   func(ctx context.Context, postID int) ([]model.Comment, error)
	getProductFn    func(ctx context.Context, id int) (*model.Product, error)
	getCategoriesFn func(ctx context.Context) ([]string, error)
}

func (m *mockGateway) GetComments(ctx context.Context, postID int) ([]model.Comment, error) {
	if m.getCommentsFn != nil {
		return m.getCommentsFn(ctx, postID)
	}
	return []model.Comment{}, nil
}

func (m *mockGateway) GetProductByID(ctx context.Context, id int) (*model.Product, error) {
	if m.getProductFn != nil {
		return m.getProductFn(ctx, id)
	}
	return nil, nil
}

func (m *mockGateway) GetCategories(ctx context.Context) ([]string, error) {
	if m.getCategoriesFn != nil {
		return m.getCategoriesFn(ctx)
	}
	return []string{}, nil
}

// --- テストヘルパー ---

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestDeps はモックで構成したRouterDepsを返す。
func newTestDeps(t *testing.T) *RouterDeps {
	t.Helper()
	return &RouterDeps{
		Logger:            discardLogger(),
		CORSAllowedOrigin: "http://localhost:5173",
		RateLimiter:       middlewareRateLimiter(t, 1000, 1000),
		Posts:             &mockPosts{},
		Users:             &mockUsers{},
		Products:          &mockProducts{},
		Status:            &mockStatus{},
		Gateway:           &mockGateway{},
	}
}

// middlewareRateLimiter は1分あたりの上限を指定したレートリミッターを生成する。
func middlewareRateLimiter(t *testing.T, generalPerMinute, mutationPerMinute int) *middleware.RateLimiter {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(generalPerMinute, mutationPerMinute))
	t.Cleanup(rl.Stop)
	return rl
}

// serve はルーター経由でリクエストを処理し、レスポンスを返す。
func serve(t *testing.T, deps *RouterDeps, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	NewRouter(deps).ServeHTTP(w, req)
	return w
}

// decodeBody はレスポンスボディをvにデコードする。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	decodeBody(t, w, &body)
	return body
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, want, w.Body.String())
	}
}

// degradedErr はフォールバック返却を表すゲートウェイエラーを生成する。
func degradedErr(op string) error {
	return &model.GatewayError{Op: op, Kind: model.KindStatus, Status: http.StatusServiceUnavailable, Degraded: true}
}
