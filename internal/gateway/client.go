// Package gateway は2つの外部REST API（投稿/ユーザーAPIと商品カタログAPI）を呼び出し、
// レスポンスをアプリケーションの正規エンティティに変換する。
//
// 読み取り系の操作は失敗時も必ず利用可能な値（fixtureなどのフォールバック）を返す。
// その場合はmodel.ErrDegradedにマッチするエラーを併せて返し、呼び出し元が
// フォールバックの発生を記録できるようにする。自動リトライは行わない。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/socialdemo/internal/metrics"
	"github.com/hitoshi/socialdemo/internal/model"
	"github.com/hitoshi/socialdemo/internal/security"
)

const (
	// DefaultPostsBaseURL は投稿/ユーザー/コメントAPIのベースURL。
	DefaultPostsBaseURL = "https://jsonplaceholder.typicode.com"
	// DefaultCatalogBaseURL は商品カタログAPIのベースURL。
	DefaultCatalogBaseURL = "https://dummyjson.com"

	// maxResponseSize はレスポンスボディの最大サイズ。
	maxResponseSize = 5 << 20

	upstreamPosts   = "posts"
	upstreamCatalog = "catalog"

	userAgent = "SocialDemo/1.0"
)

// 操作名。ログとメトリクスのラベルに使用する。
const (
	opGetPosts       = "get_posts"
	opGetUsers       = "get_users"
	opGetComments    = "get_comments"
	opCreatePost     = "create_post"
	opToggleLike     = "toggle_like"
	opGetProducts    = "get_products"
	opGetProduct     = "get_product"
	opGetCategories  = "get_categories"
	opToggleFavorite = "toggle_favorite"
	opProbe          = "probe"
)

// Config はゲートウェイの設定。
type Config struct {
	PostsBaseURL   string
	CatalogBaseURL string

	// Timeout は1回の外部API呼び出しの上限時間。0以下の場合は無制限。
	Timeout time.Duration

	// ToggleDelay はいいね/お気に入り切り替えの擬似的な通信時間。
	ToggleDelay time.Duration
	// ProductListDelay と ProductListJitter は商品一覧取得の擬似遅延（Delay + [0, Jitter)）。
	ProductListDelay  time.Duration
	ProductListJitter time.Duration
	// ProductDelay は商品詳細取得の擬似遅延。
	ProductDelay time.Duration

	// RateLimit は外部APIへの送信レート（req/sec）。0以下の場合は無制限。
	RateLimit float64
	RateBurst int
}

// DefaultConfig はデフォルトのゲートウェイ設定を返す。
func DefaultConfig() Config {
	return Config{
		PostsBaseURL:      DefaultPostsBaseURL,
		CatalogBaseURL:    DefaultCatalogBaseURL,
		Timeout:           10 * time.Second,
		ToggleDelay:       300 * time.Millisecond,
		ProductListDelay:  800 * time.Millisecond,
		ProductListJitter: 1200 * time.Millisecond,
		ProductDelay:      300 * time.Millisecond,
		RateLimit:         5,
		RateBurst:         10,
	}
}

// Gateway は外部APIの呼び出しと正規エンティティへの変換を行う。
// 複数のgoroutineから同時に利用できる。
type Gateway struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	sanitizer  *security.TextSanitizer
	random     Random
	now        func() time.Time
	limiter    *rate.Limiter
	cfg        Config
}

// Option はGatewayの任意設定。
type Option func(*Gateway)

// WithRandom は乱数ソースを差し替える。テストで結果を固定するために使用する。
func WithRandom(r Random) Option {
	return func(g *Gateway) { g.random = r }
}

// WithMetrics はメトリクス収集先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New はGatewayの新しいインスタンスを生成する。
func New(httpClient *http.Client, logger *slog.Logger, cfg Config, opts ...Option) *Gateway {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	g := &Gateway{
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics.Nop{},
		sanitizer:  security.NewTextSanitizer(),
		random:     DefaultRandom(),
		now:        time.Now,
		limiter:    rate.NewLimiter(limit, burst),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// getJSON はGETリクエストを送信し、レスポンスJSONをoutにデコードする。
func (g *Gateway) getJSON(ctx context.Context, op, upstream, rawURL string, out any) error {
	return g.doJSON(ctx, op, upstream, http.MethodGet, rawURL, nil, out)
}

// postJSON はJSONボディ付きPOSTリクエストを送信し、レスポンスJSONをoutにデコードする。
func (g *Gateway) postJSON(ctx context.Context, op, upstream, rawURL string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &model.GatewayError{Op: op, Kind: model.KindInternal, Err: fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)}
	}
	return g.doJSON(ctx, op, upstream, http.MethodPost, rawURL, payload, out)
}

// doJSON は1回のHTTP呼び出しを行う。失敗は種別付きの*model.GatewayErrorで返す。
// outがnilの場合はボディをデコードしない。
func (g *Gateway) doJSON(ctx context.Context, op, upstream, method, rawURL string, payload []byte, out any) (err error) {
	start := time.Now()
	defer func() {
		g.metrics.RecordUpstreamLatency(op, time.Since(start))
		if err != nil {
			g.metrics.RecordUpstreamFailure(op, string(model.KindOf(err)))
			g.logger.Error("外部APIの呼び出しに失敗しました",
				slog.String("operation", op),
				slog.String("method", method),
				slog.String("url", rawURL),
				slog.String("kind", string(model.KindOf(err))),
				slog.String("error", err.Error()),
			)
			return
		}
		g.metrics.RecordUpstreamSuccess(op)
	}()

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return transportError(op, fmt.Errorf("レート制限の待機に失敗しました: %w", err))
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return &model.GatewayError{Op: op, Kind: model.KindInternal, Err: fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-type", "application/json; charset=UTF-8")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	g.metrics.RecordHTTPStatus(upstream, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return &model.GatewayError{Op: op, Kind: model.KindStatus, Status: resp.StatusCode,
			Err: fmt.Errorf("外部APIがステータス %d を返しました", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return transportError(op, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &model.GatewayError{Op: op, Kind: model.KindDecode, Err: fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)}
	}
	return nil
}

// transportError は通信エラーを種別付きエラーに変換する。
// コンテキストの期限切れはタイムアウトとして扱う。
func transportError(op string, err error) error {
	kind := model.KindTransport
	if errors.Is(err, context.DeadlineExceeded) {
		kind = model.KindTimeout
	}
	return &model.GatewayError{Op: op, Kind: kind, Err: err}
}

// degrade はフォールバック値を返したことを記録し、ErrDegradedにマッチするエラーを返す。
func degrade[T any](g *Gateway, op string, fallback T, err error) (T, error) {
	g.metrics.RecordFallback(op)
	g.logger.Warn("フォールバックデータを返します",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)

	var gwErr *model.GatewayError
	if errors.As(err, &gwErr) {
		degraded := *gwErr
		degraded.Degraded = true
		return fallback, &degraded
	}
	return fallback, &model.GatewayError{Op: op, Kind: model.KindInternal, Err: err, Degraded: true}
}

// sleep はdだけ待機する。コンテキストがキャンセルされた場合はfalseを返す。
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// displayTime は表示用のタイムスタンプ文字列を返す。
func displayTime(t time.Time) string {
	return t.Format("1/2/2006, 3:04:05 PM")
}
