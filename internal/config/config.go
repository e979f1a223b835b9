package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/socialdemo/internal/gateway"
	"github.com/hitoshi/socialdemo/internal/security"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Upstream
	PostsAPIURL   string
	CatalogAPIURL string

	// Fetch
	FetchTimeout      time.Duration
	ToggleDelay       time.Duration
	SimulateLatency   bool
	OutboundRateLimit float64

	// Status
	StatusPollInterval time.Duration

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral  int
	RateLimitMutation int

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 外部APIのベースURLがhttp/httpsの絶対URLでない場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.PostsAPIURL = strings.TrimRight(getEnvString("POSTS_API_URL", gateway.DefaultPostsBaseURL), "/")
	cfg.CatalogAPIURL = strings.TrimRight(getEnvString("CATALOG_API_URL", gateway.DefaultCatalogBaseURL), "/")

	var invalid []string
	for key, v := range map[string]string{
		"POSTS_API_URL":   cfg.PostsAPIURL,
		"CATALOG_API_URL": cfg.CatalogAPIURL,
	} {
		if err := security.ValidateUpstreamURL(v); err != nil {
			invalid = append(invalid, fmt.Sprintf("%s (%v)", key, err))
		}
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid upstream URL: %s", strings.Join(invalid, ", "))
	}

	// Optional fields with defaults
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.ToggleDelay = getEnvDuration("TOGGLE_DELAY", 300*time.Millisecond)
	cfg.SimulateLatency = getEnvBool("SIMULATE_LATENCY", true)
	cfg.OutboundRateLimit = getEnvFloat("OUTBOUND_RATE_LIMIT", 5)
	cfg.StatusPollInterval = getEnvDuration("STATUS_POLL_INTERVAL", time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 30)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

// GatewayConfig はゲートウェイ用の設定を組み立てる。
// SimulateLatencyがfalseの場合は商品取得の擬似遅延を無効にする。
func (c *Config) GatewayConfig() gateway.Config {
	gc := gateway.DefaultConfig()
	gc.PostsBaseURL = c.PostsAPIURL
	gc.CatalogBaseURL = c.CatalogAPIURL
	gc.Timeout = c.FetchTimeout
	gc.ToggleDelay = c.ToggleDelay
	gc.RateLimit = c.OutboundRateLimit
	if !c.SimulateLatency {
		gc.ProductListDelay = 0
		gc.ProductListJitter = 0
		gc.ProductDelay = 0
	}
	return gc
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
