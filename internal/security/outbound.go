// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes は外部API呼び出しで許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks は外部APIのベースURLとして許可しないネットワーク範囲。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		// クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// UpstreamGuard は外部APIへの送信先を、設定されたホストだけに制限する。
type UpstreamGuard struct {
	hosts []string
}

// NewUpstreamGuard はベースURL群からUpstreamGuardを生成する。
// いずれかのURLが不正な場合はエラーを返す。
func NewUpstreamGuard(baseURLs ...string) (*UpstreamGuard, error) {
	g := &UpstreamGuard{}
	for _, raw := range baseURLs {
		if err := ValidateUpstreamURL(raw); err != nil {
			return nil, err
		}
		u, _ := url.Parse(raw)
		g.hosts = append(g.hosts, u.Hostname())
	}
	return g, nil
}

// Hosts は許可されたホスト名の一覧を返す。
func (g *UpstreamGuard) Hosts() []string {
	return append([]string(nil), g.hosts...)
}

// NewClient は許可ホスト以外への接続をブロックするHTTPクライアントを生成する。
// safeurlはDNS解決後のIPアドレスもDialerで検証するため、
// 許可ホストがプライベートIPに解決された場合もブロックされる。
func (g *UpstreamGuard) NewClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		SetAllowedHosts(g.hosts...).
		Build()

	return safeurl.Client(config).Client
}

// ValidateUpstreamURL は外部APIのベースURLを静的に検証する。
// http/httpsの絶対URLで、ホストがループバックやプライベートIPでないことを確認する。
func ValidateUpstreamURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", parsed.Scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		for _, network := range blockedNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("blocked IP address: %s", ip.String())
			}
		}
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}
