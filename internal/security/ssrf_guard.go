// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// UpstreamGuard は上流API呼び出しと通知に含めるURLを検証する。
type UpstreamGuard interface {
	// NewSafeClient はプライベート・ループバック・リンクローカル宛ての接続を
	// Dialerレベルで拒否するHTTPクライアントを生成する。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateBaseURL は設定された上流のベースURLを静的に検証する。
	ValidateBaseURL(rawURL string) error

	// ValidateListingURL は通知ボタンに載せる出品URLを検証する。httpsのみ許可する。
	ValidateListingURL(rawURL string) error
}

var allowedSchemes = []string{"http", "https"}

// blockedNetworks はパッケージ初期化時に1回だけパースする。
var blockedNetworks = mustParseCIDRs(
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
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		nets = append(nets, n)
	}
	return nets
}

type upstreamGuard struct{}

// NewUpstreamGuard はUpstreamGuardの新しいインスタンスを生成する。
func NewUpstreamGuard() *upstreamGuard {
	return &upstreamGuard{}
}

// NewSafeClient はsafeurlでラップしたHTTPクライアントを生成する。
// DNS解決後のIPアドレスも検証されるため、DNS再バインディングにも対応する。
func (g *upstreamGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

func (g *upstreamGuard) ValidateBaseURL(rawURL string) error {
	parsed, err := parse(rawURL)
	if err != nil {
		return err
	}
	if !slices.Contains(allowedSchemes, strings.ToLower(parsed.Scheme)) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", parsed.Scheme, allowedSchemes)
	}
	return checkHost(parsed)
}

func (g *upstreamGuard) ValidateListingURL(rawURL string) error {
	parsed, err := parse(rawURL)
	if err != nil {
		return err
	}
	if !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("listing URL must use https: %s", rawURL)
	}
	return checkHost(parsed)
}

func parse(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("empty URL")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	return parsed, nil
}

// checkHost はDNS解決を伴わない静的なホスト検証を行う。
func checkHost(u *url.URL) error {
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", u.String())
	}
	if ip := net.ParseIP(host); ip != nil {
		for _, n := range blockedNetworks {
			if n.Contains(ip) {
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
