package dispatch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Defaults for the shared HTTP client.
const (
	DefaultConnectTimeout      = 10 * time.Second
	DefaultMaxIdleConnsPerHost = 32
	DefaultUserAgent           = "rakam"
)

// HTTPConfig configures the process-wide HTTP client used to talk to the engine.
type HTTPConfig struct {
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	// RequestTimeout bounds a whole request; zero means no limit.
	RequestTimeout      time.Duration `koanf:"request_timeout"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host"`
	// SocksProxy is a socks5:// URL. When empty the proxy environment is consulted.
	SocksProxy string `koanf:"socks_proxy"`
	UserAgent  string `koanf:"user_agent"`
}

// NewHTTPClient builds the shared client. Call it once at startup and pass
// the result to every Dispatcher; it pools connections and is safe for
// concurrent use.
func NewHTTPClient(cfg HTTPConfig) (*http.Client, error) {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	maxIdle := cfg.MaxIdleConnsPerHost
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdleConnsPerHost
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
	dial := dialer.DialContext

	proxyURL, err := socksProxyURL(cfg.SocksProxy)
	if err != nil {
		return nil, err
	}
	if proxyURL != nil {
		d, err := proxy.FromURL(proxyURL, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to configure socks proxy %s: %w", proxyURL.Redacted(), err)
		}
		dial = contextDialer(d)
	}

	transport := &http.Transport{
		DialContext:         dial,
		MaxIdleConns:        maxIdle * 4,
		MaxIdleConnsPerHost: maxIdle,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
	}

	return &http.Client{
		Transport: &userAgentTransport{base: transport, userAgent: userAgent},
		Timeout:   cfg.RequestTimeout,
	}, nil
}

// userAgentTransport sets a fixed User-Agent on every outbound request.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}

// socksProxyURL returns the explicit proxy if set, otherwise the first SOCKS
// proxy found in the environment. Non-SOCKS proxies are ignored.
func socksProxyURL(explicit string) (*url.URL, error) {
	if explicit != "" {
		u, err := url.Parse(explicit)
		if err != nil {
			return nil, fmt.Errorf("invalid socks proxy %q: %w", explicit, err)
		}
		if !isSocks(u) {
			return nil, fmt.Errorf("socks proxy must use the socks5 or socks5h scheme, got %q", u.Scheme)
		}
		return u, nil
	}

	for _, key := range []string{"ALL_PROXY", "all_proxy", "SOCKS_PROXY", "socks_proxy"} {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		u, err := url.Parse(v)
		if err != nil || !isSocks(u) {
			continue
		}
		return u, nil
	}
	return nil, nil
}

func isSocks(u *url.URL) bool {
	return u.Scheme == "socks5" || u.Scheme == "socks5h"
}

func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}
