package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultGeminiAddress is the address dialed for the Gemini API host when name resolution is overridden.
const DefaultGeminiAddress = "142.250.70.100"

const overridePort = "443"

// EndpointOverride sends every connection for Host to a fixed IPv4 address on port 443, bypassing name resolution.
// The override only changes where the socket connects. TLS still verifies the certificate against Host because the
// HTTP transport takes the server name from the request URL.
type EndpointOverride struct {
	Host    string
	Address string

	port string // empty means overridePort
}

// Enabled reports whether the override has both a host and an address to substitute
func (eo EndpointOverride) Enabled() bool {
	return eo.Host != "" && eo.Address != ""
}

// Matches reports whether a dial target names the overridden host
func (eo EndpointOverride) Matches(addr string) bool {
	if !eo.Enabled() {
		return false
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return strings.EqualFold(strings.TrimSuffix(host, "."), eo.Host)
}

// Target returns the address that will actually be dialed for addr
func (eo EndpointOverride) Target(addr string) string {
	if eo.Matches(addr) {
		port := eo.port
		if port == "" {
			port = overridePort
		}
		return net.JoinHostPort(eo.Address, port)
	}
	return addr
}

// Dialer wraps a base dialer so that connections to the overridden host always go to the fixed address over TCP,
// whatever network the caller asked for. Other hosts are dialed unchanged.
func (eo EndpointOverride) Dialer(base *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if base == nil {
		base = &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if !eo.Matches(addr) {
			return base.DialContext(ctx, network, addr)
		}
		conn, err := base.DialContext(ctx, "tcp4", eo.Target(addr))
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s via fixed address %s: %w", eo.Host, eo.Address, err)
		}
		return conn, nil
	}
}

// ClientOptions configures NewHTTPClient
type ClientOptions struct {
	Override EndpointOverride
	// WaitOnRateLimit resends requests that were rejected with a 429 and a retry-after header
	WaitOnRateLimit bool
	Logger          zerolog.Logger
}

// NewHTTPClient builds an HTTP client for one generation service. No request timeout is set. With an override, proxy
// settings from the environment are ignored, since a proxy would resolve the host itself.
func NewHTTPClient(opts ClientOptions) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Override.Enabled() {
		base.DialContext = opts.Override.Dialer(nil)
		base.Proxy = nil
		opts.Logger.Warn().
			Str("host", opts.Override.Host).
			Str("address", opts.Override.Address).
			Msg("Name resolution is overridden with a fixed address; all requests fail if the service moves")
	}

	var rt http.RoundTripper = base
	if opts.WaitOnRateLimit {
		rt = WithRateLimiting(base, opts.Logger)
	}
	return &http.Client{Transport: rt}
}
