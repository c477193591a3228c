package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// MaxRedirects is the number of redirects followed per request.
	// The last redirect response is returned as is when it is exceeded.
	MaxRedirects = 10

	// DefaultTimeout bounds a whole request, redirects included.
	DefaultTimeout = 5 * time.Second

	// checkProxyTimeout bounds the SOCKS5 greeting done by CheckProxy.
	checkProxyTimeout = 2 * time.Second
)

// SOCKS5 greeting bytes.
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// options collects the NewClient settings.
type options struct {
	timeout     time.Duration
	proxyAddr   string
	headers     map[string]string
	roundTrip   http.RoundTripper
	idleConns   int
	idleTimeout time.Duration
}

// Option configures NewClient.
type Option func(*options)

// WithTimeout sets the client timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithProxy routes every connection through the SOCKS5 proxy at addr
// ("host:port"). An empty addr disables the proxy.
func WithProxy(addr string) Option {
	return func(o *options) {
		o.proxyAddr = addr
	}
}

// WithHeader sets a header on every request that does not set it itself.
func WithHeader(key, value string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithUserAgent is WithHeader("User-Agent", ua).
func WithUserAgent(ua string) Option {
	return WithHeader("User-Agent", ua)
}

// WithRoundTripper replaces the base transport. It is used by tests to
// route requests to local servers; WithProxy is ignored when it is set.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.roundTrip = rt
	}
}

// NewClient creates the crawler's HTTP client.
//
// Design decisions:
//   - No cookie jar: pages are fetched anonymously and a session cookie from
//     one page must not change what another worker sees
//   - Redirects stop after MaxRedirects and the last response is returned,
//     so redirect loops end up as a non-200 page instead of an error
//   - The idle pool is sized for many requests to a single host
func NewClient(opts ...Option) (*http.Client, error) {
	o := &options{
		timeout:     DefaultTimeout,
		idleConns:   64,
		idleTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	base := o.roundTrip
	if base == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.MaxIdleConns = o.idleConns
		tr.MaxIdleConnsPerHost = o.idleConns
		tr.IdleConnTimeout = o.idleTimeout

		if o.proxyAddr != "" {
			dial, err := socks5DialContext(o.proxyAddr)
			if err != nil {
				return nil, err
			}
			tr.Proxy = nil
			tr.DialContext = dial
		}
		base = tr
	}

	var rt http.RoundTripper = base
	if len(o.headers) > 0 {
		rt = &headerTransport{base: base, headers: o.headers}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   o.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > MaxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// dialContextFunc is the signature of http.Transport.DialContext.
type dialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// socks5DialContext returns a context-aware dial function through the
// SOCKS5 proxy at addr.
func socks5DialContext(addr string) (dialContextFunc, error) {
	if !ValidProxyAddress(addr) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, addr)
	}
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, address string) (net.Conn, error) {
		return dialer.Dial(network, address)
	}, nil
}

// ValidProxyAddress reports whether addr is "host:port" with a non-empty
// host and a port between 1 and 65535. IPv6 hosts must be bracketed.
func ValidProxyAddress(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// CheckProxy verifies that a SOCKS5 proxy accepting unauthenticated clients
// listens at addr. It only performs the greeting; no connection through
// the proxy is requested.
func CheckProxy(ctx context.Context, addr string) error {
	if !ValidProxyAddress(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidProxyAddress, addr)
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrProxyTimeout, addr)
		}
		return fmt.Errorf("%w: %s: %w", ErrProxyCannotConnect, addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrProxyCannotConnect, addr, err)
		}
	}

	// Version 5, one method offered: no authentication.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProxyCannotConnect, addr, err)
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: %s", ErrProxyTimeout, addr)
		}
		return fmt.Errorf("%w: %s", ErrProxyNotSOCKS5, addr)
	}
	if reply[0] != socks5Version || reply[1] != socks5AuthNone {
		return fmt.Errorf("%w: %s", ErrProxyNotSOCKS5, addr)
	}
	return nil
}

// headerTransport sets fixed headers on every request, redirects included.
// Headers already present on the request win.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		if clone.Header.Get(key) == "" {
			clone.Header.Set(key, value)
		}
	}
	return t.base.RoundTrip(clone)
}
