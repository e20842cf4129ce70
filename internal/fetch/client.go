package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds CheckProxy.
const checkProxyTimeout = 3 * time.Second

// maxRedirects is the number of redirects followed before the last
// response is returned as is.
const maxRedirects = 10

// ClientOptions configures NewHTTPClient.
type ClientOptions struct {
	// ProxyURL routes every request through a proxy. Empty means direct.
	// Supported schemes: http, https, socks5, socks5h.
	ProxyURL string

	// Timeout is the overall timeout per request.
	Timeout time.Duration

	// UserAgent is set on every request when not empty.
	UserAgent string

	// Cookie is sent on every request when not empty.
	Cookie string

	// Headers are set on every request.
	Headers map[string]string
}

// NewHTTPClient creates an HTTP client routed through the configured proxy.
// Compression is negotiated by HTTPFetcher itself, so the transport's
// transparent gzip handling is disabled.
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               nil,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
		DisableCompression:  true,
	}

	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProxyURL, redactedURL(opts.ProxyURL))
		}

		switch u.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			dialer, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			transport.DialContext = dialContext(dialer)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxyScheme, u.Scheme)
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	if opts.UserAgent != "" || opts.Cookie != "" || len(opts.Headers) > 0 {
		client.Transport = &headerInjectingTransport{
			base:      transport,
			userAgent: opts.UserAgent,
			cookie:    opts.Cookie,
			headers:   opts.Headers,
		}
	}

	return client, nil
}

// dialContext adapts a proxy.Dialer to the transport's DialContext hook.
// Dialers from x/net/proxy implement proxy.ContextDialer; the fallback
// keeps cancellation working for any that do not.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request, redirects included.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	cookie    string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

// SOCKS5 greeting constants.
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
	socks5AuthUser = 0x02
)

// CheckProxy verifies that the proxy in proxyURL accepts connections.
// For SOCKS5 proxies it also performs the method negotiation, offering
// username/password auth when the URL carries credentials. HTTP proxies
// are only checked for TCP reachability.
func CheckProxy(ctx context.Context, proxyURL string) ProxyStatus {
	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return ProxyStatusWrongType
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if !strings.HasPrefix(u.Scheme, "socks5") {
		return ProxyStatusOK
	}

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	method := byte(socks5AuthNone)
	if u.User != nil {
		method = socks5AuthUser
	}
	if _, err := conn.Write([]byte{socks5Version, 0x01, method}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if resp[0] != socks5Version || resp[1] != method {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// redactedURL hides the password of a URL for error messages.
func redactedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparsable>"
	}
	return u.Redacted()
}
