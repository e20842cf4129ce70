// Package fetch retrieves resources over HTTP for the crawler.
//
// NewHTTPClient builds an http.Client that routes through an optional
// proxy: HTTP and HTTPS proxies (with credentials in the URL userinfo) use
// the transport's Proxy hook, SOCKS5 proxies use golang.org/x/net/proxy.
// The same proxy is used for http and https targets.
//
// HTTPFetcher performs GET requests with that client, decodes gzip, deflate
// and brotli bodies and caps the body size. Non-2xx answers are returned as
// ordinary responses; only transport failures are errors.
//
// EmbeddedTor starts a private Tor daemon through tornago and exposes its
// SOCKS address as a proxy URL.
package fetch
