package fetch

import "errors"

// Fetch errors.
var (
	// ErrInvalidProxyURL is returned when the proxy URL cannot be parsed.
	ErrInvalidProxyURL = errors.New("invalid proxy URL")

	// ErrUnsupportedProxyScheme is returned for proxy schemes other than
	// http, https, socks5 and socks5h.
	ErrUnsupportedProxyScheme = errors.New("unsupported proxy scheme")

	// ErrBodyTooLarge is returned when a response body exceeds the limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrTorNotRunning is returned when the embedded Tor daemon is used
	// before Start succeeded.
	ErrTorNotRunning = errors.New("embedded Tor daemon is not running")
)

// ProxyStatus represents the result of checking a proxy before a crawl.
type ProxyStatus int

const (
	// ProxyStatusOK indicates the proxy accepted a connection (and, for
	// SOCKS5, completed the greeting).
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates the proxy answered but did not speak
	// the expected protocol.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates no TCP connection could be made.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the check timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong protocol"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}
