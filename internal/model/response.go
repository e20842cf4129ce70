package model

import "net/http"

// Response is the result of fetching one URL.
type Response struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// ContentType is the raw Content-Type header value.
	ContentType string

	// Header contains all response headers.
	Header http.Header

	// Body is the decoded response body.
	Body []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
