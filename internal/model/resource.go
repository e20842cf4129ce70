package model

import "time"

// Resource describes one URL the crawler processed and what came of it.
// The payload itself is not kept; only its size and digest are.
type Resource struct {
	// URL is the source URL.
	URL string `json:"url"`

	// ID is the identifier derived from URL with OutputName.
	ID string `json:"id"`

	// Generation is the crawl generation the URL belonged to.
	Generation int `json:"generation"`

	// Kind is the classification used to pick the extractor.
	Kind Kind `json:"kind"`

	// ContentType is the raw Content-Type header value.
	ContentType string `json:"content_type,omitempty"`

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// Outcome is what the crawler did with the URL.
	Outcome Outcome `json:"outcome"`

	// Links is the number of in-scope links discovered on the resource.
	Links int `json:"links"`

	// Size is the payload size in bytes.
	Size int `json:"size"`

	// Digest is the hex SHA3-256 of the payload. Empty when nothing was fetched.
	Digest string `json:"digest,omitempty"`

	// Error holds the message of the error that ended processing, if any.
	Error string `json:"error,omitempty"`

	// Duration is how long fetching and extraction took.
	Duration time.Duration `json:"duration"`

	// FetchedAt is when processing of the URL finished.
	FetchedAt time.Time `json:"fetched_at"`
}

// NewResource creates a Resource for rawURL in the given generation.
func NewResource(rawURL string, generation int) *Resource {
	return &Resource{
		URL:        rawURL,
		ID:         OutputName(rawURL),
		Generation: generation,
		Kind:       KindUnrecognized,
	}
}
