package fetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/nao1215/sitespider/internal/model"
)

// DefaultMaxBodySize is used when no body limit is configured.
const DefaultMaxBodySize = 64 * 1024 * 1024

// Fetcher retrieves one URL.
// A non-nil error means no response was obtained; HTTP error statuses are
// reported through Response.StatusCode instead.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*model.Response, error)
}

// HTTPFetcher is a Fetcher backed by an http.Client.
type HTTPFetcher struct {
	client      *http.Client
	maxBodySize int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithMaxBodySize sets the maximum number of body bytes read.
// Zero or negative values keep the default.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher using client.
// A nil client falls back to a direct client without timeout.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	f := &HTTPFetcher{
		client:      client,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET request and returns the decoded body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*model.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, err
	}

	return &model.Response{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Body:        body,
	}, nil
}

// readBody decodes the body according to Content-Encoding and enforces the
// size limit on the decoded bytes. It always closes the body.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close() //nolint:errcheck // Read errors matter, close errors do not
		}
	}()

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	limited := io.LimitReader(reader, f.maxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}
	return body, nil
}
