package crawler

import (
	"log/slog"
	"net/url"
	"strings"
)

// Drop reasons reported to the excluded channel and to DropHook.
const (
	ReasonNoHref          = "missing href"
	ReasonNotIncluded     = "no include match"
	ReasonExcludedPrefix  = "excluded prefix"
	ReasonExcludedContent = "excluded substring"
	ReasonBareRoot        = "bare root"
)

// Rules are the URL scoping rules of a crawl.
type Rules struct {
	// ExcludePrefixes drops URLs starting with any entry.
	ExcludePrefixes []string

	// ExcludeContains drops URLs containing any entry.
	ExcludeContains []string

	// IncludeContains keeps only URLs containing at least one entry.
	// An empty list keeps every URL.
	IncludeContains []string
}

// DropHook is called for every URL a Filter drops.
type DropHook func(rawURL, reason string)

// Filter resolves discovered hrefs and decides which URLs are in scope.
// It holds no mutable state and is safe for concurrent use.
type Filter struct {
	rules    Rules
	excluded *slog.Logger
	onDrop   DropHook
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithExcludedLogger sets the logger drops are reported to.
func WithExcludedLogger(logger *slog.Logger) FilterOption {
	return func(f *Filter) {
		if logger != nil {
			f.excluded = logger
		}
	}
}

// WithDropHook sets a function called for every dropped URL.
func WithDropHook(hook DropHook) FilterOption {
	return func(f *Filter) {
		f.onDrop = hook
	}
}

// NewFilter creates a Filter for rules. Empty entries are ignored.
func NewFilter(rules Rules, opts ...FilterOption) *Filter {
	f := &Filter{
		rules: Rules{
			ExcludePrefixes: compact(rules.ExcludePrefixes),
			ExcludeContains: compact(rules.ExcludeContains),
			IncludeContains: compact(rules.IncludeContains),
		},
		excluded: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// compact drops empty entries, which would otherwise match every URL.
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ResolveURL resolves href against base. An href starting with "http" is
// returned unchanged; anything else is joined to the scheme and host of
// base with exactly one slash between them.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http") {
		return href
	}

	origin := strings.TrimRight(base, "/")
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}

	if strings.HasPrefix(href, "/") {
		return origin + href
	}
	return origin + "/" + href
}

// Allow reports whether rawURL is in scope. Exclusion always wins over
// inclusion.
func (f *Filter) Allow(rawURL string) bool {
	if reason, dropped := f.dropReason(rawURL); dropped {
		f.drop(rawURL, reason)
		return false
	}
	return true
}

// dropReason returns why rawURL is out of scope.
func (f *Filter) dropReason(rawURL string) (string, bool) {
	if len(f.rules.IncludeContains) > 0 && !containsAny(rawURL, f.rules.IncludeContains) {
		return ReasonNotIncluded, true
	}
	if rawURL == "/" {
		return ReasonBareRoot, true
	}
	for _, prefix := range f.rules.ExcludePrefixes {
		if strings.HasPrefix(rawURL, prefix) {
			return ReasonExcludedPrefix, true
		}
	}
	if containsAny(rawURL, f.rules.ExcludeContains) {
		return ReasonExcludedContent, true
	}
	return "", false
}

// ResolveAndFilter resolves href against base and applies the rules.
// present is false for anchors without an href attribute; those, and
// hrefs that are blank, are dropped.
func (f *Filter) ResolveAndFilter(base, href string, present bool) (string, bool) {
	if !present || strings.TrimSpace(href) == "" {
		f.drop(base, ReasonNoHref)
		return "", false
	}

	resolved := ResolveURL(base, href)
	if !f.Allow(resolved) {
		return "", false
	}
	return resolved, true
}

func (f *Filter) drop(rawURL, reason string) {
	f.excluded.Info("url excluded", "url", rawURL, "reason", reason)
	if f.onDrop != nil {
		f.onDrop(rawURL, reason)
	}
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
