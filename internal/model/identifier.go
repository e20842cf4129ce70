package model

import "strings"

// identifierReplacer maps every character that is unsafe in a file name to
// an underscore. "://" is listed first so that it collapses to a single
// underscore instead of three.
var identifierReplacer = strings.NewReplacer(
	"://", "_",
	".", "_",
	"/", "_",
	"#", "_",
	"?", "_",
	"=", "_",
	":", "_",
	"%", "_",
	"&", "_",
	"-", "_",
)

// OutputName derives the filesystem-safe identifier of a resource from its
// source URL. The derivation is deterministic but not injective: two URLs
// that differ only in replaced characters share an identifier, and the
// artifact written last wins.
func OutputName(rawURL string) string {
	return identifierReplacer.Replace(rawURL)
}
