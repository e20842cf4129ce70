package model

// Outcome records what the crawler did with one URL.
type Outcome int

const (
	// OutcomeSaved means the resource was fetched and its artifacts written.
	OutcomeSaved Outcome = iota

	// OutcomeCached means an artifact with the same identifier already
	// existed on disk, so the URL was not fetched.
	OutcomeCached

	// OutcomeFetchFailed means the transport failed (network, proxy, decoding).
	OutcomeFetchFailed

	// OutcomeHTTPError means the server answered with a non-2xx status.
	OutcomeHTTPError

	// OutcomeUnhandled means the content type has no extractor or is skipped
	// by configuration.
	OutcomeUnhandled

	// OutcomeExtractFailed means the extractor could not persist the resource.
	OutcomeExtractFailed
)

// Outcomes lists every outcome in declaration order.
var Outcomes = []Outcome{
	OutcomeSaved,
	OutcomeCached,
	OutcomeFetchFailed,
	OutcomeHTTPError,
	OutcomeUnhandled,
	OutcomeExtractFailed,
}

// String returns the snake_case name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeCached:
		return "cached"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeUnhandled:
		return "unhandled"
	case OutcomeExtractFailed:
		return "extract_failed"
	default:
		return "unknown"
	}
}

// ParseOutcome converts a name produced by Outcome.String back into an
// Outcome. The boolean is false for unknown names.
func ParseOutcome(s string) (Outcome, bool) {
	for _, o := range Outcomes {
		if o.String() == s {
			return o, true
		}
	}
	return OutcomeFetchFailed, false
}
