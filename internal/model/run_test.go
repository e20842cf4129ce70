package model

import (
	"testing"
	"time"
)

// TestRunSummaryRecord tests outcome and kind accounting.
func TestRunSummaryRecord(t *testing.T) {
	t.Parallel()

	s := NewRunSummary("run-1", "http://example.com", 2)
	s.Record(&Resource{Outcome: OutcomeSaved, Kind: KindMarkup})
	s.Record(&Resource{Outcome: OutcomeSaved, Kind: KindDocument})
	s.Record(&Resource{Outcome: OutcomeHTTPError, Kind: KindUnrecognized})
	s.Record(&Resource{Outcome: OutcomeCached, Kind: KindMarkup})

	if s.Saved() != 2 {
		t.Errorf("expected 2 saved, got %d", s.Saved())
	}
	if s.Total() != 4 {
		t.Errorf("expected 4 total, got %d", s.Total())
	}
	if s.Kinds[KindMarkup] != 1 {
		t.Errorf("expected 1 markup, got %d", s.Kinds[KindMarkup])
	}
	if s.Outcomes[OutcomeHTTPError] != 1 {
		t.Errorf("expected 1 http error, got %d", s.Outcomes[OutcomeHTTPError])
	}
}

// TestRunSummaryDuration tests duration before and after completion.
func TestRunSummaryDuration(t *testing.T) {
	t.Parallel()

	s := NewRunSummary("run-1", "http://example.com", 1)
	if s.Duration() != 0 {
		t.Errorf("expected zero duration, got %v", s.Duration())
	}
	s.FinishedAt = s.StartedAt.Add(3 * time.Second)
	if s.Duration() != 3*time.Second {
		t.Errorf("expected 3s, got %v", s.Duration())
	}
}

// TestOutcomeRoundTrip tests that every outcome name parses back.
func TestOutcomeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, o := range Outcomes {
		got, ok := ParseOutcome(o.String())
		if !ok || got != o {
			t.Errorf("expected %v, got %v (ok=%v)", o, got, ok)
		}
	}
	if _, ok := ParseOutcome("bogus"); ok {
		t.Error("expected bogus outcome to be rejected")
	}
}

// TestResponseOK tests the 2xx check.
func TestResponseOK(t *testing.T) {
	t.Parallel()

	for code, expected := range map[int]bool{199: false, 200: true, 204: true, 299: true, 301: false, 404: false, 500: false} {
		r := &Response{StatusCode: code}
		if r.OK() != expected {
			t.Errorf("status %d: expected %v, got %v", code, expected, r.OK())
		}
	}
}

// TestNewResource tests identifier assignment.
func TestNewResource(t *testing.T) {
	t.Parallel()

	r := NewResource("http://example.com/a.html", 3)
	if r.ID != "http_example_com_a_html" {
		t.Errorf("expected identifier http_example_com_a_html, got %q", r.ID)
	}
	if r.Generation != 3 {
		t.Errorf("expected generation 3, got %d", r.Generation)
	}
}
