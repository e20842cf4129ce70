package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nao1215/sitespider/internal/model"
)

func resource(outcome model.Outcome, kind model.Kind, size int) *model.Resource {
	r := model.NewResource("https://example.com/", 0)
	r.Outcome = outcome
	r.Kind = kind
	r.Size = size
	r.Duration = 200 * time.Millisecond
	return r
}

// TestCollectorResources tests counting of processed resources.
func TestCollectorResources(t *testing.T) {
	t.Parallel()

	c := New()
	c.ResourceProcessed(resource(model.OutcomeSaved, model.KindMarkup, 100))
	c.ResourceProcessed(resource(model.OutcomeSaved, model.KindMarkup, 50))
	c.ResourceProcessed(resource(model.OutcomeSaved, model.KindArchive, 10))
	c.ResourceProcessed(resource(model.OutcomeHTTPError, model.KindUnrecognized, 0))
	c.ResourceProcessed(resource(model.OutcomeCached, model.KindUnrecognized, 0))

	if got := testutil.ToFloat64(c.ResourcesTotal.WithLabelValues("saved")); got != 3 {
		t.Errorf("expected 3 saved, got %v", got)
	}
	if got := testutil.ToFloat64(c.ResourcesTotal.WithLabelValues("http_error")); got != 1 {
		t.Errorf("expected 1 http error, got %v", got)
	}
	if got := testutil.ToFloat64(c.ArtifactsTotal.WithLabelValues("markup")); got != 2 {
		t.Errorf("expected 2 markup artifacts, got %v", got)
	}
	if got := testutil.ToFloat64(c.ArtifactsTotal.WithLabelValues("archive")); got != 1 {
		t.Errorf("expected 1 archive artifact, got %v", got)
	}
	if got := testutil.ToFloat64(c.BytesTotal); got != 160 {
		t.Errorf("expected 160 bytes, got %v", got)
	}
	if n := testutil.CollectAndCount(c.FetchDuration); n != 1 {
		t.Errorf("expected 1 histogram, got %d", n)
	}
}

// TestCollectorGenerations tests the generation gauges.
func TestCollectorGenerations(t *testing.T) {
	t.Parallel()

	c := New()
	c.GenerationStarted(2, 7)

	if got := testutil.ToFloat64(c.Generation); got != 2 {
		t.Errorf("expected generation 2, got %v", got)
	}
	if got := testutil.ToFloat64(c.Pending); got != 7 {
		t.Errorf("expected 7 pending, got %v", got)
	}

	c.GenerationFinished(2, 4)
	if got := testutil.ToFloat64(c.Pending); got != 0 {
		t.Errorf("expected pending reset, got %v", got)
	}
	if got := testutil.ToFloat64(c.Frontier); got != 4 {
		t.Errorf("expected frontier 4, got %v", got)
	}
}

// TestCollectorLinkDropped tests the exclusion counter.
func TestCollectorLinkDropped(t *testing.T) {
	t.Parallel()

	c := New()
	c.LinkDropped("https://example.com/a", "excluded prefix")
	c.LinkDropped("https://example.com/b", "excluded prefix")
	c.LinkDropped("https://example.com/c", "missing href")

	if got := testutil.ToFloat64(c.ExcludedTotal.WithLabelValues("excluded prefix")); got != 2 {
		t.Errorf("expected 2, got %v", got)
	}
	if n := testutil.CollectAndCount(c.ExcludedTotal); n != 2 {
		t.Errorf("expected 2 label sets, got %d", n)
	}
}

// TestCollectorsAreIndependent tests that registries are not shared.
func TestCollectorsAreIndependent(t *testing.T) {
	t.Parallel()

	a := New()
	b := New()
	a.LinkDropped("u", "r")

	if got := testutil.ToFloat64(b.ExcludedTotal.WithLabelValues("r")); got != 0 {
		t.Errorf("expected independent collectors, got %v", got)
	}
}

// TestWriteTextfile tests the textfile export.
func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	c := New()
	c.ResourceProcessed(resource(model.OutcomeSaved, model.KindDocument, 42))

	path := filepath.Join(t.TempDir(), "sitespider.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	for _, want := range []string{
		`sitespider_resources_total{outcome="saved"} 1`,
		`sitespider_artifacts_total{kind="document"} 1`,
		`sitespider_fetched_bytes_total 42`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected textfile to contain %q", want)
		}
	}

	if err := c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")); err == nil {
		t.Error("expected error for missing directory")
	}
}
