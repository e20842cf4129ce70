package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/sitespider/internal/model"
)

// Namespace prefixes every metric name.
const Namespace = "sitespider"

// Collector records crawl metrics on its own registry.
// All methods are safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	// ResourcesTotal counts processed URLs by outcome.
	ResourcesTotal *prometheus.CounterVec

	// ArtifactsTotal counts saved resources by kind.
	ArtifactsTotal *prometheus.CounterVec

	// ExcludedTotal counts dropped links by reason.
	ExcludedTotal *prometheus.CounterVec

	// BytesTotal counts fetched payload bytes.
	BytesTotal prometheus.Counter

	// Generation is the generation currently being processed.
	Generation prometheus.Gauge

	// Pending is the number of URLs in the current generation.
	Pending prometheus.Gauge

	// Frontier is the size of the next generation's frontier.
	Frontier prometheus.Gauge

	// FetchDuration observes how long each URL took to fetch and save.
	FetchDuration prometheus.Histogram
}

// New creates a Collector with a fresh registry.
func New() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		ResourcesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resources_total",
			Help:      "Number of URLs processed, by outcome.",
		}, []string{"outcome"}),
		ArtifactsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "artifacts_total",
			Help:      "Number of resources saved, by kind.",
		}, []string{"kind"}),
		ExcludedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "excluded_links_total",
			Help:      "Number of discovered links dropped by the URL filter, by reason.",
		}, []string{"reason"}),
		BytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetched_bytes_total",
			Help:      "Number of payload bytes fetched.",
		}),
		Generation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "generation",
			Help:      "Generation currently being processed.",
		}),
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "generation_urls",
			Help:      "Number of URLs in the current generation.",
		}),
		Frontier: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "frontier_urls",
			Help:      "Number of URLs queued for the next generation.",
		}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching and saving one URL.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// GenerationStarted records the generation number and its size.
func (c *Collector) GenerationStarted(generation, pending int) {
	c.Generation.Set(float64(generation))
	c.Pending.Set(float64(pending))
}

// ResourceProcessed counts one processed URL.
func (c *Collector) ResourceProcessed(r *model.Resource) {
	c.ResourcesTotal.WithLabelValues(r.Outcome.String()).Inc()
	if r.Outcome == model.OutcomeSaved {
		c.ArtifactsTotal.WithLabelValues(r.Kind.String()).Inc()
	}
	if r.Size > 0 {
		c.BytesTotal.Add(float64(r.Size))
	}
	if r.Outcome != model.OutcomeCached {
		c.FetchDuration.Observe(r.Duration.Seconds())
	}
}

// GenerationFinished records the size of the next frontier.
func (c *Collector) GenerationFinished(_, next int) {
	c.Pending.Set(0)
	c.Frontier.Set(float64(next))
}

// LinkDropped counts one link dropped by the URL filter.
func (c *Collector) LinkDropped(_, reason string) {
	c.ExcludedTotal.WithLabelValues(reason).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
