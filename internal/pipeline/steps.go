package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/sitespider/internal/archive"
	"github.com/nao1215/sitespider/internal/config"
	"github.com/nao1215/sitespider/internal/metrics"
	"github.com/nao1215/sitespider/internal/model"
	"github.com/nao1215/sitespider/internal/report"
)

// Crawler runs a crawl from a seed. *crawler.Engine implements it.
type Crawler interface {
	Run(ctx context.Context, seed string) (*model.RunSummary, error)
}

// Ledger stores the start and the end of a run. *database.CrawlDB
// implements it.
type Ledger interface {
	StartRun(ctx context.Context, summary *model.RunSummary, outputDir string) error
	FinishRun(ctx context.Context, summary *model.RunSummary) error
}

// PrepareOutputStep creates the output directories, wiping the output root
// first when fresh is set.
type PrepareOutputStep struct {
	fresh bool
}

// NewPrepareOutputStep creates a PrepareOutputStep.
func NewPrepareOutputStep(fresh bool) *PrepareOutputStep {
	return &PrepareOutputStep{fresh: fresh}
}

// Name returns the step name.
func (s *PrepareOutputStep) Name() string {
	return "prepare_output"
}

// Do executes the step.
func (s *PrepareOutputStep) Do(_ context.Context, state *State) error {
	if err := state.Layout.Prepare(s.fresh); err != nil {
		return fmt.Errorf("failed to prepare output: %w", err)
	}
	return nil
}

// StartRunStep registers the run in the ledger.
type StartRunStep struct {
	ledger Ledger
}

// NewStartRunStep creates a StartRunStep.
func NewStartRunStep(ledger Ledger) *StartRunStep {
	return &StartRunStep{ledger: ledger}
}

// Name returns the step name.
func (s *StartRunStep) Name() string {
	return "start_run"
}

// Do executes the step.
func (s *StartRunStep) Do(ctx context.Context, state *State) error {
	if err := s.ledger.StartRun(ctx, state.Summary, state.Layout.Root()); err != nil {
		return err
	}
	state.InLedger = true
	return nil
}

// CrawlStep runs the crawl and stores its summary in the state.
type CrawlStep struct {
	crawler Crawler
}

// NewCrawlStep creates a CrawlStep.
func NewCrawlStep(crawler Crawler) *CrawlStep {
	return &CrawlStep{crawler: crawler}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the step. The summary of an interrupted crawl is kept.
func (s *CrawlStep) Do(ctx context.Context, state *State) error {
	summary, err := s.crawler.Run(ctx, state.SeedURL)
	if summary != nil {
		state.Summary = summary
	}
	return err
}

// PackageStep zips the output root.
type PackageStep struct {
	path   string
	logger *slog.Logger
}

// PackageStepOption configures a PackageStep.
type PackageStepOption func(*PackageStep)

// WithPackageLogger sets a custom logger for the package step.
func WithPackageLogger(logger *slog.Logger) PackageStepOption {
	return func(s *PackageStep) {
		s.logger = logger
	}
}

// NewPackageStep creates a PackageStep writing to path.
func NewPackageStep(path string, opts ...PackageStepOption) *PackageStep {
	s := &PackageStep{
		path:   path,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *PackageStep) Name() string {
	return "package"
}

// Do executes the step.
func (s *PackageStep) Do(_ context.Context, state *State) error {
	if err := archive.PackDir(state.Layout.Root(), s.path); err != nil {
		return err
	}
	state.Summary.Archive = s.path
	s.logger.Info("output packaged", "archive", s.path)
	return nil
}

// FinishRunStep stores the final statistics in the ledger.
type FinishRunStep struct {
	ledger Ledger
}

// NewFinishRunStep creates a FinishRunStep.
func NewFinishRunStep(ledger Ledger) *FinishRunStep {
	return &FinishRunStep{ledger: ledger}
}

// Name returns the step name.
func (s *FinishRunStep) Name() string {
	return "finish_run"
}

// Do executes the step. Runs that never reached the ledger are skipped.
func (s *FinishRunStep) Do(ctx context.Context, state *State) error {
	if !state.InLedger {
		return nil
	}
	return s.ledger.FinishRun(ctx, state.Summary)
}

// ReportStep renders the run report.
type ReportStep struct {
	writer    report.Writer
	collector *Collector
}

// NewReportStep creates a ReportStep. collector supplies the resource list
// and may be nil.
func NewReportStep(writer report.Writer, collector *Collector) *ReportStep {
	return &ReportStep{
		writer:    writer,
		collector: collector,
	}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do executes the step.
func (s *ReportStep) Do(_ context.Context, state *State) error {
	run := &report.Run{
		Summary:   state.Summary,
		OutputDir: state.Layout.Root(),
	}
	if s.collector != nil {
		run.Resources = s.collector.Resources()
	}

	if _, err := s.writer.Write(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// MetricsStep exports the crawl metrics in the Prometheus text format.
type MetricsStep struct {
	metrics *metrics.Collector
	path    string
}

// NewMetricsStep creates a MetricsStep writing to path.
func NewMetricsStep(m *metrics.Collector, path string) *MetricsStep {
	return &MetricsStep{
		metrics: m,
		path:    path,
	}
}

// Name returns the step name.
func (s *MetricsStep) Name() string {
	return "metrics"
}

// Do executes the step.
func (s *MetricsStep) Do(_ context.Context, _ *State) error {
	return s.metrics.WriteTextfile(s.path)
}

// Components are the collaborators DefaultPipeline wires into steps.
// Optional components are skipped when nil.
type Components struct {
	// Crawler runs the crawl. Required.
	Crawler Crawler

	// Ledger records the run.
	Ledger Ledger

	// Collector supplies the resource list to reports.
	Collector *Collector

	// Reports are written after the run, in order.
	Reports []report.Writer

	// Metrics is exported to cfg.MetricsFile when both are set.
	Metrics *metrics.Collector
}

// DefaultPipeline creates the pipeline of a crawl run described by cfg.
func DefaultPipeline(cfg *config.Config, c Components, opts ...Option) *Pipeline {
	p := New(opts...)

	p.AddStep(NewPrepareOutputStep(cfg.FreshOutput))
	if c.Ledger != nil {
		p.AddStep(NewStartRunStep(c.Ledger))
	}
	p.AddStep(NewCrawlStep(c.Crawler))
	if path := cfg.ArchivePath(); path != "" {
		p.AddStep(NewPackageStep(path, WithPackageLogger(p.logger)))
	}

	if c.Ledger != nil {
		p.AddFinalStep(NewFinishRunStep(c.Ledger))
	}
	for _, w := range c.Reports {
		p.AddFinalStep(NewReportStep(w, c.Collector))
	}
	if c.Metrics != nil && cfg.MetricsFile != "" {
		p.AddFinalStep(NewMetricsStep(c.Metrics, cfg.MetricsFile))
	}

	return p
}
