package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitespider/internal/model"
	"github.com/nao1215/sitespider/internal/output"
)

// State is the data shared by the steps of one run.
type State struct {
	// RunID identifies the run in the ledger and the report.
	RunID string

	// SeedURL is the URL the crawl starts from.
	SeedURL string

	// Layout is the output tree of the run.
	Layout *output.Layout

	// Summary starts empty and is replaced by the crawl result.
	Summary *model.RunSummary

	// InLedger is set once the run is registered in the ledger.
	InLedger bool

	// PerformedSteps lists the names of the steps that ran, in order.
	PerformedSteps []string

	// Err is the first error returned by a step.
	Err error
}

// NewState creates the state of a run that has not started yet.
func NewState(runID, seedURL string, maxDepth int, layout *output.Layout) *State {
	return &State{
		RunID:   runID,
		SeedURL: seedURL,
		Layout:  layout,
		Summary: model.NewRunSummary(runID, seedURL, maxDepth),
	}
}

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do executes the step. Returning an error stops the regular steps
	// unless the pipeline continues on error.
	Do(ctx context.Context, state *State) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps run in order until one fails or the context is cancelled.
	steps []Step

	// finalSteps always run after steps, with cancellation removed.
	finalSteps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError keeps running regular steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, a default logger is created.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalStep appends a step that runs after the regular steps no matter
// how they ended.
func (p *Pipeline) AddFinalStep(step Step) {
	p.finalSteps = append(p.finalSteps, step)
}

// Execute runs the regular steps in sequence, then the final steps.
// It returns the first error encountered, which is also kept in state.Err.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			p.fail(state, err)
			break
		}

		if err := p.run(ctx, step, state); err != nil && !p.continueOnError {
			break
		}
	}

	final := context.WithoutCancel(ctx)
	for _, step := range p.finalSteps {
		_ = p.run(final, step, state)
	}

	return state.Err
}

// run executes one step and records the outcome in state.
func (p *Pipeline) run(ctx context.Context, step Step, state *State) error {
	p.logger.Info("executing step",
		"step", step.Name(),
		"run_id", state.RunID,
	)

	err := step.Do(ctx, state)
	if err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"run_id", state.RunID,
			"error", err,
		)
		p.fail(state, err)
	} else {
		p.logger.Debug("step completed",
			"step", step.Name(),
			"run_id", state.RunID,
		)
	}

	state.PerformedSteps = append(state.PerformedSteps, step.Name())
	return err
}

func (p *Pipeline) fail(state *State, err error) {
	if state.Err == nil {
		state.Err = err
	}
}

// StepCount returns the number of steps in the pipeline, final steps included.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalSteps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalSteps {
		names = append(names, step.Name())
	}
	return names
}
