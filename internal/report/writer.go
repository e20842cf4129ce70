package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/sitespider/internal/model"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Format names accepted by NewWriter.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Run is everything a report is rendered from.
type Run struct {
	// Summary holds the run statistics. Required.
	Summary *model.RunSummary `json:"summary"`

	// OutputDir is the output root of the run.
	OutputDir string `json:"output_dir,omitempty"`

	// Resources lists processed URLs. Optional; writers omit the resource
	// section when it is empty.
	Resources []*model.Resource `json:"resources,omitempty"`
}

// Problems returns the resources whose processing did not end in a saved
// or cached artifact.
func (r *Run) Problems() []*model.Resource {
	var problems []*model.Resource
	for _, res := range r.Resources {
		if res.Outcome != model.OutcomeSaved && res.Outcome != model.OutcomeCached {
			problems = append(problems, res)
		}
	}
	return problems
}

// Writer defines the interface for report output.
type Writer interface {
	// Write renders the run to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(run *Run) (int, error)
}

// MultiWriter writes to multiple Writers, e.g. the terminal and a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// NewWriter returns the writer for format. verbose only affects the text
// format; version is embedded in JSON output.
func NewWriter(format string, output io.Writer, verbose bool, version string) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewSimpleWriter(output, WithVerbose(verbose)), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes how the run ended.
func statusText(s *model.RunSummary) string {
	switch {
	case s.FinishedAt.IsZero():
		return "Incomplete"
	case s.Total() == 0:
		return "Nothing processed"
	case s.Saved() == 0 && s.Outcomes[model.OutcomeCached] == 0:
		return "Nothing saved"
	default:
		return "Complete"
	}
}

// formatTime renders t for reports, or "-" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
