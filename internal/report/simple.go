package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/sitespider/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether zero counts are listed.
	showEmpty bool

	// verbose lists every resource instead of only the problems.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to list zero counts.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose lists every resource of the run.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run in human-readable format.
func (w *SimpleWriter) Write(run *Run) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeOutcomes(&sb, run.Summary)
	w.writeKinds(&sb, run.Summary)
	w.writeResources(&sb, run)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the run properties.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *Run) {
	s := run.Summary

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       SITESPIDER CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:       %s\n", s.ID)
	fmt.Fprintf(sb, "Seed:         %s\n", s.SeedURL)
	if run.OutputDir != "" {
		fmt.Fprintf(sb, "Output:       %s\n", run.OutputDir)
	}
	fmt.Fprintf(sb, "Started:      %s\n", formatTime(s.StartedAt))
	fmt.Fprintf(sb, "Duration:     %s\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Max Depth:    %d\n", s.MaxDepth)
	fmt.Fprintf(sb, "Generations:  %d\n", s.Generations)
	fmt.Fprintf(sb, "Visited:      %d\n", s.Visited)
	fmt.Fprintf(sb, "Discovered:   %d\n", s.Discovered)
	if s.Archive != "" {
		fmt.Fprintf(sb, "Archive:      %s\n", s.Archive)
	}
	fmt.Fprintf(sb, "Status:       %s\n", statusText(s))
	sb.WriteString("\n")
}

// writeOutcomes writes the per-outcome counts.
func (w *SimpleWriter) writeOutcomes(sb *strings.Builder, s *model.RunSummary) {
	section(sb, "OUTCOMES")

	for _, o := range model.Outcomes {
		n := s.Outcomes[o]
		if n == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  %-16s %d\n", strings.ToUpper(o.String())+":", n)
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  %-16s %d resources\n", "TOTAL:", s.Total())
	sb.WriteString("\n")
}

// writeKinds writes the per-kind counts of saved resources.
func (w *SimpleWriter) writeKinds(sb *strings.Builder, s *model.RunSummary) {
	if len(s.Kinds) == 0 && !w.showEmpty {
		return
	}

	section(sb, "SAVED BY KIND")

	for _, k := range []model.Kind{model.KindMarkup, model.KindDocument, model.KindArchive} {
		n := s.Kinds[k]
		if n == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  %-16s %d\n", strings.ToUpper(k.String())+":", n)
	}
	sb.WriteString("\n")
}

// writeResources lists the problems, or every resource in verbose mode.
func (w *SimpleWriter) writeResources(sb *strings.Builder, run *Run) {
	resources := run.Problems()
	title := "PROBLEMS"
	if w.verbose {
		resources = run.Resources
		title = "RESOURCES"
	}
	if len(resources) == 0 {
		return
	}

	section(sb, title)

	for _, r := range resources {
		fmt.Fprintf(sb, "  [%s] %s\n", r.Outcome.String(), r.URL)
		if r.StatusCode != 0 {
			fmt.Fprintf(sb, "    Status: %d\n", r.StatusCode)
		}
		if r.ContentType != "" {
			fmt.Fprintf(sb, "    Content-Type: %s\n", r.ContentType)
		}
		if r.Error != "" {
			fmt.Fprintf(sb, "    Error: %s\n", r.Error)
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
