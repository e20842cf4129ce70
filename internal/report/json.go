package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/sitespider/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is embedded in the output when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion embeds the program version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport is the document written by JSONWriter. Outcome and kind
// counts are keyed by name.
type JSONReport struct {
	Version     string          `json:"version,omitempty"`
	RunID       string          `json:"run_id"`
	SeedURL     string          `json:"seed_url"`
	OutputDir   string          `json:"output_dir,omitempty"`
	MaxDepth    int             `json:"max_depth"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	DurationMS  int64           `json:"duration_ms"`
	Generations int             `json:"generations"`
	Visited     int             `json:"visited"`
	Discovered  int             `json:"discovered"`
	Archive     string          `json:"archive,omitempty"`
	Status      string          `json:"status"`
	Outcomes    map[string]int  `json:"outcomes"`
	Kinds       map[string]int  `json:"kinds"`
	Resources   []*JSONResource `json:"resources,omitempty"`
}

// JSONResource is one resource in a JSONReport.
type JSONResource struct {
	URL         string    `json:"url"`
	ID          string    `json:"id"`
	Generation  int       `json:"generation"`
	Kind        string    `json:"kind"`
	ContentType string    `json:"content_type,omitempty"`
	StatusCode  int       `json:"status_code,omitempty"`
	Outcome     string    `json:"outcome"`
	Links       int       `json:"links"`
	Size        int       `json:"size"`
	Digest      string    `json:"digest,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// NewJSONReport converts run into its JSON document.
func NewJSONReport(run *Run, version string) *JSONReport {
	s := run.Summary
	report := &JSONReport{
		Version:     version,
		RunID:       s.ID,
		SeedURL:     s.SeedURL,
		OutputDir:   run.OutputDir,
		MaxDepth:    s.MaxDepth,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		DurationMS:  s.Duration().Milliseconds(),
		Generations: s.Generations,
		Visited:     s.Visited,
		Discovered:  s.Discovered,
		Archive:     s.Archive,
		Status:      statusText(s),
		Outcomes:    make(map[string]int, len(s.Outcomes)),
		Kinds:       make(map[string]int, len(s.Kinds)),
	}
	for o, n := range s.Outcomes {
		report.Outcomes[o.String()] = n
	}
	for k, n := range s.Kinds {
		report.Kinds[k.String()] = n
	}
	for _, r := range run.Resources {
		report.Resources = append(report.Resources, newJSONResource(r))
	}
	return report
}

func newJSONResource(r *model.Resource) *JSONResource {
	return &JSONResource{
		URL:         r.URL,
		ID:          r.ID,
		Generation:  r.Generation,
		Kind:        r.Kind.String(),
		ContentType: r.ContentType,
		StatusCode:  r.StatusCode,
		Outcome:     r.Outcome.String(),
		Links:       r.Links,
		Size:        r.Size,
		Digest:      r.Digest,
		Error:       r.Error,
		DurationMS:  r.Duration.Milliseconds(),
		FetchedAt:   r.FetchedAt,
	}
}

// Write outputs the run in JSON format.
func (w *JSONWriter) Write(run *Run) (int, error) {
	return w.writeJSON(NewJSONReport(run, w.version))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal output.
	data = append(data, '\n')

	return w.output.Write(data)
}
