package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitespider/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeOutcomes(md, run.Summary)
	w.writeKinds(md, run.Summary)
	w.writeResources(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *Run) {
	s := run.Summary

	md.H1("Crawl Report")
	md.PlainText("")

	rows := [][]string{
		{"Run ID", "`" + s.ID + "`"},
		{"Seed", "`" + s.SeedURL + "`"},
	}
	if run.OutputDir != "" {
		rows = append(rows, []string{"Output", "`" + run.OutputDir + "`"})
	}
	rows = append(rows,
		[]string{"Started", formatTime(s.StartedAt)},
		[]string{"Duration", s.Duration().Round(time.Millisecond).String()},
		[]string{"Max Depth", strconv.Itoa(s.MaxDepth)},
		[]string{"Generations", strconv.Itoa(s.Generations)},
		[]string{"Visited", strconv.Itoa(s.Visited)},
		[]string{"Discovered", strconv.Itoa(s.Discovered)},
	)
	if s.Archive != "" {
		rows = append(rows, []string{"Archive", "`" + s.Archive + "`"})
	}
	rows = append(rows, []string{"Status", statusText(s)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeOutcomes writes the outcome table and an alert.
func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, s *model.RunSummary) {
	md.H2("Outcomes")
	md.PlainText("")

	rows := make([][]string, 0, len(model.Outcomes)+1)
	for _, o := range model.Outcomes {
		rows = append(rows, []string{o.String(), strconv.Itoa(s.Outcomes[o])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(s.Total()) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeAlert(md, s)
}

// writeAlert writes an alert matching how the run went.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.RunSummary) {
	failed := s.Outcomes[model.OutcomeFetchFailed] + s.Outcomes[model.OutcomeExtractFailed]

	switch {
	case s.Total() > 0 && s.Saved() == 0 && s.Outcomes[model.OutcomeCached] == 0:
		md.Cautionf("Nothing was saved. %d resource(s) were processed without an artifact.", s.Total())
	case failed > 0:
		md.Warningf("%d resource(s) failed to fetch or save. See the errors log for details.", failed)
	case s.Outcomes[model.OutcomeHTTPError] > 0:
		md.Importantf("%d resource(s) answered with an error status.", s.Outcomes[model.OutcomeHTTPError])
	case s.Total() == 0:
		md.Note("No resource was processed.")
	default:
		md.Tip("Every resource was saved.")
	}
	md.PlainText("")
}

// writeKinds writes the kind distribution of saved resources.
func (w *MarkdownWriter) writeKinds(md *markdown.Markdown, s *model.RunSummary) {
	if len(s.Kinds) == 0 {
		return
	}

	md.H2("Saved Resources")
	md.PlainText("")

	kinds := []model.Kind{model.KindMarkup, model.KindDocument, model.KindArchive}
	rows := make([][]string, 0, len(kinds))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Saved resources by kind"),
		piechart.WithShowData(true),
	)
	for _, k := range kinds {
		n := s.Kinds[k]
		rows = append(rows, []string{k.String(), strconv.Itoa(n)})
		if n > 0 {
			chart.LabelAndIntValue(k.String(), uint64(n))
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeResources writes the resource table and the problem details.
func (w *MarkdownWriter) writeResources(md *markdown.Markdown, run *Run) {
	if len(run.Resources) == 0 {
		return
	}

	md.H2("Resources")
	md.PlainText("")

	rows := make([][]string, len(run.Resources))
	for i, r := range run.Resources {
		status := "-"
		if r.StatusCode != 0 {
			status = strconv.Itoa(r.StatusCode)
		}
		rows[i] = []string{
			truncateString(r.URL, 60),
			strconv.Itoa(r.Generation),
			r.Kind.String(),
			r.Outcome.String(),
			status,
			strconv.Itoa(r.Links),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Generation", "Kind", "Outcome", "Status", "Links"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range run.Problems() {
		if r.Error != "" {
			md.Details(r.URL, r.Error)
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by sitespider*")
}
