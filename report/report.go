// Package report groups findings per assessment category for presentation
// and flattens them into rows for export.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/eantrace/eantrace/models"
)

// previewLen caps the snippet preview length in the rendered summary.
const previewLen = 200

// Report is the aggregated view of one run's result set. Findings from
// different source URLs are never merged, even when identical.
type Report struct {
	Code   string
	Groups map[models.Assessment][]models.Finding
	Stats  models.RunStats
}

// Aggregate builds the per-category grouping from a complete result set.
func Aggregate(rs *models.ResultSet) *Report {
	r := &Report{
		Code:   rs.Code,
		Groups: make(map[models.Assessment][]models.Finding, len(models.AssessmentOrder)),
		Stats:  rs.Stats,
	}
	for _, src := range rs.Sources {
		for _, f := range src.Findings {
			r.Groups[f.Assessment] = append(r.Groups[f.Assessment], f)
		}
	}
	return r
}

// Total counts findings across all categories.
func (r *Report) Total() int {
	n := 0
	for _, findings := range r.Groups {
		n += len(findings)
	}
	return n
}

// Rows flattens the report into one export row per finding, in the fixed
// category order.
func (r *Report) Rows() []models.ExportRow {
	rows := make([]models.ExportRow, 0, r.Total())
	for _, assessment := range models.AssessmentOrder {
		for _, f := range r.Groups[assessment] {
			rows = append(rows, models.ExportRow{
				Code:        r.Code,
				URL:         f.SourceURL,
				ProductName: f.ProductName,
				DateClue:    f.DateClue,
				Assessment:  string(f.Assessment),
				Snippet:     f.Snippet,
			})
		}
	}
	return rows
}

// Render writes the human-readable summary: totals, per-category counts and
// detailed findings with capped snippet previews.
func (r *Report) Render(w io.Writer) {
	separator := strings.Repeat("=", 50)

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Results for EAN %s\n", r.Code)
	fmt.Fprintln(w, separator)

	if r.Total() == 0 {
		fmt.Fprintln(w, "No results found for the given code.")
		fmt.Fprintln(w, "Possible reasons:")
		fmt.Fprintln(w, "- the code is not common in public sources")
		fmt.Fprintln(w, "- no historical information is available online")
		fmt.Fprintln(w, "- the sources holding it are not reachable by scraping")
		return
	}

	fmt.Fprintf(w, "Total findings: %d\n", r.Total())
	for _, assessment := range models.AssessmentOrder {
		fmt.Fprintf(w, "- %s: %d\n", assessment, len(r.Groups[assessment]))
	}

	for _, assessment := range models.AssessmentOrder {
		findings := r.Groups[assessment]
		if len(findings) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s findings:\n", strings.ToUpper(string(assessment)))
		fmt.Fprintln(w, strings.Repeat("-", 50))
		for i, f := range findings {
			fmt.Fprintf(w, "Finding #%d:\n", i+1)
			fmt.Fprintf(w, "  URL:       %s\n", f.SourceURL)
			fmt.Fprintf(w, "  Product:   %s\n", f.ProductName)
			fmt.Fprintf(w, "  Date clue: %s\n", f.DateClue)
			fmt.Fprintf(w, "  Snippet:   %q\n", preview(f.Snippet, previewLen))
			fmt.Fprintln(w, strings.Repeat("-", 50))
		}
	}
}

// RenderStats writes the run statistics block.
func (r *Report) RenderStats(w io.Writer) {
	fmt.Fprintf(w, "  Terms:     %d\n", r.Stats.TermCount)
	fmt.Fprintf(w, "  URLs:      %d\n", r.Stats.URLCount)
	fmt.Fprintf(w, "  Findings:  %d\n", r.Stats.FindingCount)
	fmt.Fprintf(w, "  Dropped:   %d\n", r.Stats.ErrorCount)
	fmt.Fprintf(w, "  Retries:   %d\n", r.Stats.RetryCount)
	fmt.Fprintf(w, "  Elapsed:   %.2fs\n", r.Stats.Elapsed().Seconds())
}

// preview truncates on rune boundaries.
func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
