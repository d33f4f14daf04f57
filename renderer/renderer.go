// Package renderer turns holdings, diffs and events into markdown reports.
//
// Each report is a view struct, built from the domain objects with its New
// function, and rendered by a text/template assembled from embedded partials.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templatesFS embed.FS

var templates, _ = fs.Sub(templatesFS, "templates")

// DiffOptions holds configuration for rendering a diff report.
type DiffOptions struct {
	HideUnchanged bool // Do not list the positions that did not change.
}

// RenderDiff renders the comparison of two snapshots.
func RenderDiff(d *Diff) string {
	partials := map[string]string{
		"diff_title":   "diff_title.md",
		"diff_summary": "diff_summary.md",
		"diff_changes": "diff_changes.md",
		"warnings":     "warnings.md",
	}
	return renderTemplate("diff", "diff.md", partials, d)
}

// RenderHoldings renders the positions of a snapshot.
func RenderHoldings(h *Holdings) string {
	partials := map[string]string{
		"warnings": "warnings.md",
	}
	return renderTemplate("holdings", "holdings.md", partials, h)
}

// RenderStock renders the positions of the funds in one security.
func RenderStock(s *Stock) string {
	return renderTemplate("stock", "stock.md", nil, s)
}

// RenderEvents renders the event filings of a fund.
func RenderEvents(e *Events) string {
	return renderTemplate("events", "events.md", nil, e)
}

// RenderRun renders the outcome of an ingestion run.
func RenderRun(r *Run) string {
	partials := map[string]string{
		"run_unattributed": "run_unattributed.md",
	}
	return renderTemplate("run", "run.md", partials, r)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name results in an empty template.
		if file != "" {
			content, err = fs.ReadFile(templates, file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}

// cell escapes text for a markdown table cell.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
