// Package output renders command results as tables.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/sec-edgar-client/pkg/download"
	"github.com/Sternrassler/sec-edgar-client/pkg/extract"
	"github.com/Sternrassler/sec-edgar-client/pkg/facts"
	"github.com/Sternrassler/sec-edgar-client/pkg/feed"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Batch renders a batch result, one row per entry.
func Batch(w io.Writer, title string, result download.BatchResult) {
	t := newTable(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Entry", "Status"})

	for _, entry := range result.Saved {
		t.AppendRow(table.Row{entry, "saved"})
	}
	for _, entry := range result.Skipped {
		t.AppendRow(table.Row{entry, "skipped"})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d saved, %d skipped", len(result.Saved), len(result.Skipped))})
	t.Render()
}

// Summary renders the outcome of an extraction run.
func Summary(w io.Writer, s extract.Summary) {
	t := newTable(w)
	t.SetTitle("Extraction " + s.RunID)
	t.AppendRows([]table.Row{
		{"Archive", s.Archive},
		{"Date", s.Date.Format("2006-01-02")},
		{"Workers", s.Workers},
		{"Written", s.Written},
		{"Existing", s.Existing},
		{"Failed", s.Failed},
	})
	if len(s.Failures) > 0 {
		t.AppendRow(table.Row{"Failures", strings.Join(s.Failures, "\n")})
	}
	t.Render()
}

// Facts renders the columns of a normalized table that match filter as
// rows, at most maxRows events each. An empty filter matches every column.
func Facts(w io.Writer, tbl *facts.Table, filter facts.Key, maxRows int) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s (%s)", tbl.EntityName, tbl.CIK))
	t.AppendHeader(table.Row{"Taxonomy", "Tag", "Unit", "Field", "Values"})

	for _, col := range tbl.Columns {
		if !matches(col.Key, filter) {
			continue
		}
		n := min(len(col.Cells), maxRows)
		if maxRows <= 0 {
			n = len(col.Cells)
		}
		values := make([]string, 0, n)
		for i := 0; i < n; i++ {
			if cell := col.Cell(i); !cell.Absent {
				values = append(values, cell.Value)
			} else {
				values = append(values, "-")
			}
		}
		t.AppendRow(table.Row{col.Key.Taxonomy, col.Key.Tag, col.Key.Unit, col.Key.Field, strings.Join(values, ", ")})
	}
	t.Render()
}

// Entry renders one feed entry as a single line.
func Entry(w io.Writer, e feed.Entry) {
	fmt.Fprintf(w, "%s  %-8s %-10s %s  %s\n",
		e.Updated.Format("2006-01-02 15:04:05"), e.Form, e.CIK, e.AccessionNumber, e.Title)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func matches(k, filter facts.Key) bool {
	return (filter.Taxonomy == "" || strings.EqualFold(k.Taxonomy, filter.Taxonomy)) &&
		(filter.Tag == "" || strings.EqualFold(k.Tag, filter.Tag)) &&
		(filter.Unit == "" || strings.EqualFold(k.Unit, filter.Unit)) &&
		(filter.Field == "" || strings.EqualFold(k.Field, filter.Field))
}
