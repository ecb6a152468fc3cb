package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/codealong/pkg/safeconv"
	"github.com/Sumatoshi-tech/codealong/pkg/workstats"
)

const dateLayout = "2006-01-02"

var statsHeader = table.Row{"New", "Legacy", "Help", "Churn", "Other", "Impact"}

// TableOptions tunes RenderTable.
type TableOptions struct {
	// MaxAuthors limits the author table; zero shows everyone.
	MaxAuthors int
}

// RenderTable writes the run totals, the per-author table and the per-tag
// table to w.
func RenderTable(w io.Writer, s *Summary, o TableOptions) error {
	heading := color.New(color.Bold, color.FgCyan).SprintFunc()

	if s.Commits == 0 {
		_, err := fmt.Fprintln(w, "No commits analyzed")

		return err
	}

	_, err := fmt.Fprintf(w, "%s %s commits (%s merges), %s to %s\n\n",
		heading("Analyzed"),
		humanize.Comma(int64(s.Commits)),
		humanize.Comma(int64(s.Merges)),
		s.First.Format(dateLayout),
		s.Last.Format(dateLayout),
	)
	if err != nil {
		return err
	}

	authors := s.Authors()
	if o.MaxAuthors > 0 && len(authors) > o.MaxAuthors {
		authors = authors[:o.MaxAuthors]
	}

	byAuthor := newTable(append(table.Row{"Author", "Commits"}, statsHeader...))
	for _, a := range authors {
		byAuthor.AppendRow(append(table.Row{a.ID, humanize.Comma(int64(a.Commits))}, statsRow(a.Stats)...))
	}

	byAuthor.AppendFooter(append(table.Row{"Total", humanize.Comma(int64(s.Commits))}, statsRow(s.Totals.WorkStats)...))

	_, err = fmt.Fprintf(w, "%s\n%s\n\n", heading("By author"), byAuthor.Render())
	if err != nil {
		return err
	}

	tags := s.Tags()
	if len(tags) == 0 {
		return nil
	}

	byTag := newTable(append(table.Row{"Tag"}, statsHeader...))
	for _, tag := range tags {
		byTag.AppendRow(append(table.Row{tag}, statsRow(s.Totals.Tag(tag))...))
	}

	_, err = fmt.Fprintf(w, "%s\n%s\n", heading("By tag"), byTag.Render())

	return err
}

func newTable(header table.Row) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.AppendHeader(header)

	return tbl
}

func statsRow(ws workstats.WorkStats) table.Row {
	return table.Row{
		comma(ws.NewWork),
		comma(ws.LegacyRefactor),
		comma(ws.HelpOthers),
		comma(ws.Churn),
		comma(ws.Other),
		comma(ws.Impact),
	}
}

func comma(n uint64) string {
	return humanize.Comma(safeconv.Uint64ToInt64(n))
}
