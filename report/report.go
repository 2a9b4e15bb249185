// Package report renders the per-policy benchmark results as a table.
package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Cell is the displayable result of one workload run. Multi-worker cells
// carry the worker spread next to the total.
type Cell struct {
	Single bool
	Min    float64
	Max    float64
	Sum    float64
}

func (c Cell) String() string {
	if c.Single {
		return fmt.Sprintf("%.1f MiB/s", c.Sum)
	}
	return fmt.Sprintf("%.1f MiB/s (%.1f-%.1f MiB/s)", c.Sum, c.Min, c.Max)
}

// Row is the result of benchmarking one read policy under the four workload
// shapes. Rows are emitted in policy iteration order and never reordered.
type Row struct {
	Policy     string
	SeqSingle  Cell
	SeqMulti   Cell
	RandSingle Cell
	RandMulti  Cell
}

// Render writes the rows as a table. nthreads is the worker count of the
// multi-threaded runs, shown in the headers.
func Render(w io.Writer, rows []Row, nthreads int) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{
		"policy",
		"seqread (1 thread)",
		fmt.Sprintf("seqread (%d threads)", nthreads),
		"randread (1 thread)",
		fmt.Sprintf("randread (%d threads)", nthreads),
	})
	for _, row := range rows {
		table.Append([]string{
			row.Policy,
			row.SeqSingle.String(),
			row.SeqMulti.String(),
			row.RandSingle.String(),
			row.RandMulti.String(),
		})
	}
	table.Render()
}
