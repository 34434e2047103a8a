// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline contains the terminal UI of the dagqr tool: a progress bar fed by the
// scheduler's task completions, and a summary report of a factorization run.
package commandline

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/dagqr/pkg/qr"
)

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	titleStyle        = lipgloss.NewStyle().Bold(true)
	tableBorderColor  = "#705090"
)

func newTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return normalStyle
		})
}

// Flops is the number of floating point operations of a Householder QR of an n×n matrix, 4n³/3.
func Flops(n int) float64 {
	fn := float64(n)
	return 4 * fn * fn * fn / 3
}

// Report renders the statistics of a run as a table. Pass a negative residual if it was not
// computed.
func Report(stats qr.Stats, residual float64) string {
	table := newTable()
	table.Row("Run", stats.RunID)
	table.Row("Matrix", fmt.Sprintf("%s × %s", humanize.Comma(int64(stats.Dim)), humanize.Comma(int64(stats.Dim))))
	table.Row("Tile grid", fmt.Sprintf("%d × %d (ratio %d)", stats.GridRows, stats.GridCols, stats.Ratio))
	table.Row("Tasks", humanize.Comma(int64(stats.NumTasks)))
	table.Row("Workers", fmt.Sprintf("%d", stats.NumWorkers))
	table.Row("Elapsed", FormatDuration(stats.Elapsed))
	if seconds := stats.Elapsed.Seconds(); seconds > 0 {
		table.Row("Throughput", humanize.SIWithDigits(Flops(stats.Dim)/seconds, 2, "flop/s"))
	}
	table.Row("Promotions / re-queues", fmt.Sprintf("%s / %s",
		humanize.Comma(int64(stats.Promoted())), humanize.Comma(int64(stats.Requeued()))))
	if stats.Elapsed > 0 && stats.NumWorkers > 0 {
		utilization := stats.Busy().Seconds() / (stats.Elapsed.Seconds() * float64(stats.NumWorkers))
		table.Row("Worker utilization", fmt.Sprintf("%.1f%%", 100*utilization))
	}
	if residual >= 0 {
		table.Row("‖A − QR‖ / ‖A‖", fmt.Sprintf("%.3g", residual))
	}
	return table.String()
}

// WorkersReport renders one line per worker: tasks executed and time spent in the kernels.
func WorkersReport(stats qr.Stats) string {
	table := newTable().Headers("Worker", "Tasks", "Panels", "Updates", "Busy")
	for idx, w := range stats.Workers {
		table.Row(fmt.Sprintf("#%d", idx), humanize.Comma(int64(w.Executed)),
			humanize.Comma(int64(w.Panels)), humanize.Comma(int64(w.Updates)), FormatDuration(w.Busy))
	}
	return table.String()
}

// PrintReport writes a titled Report, and the WorkersReport if perWorker is set, to w.
func PrintReport(w io.Writer, stats qr.Stats, residual float64, perWorker bool) {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("QR factorization"))
	sb.WriteByte('\n')
	sb.WriteString(Report(stats, residual))
	sb.WriteByte('\n')
	if perWorker {
		sb.WriteString(WorkersReport(stats))
		sb.WriteByte('\n')
	}
	_, _ = io.WriteString(w, sb.String())
}
