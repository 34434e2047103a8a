// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// RefreshPeriod is the time between terminal updates.
var RefreshPeriod = 200 * time.Millisecond

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
var ProgressbarStyle = progressbar.ThemeASCII

// ProgressBar displays the progress of a factorization. Its OnTaskDone method is meant to be used as
// qr.Config.OnTaskDone: it only records the count, and the terminal is redrawn asynchronously every
// RefreshPeriod, so the workers are never slowed down by the terminal.
type ProgressBar struct {
	out   io.Writer
	start time.Time

	done, total atomic.Int64

	bar           *progressbar.ProgressBar
	termenv       *termenv.Output
	statsStyle    lipgloss.Style
	statsTable    *lgtable.Table
	isFirstOutput bool

	stop     chan struct{}
	stopOnce sync.Once
	drawn    sync.WaitGroup
}

// NewProgressBar creates a progress bar writing to os.Stdout, and starts its drawing goroutine.
// Call Finish when the run is over.
func NewProgressBar() *ProgressBar {
	return newProgressBar(os.Stdout)
}

func newProgressBar(out io.Writer) *ProgressBar {
	pBar := &ProgressBar{
		out:           out,
		start:         time.Now(),
		termenv:       termenv.NewOutput(out),
		statsStyle:    lipgloss.NewStyle().PaddingLeft(8),
		statsTable:    newTable(),
		isFirstOutput: true,
		stop:          make(chan struct{}),
	}
	pBar.drawn.Add(1)
	go pBar.drawLoop()
	return pBar
}

// OnTaskDone records the progress. It is safe for concurrent use and never blocks.
func (pBar *ProgressBar) OnTaskDone(done, total int) {
	pBar.total.Store(int64(total))
	for {
		current := pBar.done.Load()
		if int64(done) <= current || pBar.done.CompareAndSwap(current, int64(done)) {
			return
		}
	}
}

// Done returns the number of completed tasks recorded so far.
func (pBar *ProgressBar) Done() int {
	return int(pBar.done.Load())
}

// Finish draws the final state and stops the drawing goroutine. It is idempotent.
func (pBar *ProgressBar) Finish() {
	pBar.stopOnce.Do(func() { close(pBar.stop) })
	pBar.drawn.Wait()
}

func (pBar *ProgressBar) drawLoop() {
	defer pBar.drawn.Done()
	ticker := time.NewTicker(RefreshPeriod)
	defer ticker.Stop()
	var lastDrawn int64 = -1
	for {
		select {
		case <-pBar.stop:
			pBar.draw(lastDrawn)
			if pBar.bar != nil {
				_ = pBar.bar.Finish()
			}
			pBar.termenv.ShowCursor()
			_, _ = fmt.Fprintln(pBar.out)
			return
		case <-ticker.C:
			lastDrawn = pBar.draw(lastDrawn)
		}
	}
}

// draw prints the stats table and the bar if the count changed since lastDrawn. It returns the count drawn.
func (pBar *ProgressBar) draw(lastDrawn int64) int64 {
	done, total := pBar.done.Load(), pBar.total.Load()
	if total == 0 || done == lastDrawn {
		return lastDrawn
	}
	if pBar.bar == nil {
		pBar.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetDescription("      [bold]"),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("tasks"),
			progressbar.OptionSetTheme(ProgressbarStyle),
			progressbar.OptionSetWriter(pBar.out),
		)
	}

	elapsed := time.Since(pBar.start)
	pBar.statsTable.Data(lgtable.NewStringData())
	pBar.statsTable.Row("Tasks", fmt.Sprintf("%s of %s", humanize.Comma(done), humanize.Comma(total)))
	pBar.statsTable.Row("Elapsed", FormatDuration(elapsed))
	if seconds := elapsed.Seconds(); seconds > 0 {
		pBar.statsTable.Row("Rate", humanize.SIWithDigits(float64(done)/seconds, 1, "tasks/s"))
	}

	// Clear the previous lines that will be overwritten.
	pBar.termenv.HideCursor()
	if !pBar.isFirstOutput {
		pBar.termenv.CursorPrevLine(numStatsRows + 2 + 1)
	}
	pBar.isFirstOutput = false
	_, _ = fmt.Fprintln(pBar.out, pBar.statsStyle.Render(pBar.statsTable.String()))
	_ = pBar.bar.Set64(done)
	_, _ = fmt.Fprintln(pBar.out)
	return done
}

// numStatsRows is the number of rows of the stats table drawn above the bar.
const numStatsRows = 3
