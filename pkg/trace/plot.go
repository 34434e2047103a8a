// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package trace

import (
	"fmt"
	"image/color"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// kindColors used in the Gantt chart; unknown kinds are drawn in gray.
var kindColors = map[string]color.Color{
	"panel":  color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	"update": color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
}

// WritePlot renders a Gantt chart of the run, one horizontal lane per worker and one bar per task,
// to filePath. The format is taken from the file extension (.png, .svg, .pdf, ...).
func (r *Recorder) WritePlot(filePath string) error {
	p := plot.New()
	p.Title.Text = "Task schedule"
	if r.RunID != "" {
		p.Title.Text = fmt.Sprintf("Task schedule (run %s)", r.RunID)
	}
	p.X.Label.Text = "time (ms)"
	p.Y.Label.Text = "worker"
	p.Y.Min = -1
	p.Y.Max = float64(r.NumWorkers())

	legendDone := make(map[string]bool)
	for _, e := range r.Events() {
		line, err := plotter.NewLine(plotter.XYs{
			{X: milliseconds(e.Start), Y: float64(e.Worker)},
			{X: milliseconds(e.End), Y: float64(e.Worker)},
		})
		if err != nil {
			return errors.Wrapf(err, "failed to create line for task %s(%d, %d)", e.Kind, e.Row, e.Col)
		}
		c, found := kindColors[e.Kind]
		if !found {
			c = color.Gray{Y: 0x80}
		}
		line.Color = c
		line.Width = vg.Points(8)
		p.Add(line)
		if !legendDone[e.Kind] {
			p.Legend.Add(e.Kind, line)
			legendDone[e.Kind] = true
		}
	}
	p.Legend.Top = true

	height := vg.Length(2+r.NumWorkers()/2) * vg.Inch
	if err := p.Save(12*vg.Inch, height, filePath); err != nil {
		return errors.Wrapf(err, "failed to save trace plot to %q", filePath)
	}
	return nil
}

func milliseconds(d time.Duration) float64 {
	return d.Seconds() * 1000
}
