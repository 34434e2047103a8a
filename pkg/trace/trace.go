// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package trace records the execution of a scheduler run, one event per executed task, and offers
// checks and exports (CSV, Gantt chart) on the recorded events.
//
// Each worker appends only to its own event slice, so recording takes no locks. Reading the events
// is only safe after the run finished.
package trace

import (
	"cmp"
	"slices"
	"time"

	"github.com/pkg/errors"
)

// Event describes one executed task.
type Event struct {
	Worker int
	Kind   string

	// Row, Col is the tile coordinate.
	Row, Col int

	// Pivots and columns touched, as half-open ranges.
	PivotStart, PivotEnd int
	ColStart, ColEnd     int

	// Start and End are measured from the start of the run.
	Start, End time.Duration
}

// Duration of the task.
func (e Event) Duration() time.Duration { return e.End - e.Start }

// overlapsInTime uses strict inequalities: a task that starts exactly when another ends is ordered after it.
func (e Event) overlapsInTime(o Event) bool {
	return e.Start < o.End && o.Start < e.End
}

func (e Event) overlapsInColumns(o Event) bool {
	return e.ColStart < o.ColEnd && o.ColStart < e.ColEnd
}

// Recorder collects events. Create it with New, and pass it to the scheduler, which calls Reset
// once the number of workers is known.
type Recorder struct {
	RunID     string
	start     time.Time
	perWorker [][]Event
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{}
}

// Reset discards previous events and prepares the recorder for a run with numWorkers workers.
func (r *Recorder) Reset(runID string, numWorkers int) {
	r.RunID = runID
	r.start = time.Now()
	r.perWorker = make([][]Event, numWorkers)
}

// Now returns the time elapsed since Reset.
func (r *Recorder) Now() time.Duration {
	return time.Since(r.start)
}

// Record appends an event for the given worker. Only the goroutine of that worker may call it.
func (r *Recorder) Record(e Event) {
	r.perWorker[e.Worker] = append(r.perWorker[e.Worker], e)
}

// NumWorkers returns the number of workers of the last run.
func (r *Recorder) NumWorkers() int {
	return len(r.perWorker)
}

// Events returns all events sorted by start time.
func (r *Recorder) Events() []Event {
	var all []Event
	for _, events := range r.perWorker {
		all = append(all, events...)
	}
	slices.SortFunc(all, func(a, b Event) int {
		if a.Start != b.Start {
			return cmp.Compare(a.Start, b.Start)
		}
		return cmp.Compare(a.Worker, b.Worker)
	})
	return all
}

// Makespan returns the end of the last event.
func (r *Recorder) Makespan() time.Duration {
	var end time.Duration
	for _, events := range r.perWorker {
		for _, e := range events {
			end = max(end, e.End)
		}
	}
	return end
}

// MaxConcurrency returns the largest number of tasks that were running at the same time.
func (r *Recorder) MaxConcurrency() int {
	type edge struct {
		at    time.Duration
		delta int
	}
	var edges []edge
	for _, events := range r.perWorker {
		for _, e := range events {
			edges = append(edges, edge{e.Start, 1}, edge{e.End, -1})
		}
	}
	// Ends sort before starts at the same instant.
	slices.SortFunc(edges, func(a, b edge) int {
		if a.at != b.at {
			return cmp.Compare(a.at, b.at)
		}
		return cmp.Compare(a.delta, b.delta)
	})
	var running, best int
	for _, e := range edges {
		running += e.delta
		best = max(best, running)
	}
	return best
}

// CheckDisjointColumns verifies that no two tasks running at the same time wrote overlapping column
// ranges. It returns an error describing the first offending pair.
func (r *Recorder) CheckDisjointColumns() error {
	events := r.Events()
	for i, a := range events {
		for _, b := range events[i+1:] {
			if b.Start >= a.End {
				// Sorted by start: no later event overlaps a in time.
				break
			}
			if a.overlapsInTime(b) && a.overlapsInColumns(b) {
				return errors.Errorf("tasks %s(%d, %d) on worker %d and %s(%d, %d) on worker %d ran concurrently "+
					"on overlapping columns [%d, %d) and [%d, %d)",
					a.Kind, a.Row, a.Col, a.Worker, b.Kind, b.Row, b.Col, b.Worker,
					a.ColStart, a.ColEnd, b.ColStart, b.ColEnd)
			}
		}
	}
	return nil
}
