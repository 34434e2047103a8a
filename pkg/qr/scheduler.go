// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package qr

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gomlx/dagqr/pkg/core/completion"
	"github.com/gomlx/dagqr/pkg/core/dense"
	"github.com/gomlx/dagqr/pkg/core/householder"
	"github.com/gomlx/dagqr/pkg/core/queues"
	"github.com/gomlx/dagqr/pkg/core/tiling"
	"github.com/gomlx/dagqr/pkg/support/xsync"
	"github.com/gomlx/dagqr/pkg/trace"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// scheduler is the state shared by all workers of one run. Nothing in it is global: a new one is
// created per Factorize call and passed to every worker.
type scheduler struct {
	cfg    Config
	runID  string
	a      *dense.Matrix
	scales *householder.Scales

	table      *tiling.Table
	completion *completion.Table
	ready      queues.Queue[tiling.Task]
	wait       queues.Queue[tiling.Task]

	numDone  atomic.Int64
	finished *xsync.Latch

	// epoch is advanced after every task completion; only used by IdleNotify.
	epoch *xsync.Epoch

	workers []WorkerStats

	abortOnce sync.Once
	abortErr  error
}

func newScheduler(a *dense.Matrix, cfg Config, runID string) (*scheduler, error) {
	table, err := tiling.New(cfg.tilingConfig(a.Rows))
	if err != nil {
		return nil, err
	}
	s := &scheduler{
		cfg:        cfg,
		runID:      runID,
		a:          a,
		scales:     householder.NewScales(a.Rows),
		table:      table,
		completion: completion.New(table.Rows(), table.Cols()),
		finished:   xsync.NewLatch(),
		epoch:      xsync.NewEpoch(),
		workers:    make([]WorkerStats, cfg.NumWorkers),
	}

	// Each task is held by at most one queue at a time, so NumTasks bounds both queues.
	capacity := table.NumTasks()
	if cfg.Ordering == OrderingPriority {
		s.ready = queues.NewPriority(capacity, func(t tiling.Task) int { return t.Descriptor().Priority })
	} else {
		s.ready = queues.NewFIFO[tiling.Task](capacity)
	}
	s.wait = queues.NewFIFO[tiling.Task](capacity)

	// Tiles without work are complete from the start.
	for i := range table.Rows() {
		for j := range table.Cols() {
			if !table.HasWork(i, j) {
				s.completion.Set(i, j)
			}
		}
	}
	return s, nil
}

// run seeds the DAG with the first panel task and runs the workers until all tasks completed, or
// a worker panicked.
func (s *scheduler) run(launch func(worker func(workerIdx int))) error {
	if s.cfg.Trace != nil {
		s.cfg.Trace.Reset(s.runID, s.cfg.NumWorkers)
	}
	s.ready.Push(s.table.Seed())
	launch(s.work)
	return s.abortErr
}

// work is the loop of one worker. It never blocks, except for IdleNotify when there is nothing to do.
func (s *scheduler) work(workerIdx int) {
	err := exceptions.TryCatch[error](func() {
		stats := &s.workers[workerIdx]
		for {
			var seen uint64
			if s.cfg.Idle == IdleNotify {
				seen = s.epoch.Current()
			}
			progressed := false

			// 1. Run one ready task.
			if task, ok := s.ready.TryPop(); ok {
				s.execute(workerIdx, task)
				progressed = true
			}

			// 2. Re-examine waiting tasks. Before parking, the whole wait queue must be swept, otherwise
			// a waiting task whose dependency completed before `seen` could be left behind.
			numChecks := 1
			if s.cfg.Idle == IdleNotify && !progressed {
				numChecks = max(1, s.wait.Len())
			}
			for range numChecks {
				task, ok := s.wait.TryPop()
				if !ok {
					break
				}
				if s.recheck(stats, task) {
					progressed = true
				}
			}

			// 3. Termination.
			if s.finished.Test() {
				return
			}
			if !progressed {
				s.idle(seen)
			}
		}
	})
	if err != nil {
		s.abort(workerIdx, err)
	}
}

func (s *scheduler) idle(seen uint64) {
	switch s.cfg.Idle {
	case IdleYield:
		runtime.Gosched()
	case IdleNotify:
		s.epoch.WaitPast(seen)
	default:
	}
}

// isRunnable returns whether the left-neighbour dependency of the task is complete.
func (s *scheduler) isRunnable(task tiling.Task) bool {
	pred, hasPred := s.table.Predecessor(task.Descriptor().Coord)
	return !hasPred || s.completion.Get(pred.Row, pred.Col)
}

// recheck moves a waiting task to the ready queue if its dependency is now satisfied, or back to the
// wait queue otherwise. It returns whether the task was promoted.
func (s *scheduler) recheck(stats *WorkerStats, task tiling.Task) bool {
	if s.isRunnable(task) {
		s.ready.Push(task)
		stats.Promoted++
		return true
	}
	s.wait.Push(task)
	stats.Requeued++
	return false
}

// execute runs the task kernel, marks its tile complete and enqueues the tasks it unblocks.
func (s *scheduler) execute(workerIdx int, task tiling.Task) {
	stats := &s.workers[workerIdx]
	tile := task.Descriptor()
	var start time.Duration
	if s.cfg.Trace != nil {
		start = s.cfg.Trace.Now()
	}
	began := time.Now()

	switch t := task.(type) {
	case *tiling.PanelTask:
		householder.PanelFactorize(s.a, s.scales, t.Pivots, t.Columns)
		stats.Panels++
	case *tiling.UpdateTask:
		householder.ApplyUpdate(s.a, s.scales, t.Pivots, t.Columns)
		stats.Updates++
	default:
		exceptions.Panicf("qr: unknown task type %T at %s", task, tile.Coord)
	}
	stats.Busy += time.Since(began)

	if s.cfg.Trace != nil {
		s.cfg.Trace.Record(trace.Event{
			Worker:     workerIdx,
			Kind:       task.Kind().String(),
			Row:        tile.Coord.Row,
			Col:        tile.Coord.Col,
			PivotStart: tile.Pivots.Start,
			PivotEnd:   tile.Pivots.End,
			ColStart:   tile.Columns.Start,
			ColEnd:     tile.Columns.End,
			Start:      start,
			End:        s.cfg.Trace.Now(),
		})
	}
	if klog.V(3).Enabled() {
		klog.Infof("qr[%s] worker %d: %s task %s done (pivots %v, columns %v)",
			s.runID, workerIdx, task.Kind(), tile.Coord, tile.Pivots, tile.Columns)
	}

	// Publish: the numeric effects above happen-before any observer of this flag.
	if !s.completion.Set(tile.Coord.Row, tile.Coord.Col) {
		exceptions.Panicf("qr: task %s executed twice", tile.Coord)
	}

	// Fan out the tasks this one unblocks.
	switch t := task.(type) {
	case *tiling.PanelTask:
		j := tile.Coord.Col
		for k := tile.Coord.Row + 1; k < s.table.Rows(); k++ {
			next := s.table.Task(k, j)
			if s.isRunnable(next) {
				s.ready.Push(next)
			} else {
				s.wait.Push(next)
			}
		}
		if t.ChainsNextPanel {
			s.ready.Push(s.table.Panel(j + 1))
		}
	case *tiling.UpdateTask:
		if t.TriggersNextPanel {
			s.ready.Push(s.table.Panel(tile.Coord.Col + 1))
		}
	}

	stats.Executed++
	done := int(s.numDone.Add(1))
	total := s.table.NumTasks()
	if s.cfg.OnTaskDone != nil {
		s.cfg.OnTaskDone(done, total)
	}
	if done == total {
		s.finished.Trigger()
	}
	if s.cfg.Idle == IdleNotify {
		s.epoch.Advance()
	}
}

// abort stops the run after a worker panicked: the first error is kept and all workers are released.
func (s *scheduler) abort(workerIdx int, err error) {
	s.abortOnce.Do(func() {
		klog.Errorf("qr[%s] worker %d panicked, aborting run: %+v", s.runID, workerIdx, err)
		s.abortErr = errors.Wrapf(ErrWorkerPanic, "worker %d: %v", workerIdx, err)
	})
	s.finished.Trigger()
	s.epoch.Advance()
}
