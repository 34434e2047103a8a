// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package qr computes the QR factorization of a dense square matrix with a DAG scheduler.
//
// The matrix is cut into tiles (see package tiling). Each tile is one task: a PANEL task computes
// the Householder reflectors of a block of pivots, and an UPDATE task applies them to a trailing
// block of columns. A fixed pool of symmetric workers pulls runnable tasks from a shared ready
// queue and parks blocked ones in a wait queue. An atomic completion table gates the dependencies.
// No worker coordinates the others: the run ends when the count of completed tasks reaches the
// number of tasks.
//
// Example:
//
//	a := must.M1(matrixio.ReadTextFile("matrix.txt"))
//	f, err := qr.Build(a).Tiles(32, 16).Workers(8).Done()
//	if err != nil { ... }
//	x, err := f.SolveVec(b)
package qr

import (
	"runtime"
	"time"

	"github.com/gomlx/dagqr/internal/workerspool"
	"github.com/gomlx/dagqr/pkg/core/dense"
	"github.com/gomlx/dagqr/pkg/trace"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Factorize overwrites a with its packed QR factorization: R in the upper triangle and the
// Householder vectors below the diagonal. The returned Factorization references a.
//
// Configuration errors (see Config.Validate, ErrNonSquare, ErrEmptyMatrix) are returned before any
// work starts and leave a untouched.
func Factorize(a *dense.Matrix, cfg Config) (*Factorization, error) {
	if a == nil || (a.Rows == 0 && a.Cols == 0) {
		return nil, ErrEmptyMatrix
	}
	if !a.IsSquare() {
		return nil, errors.Wrapf(ErrNonSquare, "got a %dx%d matrix", a.Rows, a.Cols)
	}
	if len(a.Data) != a.Rows*a.Cols {
		return nil, errors.Errorf("qr: matrix buffer has %d values, expected %d", len(a.Data), a.Rows*a.Cols)
	}
	if err := cfg.Validate(a.Rows); err != nil {
		return nil, errors.WithMessage(err, "qr: invalid configuration")
	}
	if cfg.Idle == IdleSpin && cfg.NumWorkers > runtime.NumCPU() {
		klog.Warningf("qr: %d spinning workers on %d CPUs: idle workers will compete with busy ones",
			cfg.NumWorkers, runtime.NumCPU())
	}

	runID := uuid.NewString()
	s, err := newScheduler(a, cfg, runID)
	if err != nil {
		return nil, errors.WithMessage(err, "qr: invalid configuration")
	}
	klog.V(1).Infof("qr[%s] start: dim=%d, %s, workers=%d, ordering=%s, idle=%s",
		runID, a.Rows, s.table, cfg.NumWorkers, cfg.Ordering, cfg.Idle)

	pool := workerspool.New()
	pool.SetMaxParallelism(cfg.NumWorkers)
	start := time.Now()
	err = s.run(pool.Saturate)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	stats := Stats{
		RunID:      runID,
		Dim:        a.Rows,
		GridRows:   s.table.Rows(),
		GridCols:   s.table.Cols(),
		Ratio:      s.table.Ratio(),
		NumTasks:   s.table.NumTasks(),
		NumWorkers: cfg.NumWorkers,
		Elapsed:    elapsed,
		Workers:    s.workers,
	}
	klog.V(1).Infof("qr[%s] done in %s: %d tasks, %d promotions, %d re-queues",
		runID, elapsed, stats.NumTasks, stats.Promoted(), stats.Requeued())
	if klog.V(2).Enabled() {
		for idx, w := range stats.Workers {
			klog.Infof("qr[%s] worker %d: %d tasks (%d panels, %d updates), busy %s",
				runID, idx, w.Executed, w.Panels, w.Updates, w.Busy)
		}
	}
	return &Factorization{
		Packed: a,
		Up:     s.scales.Up,
		B:      s.scales.B,
		Stats:  stats,
	}, nil
}

// Builder is a fluent front end to Factorize. Create it with Build.
type Builder struct {
	a   *dense.Matrix
	cfg Config
}

// Build starts the configuration of the factorization of a, with DefaultConfig values.
// Finish it with Builder.Done.
func Build(a *dense.Matrix) *Builder {
	return &Builder{a: a, cfg: DefaultConfig()}
}

// Tiles sets the row-block height and the column-block width.
func (b *Builder) Tiles(rowBlockHeight, colBlockWidth int) *Builder {
	b.cfg.RowBlockHeight = rowBlockHeight
	b.cfg.ColBlockWidth = colBlockWidth
	return b
}

// Workers sets the number of worker goroutines.
func (b *Builder) Workers(numWorkers int) *Builder {
	b.cfg.NumWorkers = numWorkers
	return b
}

// PriorityOrdering makes the ready queue pop the highest-priority task first, instead of FIFO.
func (b *Builder) PriorityOrdering() *Builder {
	b.cfg.Ordering = OrderingPriority
	return b
}

// Idle sets the idle strategy of the workers.
func (b *Builder) Idle(strategy IdleStrategy) *Builder {
	b.cfg.Idle = strategy
	return b
}

// Trace records the execution of every task in recorder.
func (b *Builder) Trace(recorder *trace.Recorder) *Builder {
	b.cfg.Trace = recorder
	return b
}

// OnTaskDone registers an observer called after every task. See Config.OnTaskDone.
func (b *Builder) OnTaskDone(fn func(done, total int)) *Builder {
	b.cfg.OnTaskDone = fn
	return b
}

// Config returns the configuration built so far.
func (b *Builder) Config() Config {
	return b.cfg
}

// Done runs the factorization. See Factorize.
func (b *Builder) Done() (*Factorization, error) {
	return Factorize(b.a, b.cfg)
}
