// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package qr

import (
	"runtime"

	"github.com/gomlx/dagqr/pkg/core/tiling"
	"github.com/gomlx/dagqr/pkg/trace"
	"github.com/pkg/errors"
)

const (
	// DefaultRowBlockHeight and DefaultColBlockWidth are the tuning constants used by DefaultConfig.
	DefaultRowBlockHeight = 11
	DefaultColBlockWidth  = 11
)

// Ordering of the ready queue.
//
//go:generate go tool enumer -type=Ordering -trimprefix=Ordering -transform=snake -text -output=gen_ordering_enumer.go
type Ordering int

const (
	// OrderingFIFO pops ready tasks in the order they were pushed.
	OrderingFIFO Ordering = iota

	// OrderingPriority pops the ready task with the highest priority first: earlier steps, and tasks on
	// the critical path (panels and the updates that trigger them), go first.
	OrderingPriority
)

// IdleStrategy is what a worker does when an iteration of its loop found nothing to run.
//
//go:generate go tool enumer -type=IdleStrategy -trimprefix=Idle -transform=snake -text -output=gen_idlestrategy_enumer.go
type IdleStrategy int

const (
	// IdleSpin immediately polls the queues again. Lowest latency, burns a CPU per idle worker:
	// don't use more workers than CPUs.
	IdleSpin IdleStrategy = iota

	// IdleYield calls runtime.Gosched before polling again.
	IdleYield

	// IdleNotify parks the worker until some task completes (or the run finishes).
	IdleNotify
)

// Config of a factorization run.
type Config struct {
	// RowBlockHeight is the number of matrix columns updated by one tile. It must be a positive multiple
	// of ColBlockWidth.
	RowBlockHeight int

	// ColBlockWidth is the number of pivots factorized by each panel task.
	ColBlockWidth int

	// NumWorkers is the number of worker goroutines. With IdleSpin it should not exceed the number of CPUs.
	NumWorkers int

	// Ordering of the ready queue. It affects scheduling only, never the result.
	Ordering Ordering

	// Idle strategy of the workers.
	Idle IdleStrategy

	// Trace, if not nil, records every executed task.
	Trace *trace.Recorder

	// OnTaskDone, if not nil, is called after each task completes, with the number of completed tasks and
	// the total. It is called concurrently from the worker goroutines.
	OnTaskDone func(done, total int)
}

// DefaultConfig returns the default configuration: 11×11 tiles, one worker per CPU, FIFO ordering and
// spinning idle workers.
func DefaultConfig() Config {
	return Config{
		RowBlockHeight: DefaultRowBlockHeight,
		ColBlockWidth:  DefaultColBlockWidth,
		NumWorkers:     runtime.NumCPU(),
		Ordering:       OrderingFIFO,
		Idle:           IdleSpin,
	}
}

// tilingConfig for a matrix of dimension dim.
func (c Config) tilingConfig(dim int) tiling.Config {
	return tiling.Config{Dim: dim, RowBlockHeight: c.RowBlockHeight, ColBlockWidth: c.ColBlockWidth}
}

// Validate checks the configuration for a matrix of dimension dim.
func (c Config) Validate(dim int) error {
	if c.NumWorkers <= 0 {
		return errors.Wrapf(ErrInvalidWorkers, "got %d workers", c.NumWorkers)
	}
	if !c.Ordering.IsAOrdering() {
		return errors.Errorf("qr: invalid ready queue ordering %s", c.Ordering)
	}
	if !c.Idle.IsAIdleStrategy() {
		return errors.Errorf("qr: invalid idle strategy %s", c.Idle)
	}
	return c.tilingConfig(dim).Validate()
}
