// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package completion implements the dense grid of atomic completion flags that gates the
// DAG-scheduled QR factorization.
//
// A flag transitions from false to true at most once. Set is called after the tile's numeric work
// is written: the atomic store publishes those writes to any goroutine that later observes the flag
// with Get.
package completion

import (
	"sync/atomic"

	"github.com/gomlx/exceptions"
)

// Table is a rows×cols grid of completion flags. The zero value is not usable, create it with New.
type Table struct {
	rows, cols int
	flags      []atomic.Bool
	numSet     atomic.Int64
}

// New allocates a table with all flags false. It must be created before any worker starts.
func New(rows, cols int) *Table {
	if rows <= 0 || cols <= 0 {
		exceptions.Panicf("completion.New(%d, %d): dimensions must be positive", rows, cols)
	}
	return &Table{
		rows:  rows,
		cols:  cols,
		flags: make([]atomic.Bool, rows*cols),
	}
}

// Rows of the grid.
func (t *Table) Rows() int { return t.rows }

// Cols of the grid.
func (t *Table) Cols() int { return t.cols }

func (t *Table) index(i, j int) int {
	if i < 0 || j < 0 || i >= t.rows || j >= t.cols {
		exceptions.Panicf("completion: tile (%d, %d) out of range for %dx%d grid", i, j, t.rows, t.cols)
	}
	return i*t.cols + j
}

// Set marks tile (i, j) complete. It is idempotent: it returns true only for the call that
// changed the flag.
func (t *Table) Set(i, j int) bool {
	if t.flags[t.index(i, j)].CompareAndSwap(false, true) {
		t.numSet.Add(1)
		return true
	}
	return false
}

// Get returns whether tile (i, j) is complete. It never blocks.
func (t *Table) Get(i, j int) bool {
	return t.flags[t.index(i, j)].Load()
}

// NumSet returns how many flags are set.
func (t *Table) NumSet() int {
	return int(t.numSet.Load())
}

// AllSet returns whether every flag of the grid is set.
func (t *Table) AllSet() bool {
	return t.NumSet() == t.rows*t.cols
}
