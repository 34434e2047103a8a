// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tiling partitions a square matrix into the tile grid of the DAG-scheduled QR
// factorization and produces the immutable task descriptor of every tile.
//
// For a matrix of dimension n, row-block height H and column-block width W (H a multiple of W):
//
//   - Column-block j (a "step") owns the pivots [j·W, min((j+1)·W, n)).
//   - Row-block i owns the matrix columns [i·H, min((i+1)·H, n)): that is the range tile (i, ·) writes.
//   - The diagonal row-block of step j is j/Ratio. Tile (j/Ratio, j) is the PANEL task of step j, and
//     tiles (k, j) with k > j/Ratio are its UPDATE tasks.
//   - Tiles (k, j) with k < j/Ratio carry no work.
package tiling

import (
	"fmt"

	"github.com/gomlx/dagqr/pkg/core/householder"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned when the dimension or tuning constants can't produce a valid tile grid.
var ErrInvalidConfig = errors.New("tiling: invalid configuration")

// Config holds the matrix dimension and the two tuning constants.
type Config struct {
	// Dim is the dimension of the (square) matrix.
	Dim int

	// RowBlockHeight is the number of matrix columns updated by one tile. It must be a positive multiple
	// of ColBlockWidth.
	RowBlockHeight int

	// ColBlockWidth is the number of pivots factorized by one panel task.
	ColBlockWidth int
}

// Validate returns an error wrapping ErrInvalidConfig if the configuration is degenerate.
func (c Config) Validate() error {
	switch {
	case c.Dim <= 0:
		return errors.Wrapf(ErrInvalidConfig, "matrix dimension must be > 0, got %d", c.Dim)
	case c.RowBlockHeight <= 0:
		return errors.Wrapf(ErrInvalidConfig, "row-block height must be > 0, got %d", c.RowBlockHeight)
	case c.ColBlockWidth <= 0:
		return errors.Wrapf(ErrInvalidConfig, "column-block width must be > 0, got %d", c.ColBlockWidth)
	case c.RowBlockHeight%c.ColBlockWidth != 0:
		return errors.Wrapf(ErrInvalidConfig,
			"row-block height (%d) must be a multiple of the column-block width (%d), ratio would round to %d",
			c.RowBlockHeight, c.ColBlockWidth, c.RowBlockHeight/c.ColBlockWidth)
	}
	return nil
}

// Coord addresses a tile in the grid.
type Coord struct {
	Row, Col int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.Row, c.Col)
}

// Kind of task.
//
//go:generate go tool enumer -type=Kind -trimprefix=Kind -transform=snake -text -output=gen_kind_enumer.go
type Kind int

const (
	KindPanel Kind = iota
	KindUpdate
)

// Tile is the part shared by both task kinds: the tile coordinate, the pivots whose reflectors are
// involved and the matrix columns written.
type Tile struct {
	Coord    Coord
	Pivots   householder.Span
	Columns  householder.Span
	Priority int
}

// Task is one unit of work. It's either a *PanelTask or an *UpdateTask.
type Task interface {
	// Kind of the task.
	Kind() Kind

	// Descriptor returns the tile shared by both kinds.
	Descriptor() *Tile
}

// PanelTask factorizes the pivots of a step within its own tile.
type PanelTask struct {
	Tile

	// ChainsNextPanel is set when the next step's panel lies in the same row-block: it becomes runnable
	// as soon as this panel completes.
	ChainsNextPanel bool
}

// Kind implements Task.
func (t *PanelTask) Kind() Kind { return KindPanel }

// Descriptor implements Task.
func (t *PanelTask) Descriptor() *Tile { return &t.Tile }

// UpdateTask applies the reflectors of a step to a trailing column block.
type UpdateTask struct {
	Tile

	// TriggersNextPanel is set on the update that completes the column block of the next step's panel:
	// once it is done the next PANEL task is runnable.
	TriggersNextPanel bool
}

// Kind implements Task.
func (t *UpdateTask) Kind() Kind { return KindUpdate }

// Descriptor implements Task.
func (t *UpdateTask) Descriptor() *Tile { return &t.Tile }

// Table is the tile descriptor table. It's immutable after New and safe for concurrent use.
type Table struct {
	cfg        Config
	ratio      int
	rows, cols int
	numTasks   int

	// tasks is indexed [row*cols+col]; nil for tiles that carry no work.
	tasks []Task
}

// New validates the configuration and builds the descriptors of every tile.
func New(cfg Config) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		cfg:   cfg,
		ratio: cfg.RowBlockHeight / cfg.ColBlockWidth,
		rows:  ceilDiv(cfg.Dim, cfg.RowBlockHeight),
		cols:  ceilDiv(cfg.Dim, cfg.ColBlockWidth),
	}
	t.tasks = make([]Task, t.rows*t.cols)
	for j := range t.cols {
		diag := t.PanelRow(j)
		for i := diag; i < t.rows; i++ {
			t.tasks[i*t.cols+j] = t.build(i, j)
			t.numTasks++
		}
	}
	return t, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func (t *Table) build(i, j int) Task {
	tile := Tile{
		Coord:   Coord{Row: i, Col: j},
		Pivots:  householder.Span{Start: j * t.cfg.ColBlockWidth, End: min((j+1)*t.cfg.ColBlockWidth, t.cfg.Dim)},
		Columns: householder.Span{Start: i * t.cfg.RowBlockHeight, End: min((i+1)*t.cfg.RowBlockHeight, t.cfg.Dim)},
	}
	diag := t.PanelRow(j)
	hasNext := j+1 < t.cols
	nextDiag := t.PanelRow(j + 1)
	critical := false
	var task Task
	if i == diag {
		critical = true
		task = &PanelTask{Tile: tile, ChainsNextPanel: hasNext && nextDiag == diag}
	} else {
		triggers := hasNext && nextDiag != diag && i == nextDiag
		critical = triggers
		task = &UpdateTask{Tile: tile, TriggersNextPanel: triggers}
	}
	task.Descriptor().Priority = 2 * (t.cols - j)
	if critical {
		task.Descriptor().Priority++
	}
	return task
}

// Config returns the configuration the table was built with.
func (t *Table) Config() Config { return t.cfg }

// Ratio returns RowBlockHeight / ColBlockWidth, the number of steps whose panels share a row-block.
func (t *Table) Ratio() int { return t.ratio }

// Rows returns the number of row-blocks of the grid.
func (t *Table) Rows() int { return t.rows }

// Cols returns the number of column-blocks (steps) of the grid.
func (t *Table) Cols() int { return t.cols }

// NumTasks returns the number of tiles that carry work.
func (t *Table) NumTasks() int { return t.numTasks }

// PanelRow returns the row-block holding the PANEL task of step j.
func (t *Table) PanelRow(j int) int {
	return j / t.ratio
}

// HasWork returns whether tile (i, j) carries a task.
func (t *Table) HasWork(i, j int) bool {
	return i >= t.PanelRow(j) && i < t.rows && j >= 0 && j < t.cols
}

// Task returns the descriptor of tile (i, j). It returns the same value for every call with the
// same coordinates, and nil for tiles that carry no work or are out of the grid.
func (t *Table) Task(i, j int) Task {
	if i < 0 || j < 0 || i >= t.rows || j >= t.cols {
		return nil
	}
	return t.tasks[i*t.cols+j]
}

// Panel returns the PANEL task of step j, or nil if j is out of range.
func (t *Table) Panel(j int) *PanelTask {
	task, _ := t.Task(t.PanelRow(j), j).(*PanelTask)
	return task
}

// Seed returns the first task of the DAG, the PANEL task at (0, 0).
func (t *Table) Seed() *PanelTask {
	return t.Panel(0)
}

// Terminal returns the coordinate of the last task of the DAG: the PANEL task of the last step.
// Every other task is one of its ancestors.
func (t *Table) Terminal() Coord {
	return Coord{Row: t.PanelRow(t.cols - 1), Col: t.cols - 1}
}

// Predecessor returns the left-neighbour dependency of tile (i, j), the tile that must be complete
// before (i, j) can run, and false if (i, j) is in the first column.
func (t *Table) Predecessor(c Coord) (Coord, bool) {
	if c.Col == 0 {
		return Coord{}, false
	}
	return Coord{Row: c.Row, Col: c.Col - 1}, true
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return fmt.Sprintf("tiling{dim=%d, H=%d, W=%d, ratio=%d, grid=%dx%d, tasks=%d}",
		t.cfg.Dim, t.cfg.RowBlockHeight, t.cfg.ColBlockWidth, t.ratio, t.rows, t.cols, t.numTasks)
}
