// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package qr

import (
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/gomlx/dagqr/internal/workerspool"
	"github.com/gomlx/dagqr/pkg/core/dense"
	"github.com/gomlx/dagqr/pkg/trace"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-10

// checkFactorization verifies A = Q·R, the orthogonality of Q and, using gonum as an oracle, the
// magnitude of the diagonal of R.
func checkFactorization(t *testing.T, original *dense.Matrix, f *Factorization) {
	t.Helper()
	n := original.Rows
	require.Equal(t, n, f.Dim())
	assert.Less(t, f.Residual(original), tolerance, "‖A - QR‖/‖A‖ too large")

	q := f.Q()
	var qtq mat.Dense
	qtq.Mul(q.T(), q)
	for i := range n {
		for j := range n {
			want := 0.0
			if i == j {
				want = 1.0
			}
			require.InDelta(t, want, qtq.At(i, j), tolerance, "QᵀQ[%d, %d]", i, j)
		}
	}

	var oracle mat.QR
	oracle.Factorize(original.ToGonum())
	var oracleR mat.Dense
	oracle.RTo(&oracleR)
	r := f.R()
	scale := math.Max(1, original.FrobeniusNorm())
	for i := range n {
		assert.InDelta(t, math.Abs(oracleR.At(i, i)), math.Abs(r.At(i, i)), tolerance*scale, "|R[%d, %d]|", i, i)
	}
}

func TestFactorize(t *testing.T) {
	type testCase struct {
		n, h, w, workers int
		ordering         Ordering
		idle             IdleStrategy
	}
	var cases []testCase
	for _, tiles := range [][2]int{{11, 11}, {4, 4}, {8, 4}, {6, 2}, {9, 3}, {5, 1}} {
		for _, n := range []int{1, 2, 7, 23, 40} {
			cases = append(cases, testCase{n: n, h: tiles[0], w: tiles[1], workers: 4, ordering: OrderingFIFO, idle: IdleYield})
		}
	}
	cases = append(cases,
		testCase{n: 37, h: 8, w: 4, workers: 1, ordering: OrderingFIFO, idle: IdleSpin},
		testCase{n: 37, h: 8, w: 4, workers: 3, ordering: OrderingPriority, idle: IdleSpin},
		testCase{n: 37, h: 6, w: 3, workers: 8, ordering: OrderingPriority, idle: IdleNotify},
		testCase{n: 64, h: 4, w: 4, workers: 8, ordering: OrderingFIFO, idle: IdleNotify},
	)
	for _, tc := range cases {
		name := fmt.Sprintf("n=%d,H=%d,W=%d,workers=%d,%s,%s", tc.n, tc.h, tc.w, tc.workers, tc.ordering, tc.idle)
		t.Run(name, func(t *testing.T) {
			original := dense.Random(tc.n, 42)
			a := original.Clone()
			b := Build(a).Tiles(tc.h, tc.w).Workers(tc.workers).Idle(tc.idle)
			if tc.ordering == OrderingPriority {
				b.PriorityOrdering()
			}
			f, err := b.Done()
			require.NoError(t, err)
			checkFactorization(t, original, f)
			assert.Equal(t, f.Stats.NumTasks, sumExecuted(f.Stats))
		})
	}
}

func sumExecuted(stats Stats) (total int) {
	for _, w := range stats.Workers {
		total += w.Executed
	}
	return
}

func TestFactorize_Deterministic(t *testing.T) {
	original := dense.Random(53, 7)
	factorize := func(workers int, ordering Ordering) *Factorization {
		cfg := DefaultConfig()
		cfg.RowBlockHeight, cfg.ColBlockWidth = 10, 5
		cfg.NumWorkers = workers
		cfg.Ordering = ordering
		cfg.Idle = IdleYield
		return must.M1(Factorize(original.Clone(), cfg))
	}
	want := factorize(1, OrderingFIFO)
	for _, workers := range []int{2, 4, 8} {
		for _, ordering := range OrderingValues() {
			got := factorize(workers, ordering)
			require.Equal(t, want.Packed.Data, got.Packed.Data, "workers=%d, ordering=%s", workers, ordering)
			require.Equal(t, want.Up, got.Up)
			require.Equal(t, want.B, got.B)
		}
	}
}

func TestFactorize_SmallCases(t *testing.T) {
	t.Run("1x1", func(t *testing.T) {
		a := must.M1(dense.FromRows([][]float64{{5}}))
		f := must.M1(Build(a).Tiles(11, 11).Workers(1).Done())
		assert.Equal(t, []float64{5}, f.Packed.Data)
		assert.Equal(t, []float64{0}, f.Up)
		assert.Equal(t, []float64{0}, f.B)
		assert.Equal(t, 1, f.Stats.NumTasks)
	})

	t.Run("3x3 identity", func(t *testing.T) {
		a := dense.Identity(3)
		f := must.M1(Build(a).Tiles(8, 8).Workers(2).Done())
		assert.Equal(t, dense.Identity(3).Data, f.Packed.Data)
		assert.Equal(t, []float64{0, 0, 0}, f.Up)
		assert.Equal(t, []float64{0, 0, 0}, f.B)
		r := f.R()
		for i := range 3 {
			assert.Equal(t, 1.0, r.At(i, i))
		}
	})

	t.Run("upper triangular", func(t *testing.T) {
		a := must.M1(dense.FromRows([][]float64{
			{2, 1, 3},
			{0, 4, 5},
			{0, 0, 6},
		}))
		original := a.Clone()
		f := must.M1(Build(a).Tiles(2, 1).Workers(3).Done())
		assert.Equal(t, original.Data, f.Packed.Data)
		checkFactorization(t, original, f)
	})

	t.Run("zero matrix", func(t *testing.T) {
		a := dense.New(5, 5)
		f := must.M1(Build(a).Tiles(2, 2).Workers(2).Done())
		assert.Equal(t, make([]float64, 25), f.Packed.Data)
		assert.Equal(t, 0.0, f.Residual(dense.New(5, 5)))
	})
}

func TestFactorize_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumWorkers = 2

	_, err := Factorize(nil, cfg)
	assert.ErrorIs(t, err, ErrEmptyMatrix)
	_, err = Factorize(dense.New(0, 0), cfg)
	assert.ErrorIs(t, err, ErrEmptyMatrix)

	_, err = Factorize(dense.New(3, 4), cfg)
	assert.ErrorIs(t, err, ErrNonSquare)

	// A 4×4 header with a missing buffer is a length mismatch, not an empty matrix.
	_, err = Factorize(&dense.Matrix{Rows: 4, Cols: 4}, cfg)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyMatrix)
	assert.Contains(t, err.Error(), "buffer has 0 values, expected 16")
	_, err = Factorize(&dense.Matrix{Rows: 2, Cols: 2, Data: make([]float64, 3)}, cfg)
	assert.ErrorContains(t, err, "buffer has 3 values, expected 4")

	a := dense.Random(10, 1)
	original := a.Clone()
	for _, tiles := range [][2]int{{0, 4}, {4, 0}, {-2, 1}, {6, 4}, {3, 6}} {
		_, err = Build(a).Tiles(tiles[0], tiles[1]).Workers(2).Done()
		assert.ErrorIs(t, err, ErrInvalidTiling, "tiles=%v", tiles)
	}
	_, err = Build(a).Workers(0).Done()
	assert.ErrorIs(t, err, ErrInvalidWorkers)
	_, err = Build(a).Workers(-3).Done()
	assert.ErrorIs(t, err, ErrInvalidWorkers)
	_, err = Build(a).Workers(1).Idle(IdleStrategy(17)).Done()
	assert.Error(t, err)
	cfg.Ordering = Ordering(5)
	_, err = Factorize(a, cfg)
	assert.Error(t, err)

	// Configuration errors leave the matrix untouched.
	assert.Equal(t, original.Data, a.Data)
}

func TestFactorize_WorkerPanic(t *testing.T) {
	for _, idle := range []IdleStrategy{IdleSpin, IdleYield, IdleNotify} {
		t.Run(idle.String(), func(t *testing.T) {
			a := dense.Random(30, 3)
			_, err := Build(a).Tiles(4, 2).Workers(4).Idle(idle).
				OnTaskDone(func(done, total int) {
					if done == total/2 {
						panic(errors.New("observer failure"))
					}
				}).
				Done()
			require.ErrorIs(t, err, ErrWorkerPanic)
			assert.Contains(t, err.Error(), "observer failure")
		})
	}
}

func TestScheduler_CompletionTable(t *testing.T) {
	for _, tiles := range [][2]int{{4, 4}, {12, 4}, {6, 1}} {
		cfg := DefaultConfig()
		cfg.RowBlockHeight, cfg.ColBlockWidth = tiles[0], tiles[1]
		cfg.NumWorkers = 4
		cfg.Idle = IdleNotify
		cfg.Ordering = OrderingPriority
		a := dense.Random(29, 11)
		s := must.M1(newScheduler(a, cfg, "test"))

		// Tiles without work are complete before the run.
		numPreset := s.completion.NumSet()
		assert.Equal(t, s.table.Rows()*s.table.Cols()-s.table.NumTasks(), numPreset)
		terminal := s.table.Terminal()
		assert.False(t, s.completion.Get(terminal.Row, terminal.Col))

		pool := workerspool.New()
		pool.SetMaxParallelism(cfg.NumWorkers)
		require.NoError(t, s.run(pool.Saturate))
		assert.True(t, s.completion.AllSet(), "tiles=%v", tiles)
		assert.True(t, s.completion.Get(terminal.Row, terminal.Col))
		assert.Equal(t, int64(s.table.NumTasks()), s.numDone.Load())
		assert.True(t, s.finished.Test())
		assert.Equal(t, 0, s.ready.Len())
		assert.Equal(t, 0, s.wait.Len())
	}
}

func TestFactorize_TraceAndProgress(t *testing.T) {
	recorder := trace.New()
	var calls, last atomic.Int64
	a := dense.Random(45, 5)
	original := a.Clone()
	f, err := Build(a).Tiles(10, 5).Workers(6).Idle(IdleYield).PriorityOrdering().
		Trace(recorder).
		OnTaskDone(func(done, total int) {
			calls.Add(1)
			if done == total {
				last.Store(int64(done))
			}
		}).
		Done()
	require.NoError(t, err)
	checkFactorization(t, original, f)

	numTasks := f.Stats.NumTasks
	assert.Equal(t, int64(numTasks), calls.Load())
	assert.Equal(t, int64(numTasks), last.Load())

	events := recorder.Events()
	require.Len(t, events, numTasks)
	assert.Equal(t, f.Stats.RunID, recorder.RunID)
	require.NoError(t, recorder.CheckDisjointColumns())
	assert.GreaterOrEqual(t, recorder.MaxConcurrency(), 1)
	assert.LessOrEqual(t, recorder.MaxConcurrency(), 6)

	var numPanels int
	for _, e := range events {
		if e.Kind == "panel" {
			numPanels++
		}
	}
	assert.Equal(t, f.Stats.GridCols, numPanels)
}

func TestFactorization_SolveVec(t *testing.T) {
	n := 31
	original := dense.Random(n, 99)
	want := make([]float64, n)
	for i := range want {
		want[i] = float64(i) - 15
	}
	var rhs mat.VecDense
	rhs.MulVec(original.ToGonum(), mat.NewVecDense(n, want))

	f := must.M1(Build(original.Clone()).Tiles(9, 3).Workers(3).Idle(IdleYield).Done())
	got, err := f.SolveVec(rhs.RawVector().Data)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-8)

	_, err = f.SolveVec(make([]float64, n+1))
	assert.Error(t, err)

	// ApplyQ undoes ApplyQT.
	x := make([]float64, n)
	copy(x, want)
	f.ApplyQT(x)
	f.ApplyQ(x)
	assert.InDeltaSlice(t, want, x, tolerance)
	assert.Panics(t, func() { f.ApplyQ(make([]float64, 2)) })
}

func TestEnums(t *testing.T) {
	for _, s := range IdleStrategyValues() {
		assert.Equal(t, s, must.M1(IdleStrategyString(s.String())))
	}
	assert.Equal(t, []string{"spin", "yield", "notify"}, IdleStrategyStrings())
	assert.Equal(t, IdleNotify, must.M1(IdleStrategyString("NOTIFY")))
	_, err := IdleStrategyString("sleep")
	assert.Error(t, err)
	assert.False(t, IdleStrategy(17).IsAIdleStrategy())
	assert.Equal(t, "IdleStrategy(17)", IdleStrategy(17).String())

	var idle IdleStrategy
	require.NoError(t, idle.UnmarshalText([]byte("yield")))
	assert.Equal(t, IdleYield, idle)
	text := must.M1(IdleNotify.MarshalText())
	assert.Equal(t, "notify", string(text))

	assert.Equal(t, "fifo", OrderingFIFO.String())
	assert.Equal(t, "priority", OrderingPriority.String())
	assert.Equal(t, OrderingPriority, must.M1(OrderingString("priority")))
	assert.False(t, Ordering(-1).IsAOrdering())
}
