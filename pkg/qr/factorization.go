// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package qr

import (
	"time"

	"github.com/gomlx/dagqr/pkg/core/dense"
	"github.com/gomlx/dagqr/pkg/core/householder"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Factorization is the result of Factorize: A = Q·R with Q = H_0·H_1·…·H_{n-1}.
type Factorization struct {
	// Packed is the factorized matrix: R on and above the diagonal, the Householder vectors below it.
	Packed *dense.Matrix

	// Up and B are the Householder scale vectors, one entry per pivot. B[p] == 0 marks a pivot whose
	// reflector was skipped (the identity).
	Up, B []float64

	Stats Stats
}

// WorkerStats counts what one worker did during the run.
type WorkerStats struct {
	Executed, Panels, Updates int

	// Promoted counts waiting tasks moved to the ready queue; Requeued counts waiting tasks put back
	// in the wait queue because their dependency was still pending.
	Promoted, Requeued int

	// Busy is the time spent in the numeric kernels.
	Busy time.Duration
}

// Stats of a factorization run.
type Stats struct {
	RunID              string
	Dim                int
	GridRows, GridCols int
	Ratio              int
	NumTasks           int
	NumWorkers         int
	Elapsed            time.Duration
	Workers            []WorkerStats
}

// Promoted is the total number of wait-to-ready promotions.
func (s Stats) Promoted() (total int) {
	for _, w := range s.Workers {
		total += w.Promoted
	}
	return
}

// Requeued is the total number of wait-queue re-insertions.
func (s Stats) Requeued() (total int) {
	for _, w := range s.Workers {
		total += w.Requeued
	}
	return
}

// Busy is the total time spent in the numeric kernels, across workers.
func (s Stats) Busy() (total time.Duration) {
	for _, w := range s.Workers {
		total += w.Busy
	}
	return
}

// Dim returns the dimension n of the factorized n×n matrix.
func (f *Factorization) Dim() int {
	return f.Packed.Rows
}

func (f *Factorization) scales() *householder.Scales {
	return &householder.Scales{Up: f.Up, B: f.B}
}

func (f *Factorization) checkLen(x []float64) {
	if len(x) != f.Dim() {
		exceptions.Panicf("qr: vector of length %d for a factorization of dimension %d", len(x), f.Dim())
	}
}

// ApplyQT overwrites x with Qᵀ·x. It panics if len(x) != Dim().
func (f *Factorization) ApplyQT(x []float64) {
	f.checkLen(x)
	scales := f.scales()
	for p := range f.Dim() {
		householder.ApplyToVector(f.Packed, scales, p, x)
	}
}

// ApplyQ overwrites x with Q·x. It panics if len(x) != Dim().
func (f *Factorization) ApplyQ(x []float64) {
	f.checkLen(x)
	scales := f.scales()
	for p := f.Dim() - 1; p >= 0; p-- {
		householder.ApplyToVector(f.Packed, scales, p, x)
	}
}

// R returns a copy of the upper-triangular factor.
func (f *Factorization) R() *mat.TriDense {
	n := f.Dim()
	r := mat.NewTriDense(n, mat.Upper, nil)
	for c := range n {
		col := f.Packed.Col(c)
		for row := 0; row <= c; row++ {
			r.SetTri(row, c, col[row])
		}
	}
	return r
}

// Q returns the orthogonal factor, built explicitly from the reflectors.
func (f *Factorization) Q() *mat.Dense {
	n := f.Dim()
	q := mat.NewDense(n, n, nil)
	e := make([]float64, n)
	for c := range n {
		clear(e)
		e[c] = 1
		f.ApplyQ(e)
		q.SetCol(c, e)
	}
	return q
}

// SolveVec solves A·x = b for x, using x = R⁻¹·Qᵀ·b.
// It returns an error if R is singular or too ill-conditioned (in which case x may still be returned).
func (f *Factorization) SolveVec(b []float64) ([]float64, error) {
	if len(b) != f.Dim() {
		return nil, errors.Errorf("qr: right-hand side has length %d, expected %d", len(b), f.Dim())
	}
	qtb := make([]float64, len(b))
	copy(qtb, b)
	f.ApplyQT(qtb)

	var x mat.VecDense
	err := x.SolveVec(f.R(), mat.NewVecDense(len(qtb), qtb))
	if err != nil {
		var condErr mat.Condition
		if errors.As(err, &condErr) {
			return x.RawVector().Data, errors.Wrapf(err, "qr: ill-conditioned R")
		}
		return nil, errors.Wrapf(err, "qr: failed to solve with R")
	}
	return x.RawVector().Data, nil
}

// Residual returns ‖A − Q·R‖_F / ‖A‖_F, where a is the original (not factorized) matrix.
// If a is all zeros, the absolute residual is returned.
func (f *Factorization) Residual(a *dense.Matrix) float64 {
	var qr mat.Dense
	qr.Mul(f.Q(), f.R())
	orig := a.ToGonum()
	var diff mat.Dense
	diff.Sub(orig, &qr)
	residual := mat.Norm(&diff, 2)
	if norm := mat.Norm(orig, 2); norm > 0 {
		residual /= norm
	}
	return residual
}
