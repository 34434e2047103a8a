// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package householder implements the two numeric kernels executed by the tiled QR scheduler:
// PanelFactorize, which computes Householder reflectors for a span of pivots, and ApplyUpdate,
// which applies previously computed reflectors to a trailing block of columns.
//
// The reflector for pivot p is stored implicitly: the entries of column p below the diagonal are
// left untouched and, together with the scalar Scales.Up[p], form the vector
//
//	u = (0, ..., 0, up, a[p+1, p], ..., a[n-1, p])
//
// and the reflection is H_p = I + b·u·uᵀ, with b = Scales.B[p] (negative, or 0 for a skipped pivot).
// The factored matrix satisfies A = H_0·H_1·...·H_{n-1}·R, with R the upper triangle of the
// overwritten buffer.
//
// Both kernels only write the columns they are given (plus the pivot diagonal, for PanelFactorize),
// so they can run concurrently with any other kernel call on a disjoint column span.
package householder

import (
	"math"

	"github.com/gomlx/dagqr/pkg/core/dense"
	"github.com/gomlx/exceptions"
)

// Span is a half-open range [Start, End) of row or column indices.
type Span struct {
	Start, End int
}

// Len returns the number of indices in the span, or 0 if it is empty.
func (s Span) Len() int {
	return max(0, s.End-s.Start)
}

// Overlaps returns whether the two spans share at least one index.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End && s.Len() > 0 && o.Len() > 0
}

// Scales holds the two Householder scalars per pivot.
//
// Entry p is written once, by the panel task that owns pivot p, and only read afterwards by
// update tasks, which the dependency graph orders after that panel task.
type Scales struct {
	Up, B []float64
}

// NewScales returns zeroed scale vectors for n pivots.
func NewScales(n int) *Scales {
	return &Scales{Up: make([]float64, n), B: make([]float64, n)}
}

// PanelFactorize computes the reflector for every pivot in pivots and applies it to the columns
// of columns that come after the pivot.
//
// A pivot whose column tail (the entries strictly below the diagonal) is all zeros is skipped,
// leaving the column as is and Up[p] = B[p] = 0. A non-negative b is also a skipped pivot.
func PanelFactorize(a *dense.Matrix, scales *Scales, pivots, columns Span) {
	checkArgs("PanelFactorize", a, scales, pivots, columns)
	n := a.Rows
	for p := pivots.Start; p < pivots.End; p++ {
		pivotCol := a.Col(p)

		// Scaled norm, to avoid overflow in the squares.
		var cl, tailSumSq float64
		for _, v := range pivotCol[p+1:] {
			abs := math.Abs(v)
			tailSumSq += abs * abs
			cl = max(cl, abs)
		}
		if cl == 0 {
			continue
		}
		diag := pivotCol[p]
		cl = max(cl, math.Abs(diag))
		clInv := 1.0 / cl
		scaledDiag := diag * clInv
		signedNorm := cl * math.Sqrt(scaledDiag*scaledDiag+tailSumSq*clInv*clInv)
		if diag > 0 {
			signedNorm = -signedNorm
		}

		up := diag - signedNorm
		pivotCol[p] = signedNorm
		b := up * signedNorm
		if b >= 0 {
			continue
		}
		b = 1.0 / b
		scales.Up[p] = up
		scales.B[p] = b

		for c := max(p+1, columns.Start); c < columns.End && c < n; c++ {
			reflect(a.Col(c), pivotCol, p, up, b)
		}
	}
}

// ApplyUpdate applies the reflectors of the pivots in pivots, already computed by PanelFactorize,
// to every column in columns.
//
// Skipped pivots (B[p] == 0) are no-ops.
func ApplyUpdate(a *dense.Matrix, scales *Scales, pivots, columns Span) {
	checkArgs("ApplyUpdate", a, scales, pivots, columns)
	for p := pivots.Start; p < pivots.End; p++ {
		up, b := scales.Up[p], scales.B[p]
		if b == 0 {
			continue
		}
		pivotCol := a.Col(p)
		for c := columns.Start; c < columns.End; c++ {
			reflect(a.Col(c), pivotCol, p, up, b)
		}
	}
}

// ApplyToVector applies H_p to x, for x of length n. It's used to apply Q or Qᵀ to right-hand
// sides after the factorization.
func ApplyToVector(a *dense.Matrix, scales *Scales, p int, x []float64) {
	b := scales.B[p]
	if b == 0 {
		return
	}
	reflect(x, a.Col(p), p, scales.Up[p], b)
}

// reflect applies x ← x + b·(uᵀx)·u, where u is defined by pivotCol[p+1:] and up.
func reflect(x, pivotCol []float64, p int, up, b float64) {
	sm := x[p] * up
	tail := pivotCol[p+1:]
	xTail := x[p+1 : p+1+len(tail)]
	for k, v := range tail {
		sm += xTail[k] * v
	}
	if sm == 0 {
		return
	}
	sm *= b
	x[p] += sm * up
	for k, v := range tail {
		xTail[k] += sm * v
	}
}

func checkArgs(name string, a *dense.Matrix, scales *Scales, pivots, columns Span) {
	if !a.IsSquare() {
		exceptions.Panicf("householder.%s: matrix must be square, got %dx%d", name, a.Rows, a.Cols)
	}
	n := a.Rows
	if pivots.Start < 0 || pivots.End > n || columns.Start < 0 || columns.End > n {
		exceptions.Panicf("householder.%s: pivots %v or columns %v out of range for dimension %d",
			name, pivots, columns, n)
	}
	if len(scales.Up) < n || len(scales.B) < n {
		exceptions.Panicf("householder.%s: scales have length %d/%d, need %d",
			name, len(scales.Up), len(scales.B), n)
	}
}
