// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package householder

import (
	"testing"

	"github.com/gomlx/dagqr/pkg/core/dense"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// reconstruct returns H_0·…·H_{n-1}·R for a factorized matrix.
func reconstruct(a *dense.Matrix, scales *Scales) *mat.Dense {
	n := a.Rows
	out := mat.NewDense(n, n, nil)
	col := make([]float64, n)
	for c := range n {
		clear(col)
		for r := 0; r <= c; r++ {
			col[r] = a.At(r, c)
		}
		for p := n - 1; p >= 0; p-- {
			ApplyToVector(a, scales, p, col)
		}
		out.SetCol(c, col)
	}
	return out
}

func TestPanelFactorize_Whole(t *testing.T) {
	for _, n := range []int{2, 3, 10, 17} {
		original := dense.Random(n, uint64(n))
		a := original.Clone()
		scales := NewScales(n)
		PanelFactorize(a, scales, Span{0, n}, Span{0, n})
		got := reconstruct(a, scales)
		assert.True(t, mat.EqualApprox(original.ToGonum(), got, 1e-10), "n=%d: A != QR", n)
		for p := range n {
			assert.LessOrEqual(t, scales.B[p], 0.0)
		}
	}
}

func TestPanelFactorize_SkippedPivots(t *testing.T) {
	// 1×1: nothing below the diagonal.
	a := dense.New(1, 1)
	a.Set(0, 0, -3)
	scales := NewScales(1)
	PanelFactorize(a, scales, Span{0, 1}, Span{0, 1})
	assert.Equal(t, -3.0, a.At(0, 0))
	assert.Equal(t, 0.0, scales.B[0])

	// Identity: every tail is zero, so R = I.
	a = dense.Identity(4)
	scales = NewScales(4)
	PanelFactorize(a, scales, Span{0, 4}, Span{0, 4})
	assert.Equal(t, dense.Identity(4).Data, a.Data)
	assert.Equal(t, make([]float64, 4), scales.Up)
	assert.Equal(t, make([]float64, 4), scales.B)

	// A skipped pivot makes ApplyUpdate a no-op.
	before := a.Clone()
	ApplyUpdate(a, scales, Span{0, 2}, Span{2, 4})
	assert.Equal(t, before.Data, a.Data)
}

func TestTiledEqualsWhole(t *testing.T) {
	// Pivots in blocks of 2, columns in blocks of 4, applied in dependency order, must give the same
	// bits as a single panel over the whole matrix.
	n := 11
	original := dense.Random(n, 5)
	whole := original.Clone()
	wholeScales := NewScales(n)
	PanelFactorize(whole, wholeScales, Span{0, n}, Span{0, n})

	tiled := original.Clone()
	scales := NewScales(n)
	const w, h = 2, 4
	for j := 0; j*w < n; j++ {
		pivots := Span{j * w, min((j+1)*w, n)}
		diag := pivots.Start / h
		PanelFactorize(tiled, scales, pivots, Span{diag * h, min((diag+1)*h, n)})
		for i := diag + 1; i*h < n; i++ {
			ApplyUpdate(tiled, scales, pivots, Span{i * h, min((i+1)*h, n)})
		}
	}
	require.Equal(t, wholeScales.Up, scales.Up)
	require.Equal(t, wholeScales.B, scales.B)
	require.Equal(t, whole.Data, tiled.Data)
}

func TestSpan(t *testing.T) {
	assert.Equal(t, 3, Span{2, 5}.Len())
	assert.Equal(t, 0, Span{5, 2}.Len())
	assert.True(t, Span{0, 4}.Overlaps(Span{3, 8}))
	assert.False(t, Span{0, 4}.Overlaps(Span{4, 8}))
	assert.False(t, Span{3, 3}.Overlaps(Span{0, 8}))
}

func TestCheckArgs(t *testing.T) {
	a := dense.New(3, 4)
	assert.Panics(t, func() { PanelFactorize(a, NewScales(4), Span{0, 1}, Span{0, 1}) })
	a = dense.New(3, 3)
	assert.Panics(t, func() { ApplyUpdate(a, NewScales(3), Span{0, 1}, Span{2, 4}) })
	assert.Panics(t, func() { ApplyUpdate(a, NewScales(2), Span{0, 1}, Span{1, 3}) })
}
