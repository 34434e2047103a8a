// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dense holds the square, column-major float64 matrix buffer that the tiled QR
// factorization mutates in place.
//
// Column c of an n×n matrix is Data[c*n : (c+1)*n]: the Householder kernels walk down columns,
// so that is the contiguous direction.
package dense

import (
	"math"
	"math/rand/v2"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense matrix stored in column-major order.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

// New returns a zero-filled rows×cols matrix.
func New(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		exceptions.Panicf("dense.New(%d, %d): negative dimensions", rows, cols)
	}
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// Identity returns the n×n identity matrix.
func Identity(n int) *Matrix {
	m := New(n, n)
	for i := range n {
		m.Data[i*n+i] = 1
	}
	return m
}

// FromRows builds a matrix from a slice of rows. All rows must have the same length.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	numCols := len(rows[0])
	m := New(len(rows), numCols)
	for r, row := range rows {
		if len(row) != numCols {
			return nil, errors.Errorf("dense.FromRows: row %d has %d values, expected %d", r, len(row), numCols)
		}
		for c, v := range row {
			m.Data[c*m.Rows+r] = v
		}
	}
	return m, nil
}

// FromRowMajor builds a matrix from a flat row-major buffer, copying the values.
func FromRowMajor(rows, cols int, values []float64) (*Matrix, error) {
	if len(values) != rows*cols {
		return nil, errors.Errorf("dense.FromRowMajor: got %d values for a %dx%d matrix", len(values), rows, cols)
	}
	m := New(rows, cols)
	for r := range rows {
		for c := range cols {
			m.Data[c*rows+r] = values[r*cols+c]
		}
	}
	return m, nil
}

// FromGonum copies a gonum matrix.
func FromGonum(g mat.Matrix) *Matrix {
	rows, cols := g.Dims()
	m := New(rows, cols)
	for c := range cols {
		for r := range rows {
			m.Data[c*rows+r] = g.At(r, c)
		}
	}
	return m
}

// Random returns an n×n matrix with values uniformly distributed in [-10, 10).
func Random(n int, seed uint64) *Matrix {
	rng := rand.New(rand.NewPCG(seed, uint64(n)*100000+uint64(n)))
	m := New(n, n)
	for i := range m.Data {
		m.Data[i] = rng.Float64()*20 - 10
	}
	return m
}

// IsSquare returns whether Rows == Cols.
func (m *Matrix) IsSquare() bool { return m.Rows == m.Cols }

// At returns the element at row r, column c.
func (m *Matrix) At(r, c int) float64 {
	return m.Data[c*m.Rows+r]
}

// Set sets the element at row r, column c.
func (m *Matrix) Set(r, c int, v float64) {
	m.Data[c*m.Rows+r] = v
}

// Col returns column c, aliasing the underlying buffer.
func (m *Matrix) Col(c int) []float64 {
	return m.Data[c*m.Rows : (c+1)*m.Rows]
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{Rows: m.Rows, Cols: m.Cols, Data: make([]float64, len(m.Data))}
	copy(c.Data, m.Data)
	return c
}

// RowMajor returns the values as a new row-major slice.
func (m *Matrix) RowMajor() []float64 {
	out := make([]float64, len(m.Data))
	for r := range m.Rows {
		for c := range m.Cols {
			out[r*m.Cols+c] = m.Data[c*m.Rows+r]
		}
	}
	return out
}

// ToGonum returns a copy as a gonum *mat.Dense.
func (m *Matrix) ToGonum() *mat.Dense {
	return mat.NewDense(m.Rows, m.Cols, m.RowMajor())
}

// FrobeniusNorm returns sqrt(Σ a_ij²).
func (m *Matrix) FrobeniusNorm() float64 {
	var sum float64
	for _, v := range m.Data {
		sum += v * v
	}
	return math.Sqrt(sum)
}
