// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package matrixio reads and writes dense matrices in a plain text format and in NumPy's .npy and
// .npz formats.
//
// The text format has one matrix row per line, with values separated by white space and no header.
package matrixio

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gomlx/dagqr/pkg/core/dense"
	"github.com/pkg/errors"
)

// ReadText parses a whitespace-separated matrix, one row per line. Empty lines are ignored and all
// rows must have the same number of values.
func ReadText(r io.Reader) (*dense.Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var rows [][]float64
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for idx, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d, value #%d", lineNum, idx+1)
			}
			row[idx] = v
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, errors.Errorf("line %d has %d values, previous rows have %d", lineNum, len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read matrix text")
	}
	return dense.FromRows(rows)
}

// ReadTextFile reads a text matrix from filePath.
func ReadTextFile(filePath string) (*dense.Matrix, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open matrix file %q", filePath)
	}
	defer func() { _ = f.Close() }()
	m, err := ReadText(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to parse matrix file %q", filePath)
	}
	return m, nil
}

// WriteText writes m one row per line, values separated by a single space. Values are written with
// the shortest representation that parses back to the same float64.
func WriteText(w io.Writer, m *dense.Matrix) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for r := range m.Rows {
		for c := range m.Cols {
			if c > 0 {
				_ = bw.WriteByte(' ')
			}
			buf = strconv.AppendFloat(buf[:0], m.At(r, c), 'g', -1, 64)
			_, _ = bw.Write(buf)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrapf(err, "failed to write row %d", r)
		}
	}
	return errors.Wrap(bw.Flush(), "failed to flush matrix text")
}

// WriteTextFile writes m to filePath in the text format.
func WriteTextFile(filePath string, m *dense.Matrix) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create matrix file %q", filePath)
	}
	if err = WriteText(f, m); err != nil {
		_ = f.Close()
		return errors.WithMessagef(err, "failed to write matrix file %q", filePath)
	}
	return errors.Wrapf(f.Close(), "failed to close matrix file %q", filePath)
}

// ReadFile reads a matrix choosing the format from the file extension: ".npy" for NumPy, anything
// else for text.
func ReadFile(filePath string) (*dense.Matrix, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".npy") {
		return ReadNpyFile(filePath)
	}
	return ReadTextFile(filePath)
}

// WriteFile writes a matrix choosing the format from the file extension, see ReadFile.
func WriteFile(filePath string, m *dense.Matrix) error {
	if strings.EqualFold(filepath.Ext(filePath), ".npy") {
		return WriteNpyFile(filePath, m)
	}
	return WriteTextFile(filePath, m)
}
