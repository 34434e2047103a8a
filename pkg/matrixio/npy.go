// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matrixio

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/gomlx/dagqr/pkg/core/dense"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

const npyMagic = "\x93NUMPY"

// MaxNpyElements is the largest number of values ReadNpy accepts for one array.
const MaxNpyElements = 1 << 30

var (
	reDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	reFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	reShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ReadNpyFile reads a 2-D .npy file.
func ReadNpyFile(filePath string) (*dense.Matrix, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npy file %q", filePath)
	}
	defer func() { _ = file.Close() }()
	m, err := ReadNpy(file)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to read .npy file %q", filePath)
	}
	return m, nil
}

// ReadNpy reads a 2-D NumPy array of little-endian float64 ('<f8'), float32 ('<f4') or float16
// ('<f2') values, in either C or Fortran order. 1-D arrays are read as a single column.
func ReadNpy(r io.Reader) (*dense.Matrix, error) {
	preamble := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return nil, errors.Wrapf(err, "failed to read magic string and version")
	}
	if string(preamble[:len(npyMagic)]) != npyMagic {
		return nil, errors.Errorf("invalid .npy file format: magic string mismatch")
	}

	var headerLen int
	switch major := preamble[len(npyMagic)]; {
	case major == 1:
		lenBytes := make([]byte, 2)
		if _, err := io.ReadFull(r, lenBytes); err != nil {
			return nil, errors.Wrapf(err, "failed to read header length (v1.0)")
		}
		headerLen = int(binary.LittleEndian.Uint16(lenBytes))
	case major >= 2:
		lenBytes := make([]byte, 4)
		if _, err := io.ReadFull(r, lenBytes); err != nil {
			return nil, errors.Wrapf(err, "failed to read header length (v2.0+)")
		}
		headerLen = int(binary.LittleEndian.Uint32(lenBytes))
		if headerLen > 1<<20 {
			return nil, errors.Errorf(".npy header length %d is too large", headerLen)
		}
	default:
		return nil, errors.Errorf("unsupported .npy version: %d.%d", preamble[6], preamble[7])
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrapf(err, "failed to read header")
	}
	descr, dims, fortranOrder, err := parseNpyHeader(string(headerBytes))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to parse .npy header")
	}

	var rows, cols int
	switch len(dims) {
	case 1:
		rows, cols = dims[0], 1
	case 2:
		rows, cols = dims[0], dims[1]
	default:
		return nil, errors.Errorf("only 1-D or 2-D arrays can be read as a matrix, got shape %v", dims)
	}
	if cols > 0 && rows > MaxNpyElements/cols {
		return nil, errors.Errorf("shape (%d, %d) exceeds the limit of %d values", rows, cols, MaxNpyElements)
	}

	elementSize, decode, err := npyDecoder(descr)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, rows*cols*elementSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrapf(err, "failed to read matrix data (expected %d bytes)", len(raw))
	}
	values := make([]float64, rows*cols)
	for idx := range values {
		values[idx] = decode(raw[idx*elementSize:])
	}
	if fortranOrder {
		// Fortran order is the column-major layout of dense.Matrix.
		return &dense.Matrix{Rows: rows, Cols: cols, Data: values}, nil
	}
	return dense.FromRowMajor(rows, cols, values)
}

// npyDecoder returns the element size and the decoder of a NumPy dtype descriptor.
func npyDecoder(descr string) (int, func([]byte) float64, error) {
	if strings.HasPrefix(descr, ">") {
		return 0, nil, errors.Errorf("big-endian .npy files (%q) are not supported", descr)
	}
	switch strings.TrimLeft(descr, "<=|") {
	case "f8":
		return 8, func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }, nil
	case "f4":
		return 4, func(b []byte) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}, nil
	case "f2":
		return 2, func(b []byte) float64 {
			return float64(float16.Frombits(binary.LittleEndian.Uint16(b)).Float32())
		}, nil
	}
	return 0, nil, errors.Errorf("unsupported NumPy dtype %q: only '<f8', '<f4' and '<f2' can be read", descr)
}

// parseNpyHeader extracts dtype, shape, and fortran_order from the .npy header dictionary.
// Example: "{'descr': '<f8', 'fortran_order': False, 'shape': (3, 4), }"
func parseNpyHeader(header string) (descr string, dims []int, fortranOrder bool, err error) {
	mDescr := reDescr.FindStringSubmatch(header)
	if len(mDescr) < 2 {
		err = errors.Errorf("could not find 'descr' in header: %q", header)
		return
	}
	descr = mDescr[1]

	mFortran := reFortran.FindStringSubmatch(header)
	if len(mFortran) < 2 {
		err = errors.Errorf("could not find 'fortran_order' in header: %q", header)
		return
	}
	fortranOrder = mFortran[1] == "True"

	mShape := reShape.FindStringSubmatch(header)
	if len(mShape) < 2 {
		err = errors.Errorf("could not find 'shape' in header: %q", header)
		return
	}
	for _, part := range strings.Split(mShape[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" { // Trailing comma of "(N,)".
			continue
		}
		dim, pErr := strconv.Atoi(part)
		if pErr != nil {
			err = errors.Wrapf(pErr, "invalid shape value %q in header", part)
			return
		}
		if dim < 0 {
			err = errors.Errorf("negative dimension %d in shape (%s)", dim, mShape[1])
			return
		}
		dims = append(dims, dim)
	}
	return
}

// WriteNpyFile writes m as a 2-D '<f8' .npy file.
func WriteNpyFile(filePath string, m *dense.Matrix) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create .npy file %q", filePath)
	}
	if err = WriteNpy(file, m); err != nil {
		_ = file.Close()
		return errors.WithMessagef(err, "failed to write .npy file %q", filePath)
	}
	return errors.Wrapf(file.Close(), "failed to close .npy file %q", filePath)
}

// WriteNpy writes m as a 2-D '<f8' NumPy array. The values are written in Fortran order, the
// layout of dense.Matrix.
func WriteNpy(w io.Writer, m *dense.Matrix) error {
	return writeNpyArray(w, fmt.Sprintf("(%d, %d)", m.Rows, m.Cols), true, m.Data)
}

// writeNpyVector writes values as a 1-D '<f8' array.
func writeNpyVector(w io.Writer, values []float64) error {
	return writeNpyArray(w, fmt.Sprintf("(%d,)", len(values)), false, values)
}

func writeNpyArray(w io.Writer, shapeTuple string, fortranOrder bool, values []float64) error {
	fortran := "False"
	if fortranOrder {
		fortran = "True"
	}
	var header bytes.Buffer
	fmt.Fprintf(&header, "{'descr': '<f8', 'fortran_order': %s, 'shape': %s, }", fortran, shapeTuple)
	// Magic (6) + version (2) + header length (2), then the header padded with spaces and terminated
	// with a newline, so that the data starts 64-byte aligned.
	for (10+header.Len()+1)%64 != 0 {
		header.WriteByte(' ')
	}
	header.WriteByte('\n')

	preamble := make([]byte, 0, 10)
	preamble = append(preamble, npyMagic...)
	preamble = append(preamble, 1, 0)
	preamble = binary.LittleEndian.AppendUint16(preamble, uint16(header.Len()))
	if _, err := w.Write(preamble); err != nil {
		return errors.Wrapf(err, "failed to write .npy preamble")
	}
	if _, err := w.Write(header.Bytes()); err != nil {
		return errors.Wrapf(err, "failed to write .npy header")
	}
	data := make([]byte, 8*len(values))
	for idx, v := range values {
		binary.LittleEndian.PutUint64(data[idx*8:], math.Float64bits(v))
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrapf(err, "failed to write .npy data")
	}
	return nil
}

// WriteNpzFile writes the factorization as a .npz archive with three arrays: "packed" (the
// factorized matrix), "up" and "b" (the Householder scales).
func WriteNpzFile(filePath string, packed *dense.Matrix, up, b []float64) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create .npz file %q", filePath)
	}
	if err = WriteNpz(file, packed, up, b); err != nil {
		_ = file.Close()
		return errors.WithMessagef(err, "failed to write .npz file %q", filePath)
	}
	return errors.Wrapf(file.Close(), "failed to close .npz file %q", filePath)
}

// WriteNpz writes the .npz archive described in WriteNpzFile to w.
func WriteNpz(w io.Writer, packed *dense.Matrix, up, b []float64) error {
	zipWriter := zip.NewWriter(w)
	entries := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"packed", func(w io.Writer) error { return WriteNpy(w, packed) }},
		{"up", func(w io.Writer) error { return writeNpyVector(w, up) }},
		{"b", func(w io.Writer) error { return writeNpyVector(w, b) }},
	}
	for _, entry := range entries {
		npyName := entry.name + ".npy"
		fileWriter, err := zipWriter.Create(npyName)
		if err != nil {
			return errors.Wrapf(err, "failed to create %q in .npz archive", npyName)
		}
		if err := entry.write(fileWriter); err != nil {
			return errors.WithMessagef(err, "failed to write array %q to .npz archive", entry.name)
		}
		klog.V(2).Infof("matrixio: wrote %q to .npz archive", npyName)
	}
	return errors.Wrap(zipWriter.Close(), "failed to close .npz archive")
}

// ReadNpz reads every array of a .npz archive, as matrices (1-D arrays become single columns).
func ReadNpz(r io.ReaderAt, size int64) (map[string]*dense.Matrix, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create zip reader for .npz")
	}
	results := make(map[string]*dense.Matrix, len(zipReader.File))
	for _, f := range zipReader.File {
		if !strings.HasSuffix(f.Name, ".npy") {
			klog.Warningf("matrixio: skipping non-.npy entry %q in .npz archive", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %q within .npz", f.Name)
		}
		m, err := ReadNpy(rc)
		_ = rc.Close()
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to read array %q from .npz", f.Name)
		}
		results[strings.TrimSuffix(f.Name, ".npy")] = m
	}
	return results, nil
}
