// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gomlx/dagqr/pkg/trace"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTrace(t *testing.T) {
	recorder := trace.New()
	recorder.Reset("test", 1)
	recorder.Record(trace.Event{Worker: 0, Kind: "panel", ColStart: 0, ColEnd: 2,
		Start: time.Millisecond, End: 3 * time.Millisecond})

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "trace.csv")
	require.NoError(t, writeTrace(recorder, "", csvPath))
	assert.Greater(t, must.M1(os.Stat(csvPath)).Size(), int64(0))
	require.NoError(t, writeTrace(recorder, "", ""))

	// Write failures are returned, not panicked on.
	missingDir := filepath.Join(dir, "missing")
	var err error
	require.NotPanics(t, func() { err = writeTrace(recorder, "", filepath.Join(missingDir, "trace.csv")) })
	assert.ErrorContains(t, err, "failed to create trace CSV file")
	require.NotPanics(t, func() { err = writeTrace(recorder, filepath.Join(missingDir, "trace.png"), "") })
	assert.ErrorContains(t, err, "failed to save trace plot")
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	_, err := readInput(filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "not found")

	inputPath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("1 2\n3 4\n"), 0o644))
	a, err := readInput(inputPath)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Rows)
	assert.Equal(t, 2, a.Cols)
}
