// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func newTestRecorder() *Recorder {
	r := New()
	r.Reset("run-1", 2)
	r.Record(Event{Worker: 0, Kind: "panel", Row: 0, Col: 0, PivotEnd: 2, ColEnd: 4, Start: ms(0), End: ms(10)})
	r.Record(Event{Worker: 1, Kind: "update", Row: 1, Col: 0, PivotEnd: 2, ColStart: 4, ColEnd: 8, Start: ms(10), End: ms(25)})
	r.Record(Event{Worker: 0, Kind: "update", Row: 2, Col: 0, PivotEnd: 2, ColStart: 8, ColEnd: 10, Start: ms(12), End: ms(20)})
	r.Record(Event{Worker: 0, Kind: "panel", Row: 1, Col: 1, PivotStart: 2, PivotEnd: 4, ColStart: 4, ColEnd: 8, Start: ms(25), End: ms(30)})
	return r
}

func TestRecorder(t *testing.T) {
	r := newTestRecorder()
	assert.Equal(t, 2, r.NumWorkers())
	events := r.Events()
	require.Len(t, events, 4)
	for i := 1; i < len(events); i++ {
		assert.LessOrEqual(t, events[i-1].Start, events[i].Start)
	}
	assert.Equal(t, ms(15), events[1].Duration())
	assert.Equal(t, ms(30), r.Makespan())
	assert.Equal(t, 2, r.MaxConcurrency())
	assert.NoError(t, r.CheckDisjointColumns())

	// A task writing columns [6, 9) while (1, 0) runs.
	r.Record(Event{Worker: 0, Kind: "update", Row: 5, Col: 0, ColStart: 6, ColEnd: 9, Start: ms(20), End: ms(22)})
	err := r.CheckDisjointColumns()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlapping columns")

	r.Reset("run-2", 1)
	assert.Empty(t, r.Events())
	assert.Equal(t, "run-2", r.RunID)
}

func TestWriteCSV(t *testing.T) {
	r := newTestRecorder()
	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, strings.ToLower(lines[0]), "worker")
	assert.Contains(t, lines[1], "panel")

	df := r.DataFrame()
	assert.Equal(t, 4, df.Nrow())
}

func TestWritePlot(t *testing.T) {
	r := newTestRecorder()
	filePath := filepath.Join(t.TempDir(), "trace.png")
	require.NoError(t, r.WritePlot(filePath))
	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
