// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package trace

import (
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
)

// eventRow is the tabular form of an Event, with times in milliseconds.
type eventRow struct {
	Worker     int     `dataframe:"worker"`
	Kind       string  `dataframe:"kind"`
	Row        int     `dataframe:"row"`
	Col        int     `dataframe:"col"`
	PivotStart int     `dataframe:"pivot_start"`
	PivotEnd   int     `dataframe:"pivot_end"`
	ColStart   int     `dataframe:"col_start"`
	ColEnd     int     `dataframe:"col_end"`
	StartMs    float64 `dataframe:"start_ms"`
	EndMs      float64 `dataframe:"end_ms"`
}

// DataFrame returns the events, sorted by start time, as a dataframe.
func (r *Recorder) DataFrame() dataframe.DataFrame {
	events := r.Events()
	rows := make([]eventRow, len(events))
	for i, e := range events {
		rows[i] = eventRow{
			Worker:     e.Worker,
			Kind:       e.Kind,
			Row:        e.Row,
			Col:        e.Col,
			PivotStart: e.PivotStart,
			PivotEnd:   e.PivotEnd,
			ColStart:   e.ColStart,
			ColEnd:     e.ColEnd,
			StartMs:    milliseconds(e.Start),
			EndMs:      milliseconds(e.End),
		}
	}
	return dataframe.LoadStructs(rows)
}

// WriteCSV writes the events as CSV, with a header line.
func (r *Recorder) WriteCSV(w io.Writer) error {
	df := r.DataFrame()
	if df.Err != nil {
		return errors.Wrap(df.Err, "failed to build trace dataframe")
	}
	if err := df.WriteCSV(w); err != nil {
		return errors.Wrap(err, "failed to write trace CSV")
	}
	return nil
}

// WriteCSVFile writes the events as CSV to filePath.
func (r *Recorder) WriteCSVFile(filePath string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create trace CSV file %q", filePath)
	}
	if err = r.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "failed to close trace CSV file %q", filePath)
}
