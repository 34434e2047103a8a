// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// dagqr factorizes a dense square matrix with the DAG-scheduled tiled QR and writes the packed result.
//
// Usage:
//
//	dagqr -input=matrix.txt -output=packed.txt -workers=8 -verify
//	dagqr -n=2000 -seed=7 -row_block=64 -col_block=32 -priority -trace_plot=trace.png
//
// Without -input a random n×n matrix with values in [-10, 10) is factorized.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/dagqr/pkg/core/dense"
	"github.com/gomlx/dagqr/pkg/matrixio"
	"github.com/gomlx/dagqr/pkg/qr"
	"github.com/gomlx/dagqr/pkg/support/fsutil"
	"github.com/gomlx/dagqr/pkg/trace"
	"github.com/gomlx/dagqr/ui/commandline"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagInput  = flag.String("input", "", "Matrix to factorize: a .npy file, or a text file with one row per line.")
	flagOutput = flag.String("output", "", "If set, the packed factorization (R above the diagonal, "+
		"Householder vectors below) is written here, as .npy or text depending on the extension.")
	flagNpz  = flag.String("npz", "", "If set, writes a .npz archive with the arrays \"packed\", \"up\" and \"b\".")
	flagN    = flag.Int("n", 1000, "Dimension of the random matrix generated when -input is not given.")
	flagSeed = flag.Uint64("seed", 0, "Seed of the random matrix generated when -input is not given. "+
		"If 0, the dimension is used.")

	flagRowBlock = flag.Int("row_block", qr.DefaultRowBlockHeight,
		"Row-block height: the number of matrix columns updated by one tile. Must be a multiple of -col_block.")
	flagColBlock = flag.Int("col_block", qr.DefaultColBlockWidth, "Column-block width: pivots factorized by one panel task.")
	flagWorkers  = flag.Int("workers", runtime.NumCPU(), "Number of worker goroutines.")
	flagPriority = flag.Bool("priority", false, "Pop ready tasks by priority (critical path first) instead of FIFO.")
	flagIdle     = flag.String("idle", "spin", "What idle workers do: \"spin\", \"yield\" or \"notify\".")

	flagVerify    = flag.Bool("verify", false, "Verify the factorization: reports ‖A − QR‖_F / ‖A‖_F.")
	flagTracePlot = flag.String("trace_plot", "", "If set, saves a Gantt chart of the task schedule (.png, .svg or .pdf).")
	flagTraceCSV  = flag.String("trace_csv", "", "If set, saves the task schedule as CSV.")
	flagProgress  = flag.Bool("progress", false, "Display a progress bar.")
	flagPerWorker = flag.Bool("per_worker", false, "Include per-worker statistics in the report.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if err := run(); err != nil {
		klog.Errorf("dagqr failed: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	for _, outputFlag := range []*string{flagOutput, flagNpz, flagTracePlot, flagTraceCSV} {
		resolved, err := fsutil.ResolveOutput(*outputFlag)
		if err != nil {
			return err
		}
		*outputFlag = resolved
	}
	a, err := loadMatrix()
	if err != nil {
		return err
	}
	var original *dense.Matrix
	if *flagVerify {
		original = a.Clone()
	}

	idle, err := qr.IdleStrategyString(*flagIdle)
	if err != nil {
		return err
	}
	builder := qr.Build(a).
		Tiles(*flagRowBlock, *flagColBlock).
		Workers(*flagWorkers).
		Idle(idle)
	if *flagPriority {
		builder.PriorityOrdering()
	}
	var recorder *trace.Recorder
	if *flagTracePlot != "" || *flagTraceCSV != "" {
		recorder = trace.New()
		builder.Trace(recorder)
	}
	var pBar *commandline.ProgressBar
	if *flagProgress {
		pBar = commandline.NewProgressBar()
		builder.OnTaskDone(pBar.OnTaskDone)
	}

	f, err := builder.Done()
	if pBar != nil {
		pBar.Finish()
	}
	if err != nil {
		return err
	}

	residual := -1.0
	if original != nil {
		residual = f.Residual(original)
	}
	commandline.PrintReport(os.Stdout, f.Stats, residual, *flagPerWorker)

	if *flagOutput != "" {
		if err := matrixio.WriteFile(*flagOutput, f.Packed); err != nil {
			return err
		}
		klog.V(1).Infof("packed factorization written to %q", *flagOutput)
	}
	if *flagNpz != "" {
		if err := matrixio.WriteNpzFile(*flagNpz, f.Packed, f.Up, f.B); err != nil {
			return err
		}
		klog.V(1).Infof("factorization archive written to %q", *flagNpz)
	}
	if recorder != nil {
		if err := recorder.CheckDisjointColumns(); err != nil {
			klog.Errorf("trace check failed: %v", err)
		}
		if err := writeTrace(recorder, *flagTracePlot, *flagTraceCSV); err != nil {
			return err
		}
		fmt.Printf("Trace: %s events, max concurrency %d, makespan %s\n",
			humanize.Comma(int64(len(recorder.Events()))), recorder.MaxConcurrency(),
			commandline.FormatDuration(recorder.Makespan()))
	}
	return nil
}

// writeTrace saves the schedule plot and CSV; empty paths are skipped.
func writeTrace(recorder *trace.Recorder, plotPath, csvPath string) error {
	if plotPath != "" {
		if err := recorder.WritePlot(plotPath); err != nil {
			return err
		}
		klog.V(1).Infof("trace plot written to %q", plotPath)
	}
	if csvPath != "" {
		if err := recorder.WriteCSVFile(csvPath); err != nil {
			return err
		}
		klog.V(1).Infof("trace CSV written to %q", csvPath)
	}
	return nil
}

func loadMatrix() (*dense.Matrix, error) {
	if *flagInput != "" {
		return readInput(*flagInput)
	}
	seed := *flagSeed
	if seed == 0 {
		seed = uint64(*flagN)
	}
	if *flagN <= 0 {
		return nil, qr.ErrEmptyMatrix
	}
	klog.V(1).Infof("generating random %dx%d matrix (seed=%d)", *flagN, *flagN, seed)
	return dense.Random(*flagN, seed), nil
}

func readInput(inputPath string) (*dense.Matrix, error) {
	inputPath, err := fsutil.ExpandHome(inputPath)
	if err != nil {
		return nil, err
	}
	exists, err := fsutil.FileExists(inputPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Errorf("input matrix %q not found", inputPath)
	}
	a, err := matrixio.ReadFile(inputPath)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("read %dx%d matrix from %q", a.Rows, a.Cols, inputPath)
	return a, nil
}
