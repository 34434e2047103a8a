// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool launches the fixed set of symmetric workers of a scheduler run and joins them.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool describes how many workers to run in parallel.
type Pool struct {
	// maxParallelism is the number of workers Saturate starts:
	// 0 disables parallelism (the task runs inline), negative means one worker per CPU.
	maxParallelism int
}

// New return a new Pool of workers with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	return &Pool{maxParallelism: runtime.NumCPU()}
}

// IsEnabled returns whether parallelism is enabled (maxParallelism is != 0)
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// MaxParallelism returns the configured parallelism.
// If 0 parallelism is disabled.
// If -1 parallelism is set to the number of CPUs.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// SetMaxParallelism sets the maxParallelism.
//
// You should only change the parallelism before any workers start running.
func (w *Pool) SetMaxParallelism(maxParallelism int) {
	w.maxParallelism = maxParallelism
}

// NumWorkers returns the number of workers Saturate will start.
func (w *Pool) NumWorkers() int {
	switch {
	case w.maxParallelism == 0:
		return 1
	case w.maxParallelism < 0:
		return runtime.NumCPU()
	default:
		return w.maxParallelism
	}
}

// Saturate starts NumWorkers goroutines running task, each with its own worker index in
// [0, NumWorkers), and waits for all of them to return.
//
// All workers are started together and joined together: no worker is created while the others are running.
// If parallelism is disabled, task(0) runs inline.
func (w *Pool) Saturate(task func(workerIdx int)) {
	if !w.IsEnabled() {
		task(0)
		return
	}
	numWorkers := w.NumWorkers()
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for workerIdx := range numWorkers {
		go func() {
			defer wg.Done()
			task(workerIdx)
		}()
	}
	wg.Wait()
}
