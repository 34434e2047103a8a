// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gomlx/dagqr/pkg/support/xsync"
	"github.com/stretchr/testify/assert"
)

func TestPool_Saturate(t *testing.T) {
	// Test saturation: all workers must be running at the same time.
	pool := New()
	wantTasks := 5
	pool.SetMaxParallelism(wantTasks)

	var count atomic.Int32
	var seen [5]atomic.Bool
	doneNewTasks := xsync.NewLatch()
	doneTest := xsync.NewLatch()

	go func() {
		pool.Saturate(func(workerIdx int) {
			seen[workerIdx].Store(true)
			got := count.Add(1)
			runtime.Gosched()
			if int(got) == wantTasks {
				doneNewTasks.Trigger()
				return
			}
			doneNewTasks.Wait()
		})
		doneTest.Trigger()
	}()

	select {
	case <-doneTest.WaitChan():
		// Success
	case <-time.After(time.Second):
		t.Fatal("Timeout before all tasks were executed.")
	}
	if int(count.Load()) != wantTasks {
		t.Fatalf("Expected %d tasks, got %d", wantTasks, count.Load())
	}
	for idx := range seen {
		assert.True(t, seen[idx].Load(), "worker %d never ran", idx)
	}

	// Test No Parallelism
	pool.SetMaxParallelism(0)
	count.Store(0)
	pool.Saturate(func(workerIdx int) {
		assert.Equal(t, 0, workerIdx)
		count.Add(1)
	})
	assert.Equal(t, int32(1), count.Load())

	// Test one worker per CPU.
	pool.SetMaxParallelism(-1)
	count.Store(0)
	pool.Saturate(func(int) { count.Add(1) })
	assert.Equal(t, int32(runtime.NumCPU()), count.Load())
	assert.Equal(t, runtime.NumCPU(), pool.NumWorkers())
}
