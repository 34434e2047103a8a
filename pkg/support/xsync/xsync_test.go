// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xsync

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatch(t *testing.T) {
	l := NewLatch()
	assert.False(t, l.Test())

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Wait()
		}()
	}
	l.Trigger()
	l.Trigger() // Second trigger is a no-op.
	wg.Wait()
	assert.True(t, l.Test())
	select {
	case <-l.WaitChan():
	default:
		t.Fatal("WaitChan should be closed after Trigger")
	}
}

func TestEpoch(t *testing.T) {
	e := NewEpoch()
	require.Equal(t, uint64(0), e.Current())

	seen := e.Current()
	woken := make(chan uint64)
	go func() {
		woken <- e.WaitPast(seen)
	}()

	select {
	case <-woken:
		t.Fatal("WaitPast returned before Advance")
	case <-time.After(20 * time.Millisecond):
	}
	e.Advance()
	select {
	case got := <-woken:
		assert.Equal(t, uint64(1), got)
	case <-time.After(time.Second):
		t.Fatal("WaitPast not woken by Advance")
	}

	// Already past: returns immediately.
	e.Advance()
	assert.Equal(t, uint64(2), e.WaitPast(0))
}
