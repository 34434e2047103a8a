// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xsync implements the extra synchronization tools used by the scheduler.
package xsync

import "sync"

// Latch implements a "latch" synchronization mechanism.
//
// A Latch is a signal that can be waited for until it is triggered.
// Once triggered it never changes state, it's forever triggered.
type Latch struct {
	once sync.Once
	wait chan struct{}
}

// NewLatch returns an un-triggered latch.
func NewLatch() *Latch {
	return &Latch{wait: make(chan struct{})}
}

// Trigger latch. Triggering an already triggered latch is a no-op.
func (l *Latch) Trigger() {
	l.once.Do(func() { close(l.wait) })
}

// Wait waits for the latch to be triggered.
func (l *Latch) Wait() {
	<-l.wait
}

// Test checks whether the latch has been triggered. It never blocks.
func (l *Latch) Test() bool {
	select {
	case <-l.wait:
		return true
	default:
		return false
	}
}

// WaitChan returns the channel that one can use on a `select` to check when
// the latch triggers.
// The returned channel is closed when the latch is triggered.
func (l *Latch) WaitChan() <-chan struct{} {
	return l.wait
}

// Epoch is a monotonically increasing counter that goroutines can wait on: a publish/subscribe
// signal where subscribers read the current epoch, check their condition, and if it doesn't hold
// wait for the epoch to advance.
//
// Reading the epoch before checking the condition guarantees no Advance in between is missed.
type Epoch struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value uint64
}

// NewEpoch returns an epoch starting at 0.
func NewEpoch() *Epoch {
	e := &Epoch{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Current returns the current epoch.
func (e *Epoch) Current() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Advance increments the epoch and wakes up every waiter.
func (e *Epoch) Advance() {
	e.mu.Lock()
	e.value++
	e.mu.Unlock()
	e.cond.Broadcast()
}

// WaitPast blocks until the epoch is larger than seen, and returns the new epoch.
func (e *Epoch) WaitPast(seen uint64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.value <= seen {
		e.cond.Wait()
	}
	return e.value
}
