// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package queues implements the concurrent multi-producer/multi-consumer queues used by the
// scheduler: a FIFO queue and a priority queue, both with non-blocking pop.
//
// The queues are bounded: the scheduler knows the total number of tasks up-front and each task is
// held by at most one queue at a time, so the capacity is never exceeded during a correct run.
// Pushing into a full queue is a programming error and panics.
package queues

import (
	"container/heap"
	"sync"

	"github.com/gomlx/exceptions"
)

// Queue is a concurrent queue with non-blocking operations.
type Queue[T any] interface {
	// Push adds an element. It never blocks.
	Push(value T)

	// TryPop removes and returns an element, or returns false if the queue is empty.
	TryPop() (value T, ok bool)

	// Len is the number of elements currently queued. It's only a snapshot under concurrency.
	Len() int
}

// FIFO is a bounded first-in first-out queue backed by a buffered channel.
type FIFO[T any] struct {
	c chan T
}

var _ Queue[int] = (*FIFO[int])(nil)

// NewFIFO creates a FIFO queue that can hold up to capacity elements.
func NewFIFO[T any](capacity int) *FIFO[T] {
	return &FIFO[T]{c: make(chan T, max(capacity, 1))}
}

// Push implements Queue.
func (q *FIFO[T]) Push(value T) {
	select {
	case q.c <- value:
	default:
		exceptions.Panicf("queues.FIFO: push into full queue (capacity %d)", cap(q.c))
	}
}

// TryPop implements Queue.
func (q *FIFO[T]) TryPop() (value T, ok bool) {
	select {
	case value = <-q.c:
		return value, true
	default:
		return value, false
	}
}

// Len implements Queue.
func (q *FIFO[T]) Len() int {
	return len(q.c)
}

// Priority is a bounded queue that pops the element with the highest priority first. Elements with
// equal priority pop in insertion order.
type Priority[T any] struct {
	mu       sync.Mutex
	h        priorityHeap[T]
	capacity int
	seq      uint64
}

var _ Queue[int] = (*Priority[int])(nil)

// NewPriority creates a priority queue for up to capacity elements, ordered by the given priority
// function.
func NewPriority[T any](capacity int, priority func(T) int) *Priority[T] {
	return &Priority[T]{
		h:        priorityHeap[T]{priority: priority, items: make([]priorityItem[T], 0, capacity)},
		capacity: max(capacity, 1),
	}
}

// Push implements Queue.
func (q *Priority[T]) Push(value T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h.items) >= q.capacity {
		exceptions.Panicf("queues.Priority: push into full queue (capacity %d)", q.capacity)
	}
	q.seq++
	heap.Push(&q.h, priorityItem[T]{value: value, seq: q.seq})
}

// TryPop implements Queue.
func (q *Priority[T]) TryPop() (value T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h.items) == 0 {
		return value, false
	}
	item := heap.Pop(&q.h).(priorityItem[T])
	return item.value, true
}

// Len implements Queue.
func (q *Priority[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h.items)
}

type priorityItem[T any] struct {
	value T
	seq   uint64
}

// priorityHeap implements heap.Interface as a max-heap on priority, FIFO on ties.
type priorityHeap[T any] struct {
	priority func(T) int
	items    []priorityItem[T]
}

func (h *priorityHeap[T]) Len() int { return len(h.items) }

func (h *priorityHeap[T]) Less(i, j int) bool {
	pi, pj := h.priority(h.items[i].value), h.priority(h.items[j].value)
	if pi != pj {
		return pi > pj
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *priorityHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *priorityHeap[T]) Push(x any) { h.items = append(h.items, x.(priorityItem[T])) }

func (h *priorityHeap[T]) Pop() any {
	last := len(h.items) - 1
	item := h.items[last]
	h.items = h.items[:last]
	return item
}
