// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package queues

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO(t *testing.T) {
	q := NewFIFO[int](3)
	_, ok := q.TryPop()
	assert.False(t, ok)
	for i := range 3 {
		q.Push(i)
	}
	assert.Equal(t, 3, q.Len())
	assert.Panics(t, func() { q.Push(3) })
	for want := range 3 {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, q.Len())
}

func TestPriority(t *testing.T) {
	type item struct {
		name     string
		priority int
	}
	q := NewPriority(5, func(it item) int { return it.priority })
	for _, it := range []item{{"a", 1}, {"b", 5}, {"c", 3}, {"d", 5}, {"e", 1}} {
		q.Push(it)
	}
	assert.Panics(t, func() { q.Push(item{"f", 0}) })
	var order []string
	for {
		it, ok := q.TryPop()
		if !ok {
			break
		}
		order = append(order, it.name)
	}
	// Highest first, insertion order on ties.
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, order)
}

func TestQueues_Concurrent(t *testing.T) {
	const numProducers, perProducer = 4, 1000
	total := numProducers * perProducer
	for name, q := range map[string]Queue[int]{
		"fifo":     NewFIFO[int](total),
		"priority": NewPriority(total, func(v int) int { return v % 7 }),
	} {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			var mu sync.Mutex
			seen := make(map[int]int, total)
			for p := range numProducers {
				wg.Add(2)
				go func() {
					defer wg.Done()
					for i := range perProducer {
						q.Push(p*perProducer + i)
					}
				}()
				go func() {
					defer wg.Done()
					for range perProducer {
						for {
							if v, ok := q.TryPop(); ok {
								mu.Lock()
								seen[v]++
								mu.Unlock()
								break
							}
						}
					}
				}()
			}
			wg.Wait()
			require.Len(t, seen, total)
			for v, count := range seen {
				require.Equal(t, 1, count, "value %d popped %d times", v, count)
			}
		})
	}
}
