/*
DESCRIPTION
  queue.go provides a min-ordered queue of actuation instants.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package actuator

import (
	"container/heap"
	"time"
)

// Queue holds pending actuation instants, earliest first. Duplicates are
// kept. The zero value is an empty queue.
type Queue struct {
	h timeHeap
}

// Push adds t to the queue.
func (q *Queue) Push(t time.Time) { heap.Push(&q.h, t) }

// Peek returns the earliest instant and whether the queue is non-empty.
func (q *Queue) Peek() (time.Time, bool) {
	if len(q.h) == 0 {
		return time.Time{}, false
	}
	return q.h[0], true
}

// Pop removes and returns the earliest instant.
func (q *Queue) Pop() (time.Time, bool) {
	if len(q.h) == 0 {
		return time.Time{}, false
	}
	return heap.Pop(&q.h).(time.Time), true
}

// Len returns the number of pending instants.
func (q *Queue) Len() int { return len(q.h) }

// timeHeap implements heap.Interface.
type timeHeap []time.Time

func (h timeHeap) Len() int           { return len(h) }
func (h timeHeap) Less(i, j int) bool { return h[i].Before(h[j]) }
func (h timeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *timeHeap) Push(x interface{}) { *h = append(*h, x.(time.Time)) }

func (h *timeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}
