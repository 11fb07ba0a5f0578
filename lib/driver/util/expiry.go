package util

// This file provides a priority queue of key deadlines.
//
// A binary heap is combined with a map so the earliest deadline can be found
// in O(1), keys can be rescheduled or removed in O(log n) and looked up in O(1).
// Drivers without native expiration use it to evict expired keys actively
// instead of waiting for the next read.
//
// Note: ExpiryQueue is not thread-safe, callers have to synchronize access.
//
// Example usage:
//
//	q := NewExpiryQueue()
//	q.Schedule("a", time.Now().Add(time.Minute))
//	for _, key := range q.PopExpired(time.Now()) {
//	    // evict key
//	}

import (
	"container/heap"
	"time"
)

// deadline is a key with its expiration time
type deadline struct {
	Key   string
	At    time.Time
	index int // maintained by the heap package
}

func (d *deadline) String() string {
	return "{Key: " + d.Key + ", At: " + d.At.Format(time.RFC3339Nano) + "}"
}

// deadlines implements heap.Interface, the earliest deadline is at index 0
type deadlines []*deadline

func (h deadlines) Len() int           { return len(h) }
func (h deadlines) Less(i, j int) bool { return h[i].At.Before(h[j].At) }

func (h deadlines) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlines) Push(x any) {
	d := x.(*deadline)
	d.index = len(*h)
	*h = append(*h, d)
}

func (h *deadlines) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil // avoid memory leak
	d.index = -1
	*h = old[:n-1]
	return d
}

// ExpiryQueue orders keys by their expiration time
type ExpiryQueue struct {
	heap  deadlines
	byKey map[string]*deadline
}

// NewExpiryQueue creates an empty queue
func NewExpiryQueue() *ExpiryQueue {
	return &ExpiryQueue{
		heap:  make(deadlines, 0),
		byKey: make(map[string]*deadline),
	}
}

// Len returns the number of scheduled keys
func (q *ExpiryQueue) Len() int { return len(q.heap) }

// Schedule sets the expiration time of a key, an existing deadline is replaced
func (q *ExpiryQueue) Schedule(key string, at time.Time) {
	if d, ok := q.byKey[key]; ok {
		d.At = at
		heap.Fix(&q.heap, d.index)
		return
	}
	d := &deadline{Key: key, At: at}
	heap.Push(&q.heap, d)
	q.byKey[key] = d
}

// Remove drops the deadline of a key and returns it
func (q *ExpiryQueue) Remove(key string) (time.Time, bool) {
	d, ok := q.byKey[key]
	if !ok {
		return time.Time{}, false
	}
	heap.Remove(&q.heap, d.index)
	delete(q.byKey, key)
	return d.At, true
}

// Peek returns the earliest deadline without removing it
func (q *ExpiryQueue) Peek() (string, time.Time, bool) {
	if len(q.heap) == 0 {
		return "", time.Time{}, false
	}
	return q.heap[0].Key, q.heap[0].At, true
}

// Deadline returns the expiration time of a key
func (q *ExpiryQueue) Deadline(key string) (time.Time, bool) {
	d, ok := q.byKey[key]
	if !ok {
		return time.Time{}, false
	}
	return d.At, true
}

// PopExpired removes and returns all keys whose deadline is not after now,
// ordered from the earliest to the latest deadline
func (q *ExpiryQueue) PopExpired(now time.Time) []string {
	var keys []string
	for len(q.heap) > 0 && !q.heap[0].At.After(now) {
		d := heap.Pop(&q.heap).(*deadline)
		delete(q.byKey, d.Key)
		keys = append(keys, d.Key)
	}
	return keys
}
