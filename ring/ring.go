// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import "code.hybscloud.com/atomix"

// Ring is a fixed-capacity single-producer single-consumer circular queue.
//
// Based on Lamport's ring buffer with cached index optimization. Cursors
// are free-running counters; the cell index is the counter modulo the
// capacity, so any capacity >= 1 is supported exactly.
//
// Elements are copied in on Enqueue and copied out on Dequeue. The ring
// does not own what its elements refer to.
//
// Memory: O(capacity)
type Ring[T any] struct {
	_          noCopy
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	buffer     []T
	capacity   uint64
}

// New creates a ring holding up to capacity elements.
// Panics if capacity < 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("ring: capacity must be >= 1")
	}
	return &Ring[T]{
		buffer:   make([]T, capacity),
		capacity: uint64(capacity),
	}
}

// Enqueue copies *elem into the ring (producer only).
// Returns ErrWouldBlock if the ring is full; the ring is left unchanged.
func (q *Ring[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead >= q.capacity {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead >= q.capacity {
			return ErrWouldBlock
		}
	}

	q.buffer[tail%q.capacity] = *elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns the oldest element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the ring is empty; the ring is
// left unchanged.
func (q *Ring[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			var zero T
			return zero, ErrWouldBlock
		}
	}

	i := head % q.capacity
	elem := q.buffer[i]
	var zero T
	q.buffer[i] = zero
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// Cap returns the ring capacity.
func (q *Ring[T]) Cap() int {
	return int(q.capacity)
}

// Len returns the number of occupied cells.
// The result is exact only when no Enqueue or Dequeue runs concurrently,
// and it never exceeds Cap.
func (q *Ring[T]) Len() int {
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	n := tail - head
	if n > q.capacity {
		n = q.capacity
	}
	return int(n)
}

// Empty reports whether the read and write cursors coincide.
func (q *Ring[T]) Empty() bool {
	return q.head.LoadAcquire() == q.tail.LoadAcquire()
}

// Full reports whether every cell is occupied.
func (q *Ring[T]) Full() bool {
	head := q.head.LoadAcquire()
	return q.tail.LoadAcquire()-head >= q.capacity
}

// Clone returns an independent ring with the same capacity, cursors and a
// snapshot of the storage. Clone must not race with Enqueue or Dequeue.
func (q *Ring[T]) Clone() *Ring[T] {
	c := &Ring[T]{
		buffer:   make([]T, len(q.buffer)),
		capacity: q.capacity,
	}
	copy(c.buffer, q.buffer)
	c.head.StoreRelaxed(q.head.LoadAcquire())
	c.tail.StoreRelaxed(q.tail.LoadAcquire())
	return c
}

// noCopy makes go vet report copies of a Ring by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
