// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Pool is a bounded multi-producer multi-consumer queue of handles, used
// where several goroutines take items from and give items back to one
// shared set, such as the unclaimed slots of a device.
//
// Each cell carries a turn number. Put may write cell pos%cap only while
// its turn equals pos; Get may read it only while its turn equals pos+1.
// Cursors are claimed by CAS, so any capacity >= 1 is exact.
//
// Put and Get are exact: Get reports empty only when no Put has claimed a
// position past the read cursor, and Put reports full only when Cap items
// are held. A caller that finds a cell claimed but not yet published by
// another goroutine waits out that window instead of failing.
type Pool[T any] struct {
	_        noCopy
	_        pad
	tail     atomix.Uint64 // next Put position
	_        pad
	head     atomix.Uint64 // next Get position
	_        pad
	cells    []poolCell[T]
	capacity uint64
}

type poolCell[T any] struct {
	turn atomix.Uint64
	item T
	_    padShort
}

// NewPool creates a pool holding up to capacity items.
// Panics if capacity < 1.
func NewPool[T any](capacity int) *Pool[T] {
	if capacity < 1 {
		panic("ring: capacity must be >= 1")
	}
	q := &Pool[T]{
		cells:    make([]poolCell[T], capacity),
		capacity: uint64(capacity),
	}
	for i := range q.cells {
		q.cells[i].turn.StoreRelaxed(uint64(i))
	}
	return q
}

// Put adds item to the pool.
// Returns ErrWouldBlock if the pool already holds Cap items.
func (q *Pool[T]) Put(item T) error {
	sw := spin.Wait{}
	for {
		pos := q.tail.LoadAcquire()
		c := &q.cells[pos%q.capacity]
		lag := int64(c.turn.LoadAcquire() - pos)
		if lag == 0 {
			if q.tail.CompareAndSwapAcqRel(pos, pos+1) {
				c.item = item
				c.turn.StoreRelease(pos + 1)
				return nil
			}
		} else if lag < 0 && int64(pos-q.head.LoadAcquire()) >= int64(q.capacity) {
			return ErrWouldBlock
		}
		// Lost the CAS, read a stale cursor, or a Get is still
		// releasing the cell.
		sw.Once()
	}
}

// Get removes and returns the oldest item.
// Returns (zero-value, ErrWouldBlock) if the pool is empty.
func (q *Pool[T]) Get() (T, error) {
	sw := spin.Wait{}
	for {
		pos := q.head.LoadAcquire()
		c := &q.cells[pos%q.capacity]
		lag := int64(c.turn.LoadAcquire() - (pos + 1))
		if lag == 0 {
			if q.head.CompareAndSwapAcqRel(pos, pos+1) {
				item := c.item
				var zero T
				c.item = zero
				c.turn.StoreRelease(pos + q.capacity)
				return item, nil
			}
		} else if lag < 0 && q.tail.LoadAcquire() <= pos {
			var zero T
			return zero, ErrWouldBlock
		}
		// Lost the CAS, read a stale cursor, or a Put is still
		// publishing the cell.
		sw.Once()
	}
}

// Len returns the number of items held.
// The result is exact only when no Put or Get runs concurrently.
func (q *Pool[T]) Len() int {
	head := q.head.LoadAcquire()
	n := int64(q.tail.LoadAcquire() - head)
	return int(min(max(n, 0), int64(q.capacity)))
}

// Cap returns the pool capacity.
func (q *Pool[T]) Cap() int {
	return int(q.capacity)
}
