// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/framepipe/ring"
)

// =============================================================================
// Ring - Basic Operations
// =============================================================================

// TestRingScenario walks the capacity-4 sequence: fill, reject, pop, refill.
func TestRingScenario(t *testing.T) {
	q := ring.New[string](4)

	if q.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", q.Cap())
	}
	for _, s := range []string{"A", "B", "C", "D"} {
		if err := q.Enqueue(&s); err != nil {
			t.Fatalf("Enqueue(%s): %v", s, err)
		}
	}
	if !q.Full() {
		t.Fatal("Full: got false after 4 enqueues, want true")
	}

	v := "X"
	if err := q.Enqueue(&v); !errors.Is(err, ring.ErrWouldBlock) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}

	got, err := q.Dequeue()
	if err != nil || got != "A" {
		t.Fatalf("Dequeue: got (%q, %v), want (A, nil)", got, err)
	}
	if q.Full() {
		t.Fatal("Full: got true after dequeue, want false")
	}

	e := "E"
	if err := q.Enqueue(&e); err != nil {
		t.Fatalf("Enqueue(E): %v", err)
	}

	for _, want := range []string{"B", "C", "D", "E"} {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got != want {
			t.Fatalf("Dequeue: got %q, want %q", got, want)
		}
	}
	if !q.Empty() {
		t.Fatal("Empty: got false after draining, want true")
	}
}

// TestRingFailureLeavesStateUnchanged verifies rejected operations have no side effect.
func TestRingFailureLeavesStateUnchanged(t *testing.T) {
	q := ring.New[int](2)

	if _, err := q.Dequeue(); !ring.IsWouldBlock(err) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
	if q.Len() != 0 || !q.Empty() || q.Full() {
		t.Fatalf("after failed Dequeue: Len=%d Empty=%v Full=%v", q.Len(), q.Empty(), q.Full())
	}

	for i := range 2 {
		if err := q.Enqueue(&i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	v := 99
	if err := q.Enqueue(&v); !ring.IsWouldBlock(err) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}
	if q.Len() != 2 || !q.Full() {
		t.Fatalf("after failed Enqueue: Len=%d Full=%v", q.Len(), q.Full())
	}
	for want := range 2 {
		got, err := q.Dequeue()
		if err != nil || got != want {
			t.Fatalf("Dequeue: got (%d, %v), want (%d, nil)", got, err, want)
		}
	}
}

// TestRingCapacityOne covers the degenerate ring where empty and full alternate.
func TestRingCapacityOne(t *testing.T) {
	q := ring.New[int](1)

	for i := range 5 {
		if !q.Empty() {
			t.Fatalf("round %d: Empty: got false, want true", i)
		}
		if err := q.Enqueue(&i); err != nil {
			t.Fatalf("round %d: Enqueue: %v", i, err)
		}
		if !q.Full() || q.Len() != 1 {
			t.Fatalf("round %d: Full=%v Len=%d, want true 1", i, q.Full(), q.Len())
		}
		got, err := q.Dequeue()
		if err != nil || got != i {
			t.Fatalf("round %d: Dequeue: got (%d, %v)", i, got, err)
		}
	}
}

// TestRingLenWraparound checks Len across many laps of the cursors.
func TestRingLenWraparound(t *testing.T) {
	const capacity = 5
	q := ring.New[int](capacity)

	next, want := 0, 0
	for lap := range 50 {
		n := lap%capacity + 1
		for range n {
			v := next
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("lap %d: Enqueue(%d): %v", lap, v, err)
			}
			next++
		}
		if q.Len() != n {
			t.Fatalf("lap %d: Len: got %d, want %d", lap, q.Len(), n)
		}
		for range n {
			got, err := q.Dequeue()
			if err != nil {
				t.Fatalf("lap %d: Dequeue: %v", lap, err)
			}
			if got != want {
				t.Fatalf("lap %d: FIFO violation: got %d, want %d", lap, got, want)
			}
			want++
		}
	}
}

// TestRingDequeueClearsCell verifies dequeued pointers are not retained.
func TestRingDequeueClearsCell(t *testing.T) {
	q := ring.New[*int](2)
	v := 7
	p := &v
	if err := q.Enqueue(&p); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	c := q.Clone()
	if _, err := q.Dequeue(); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	// The clone was taken before the dequeue and still holds the pointer.
	got, err := c.Dequeue()
	if err != nil || got != p {
		t.Fatalf("clone Dequeue: got (%v, %v), want (%v, nil)", got, err, p)
	}
}

// TestRingClone verifies Clone snapshots capacity, cursors and storage.
func TestRingClone(t *testing.T) {
	q := ring.New[int](3)
	for i := range 3 {
		q.Enqueue(&i)
	}
	q.Dequeue()

	c := q.Clone()
	if c.Cap() != 3 || c.Len() != 2 || c.Full() {
		t.Fatalf("clone: Cap=%d Len=%d Full=%v, want 3 2 false", c.Cap(), c.Len(), c.Full())
	}

	// Mutating the original must not affect the clone.
	v := 100
	q.Enqueue(&v)
	q.Dequeue()

	for _, want := range []int{1, 2} {
		got, err := c.Dequeue()
		if err != nil || got != want {
			t.Fatalf("clone Dequeue: got (%d, %v), want (%d, nil)", got, err, want)
		}
	}
	if _, err := c.Dequeue(); !ring.IsWouldBlock(err) {
		t.Fatalf("clone Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
	if q.Len() != 2 {
		t.Fatalf("original Len: got %d, want 2", q.Len())
	}
}

// TestRingInvalidCapacity verifies construction fails for capacity < 1.
func TestRingInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("New(%d): expected panic", capacity)
				}
			}()
			ring.New[int](capacity)
		}()
	}
}

// TestErrorClassification verifies the iox delegates.
func TestErrorClassification(t *testing.T) {
	if !ring.IsWouldBlock(ring.ErrWouldBlock) {
		t.Fatal("IsWouldBlock(ErrWouldBlock): got false, want true")
	}
	if ring.IsWouldBlock(errors.New("other")) {
		t.Fatal("IsWouldBlock(other): got true, want false")
	}
}

// =============================================================================
// Pool - Basic Operations
// =============================================================================

// TestPoolExactCapacity verifies a capacity that is not a power of 2 holds
// exactly that many items, in FIFO order.
func TestPoolExactCapacity(t *testing.T) {
	q := ring.NewPool[int](3)

	if q.Cap() != 3 {
		t.Fatalf("Cap: got %d, want 3", q.Cap())
	}
	for i := range 3 {
		if err := q.Put(i + 100); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	if err := q.Put(999); !errors.Is(err, ring.ErrWouldBlock) {
		t.Fatalf("Put on full: got %v, want ErrWouldBlock", err)
	}
	if q.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", q.Len())
	}
	for i := range 3 {
		val, err := q.Get()
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if val != i+100 {
			t.Fatalf("Get(%d): got %d, want %d", i, val, i+100)
		}
	}
	if _, err := q.Get(); !errors.Is(err, ring.ErrWouldBlock) {
		t.Fatalf("Get on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestPoolCapacityOne verifies a single-cell pool across many laps.
func TestPoolCapacityOne(t *testing.T) {
	q := ring.NewPool[int](1)
	for i := range 10 {
		if err := q.Put(i); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
		if err := q.Put(-1); !errors.Is(err, ring.ErrWouldBlock) {
			t.Fatalf("Put(%d) on full: got %v, want ErrWouldBlock", i, err)
		}
		if v, err := q.Get(); err != nil || v != i {
			t.Fatalf("Get: got (%d, %v), want (%d, nil)", v, err, i)
		}
	}
}

// TestPoolExactAfterEmptyPolls verifies that no number of failed Gets on
// an empty pool makes a later Get miss an item that is present.
func TestPoolExactAfterEmptyPolls(t *testing.T) {
	q := ring.NewPool[int](2)
	for round := range 3 {
		for range 1000 {
			if _, err := q.Get(); !errors.Is(err, ring.ErrWouldBlock) {
				t.Fatalf("round %d: Get on empty: got %v, want ErrWouldBlock", round, err)
			}
		}
		if err := q.Put(round); err != nil {
			t.Fatalf("round %d: Put: %v", round, err)
		}
		got, err := q.Get()
		if err != nil || got != round {
			t.Fatalf("round %d: Get: got (%d, %v), want (%d, nil)", round, got, err, round)
		}
		if q.Len() != 0 {
			t.Fatalf("round %d: Len: got %d, want 0", round, q.Len())
		}
	}
}

// TestPoolInvalidCapacity verifies construction fails for capacity < 1.
func TestPoolInvalidCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewPool(0): expected panic")
		}
	}()
	ring.NewPool[int](0)
}
