// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring provides the bounded FIFO queues used to hand resource
// slots between the goroutines of a frame pipeline.
//
// Two queues are offered:
//
//   - Ring: fixed-capacity circular queue for exactly one producer and
//     exactly one consumer. Capacity is exact (not rounded).
//   - Pool: multi-producer multi-consumer queue for sets of handles that
//     several goroutines take from and give back to concurrently. Capacity
//     is exact, and Get and Put fail only when the pool is truly empty or
//     full.
//
// # Quick Start
//
//	free := ring.New[*Slot](4)
//	for _, s := range slots {
//	    free.Enqueue(&s)
//	}
//
//	s, err := free.Dequeue()
//	if ring.IsWouldBlock(err) {
//	    // No free slot - backpressure
//	}
//
// # Ring Semantics
//
// Ring keeps a read cursor and a write cursor that advance independently
// without blocking. Enqueue on a full ring and Dequeue on an empty ring
// fail with [ErrWouldBlock] and leave the ring unchanged. Len is exact only
// in the absence of concurrent mutation.
//
// The cursors are monotonically increasing counters published with
// release stores and observed with acquire loads, and the full state is
// derived from their distance rather than kept in a separate flag. A
// stored flag written by both sides is unsound even for one producer and
// one consumer: the producer can observe the flag cleared before the
// consumer has read the cell it is about to overwrite.
//
// Clone returns an independent snapshot of capacity, cursors and storage.
// Ring must not be copied by value; go vet reports such copies.
//
// # Thread Safety
//
//   - Ring: one producer goroutine, one consumer goroutine
//   - Pool: any number of goroutines calling Put and Get
//
// Violating these constraints (e.g., two goroutines calling Ring.Dequeue
// concurrently) causes undefined behavior including lost and duplicated
// elements.
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships
// established through atomix acquire-release orderings on separate
// variables. Tests that exercise cross-goroutine handoff skip themselves
// when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package ring
