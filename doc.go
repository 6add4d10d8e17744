// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package framepipe streams batches of raw detector frames through a pool
// of accelerator slots, applies a per-pixel correction kernel and hands
// back corrected results.
//
// Transfer and compute overlap across slots, so throughput is bounded by
// the slower of transfer and kernel time rather than their sum.
//
// # Components
//
//   - Table: the slots of an accelerator pool. One slot is one stream, one
//     completion event, pinned staging buffers and device buffers on one
//     device. Shared by every pipeline built on it.
//   - Pipeline: one correction configuration (one correction map). Owns
//     the slots it claimed from a Table and a ring of the free ones.
//   - ring.Ring: the lock-free free-slot ring between Retrieve (producer)
//     and Ingest (consumer).
//
// # Quick Start
//
//	platform, _ := accel.NewPlatform(2)
//	table, _ := framepipe.NewTable(platform, framepipe.TableConfig{
//	    Slots: 8, MaxFrames: 100, Pixels: 1024 * 512,
//	})
//	defer table.Close()
//
//	p, _ := framepipe.New(table, gainMap, 4)
//	defer p.Close()
//
//	// Producer
//	n, err := p.Ingest(frames)
//	if err == nil && n == 0 {
//	    // No free slot - backpressure
//	}
//
//	// Consumer
//	var r framepipe.Result
//	if p.Retrieve(&r) {
//	    consume(r.Seq, r.Sums)
//	}
//
// # Slot Lifecycle
//
//	StateFree --Ingest--> StateProcessing --callback--> StateReady --Retrieve--> StateFree
//
// Ingest takes a slot from the free ring, stages the frames in pinned
// memory and issues copy-in, kernel, copy-out and a completion callback on
// the slot's stream. The callback runs on the stream's goroutine and only
// flips the slot to StateReady. Retrieve copies the result out on the
// consumer goroutine and puts the slot back on the free ring.
//
// Within a slot the three operations run in issue order. Across slots
// there is no ordering: a later batch can become ready first. Result.Seq
// carries the ingest order.
//
// # Backpressure
//
// Ingest returning zero accepted frames and a nil error means every slot
// is busy. Retrieve returning false means nothing is ready. Neither is an
// error:
//
//	backoff := iox.Backoff{}
//	for {
//	    n, err := p.Ingest(frames)
//	    if err != nil {
//	        return err
//	    }
//	    if n > 0 {
//	        backoff.Reset()
//	        break
//	    }
//	    backoff.Wait()
//	}
//
// # Errors
//
// Construction failures match [ErrAllocation] (and the accel cause, such
// as accel.ErrOutOfMemory) and leave nothing allocated. Calls that would
// disturb a slot in flight return [ErrInvalidState]. A slot whose stream
// never completes stays busy forever; detecting that is left to the
// caller.
//
// # Thread Safety
//
// Per pipeline: one producer goroutine (Ingest, Synchronize,
// UploadCorrectionMap, CalibratePedestal, Close) and one consumer
// goroutine (Retrieve). Pipelines on the same table may be created and
// closed concurrently.
package framepipe
