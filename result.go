// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe

import "github.com/google/uuid"

// Result is one corrected batch. Retrieve reuses the capacity of
// Corrected and Sums, so a consumer can recycle one Result across calls.
type Result struct {
	// Slot and Device identify where the batch ran.
	Slot   int
	Device int
	// Seq is the batch's position in ingest order, starting at 1.
	Seq    uint64
	Frames int
	Pixels int
	// Corrected holds Frames*Pixels corrected values, frame-major.
	Corrected []float32
	// Sums holds the per-pixel sum of Corrected over the batch.
	Sums []float64
}

// Frame returns the corrected values of frame i of the batch.
func (r *Result) Frame(i int) []float32 {
	return r.Corrected[i*r.Pixels : (i+1)*r.Pixels]
}

// Stats is a snapshot of a pipeline.
type Stats struct {
	ID         uuid.UUID
	Slots      int
	Free       int
	Processing int
	Ready      int

	Batches      uint64
	Frames       uint64
	Truncated    uint64
	Backpressure uint64
	Retrieved    uint64
}
