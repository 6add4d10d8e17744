// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe

// State is the processing state of a slot.
//
//	StateFree --Ingest--> StateProcessing --callback--> StateReady --Retrieve--> StateFree
//
// No other transitions exist.
type State uint64

const (
	// StateFree: available for claiming, not referenced by any stream work.
	StateFree State = iota
	// StateProcessing: claimed by Ingest, copy-in/kernel/copy-out in flight.
	StateProcessing
	// StateReady: stream work finished, result not yet retrieved.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateProcessing:
		return "processing"
	case StateReady:
		return "ready"
	default:
		return "invalid"
	}
}
