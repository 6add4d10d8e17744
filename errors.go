// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAllocation reports that a stream, event or buffer could not be
	// created. Construction calls that return it leave nothing allocated.
	ErrAllocation = errors.New("framepipe: allocation failed")

	// ErrExhausted reports that a table has fewer unclaimed slots than a
	// pipeline asked for. It is an allocation failure.
	ErrExhausted = errors.Wrap(ErrAllocation, "not enough unclaimed slots")

	// ErrInvalidState reports a call that would disturb a slot in flight,
	// such as replacing a correction map while a batch is processing.
	ErrInvalidState = errors.New("framepipe: invalid state transition")

	// ErrInvalidConfig reports an unusable table or pipeline configuration.
	ErrInvalidConfig = errors.New("framepipe: invalid configuration")

	// ErrInvalidFrames reports a frame buffer that is not a whole number of
	// frames.
	ErrInvalidFrames = errors.New("framepipe: invalid frames")

	// ErrClosed reports use of a torn-down table or closed pipeline.
	ErrClosed = errors.New("framepipe: closed")
)

// AllocationError is returned when the accelerator refuses an allocation
// while a table is built. It matches both ErrAllocation and the accel
// cause (for example accel.ErrOutOfMemory) under errors.Is.
type AllocationError struct {
	Slot   int
	Device int
	What   string
	Cause  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("framepipe: allocation failed: slot %d on device %d: %s: %v",
		e.Slot, e.Device, e.What, e.Cause)
}

func (e *AllocationError) Unwrap() []error {
	return []error{ErrAllocation, e.Cause}
}
