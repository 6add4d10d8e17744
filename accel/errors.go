// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package accel

import "errors"

var (
	// ErrOutOfMemory is returned when a device or pinned allocation exceeds
	// the configured memory limit.
	ErrOutOfMemory = errors.New("accel: out of memory")

	// ErrTooManyStreams is returned when a device has no stream left.
	ErrTooManyStreams = errors.New("accel: stream limit reached")

	// ErrNoDevice is returned for an ordinal outside the platform.
	ErrNoDevice = errors.New("accel: no such device")

	// ErrInvalidSize is returned for negative element counts.
	ErrInvalidSize = errors.New("accel: invalid size")
)
