// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe

import "code.hybscloud.com/atomix"

// Selector picks a device ordinal in [0, n).
//
// A table consults its selector once per slot when it is built, and once
// per pipeline to choose the device its claim starts from.
// Implementations must be safe for concurrent use.
type Selector interface {
	Next(n int) int
}

// RoundRobin cycles through devices. The zero value starts at device 0.
type RoundRobin struct {
	cursor atomix.Uint64
}

// Next returns the next device ordinal.
func (r *RoundRobin) Next(n int) int {
	return int((r.cursor.AddAcqRel(1) - 1) % uint64(n))
}

// Fixed always selects the same device (modulo the device count).
type Fixed int

// Next returns the fixed ordinal.
func (f Fixed) Next(n int) int {
	return int(f) % n
}
