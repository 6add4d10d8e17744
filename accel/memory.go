// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package accel

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"github.com/pkg/errors"
)

// Buffer is device-resident memory holding n elements of T.
//
// Data must only be touched by operations running on a stream of the
// owning device (copies and kernel launches).
type Buffer[T any] struct {
	device *Device
	data   []T
	bytes  int64
	freed  atomix.Uint64
}

// Alloc allocates n elements of T on d.
func Alloc[T any](d *Device, n int) (*Buffer[T], error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "device %d: %d elements", d.ordinal, n)
	}
	bytes := sizeOf[T](n)
	if !reserve(&d.memUsed, d.memLimit, bytes) {
		return nil, errors.Wrapf(ErrOutOfMemory, "device %d: %d bytes (used %d of %d)",
			d.ordinal, bytes, d.memUsed.Load(), d.memLimit)
	}
	return &Buffer[T]{device: d, data: make([]T, n), bytes: bytes}, nil
}

// Len returns the element count.
func (b *Buffer[T]) Len() int {
	return len(b.data)
}

// Owner returns the device the buffer lives on.
func (b *Buffer[T]) Owner() *Device {
	return b.device
}

// Data returns the device-side elements.
func (b *Buffer[T]) Data() []T {
	return b.data
}

// Free releases the buffer. Freeing twice is a no-op.
func (b *Buffer[T]) Free() {
	if b == nil || !b.freed.CompareAndSwapAcqRel(0, 1) {
		return
	}
	b.device.memUsed.AddAcqRel(-b.bytes)
	b.data = nil
}

// Pinned is page-locked host memory holding n elements of T.
type Pinned[T any] struct {
	platform *Platform
	data     []T
	bytes    int64
	freed    atomix.Uint64
}

// AllocPinned allocates n elements of T in pinned host memory.
func AllocPinned[T any](p *Platform, n int) (*Pinned[T], error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "pinned: %d elements", n)
	}
	bytes := sizeOf[T](n)
	if !reserve(&p.pinnedUsed, p.pinnedLimit, bytes) {
		return nil, errors.Wrapf(ErrOutOfMemory, "pinned: %d bytes (used %d of %d)",
			bytes, p.pinnedUsed.Load(), p.pinnedLimit)
	}
	return &Pinned[T]{platform: p, data: make([]T, n), bytes: bytes}, nil
}

// Data returns the host elements.
func (h *Pinned[T]) Data() []T {
	return h.data
}

// Len returns the element count.
func (h *Pinned[T]) Len() int {
	return len(h.data)
}

// Free releases the pinned memory. Freeing twice is a no-op.
func (h *Pinned[T]) Free() {
	if h == nil || !h.freed.CompareAndSwapAcqRel(0, 1) {
		return
	}
	h.platform.pinnedUsed.AddAcqRel(-h.bytes)
	h.data = nil
}

// CopyToDevice issues an asynchronous host to device copy of src into the
// front of dst. src must stay untouched until the copy has run.
func CopyToDevice[T any](s *Stream, dst *Buffer[T], src []T) {
	s.issue(func() { copy(dst.data, src) })
}

// CopyToHost issues an asynchronous device to host copy of the front of
// src into dst.
func CopyToHost[T any](s *Stream, dst []T, src *Buffer[T]) {
	s.issue(func() { copy(dst, src.data) })
}

func sizeOf[T any](n int) int64 {
	var zero T
	return int64(unsafe.Sizeof(zero)) * int64(n)
}
