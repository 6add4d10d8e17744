// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package accel

import (
	"code.hybscloud.com/atomix"
	"github.com/pkg/errors"
)

// Stream is an ordered queue of asynchronous operations on one device.
//
// Operations issued on a stream run one at a time in issue order on the
// stream goroutine. Issuing blocks only if more than the configured queue
// length of operations are outstanding.
type Stream struct {
	device    *Device
	ops       chan func()
	done      chan struct{}
	destroyed atomix.Uint64
	issued    atomix.Uint64
	completed atomix.Uint64
}

// NewStream creates a stream on d.
func (d *Device) NewStream() (*Stream, error) {
	if !reserve(&d.streams, d.streamLimit, 1) {
		return nil, errors.Wrapf(ErrTooManyStreams, "device %d: limit %d", d.ordinal, d.streamLimit)
	}
	s := &Stream{
		device: d,
		ops:    make(chan func(), d.queueLength),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *Stream) run() {
	defer close(s.done)
	for op := range s.ops {
		op()
		s.completed.AddAcqRel(1)
	}
}

func (s *Stream) issue(op func()) {
	if s.destroyed.LoadAcquire() != 0 {
		panic("accel: operation issued on destroyed stream")
	}
	s.issued.AddAcqRel(1)
	s.ops <- op
}

// Device returns the device the stream executes on.
func (s *Stream) Device() *Device {
	return s.device
}

// Launch issues a kernel. fn runs on the stream goroutine after every
// previously issued operation has finished.
func (s *Stream) Launch(fn func()) {
	s.issue(fn)
}

// AddCallback issues a host callback that runs once every previously
// issued operation has finished.
//
// The callback runs on the stream goroutine. It must not block and must
// not issue work on any stream.
func (s *Stream) AddCallback(fn func()) {
	s.issue(fn)
}

// Record issues a marker that completes ev when reached.
func (s *Stream) Record(ev *Event) {
	n := ev.recorded.AddAcqRel(1)
	s.issue(func() { ev.complete(n) })
}

// Query reports whether every issued operation has finished.
func (s *Stream) Query() bool {
	return s.completed.LoadAcquire() == s.issued.LoadAcquire()
}

// Synchronize blocks until every operation issued before the call,
// callbacks included, has finished.
func (s *Stream) Synchronize() {
	if s.destroyed.LoadAcquire() != 0 {
		return
	}
	ch := make(chan struct{})
	s.issue(func() { close(ch) })
	<-ch
}

// Destroy waits for outstanding operations and releases the stream.
// Destroying twice is a no-op.
func (s *Stream) Destroy() {
	if !s.destroyed.CompareAndSwapAcqRel(0, 1) {
		return
	}
	close(s.ops)
	<-s.done
	s.device.streams.AddAcqRel(-1)
}
