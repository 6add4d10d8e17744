// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/framepipe/accel"
	"code.hybscloud.com/framepipe/calib"
)

// Slot binds one stream, one event and a set of staging and device
// buffers on a single device. It carries at most one batch at a time.
//
// Stream and event are created with the table and never reassigned.
// Buffers are sized for the table's MaxFrames and Pixels.
type Slot struct {
	id     int
	device *accel.Device
	stream *accel.Stream
	event  *accel.Event

	// Pinned host staging.
	inbound   *accel.Pinned[uint16]
	corrected *accel.Pinned[float32]
	sums      *accel.Pinned[float64]

	// Device resident.
	dRaw       *accel.Buffer[uint16]
	dGain      *accel.Buffer[float64]
	dPedestal  *accel.Buffer[float64]
	dCorrected *accel.Buffer[float32]
	dSums      *accel.Buffer[float64]

	state atomix.Uint64

	// Written by Ingest before work is issued, read by Retrieve after the
	// callback has published StateReady.
	frames int
	seq    uint64

	complete func()
}

func newSlot(p *accel.Platform, dev *accel.Device, id int, cfg TableConfig) (*Slot, error) {
	s := &Slot{id: id, device: dev}
	s.complete = s.onComplete
	if err := s.alloc(p, cfg); err != nil {
		s.destroy()
		return nil, err
	}
	return s, nil
}

func (s *Slot) alloc(p *accel.Platform, cfg TableConfig) (err error) {
	fail := func(what string, cause error) error {
		return &AllocationError{Slot: s.id, Device: s.device.Ordinal(), What: what, Cause: cause}
	}

	words := cfg.MaxFrames * cfg.Pixels
	maps := calib.Stages * cfg.Pixels

	if s.stream, err = s.device.NewStream(); err != nil {
		return fail("stream", err)
	}
	s.event = s.device.NewEvent()

	if s.inbound, err = accel.AllocPinned[uint16](p, words); err != nil {
		return fail("pinned frames", err)
	}
	if s.corrected, err = accel.AllocPinned[float32](p, words); err != nil {
		return fail("pinned corrected", err)
	}
	if s.sums, err = accel.AllocPinned[float64](p, cfg.Pixels); err != nil {
		return fail("pinned sums", err)
	}
	if s.dRaw, err = accel.Alloc[uint16](s.device, words); err != nil {
		return fail("device frames", err)
	}
	if s.dGain, err = accel.Alloc[float64](s.device, maps); err != nil {
		return fail("device gain", err)
	}
	if s.dPedestal, err = accel.Alloc[float64](s.device, maps); err != nil {
		return fail("device pedestal", err)
	}
	if s.dCorrected, err = accel.Alloc[float32](s.device, words); err != nil {
		return fail("device corrected", err)
	}
	if s.dSums, err = accel.Alloc[float64](s.device, cfg.Pixels); err != nil {
		return fail("device sums", err)
	}
	return nil
}

// destroy releases everything the slot holds. Safe on a partly built slot.
func (s *Slot) destroy() {
	if s.stream != nil {
		s.stream.Destroy()
	}
	s.inbound.Free()
	s.corrected.Free()
	s.sums.Free()
	s.dRaw.Free()
	s.dGain.Free()
	s.dPedestal.Free()
	s.dCorrected.Free()
	s.dSums.Free()
}

// onComplete is the stream callback of an ingested batch. It runs on the
// stream goroutine and does nothing but publish the result.
func (s *Slot) onComplete() {
	if !s.transition(StateProcessing, StateReady) {
		panic("framepipe: completion callback on slot not in processing state")
	}
}

func (s *Slot) transition(from, to State) bool {
	return s.state.CompareAndSwapAcqRel(uint64(from), uint64(to))
}

// uploadMap issues the copy of m onto the slot's device. The caller must
// synchronize the stream before m may change.
func (s *Slot) uploadMap(m *calib.Map) {
	accel.CopyToDevice(s.stream, s.dGain, m.Gain)
	accel.CopyToDevice(s.stream, s.dPedestal, m.Pedestal)
}

// downloadMap issues the copy of the resident map into m.
func (s *Slot) downloadMap(m *calib.Map) {
	accel.CopyToHost(s.stream, m.Gain, s.dGain)
	accel.CopyToHost(s.stream, m.Pedestal, s.dPedestal)
}

// ID returns the slot's lane index within its table.
func (s *Slot) ID() int {
	return s.id
}

// Device returns the ordinal of the device the slot runs on.
func (s *Slot) Device() int {
	return s.device.Ordinal()
}

// State returns the current processing state.
func (s *Slot) State() State {
	return State(s.state.LoadAcquire())
}
