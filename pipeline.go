// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/framepipe/accel"
	"code.hybscloud.com/framepipe/calib"
	"code.hybscloud.com/framepipe/ring"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Pipeline corrects batches of frames against one correction map using
// the slots it claimed from a Table.
//
// Ingest hands a batch to a free slot and returns at once; the slot's
// stream copies the frames in, runs the kernel and copies the result out,
// then marks the slot ready. Retrieve polls for ready slots and hands
// their results back. Different slots proceed independently, so transfer
// and compute of consecutive batches overlap.
//
// Thread safety: Ingest, Synchronize, UploadCorrectionMap,
// CalibratePedestal and Close must be called from one goroutine (the
// producer). Retrieve must be called from one goroutine (the consumer),
// which may be the producer. Stats and Empty may be called from anywhere.
type Pipeline struct {
	id      uuid.UUID
	table   *Table
	slots   []*Slot
	free    *ring.Ring[*Slot]
	m       *calib.Map
	kernel  Kernel
	logger  *zap.Logger
	metrics pipelineMetrics
	closed  atomix.Bool

	seq  uint64 // producer only
	scan int    // consumer only

	batches      atomix.Uint64
	frames       atomix.Uint64
	truncated    atomix.Uint64
	backpressure atomix.Uint64
	retrieved    atomix.Uint64
}

// New claims slots slots from t, uploads m to each of them and returns a
// pipeline ready to ingest. m is copied; later changes to it have no
// effect.
func New(t *Table, m *calib.Map, slots int, opts ...Option) (*Pipeline, error) {
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if m.Pixels != t.cfg.Pixels {
		return nil, errors.Wrapf(ErrInvalidConfig, "map has %d pixels, table frames have %d",
			m.Pixels, t.cfg.Pixels)
	}
	o := newOptions(opts)

	if err := t.Retain(); err != nil {
		return nil, err
	}
	claimed, err := t.claim(slots)
	if err != nil {
		t.Release()
		return nil, err
	}

	p := &Pipeline{
		id:     uuid.New(),
		table:  t,
		slots:  claimed,
		free:   ring.New[*Slot](len(claimed)),
		m:      m.Clone(),
		kernel: o.kernel,
		logger: o.logger,
	}
	p.logger = p.logger.With(zap.Stringer("pipeline", p.id))
	p.metrics = o.metrics.bind(p.id.String())

	for _, s := range p.slots {
		s.uploadMap(p.m)
	}
	for _, s := range p.slots {
		s.stream.Synchronize()
		if err := p.free.Enqueue(&s); err != nil {
			panic("framepipe: free ring smaller than claimed slots")
		}
	}

	p.logger.Info("pipeline ready", zap.Int("slots", len(p.slots)), zap.Ints("devices", p.Devices()))
	return p, nil
}

// ID returns the pipeline's identity.
func (p *Pipeline) ID() uuid.UUID {
	return p.id
}

// Slots returns the number of slots the pipeline holds.
func (p *Pipeline) Slots() int {
	return len(p.slots)
}

// Devices returns the device ordinal of each held slot, in claim order.
func (p *Pipeline) Devices() []int {
	out := make([]int, len(p.slots))
	for i, s := range p.slots {
		out[i] = s.Device()
	}
	return out
}

// Map returns the resident correction map. It must not be modified.
func (p *Pipeline) Map() *calib.Map {
	return p.m
}

// Empty reports whether no slot is free, that is every slot is processing
// or holds an unretrieved result.
func (p *Pipeline) Empty() bool {
	return p.free.Empty()
}

// opsPerBatch is the number of stream operations Ingest issues for one
// batch: copy-in, kernel, two copy-outs, event record and callback.
const opsPerBatch = 6

// Ingest submits the frames in frames, a whole number of frames of the
// table's pixel count, and returns how many were accepted.
//
// At most the table's MaxFrames are accepted; the rest are dropped. Zero
// accepted frames with a nil error means no slot is free (backpressure):
// the caller must retry later or buffer upstream. Ingest never blocks on
// accelerator work.
func (p *Pipeline) Ingest(frames []uint16) (int, error) {
	if p.closed.LoadAcquire() {
		return 0, ErrClosed
	}
	px := p.table.cfg.Pixels
	if len(frames)%px != 0 {
		return 0, errors.Wrapf(ErrInvalidFrames, "%d words is not a multiple of %d pixels", len(frames), px)
	}
	count := len(frames) / px
	if count == 0 {
		return 0, nil
	}

	s, err := p.free.Dequeue()
	if ring.IsWouldBlock(err) {
		p.backpressure.Add(1)
		p.metrics.blocked()
		return 0, nil
	}
	if !s.transition(StateFree, StateProcessing) {
		panic("framepipe: slot in free ring is not free")
	}

	n := min(count, p.table.cfg.MaxFrames)
	words := n * px
	copy(s.inbound.Data(), frames[:words])
	p.seq++
	s.seq = p.seq
	s.frames = n

	args := KernelArgs{
		Frames:    n,
		Pixels:    px,
		Raw:       s.dRaw.Data()[:words],
		Gain:      s.dGain.Data(),
		Pedestal:  s.dPedestal.Data(),
		Corrected: s.dCorrected.Data()[:words],
		Sums:      s.dSums.Data(),
	}
	kernel := p.kernel
	accel.CopyToDevice(s.stream, s.dRaw, s.inbound.Data()[:words])
	s.stream.Launch(func() { kernel(args) })
	accel.CopyToHost(s.stream, s.corrected.Data()[:words], s.dCorrected)
	accel.CopyToHost(s.stream, s.sums.Data(), s.dSums)
	s.stream.Record(s.event)
	s.stream.AddCallback(s.complete)

	p.batches.Add(1)
	p.frames.Add(uint64(n))
	p.truncated.Add(uint64(count - n))
	p.metrics.submitted(n, count-n)
	return n, nil
}

// Retrieve copies one ready result into dst and frees its slot. It
// returns false, leaving dst untouched, when no slot is ready. Retrieve
// never blocks.
//
// Slots are scanned in ascending lane order starting after the slot
// returned last, so a slot that keeps becoming ready cannot starve the
// others. Results therefore do not necessarily come back in ingest order;
// Result.Seq restores it.
func (p *Pipeline) Retrieve(dst *Result) bool {
	if p.closed.LoadAcquire() {
		return false
	}
	n := len(p.slots)
	for k := range n {
		i := (p.scan + k) % n
		s := p.slots[i]
		if s.State() != StateReady {
			continue
		}

		px := p.table.cfg.Pixels
		words := s.frames * px
		dst.Slot = s.id
		dst.Device = s.Device()
		dst.Seq = s.seq
		dst.Frames = s.frames
		dst.Pixels = px
		dst.Corrected = append(dst.Corrected[:0], s.corrected.Data()[:words]...)
		dst.Sums = append(dst.Sums[:0], s.sums.Data()...)

		if !s.transition(StateReady, StateFree) {
			panic("framepipe: ready slot changed state under Retrieve")
		}
		if err := p.free.Enqueue(&s); err != nil {
			panic("framepipe: free ring overflow")
		}
		p.scan = i + 1
		p.retrieved.Add(1)
		p.metrics.drained()
		return true
	}
	return false
}

// Synchronize blocks until every batch issued so far has finished and its
// slot is ready. It does not retrieve anything.
//
// A stream that never completes blocks Synchronize forever.
func (p *Pipeline) Synchronize() {
	if p.closed.LoadAcquire() {
		return
	}
	for _, s := range p.slots {
		s.stream.Synchronize()
	}
}

// UploadCorrectionMap replaces the resident correction map on every slot.
// No slot may be processing: call Synchronize first. Ready results are
// unaffected.
func (p *Pipeline) UploadCorrectionMap(m *calib.Map) error {
	if p.closed.LoadAcquire() {
		return ErrClosed
	}
	if err := m.Validate(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if m.Pixels != p.table.cfg.Pixels {
		return errors.Wrapf(ErrInvalidConfig, "map has %d pixels, table frames have %d",
			m.Pixels, p.table.cfg.Pixels)
	}
	for _, s := range p.slots {
		if s.State() == StateProcessing {
			return errors.Wrapf(ErrInvalidState, "map upload while slot %d is processing", s.id)
		}
	}

	p.m = m.Clone()
	for _, s := range p.slots {
		s.uploadMap(p.m)
	}
	p.Synchronize()
	p.logger.Debug("correction map uploaded")
	return nil
}

// CalibratePedestal re-estimates the pedestal from dark frames (see
// calib.PedestalFromDark) and uploads the resulting map. The same
// precondition as UploadCorrectionMap applies.
func (p *Pipeline) CalibratePedestal(dark []uint16) error {
	m, err := calib.PedestalFromDark(p.m, dark)
	if err != nil {
		return errors.Wrap(ErrInvalidFrames, err.Error())
	}
	return p.UploadCorrectionMap(m)
}

// DownloadCorrectionMap reads the correction map resident on the device
// of the pipeline's i-th slot (in claim order, see Devices). It waits for
// work already issued on that slot, so the result reflects every upload
// made before the call.
func (p *Pipeline) DownloadCorrectionMap(i int) (*calib.Map, error) {
	if p.closed.LoadAcquire() {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(p.slots) {
		return nil, errors.Wrapf(ErrInvalidConfig, "slot %d of %d", i, len(p.slots))
	}
	s := p.slots[i]
	m := calib.NewMap(p.table.cfg.Pixels)
	s.downloadMap(m)
	s.stream.Synchronize()
	return m, nil
}

// Close gives the slots back to the table and drops the pipeline's table
// reference. Every slot must be free: Synchronize and Retrieve all
// results first, and stop the Retrieve goroutine. Closing twice is a
// no-op.
func (p *Pipeline) Close() error {
	if p.closed.LoadAcquire() {
		return nil
	}
	for _, s := range p.slots {
		if st := s.State(); st != StateFree {
			return errors.Wrapf(ErrInvalidState, "close with slot %d %s", s.id, st)
		}
	}
	p.closed.StoreRelease(true)

	for !p.free.Empty() {
		p.free.Dequeue()
	}
	p.table.unclaim(p.slots)
	p.metrics.unbind()
	p.logger.Info("pipeline closed", zap.Uint64("batches", p.batches.Load()))
	return p.table.Release()
}

// Stats returns a snapshot of the pipeline counters and slot states.
func (p *Pipeline) Stats() Stats {
	st := Stats{
		ID:           p.id,
		Slots:        len(p.slots),
		Batches:      p.batches.Load(),
		Frames:       p.frames.Load(),
		Truncated:    p.truncated.Load(),
		Backpressure: p.backpressure.Load(),
		Retrieved:    p.retrieved.Load(),
	}
	for _, s := range p.slots {
		switch s.State() {
		case StateFree:
			st.Free++
		case StateProcessing:
			st.Processing++
		case StateReady:
			st.Ready++
		}
	}
	return st
}
