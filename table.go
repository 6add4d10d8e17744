// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/framepipe/accel"
	"code.hybscloud.com/framepipe/ring"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TableConfig sizes a Table.
type TableConfig struct {
	// Slots is the number of slots across all devices.
	Slots int
	// MaxFrames is the largest batch one slot accepts.
	MaxFrames int
	// Pixels is the number of pixels per frame.
	Pixels int
}

func (c TableConfig) validate() error {
	if c.Slots < 1 || c.MaxFrames < 1 || c.Pixels < 1 {
		return errors.Wrapf(ErrInvalidConfig, "slots %d, max frames %d, pixels %d",
			c.Slots, c.MaxFrames, c.Pixels)
	}
	return nil
}

// Table owns the slots shared by the pipelines of one accelerator pool.
//
// Slots are spread over devices by the table's Selector when the table is
// built. Unclaimed slots wait in one pool per device; a pipeline claims
// slots round-robin across devices starting at the device its Selector
// picks, and gives them back when it closes.
//
// A Table is reference counted. NewTable returns it holding one reference
// for the caller, every live pipeline holds another, and the table is torn
// down when the last one is released. Teardown requires every slot to be
// StateFree.
type Table struct {
	platform  *accel.Platform
	cfg       TableConfig
	slots     []*Slot
	pools     []*ring.Pool[*Slot]
	unclaimed atomix.Int64
	refs      atomix.Uint64
	owned     atomix.Uint64 // 1 while the creator's reference is held
	selector  Selector
	logger    *zap.Logger
}

// NewTable builds cfg.Slots slots on p. If any stream or buffer cannot be
// created, everything already created is released and an error matching
// ErrAllocation is returned.
func NewTable(p *accel.Platform, cfg TableConfig, opts ...Option) (*Table, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if q := p.StreamQueueLength(); q < opsPerBatch {
		return nil, errors.Wrapf(ErrInvalidConfig,
			"stream queue length %d cannot hold the %d operations of a batch", q, opsPerBatch)
	}
	o := newOptions(opts)

	t := &Table{
		platform: p,
		cfg:      cfg,
		slots:    make([]*Slot, 0, cfg.Slots),
		selector: o.selector,
		logger:   o.logger,
	}

	devices := p.DeviceCount()
	assign := make([]int, cfg.Slots)
	perDevice := make([]int, devices)
	for i := range assign {
		d := t.selector.Next(devices)
		if d < 0 || d >= devices {
			return nil, errors.Wrapf(ErrInvalidConfig, "selector chose device %d of %d", d, devices)
		}
		assign[i] = d
		perDevice[d]++
	}

	for i, ordinal := range assign {
		dev, err := p.Device(ordinal)
		if err != nil {
			t.destroy()
			return nil, err
		}
		s, err := newSlot(p, dev, i, cfg)
		if err != nil {
			t.destroy()
			t.logger.Warn("slot table allocation failed", zap.Error(err))
			return nil, err
		}
		t.slots = append(t.slots, s)
	}

	t.pools = make([]*ring.Pool[*Slot], devices)
	for d := range t.pools {
		t.pools[d] = ring.NewPool[*Slot](max(perDevice[d], 1))
	}
	for _, s := range t.slots {
		t.put(s)
	}

	t.unclaimed.Store(int64(len(t.slots)))
	t.refs.Store(1)
	t.owned.Store(1)
	t.logger.Info("slot table ready",
		zap.Int("slots", cfg.Slots),
		zap.Int("devices", devices),
		zap.Ints("slots_per_device", perDevice),
		zap.Int("max_frames", cfg.MaxFrames),
		zap.Int("pixels", cfg.Pixels))
	return t, nil
}

func (t *Table) put(s *Slot) {
	if err := t.pools[s.Device()].Put(s); err != nil {
		panic("framepipe: device pool overflow")
	}
}

// Config returns the table configuration.
func (t *Table) Config() TableConfig {
	return t.cfg
}

// Slots returns the total number of slots.
func (t *Table) Slots() int {
	return len(t.slots)
}

// Slot returns the slot with lane index i.
func (t *Table) Slot(i int) *Slot {
	return t.slots[i]
}

// Unclaimed returns the number of slots not held by any pipeline.
func (t *Table) Unclaimed() int {
	return int(t.unclaimed.Load())
}

// Platform returns the platform the table allocated on.
func (t *Table) Platform() *accel.Platform {
	return t.platform
}

// Retain adds a reference. It fails with ErrClosed once the table has
// been torn down.
func (t *Table) Retain() error {
	for {
		r := t.refs.LoadAcquire()
		if r == 0 {
			return ErrClosed
		}
		if t.refs.CompareAndSwapAcqRel(r, r+1) {
			return nil
		}
	}
}

// Release drops a reference and tears the table down when it was the
// last one. If a slot is not StateFree at that point, the reference is
// kept and an error matching ErrInvalidState is returned.
func (t *Table) Release() error {
	for {
		r := t.refs.LoadAcquire()
		if r == 0 {
			return ErrClosed
		}
		if r > 1 {
			if t.refs.CompareAndSwapAcqRel(r, r-1) {
				return nil
			}
			continue
		}
		if err := t.quiesced(); err != nil {
			return err
		}
		if t.refs.CompareAndSwapAcqRel(1, 0) {
			t.destroy()
			t.logger.Info("slot table released", zap.Int("slots", len(t.slots)))
			return nil
		}
	}
}

// Close drops the creator's reference. Closing twice is a no-op.
func (t *Table) Close() error {
	if !t.owned.CompareAndSwapAcqRel(1, 0) {
		return nil
	}
	if err := t.Release(); err != nil {
		t.owned.Store(1)
		return err
	}
	return nil
}

func (t *Table) quiesced() error {
	for _, s := range t.slots {
		if st := s.State(); st != StateFree {
			return errors.Wrapf(ErrInvalidState, "teardown with slot %d %s", s.id, st)
		}
	}
	return nil
}

func (t *Table) destroy() {
	for _, s := range t.slots {
		s.destroy()
	}
}

// claim takes n unclaimed slots, one device at a time round-robin from the
// device the selector picks.
func (t *Table) claim(n int) ([]*Slot, error) {
	if n < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "pipeline needs at least one slot, got %d", n)
	}
	devices := len(t.pools)
	out := make([]*Slot, 0, n)
	misses := 0
	start := (t.selector.Next(devices)%devices + devices) % devices
	for d := start; len(out) < n && misses < devices; d = (d + 1) % devices {
		s, err := t.pools[d].Get()
		if ring.IsWouldBlock(err) {
			misses++
			continue
		}
		misses = 0
		out = append(out, s)
	}
	if len(out) < n {
		for _, s := range out {
			t.put(s)
		}
		return nil, errors.Wrapf(ErrExhausted, "want %d, %d unclaimed", n, t.Unclaimed())
	}
	t.unclaimed.Add(int64(-n))
	return out, nil
}

// unclaim returns slots taken by claim. Every slot must be StateFree.
func (t *Table) unclaim(slots []*Slot) {
	for _, s := range slots {
		if s.State() != StateFree {
			panic(errors.Wrapf(ErrInvalidState, "returning slot %d %s", s.id, s.State()).Error())
		}
		t.put(s)
	}
	t.unclaimed.Add(int64(len(slots)))
}
