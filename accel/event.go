// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package accel

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// spinBeforePark is how many pause rounds Event.Synchronize spends before
// sleeping on the condition variable.
const spinBeforePark = 64

// Event marks a point in a stream.
//
// Each Stream.Record advances the event's target; the event is complete
// once the stream has reached the most recent marker.
type Event struct {
	recorded  atomix.Uint64
	completed atomix.Uint64
	mu        sync.Mutex
	cond      *sync.Cond
}

// NewEvent creates an event for streams on d.
func (d *Device) NewEvent() *Event {
	ev := &Event{}
	ev.cond = sync.NewCond(&ev.mu)
	return ev
}

func (ev *Event) complete(n uint64) {
	ev.mu.Lock()
	if n > ev.completed.LoadRelaxed() {
		ev.completed.StoreRelease(n)
	}
	ev.cond.Broadcast()
	ev.mu.Unlock()
}

// Query reports whether the last recorded marker has been reached.
func (ev *Event) Query() bool {
	return ev.completed.LoadAcquire() >= ev.recorded.LoadAcquire()
}

// Synchronize blocks until the marker recorded last before the call has
// been reached.
func (ev *Event) Synchronize() {
	target := ev.recorded.LoadAcquire()

	sw := spin.Wait{}
	for range spinBeforePark {
		if ev.completed.LoadAcquire() >= target {
			return
		}
		sw.Once()
	}

	ev.mu.Lock()
	for ev.completed.LoadAcquire() < target {
		ev.cond.Wait()
	}
	ev.mu.Unlock()
}
