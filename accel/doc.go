// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package accel is the accelerator runtime the frame pipeline runs on.
//
// It exposes the small surface a batch-correction pipeline needs from a
// GPU driver: devices with bounded memory, execution streams, completion
// events, pinned host buffers, asynchronous copies, kernel launches and
// stream callbacks.
//
// Devices are executed in software. Every stream owns one goroutine that
// runs its operations strictly in issue order; different streams progress
// independently. Stream callbacks run on the stream goroutine, which is
// not a goroutine the issuing code controls.
//
//	p, _ := accel.NewPlatform(2, accel.WithDeviceMemory(64<<20))
//	dev, _ := p.Device(0)
//	s, _ := dev.NewStream()
//	buf, _ := accel.Alloc[float32](dev, 1024)
//	host, _ := accel.AllocPinned[float32](p, 1024)
//
//	accel.CopyToDevice(s, buf, host.Data())
//	s.Launch(func() { scale(buf.Data()) })
//	accel.CopyToHost(s, host.Data(), buf)
//	s.AddCallback(func() { done.Store(true) })
//
// Issuing work never waits for it; Stream.Synchronize and
// Event.Synchronize are the only blocking calls.
package accel
