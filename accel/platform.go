// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package accel

import (
	"code.hybscloud.com/atomix"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Platform is a set of devices sharing one pinned host memory budget.
type Platform struct {
	devices     []*Device
	queueLength int
	pinnedLimit int64
	pinnedUsed  atomix.Int64
	logger      *zap.Logger
}

type platformOptions struct {
	deviceMemory      int64
	pinnedMemory      int64
	streamsPerDevice  int
	streamQueueLength int
	logger            *zap.Logger
}

// PlatformOption configures NewPlatform.
type PlatformOption func(*platformOptions)

// WithDeviceMemory limits each device to n bytes of buffers.
// Zero means unlimited.
func WithDeviceMemory(n int64) PlatformOption {
	return func(o *platformOptions) { o.deviceMemory = n }
}

// WithPinnedMemory limits pinned host allocations across the platform.
// Zero means unlimited.
func WithPinnedMemory(n int64) PlatformOption {
	return func(o *platformOptions) { o.pinnedMemory = n }
}

// WithStreamsPerDevice limits the number of live streams per device.
// Zero means unlimited.
func WithStreamsPerDevice(n int) PlatformOption {
	return func(o *platformOptions) { o.streamsPerDevice = n }
}

// WithStreamQueueLength sets how many operations a stream buffers before
// issuing blocks. Default 64. A slot table needs room for one batch.
func WithStreamQueueLength(n int) PlatformOption {
	return func(o *platformOptions) { o.streamQueueLength = n }
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) PlatformOption {
	return func(o *platformOptions) { o.logger = l }
}

// NewPlatform creates a platform with n devices.
func NewPlatform(n int, opts ...PlatformOption) (*Platform, error) {
	if n < 1 {
		return nil, errors.Wrapf(ErrNoDevice, "platform needs at least one device, got %d", n)
	}
	o := platformOptions{streamQueueLength: 64, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.streamQueueLength < 1 {
		o.streamQueueLength = 1
	}

	p := &Platform{
		queueLength: o.streamQueueLength,
		pinnedLimit: o.pinnedMemory,
		logger:      o.logger,
	}
	p.devices = make([]*Device, n)
	for i := range p.devices {
		p.devices[i] = &Device{
			ordinal:     i,
			platform:    p,
			memLimit:    o.deviceMemory,
			streamLimit: int64(o.streamsPerDevice),
			queueLength: o.streamQueueLength,
		}
	}
	p.logger.Debug("accelerator platform ready",
		zap.Int("devices", n),
		zap.Int64("device_memory", o.deviceMemory),
		zap.Int64("pinned_memory", o.pinnedMemory))
	return p, nil
}

// DeviceCount returns the number of devices.
func (p *Platform) DeviceCount() int {
	return len(p.devices)
}

// Device returns the device with the given ordinal.
func (p *Platform) Device(ordinal int) (*Device, error) {
	if ordinal < 0 || ordinal >= len(p.devices) {
		return nil, errors.Wrapf(ErrNoDevice, "ordinal %d of %d", ordinal, len(p.devices))
	}
	return p.devices[ordinal], nil
}

// StreamQueueLength returns how many operations a stream accepts without
// blocking the issuing goroutine while its current operation runs.
func (p *Platform) StreamQueueLength() int {
	return p.queueLength
}

// PinnedUsed returns the pinned host bytes currently allocated.
func (p *Platform) PinnedUsed() int64 {
	return p.pinnedUsed.Load()
}

// Device is one accelerator.
type Device struct {
	ordinal     int
	platform    *Platform
	memLimit    int64
	memUsed     atomix.Int64
	streamLimit int64
	streams     atomix.Int64
	queueLength int
}

// Ordinal returns the device index within its platform.
func (d *Device) Ordinal() int {
	return d.ordinal
}

// MemoryUsed returns the device bytes currently allocated.
func (d *Device) MemoryUsed() int64 {
	return d.memUsed.Load()
}

// Streams returns the number of live streams on the device.
func (d *Device) Streams() int {
	return int(d.streams.Load())
}

// reserve adds n to used unless that would exceed limit.
// A limit of zero is unlimited.
func reserve(used *atomix.Int64, limit, n int64) bool {
	if used.AddAcqRel(n) > limit && limit > 0 {
		used.AddAcqRel(-n)
		return false
	}
	return true
}
