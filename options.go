// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe

import "go.uber.org/zap"

type options struct {
	logger   *zap.Logger
	selector Selector
	kernel   Kernel
	metrics  *Metrics
}

// Option configures NewTable and New.
// Options that do not apply to the call they are passed to are ignored.
type Option func(*options)

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSelector sets the device selector of a table.
// Default is a fresh RoundRobin.
func WithSelector(s Selector) Option {
	return func(o *options) { o.selector = s }
}

// WithKernel replaces the correction kernel of a pipeline.
// Default is DefaultKernel.
func WithKernel(k Kernel) Option {
	return func(o *options) { o.kernel = k }
}

// WithMetrics attaches a pipeline to a metrics set.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.selector == nil {
		o.selector = &RoundRobin{}
	}
	if o.kernel == nil {
		o.kernel = DefaultKernel
	}
	return o
}
