// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports pipeline counters to Prometheus, labelled by pipeline id.
type Metrics struct {
	frames       *prometheus.CounterVec
	truncated    *prometheus.CounterVec
	batches      *prometheus.CounterVec
	backpressure *prometheus.CounterVec
	retrieved    *prometheus.CounterVec
	inflight     *prometheus.GaugeVec
}

// NewMetrics creates the metric set and registers it with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	labels := []string{"pipeline"}
	m := &Metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "framepipe",
			Name:      "frames_ingested_total",
			Help:      "Frames accepted by Ingest.",
		}, labels),
		truncated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "framepipe",
			Name:      "frames_truncated_total",
			Help:      "Frames offered to Ingest beyond the slot batch capacity.",
		}, labels),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "framepipe",
			Name:      "batches_submitted_total",
			Help:      "Batches issued to a slot stream.",
		}, labels),
		backpressure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "framepipe",
			Name:      "backpressure_total",
			Help:      "Ingest calls that found no free slot.",
		}, labels),
		retrieved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "framepipe",
			Name:      "batches_retrieved_total",
			Help:      "Batches handed out by Retrieve.",
		}, labels),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "framepipe",
			Name:      "slots_busy",
			Help:      "Slots processing or holding an unretrieved result.",
		}, labels),
	}
	for _, c := range []prometheus.Collector{m.frames, m.truncated, m.batches, m.backpressure, m.retrieved, m.inflight} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "framepipe: register metrics")
		}
	}
	return m, nil
}

// pipelineMetrics is a Metrics view bound to one pipeline. The zero value
// records nothing.
type pipelineMetrics struct {
	parent       *Metrics
	id           string
	frames       prometheus.Counter
	truncated    prometheus.Counter
	batches      prometheus.Counter
	backpressure prometheus.Counter
	retrieved    prometheus.Counter
	inflight     prometheus.Gauge
}

func (m *Metrics) bind(id string) pipelineMetrics {
	if m == nil {
		return pipelineMetrics{}
	}
	return pipelineMetrics{
		parent:       m,
		id:           id,
		frames:       m.frames.WithLabelValues(id),
		truncated:    m.truncated.WithLabelValues(id),
		batches:      m.batches.WithLabelValues(id),
		backpressure: m.backpressure.WithLabelValues(id),
		retrieved:    m.retrieved.WithLabelValues(id),
		inflight:     m.inflight.WithLabelValues(id),
	}
}

func (pm *pipelineMetrics) submitted(accepted, truncated int) {
	if pm.parent == nil {
		return
	}
	pm.batches.Inc()
	pm.frames.Add(float64(accepted))
	pm.truncated.Add(float64(truncated))
	pm.inflight.Inc()
}

func (pm *pipelineMetrics) blocked() {
	if pm.parent == nil {
		return
	}
	pm.backpressure.Inc()
}

func (pm *pipelineMetrics) drained() {
	if pm.parent == nil {
		return
	}
	pm.retrieved.Inc()
	pm.inflight.Dec()
}

func (pm *pipelineMetrics) unbind() {
	if pm.parent == nil {
		return
	}
	m := pm.parent
	for _, v := range []interface{ DeleteLabelValues(...string) bool }{
		m.frames, m.truncated, m.batches, m.backpressure, m.retrieved, m.inflight,
	} {
		v.DeleteLabelValues(pm.id)
	}
}
