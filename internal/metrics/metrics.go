// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics provides Prometheus collectors for the device pipeline.
//
// Collectors are not global: each PipelineManager owns a Collectors value
// registered into the Registerer it was given, so tests and multiple
// managers never collide on registration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values.
const (
	TargetChanged   = "changed"
	TargetUnchanged = "unchanged"

	ResultOK     = "ok"
	ResultFailed = "failed"

	PrimitiveQuads     = "quads"
	PrimitiveTriangles = "triangles"
)

// Collectors groups the pipeline metrics.
type Collectors struct {
	// TargetSwitches counts SetRenderTarget calls by outcome.
	TargetSwitches *prometheus.CounterVec

	// DeviceResets counts ResetContext calls by result.
	DeviceResets *prometheus.CounterVec

	// DrawBatches counts native draw calls issued by the batcher.
	DrawBatches *prometheus.CounterVec

	// Primitives counts primitives submitted by the batcher.
	Primitives *prometheus.CounterVec

	// SceneBegins counts native BeginScene calls.
	SceneBegins prometheus.Counter

	// Resources tracks resources currently held by resource managers.
	Resources *prometheus.GaugeVec

	// Adapters tracks adapter slots by lifecycle state.
	Adapters *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		TargetSwitches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "d3dpipe_render_target_switches_total",
			Help: "Total number of render target requests, by outcome (changed/unchanged).",
		}, []string{"adapter", "outcome"}),
		DeviceResets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "d3dpipe_device_resets_total",
			Help: "Total number of device reset attempts, by result.",
		}, []string{"adapter", "result"}),
		DrawBatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "d3dpipe_draw_batches_total",
			Help: "Total number of batched draw calls, by primitive.",
		}, []string{"adapter", "primitive"}),
		Primitives: f.NewCounterVec(prometheus.CounterOpts{
			Name: "d3dpipe_primitives_total",
			Help: "Total number of submitted primitives, by primitive.",
		}, []string{"adapter", "primitive"}),
		SceneBegins: f.NewCounter(prometheus.CounterOpts{
			Name: "d3dpipe_scene_begins_total",
			Help: "Total number of native begin-scene calls.",
		}),
		Resources: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "d3dpipe_tracked_resources",
			Help: "Current number of tracked device resources, by adapter.",
		}, []string{"adapter"}),
		Adapters: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "d3dpipe_adapters",
			Help: "Current number of adapter slots, by state.",
		}, []string{"state"}),
	}
}

// Adapter returns the metrics of one adapter with the label bound.
// A nil receiver returns a no-op Adapter.
func (c *Collectors) Adapter(ordinal string) *Adapter {
	if c == nil {
		return nil
	}
	return &Adapter{c: c, ordinal: ordinal}
}

// Adapter records metrics for one adapter ordinal.
// All methods are no-ops on a nil receiver.
type Adapter struct {
	c       *Collectors
	ordinal string
}

// TargetSwitch records a render target request.
func (a *Adapter) TargetSwitch(changed bool) {
	if a == nil {
		return
	}
	outcome := TargetUnchanged
	if changed {
		outcome = TargetChanged
	}
	a.c.TargetSwitches.WithLabelValues(a.ordinal, outcome).Inc()
}

// Reset records a device reset attempt.
func (a *Adapter) Reset(ok bool) {
	if a == nil {
		return
	}
	result := ResultFailed
	if ok {
		result = ResultOK
	}
	a.c.DeviceResets.WithLabelValues(a.ordinal, result).Inc()
}

// Batch records one draw call of n primitives.
func (a *Adapter) Batch(primitive string, n int) {
	if a == nil {
		return
	}
	a.c.DrawBatches.WithLabelValues(a.ordinal, primitive).Inc()
	a.c.Primitives.WithLabelValues(a.ordinal, primitive).Add(float64(n))
}

// SceneBegin records a native begin-scene call.
func (a *Adapter) SceneBegin() {
	if a == nil {
		return
	}
	a.c.SceneBegins.Inc()
}

// SetResources sets the tracked resource gauge.
func (a *Adapter) SetResources(n int) {
	if a == nil {
		return
	}
	a.c.Resources.WithLabelValues(a.ordinal).Set(float64(n))
}

// SetAdapterStates replaces the adapter state gauge.
func (c *Collectors) SetAdapterStates(counts map[string]int) {
	if c == nil {
		return
	}
	c.Adapters.Reset()
	for state, n := range counts {
		c.Adapters.WithLabelValues(state).Set(float64(n))
	}
}
