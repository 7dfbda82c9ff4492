// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/d3dpipe"
	"github.com/gogpu/d3dpipe/internal/metrics"
	"github.com/gogpu/d3dpipe/native"
)

// Option configures a Context or a PipelineManager during creation.
//
// Example:
//
//	ctx, err := d3d.NewContext(factory, 0,
//		d3d.WithVSync(false),
//		d3d.WithLogger(logger),
//	)
type Option func(*options)

// options holds optional configuration.
type options struct {
	logger      *slog.Logger
	vsync       bool
	deviceType  native.DeviceType
	focusWindow uintptr
	vsCode      []byte

	// Manager-only.
	registerer  prometheus.Registerer
	osVersion   *OSVersion
	badHardware []BadHardwareEntry
	ctxOpts     []Option

	// Set by the manager on the contexts it creates.
	metrics *metrics.Adapter
}

func defaultOptions() options {
	return options{
		vsync:       true,
		deviceType:  native.DeviceTypeHAL,
		badHardware: DefaultBadHardware,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *options) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return d3dpipe.Logger()
}

// WithLogger sets the logger. Nil uses d3dpipe.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithVSync selects a present interval of one (true) or immediate (false).
// The default is true.
func WithVSync(enabled bool) Option {
	return func(o *options) {
		o.vsync = enabled
	}
}

// WithDeviceType selects the rasterizer. The default is hardware.
func WithDeviceType(t native.DeviceType) Option {
	return func(o *options) {
		o.deviceType = t
	}
}

// WithFocusWindow sets the window handle devices are created for.
func WithFocusWindow(hwnd uintptr) Option {
	return func(o *options) {
		o.focusWindow = hwnd
	}
}

// WithVertexShader overrides the pass-through vertex shader bytecode.
// Without it the device must implement native.BuiltinShaders.
func WithVertexShader(code []byte) Option {
	return func(o *options) {
		o.vsCode = code
	}
}

// WithRegisterer registers the pipeline metrics with reg.
// It only affects NewPipelineManager.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithOSVersion overrides the detected OS version.
// It only affects NewPipelineManager.
func WithOSVersion(v OSVersion) Option {
	return func(o *options) {
		o.osVersion = &v
	}
}

// WithBadHardware replaces the bad-hardware table.
// It only affects NewPipelineManager.
func WithBadHardware(table []BadHardwareEntry) Option {
	return func(o *options) {
		o.badHardware = table
	}
}

// WithContextOptions adds options applied to every context the manager
// creates.
func WithContextOptions(opts ...Option) Option {
	return func(o *options) {
		o.ctxOpts = append(o.ctxOpts, opts...)
	}
}

func withMetrics(m *metrics.Adapter) Option {
	return func(o *options) {
		o.metrics = m
	}
}
